package mailqueue

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rollforge/tavernkeep/pkg/clock"
	"github.com/rollforge/tavernkeep/pkg/settings"
)

const (
	defaultInterval    = 5 * time.Second
	defaultBatchLimit  = 100
	defaultMaxAttempts = 5
)

// Sender performs a single delivery attempt for a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Worker drains the email queue on a fixed interval. A run never overlaps a
// previous run that is still processing; delivery failures are retried on
// later runs until the attempt cap is reached.
type Worker struct {
	repo     Repository
	settings *settings.Service
	sender   Sender
	clock    clock.Clock
	interval time.Duration

	inFlight atomic.Bool
}

// WorkerOption defines configuration options for the Worker
type WorkerOption func(*Worker)

// WithInterval sets the polling interval.
func WithInterval(interval time.Duration) WorkerOption {
	return func(w *Worker) {
		w.interval = interval
	}
}

func NewWorker(repo Repository, settingsService *settings.Service, sender Sender, clk clock.Clock, opts ...WorkerOption) *Worker {
	worker := &Worker{
		repo:     repo,
		settings: settingsService,
		sender:   sender,
		clock:    clk,
		interval: defaultInterval,
	}

	for _, opt := range opts {
		opt(worker)
	}

	return worker
}

// Run polls the queue until ctx is cancelled. An in-flight batch finishes
// before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	slog.Info("Email dispatch worker started", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Email dispatch worker stopped")
			return ctx.Err()
		case <-ticker.C:
			w.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch performs a single queue run. It returns immediately if a
// previous run is still in flight.
func (w *Worker) ProcessBatch(ctx context.Context) {
	if !w.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer w.inFlight.Store(false)

	batchLimit := w.settings.GetInt(ctx, settings.SettingEmailBatchLimit, defaultBatchLimit)
	maxAttempts := w.settings.GetInt(ctx, settings.SettingEmailMaxAttempts, defaultMaxAttempts)

	batch, err := w.repo.GetBatch(ctx, batchLimit, w.clock.Now())
	if err != nil {
		slog.Error("Failed to fetch email batch", "err", err)
		return
	}

	if len(batch) == 0 {
		return
	}

	slog.Debug("Processing email batch", "count", len(batch))

	for _, msg := range batch {
		if ctx.Err() != nil {
			return
		}
		w.processMessage(ctx, msg, maxAttempts)
	}
}

func (w *Worker) processMessage(ctx context.Context, msg Message, maxAttempts int) {
	msg.SendAttempts++

	if msg.SendAttempts > maxAttempts {
		msg.ShouldSend = false
		msg.AppendLog(w.clock.Now(), "Max send attempts reached")
		if err := w.repo.Update(ctx, msg); err != nil {
			slog.Error("Failed to mark email exhausted", "id", msg.ID, "err", err)
		}
		return
	}

	// Flip should_send off before attempting delivery so a crash mid-send
	// cannot double-send after restart.
	msg.ShouldSend = false
	if err := w.repo.Update(ctx, msg); err != nil {
		slog.Error("Failed to update email before send", "id", msg.ID, "err", err)
		return
	}

	if err := w.sender.Send(ctx, msg); err != nil {
		slog.Warn("Email delivery attempt failed", "id", msg.ID, "attempt", msg.SendAttempts, "err", err)
		msg.AppendLog(w.clock.Now(), fmt.Sprintf("Email failed to send. Attempt %d of %d", msg.SendAttempts, maxAttempts))
		if msg.SendAttempts >= maxAttempts {
			msg.AppendLog(w.clock.Now(), "Max send attempts reached")
		} else {
			msg.ShouldSend = true
		}
		if err := w.repo.Update(ctx, msg); err != nil {
			slog.Error("Failed to update email after failed send", "id", msg.ID, "err", err)
		}
		return
	}

	msg.AppendLog(w.clock.Now(), "Email sent")
	if err := w.repo.Update(ctx, msg); err != nil {
		slog.Error("Failed to update email after send", "id", msg.ID, "err", err)
	}
}
