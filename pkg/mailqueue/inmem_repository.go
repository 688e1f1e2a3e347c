package mailqueue

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrMessageNotFound = errors.New("queued message not found")

// InMemoryRepository implements Repository using in-memory storage.
// Intended for tests and local development.
type InMemoryRepository struct {
	mu       sync.RWMutex
	messages map[uuid.UUID]Message
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		messages: make(map[uuid.UUID]Message),
	}
}

func (r *InMemoryRepository) Enqueue(ctx context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	r.messages[msg.ID] = msg
	return nil
}

func (r *InMemoryRepository) GetBatch(ctx context.Context, limit int, now time.Time) ([]Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var due []Message
	for _, m := range r.messages {
		if m.ShouldSend && !m.SendAfter.After(now) {
			due = append(due, m)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].SendAfter.Before(due[j].SendAfter) })

	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.messages[msg.ID]
	if !ok {
		return ErrMessageNotFound
	}
	stored.ShouldSend = msg.ShouldSend
	stored.SendAttempts = msg.SendAttempts
	stored.ResponseLog = msg.ResponseLog
	r.messages[msg.ID] = stored
	return nil
}

// Get returns a stored message by id, for test assertions.
func (r *InMemoryRepository) Get(id uuid.UUID) (Message, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.messages[id]
	return m, ok
}

// All returns every stored message, for test assertions.
func (r *InMemoryRepository) All() []Message {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]Message, 0, len(r.messages))
	for _, m := range r.messages {
		results = append(results, m)
	}
	return results
}
