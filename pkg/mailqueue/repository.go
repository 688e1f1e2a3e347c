package mailqueue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles persistence for queued email messages.
type Repository interface {
	// Enqueue stores a new message.
	Enqueue(ctx context.Context, msg Message) error
	// GetBatch returns up to limit messages that are eligible for sending
	// (should_send and send_after <= now), oldest first.
	GetBatch(ctx context.Context, limit int, now time.Time) ([]Message, error)
	// Update persists the send-state bookkeeping of an existing message.
	Update(ctx context.Context, msg Message) error
}

// PostgresRepository implements Repository over a pgx pool.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Enqueue(ctx context.Context, msg Message) error {
	query := `
		INSERT INTO email_queue (
			id, sender_account_id, receiver_account_id, should_send, send_after,
			sender_email, recipient_email, body, send_attempts, response_log
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}

	_, err := r.db.Exec(ctx, query,
		msg.ID,
		msg.SenderAccountID,
		msg.ReceiverAccountID,
		msg.ShouldSend,
		msg.SendAfter,
		msg.SenderEmail,
		msg.RecipientEmail,
		msg.Body,
		msg.SendAttempts,
		msg.ResponseLog,
	)
	return err
}

func (r *PostgresRepository) GetBatch(ctx context.Context, limit int, now time.Time) ([]Message, error) {
	query := `
		SELECT id, sender_account_id, receiver_account_id, should_send, send_after,
		       sender_email, recipient_email, body, send_attempts, response_log
		FROM email_queue
		WHERE should_send = true
		AND send_after <= $1
		ORDER BY send_after
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(
			&m.ID,
			&m.SenderAccountID,
			&m.ReceiverAccountID,
			&m.ShouldSend,
			&m.SendAfter,
			&m.SenderEmail,
			&m.RecipientEmail,
			&m.Body,
			&m.SendAttempts,
			&m.ResponseLog,
		); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

func (r *PostgresRepository) Update(ctx context.Context, msg Message) error {
	query := `
		UPDATE email_queue
		SET should_send = $2, send_attempts = $3, response_log = $4
		WHERE id = $1
	`

	_, err := r.db.Exec(ctx, query, msg.ID, msg.ShouldSend, msg.SendAttempts, msg.ResponseLog)
	return err
}
