package mailqueue

import (
	"time"

	"github.com/google/uuid"
)

// Message is a unit of outbound email work. Rows are created by the account
// flows and mutated only by the dispatch worker afterwards. Messages are kept
// after delivery (or exhaustion) as an audit trail.
type Message struct {
	ID                uuid.UUID
	SenderAccountID   uuid.UUID
	ReceiverAccountID uuid.UUID
	ShouldSend        bool
	SendAfter         time.Time
	SenderEmail       string
	RecipientEmail    string
	Body              string
	SendAttempts      int
	ResponseLog       string // append-only audit trail
}

// AppendLog appends a timestamped line to the message's audit trail.
func (m *Message) AppendLog(now time.Time, line string) {
	m.ResponseLog += now.Format(time.RFC3339) + ": " + line + ";"
}
