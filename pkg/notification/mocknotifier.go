package notification

import (
	"context"

	"github.com/rollforge/tavernkeep/pkg/mailqueue"
)

// MockNotifier captures sent messages instead of delivering them, with an
// optional injected failure.
type MockNotifier struct {
	SentMessages []mailqueue.Message
	Err          error
}

func (m *MockNotifier) Send(ctx context.Context, msg mailqueue.Message) error {
	if m.Err != nil {
		return m.Err
	}
	m.SentMessages = append(m.SentMessages, msg)
	return nil
}
