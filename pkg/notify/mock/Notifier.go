// Package mock provides a mock implementation of the notify package
// interfaces for testing.
package mock

import (
	"context"
	"sync"

	"github.com/rjames86/grafana-collectors/pkg/notify"
)

// MockNotifier is a mock implementation of notify.Notifier for testing.
// It tracks sent notifications and allows configuring an error to return.
type MockNotifier struct {
	mu sync.Mutex

	// SendFunc is called when Send is invoked. If nil, returns SendError.
	SendFunc func(ctx context.Context, message, title string) error
	// SendError is returned by Send if SendFunc is nil.
	SendError error
	// SendCalls tracks all calls to Send with their arguments.
	SendCalls []SendCall
}

// SendCall records the arguments to a Send call.
type SendCall struct {
	Ctx     context.Context
	Message string
	Title   string
}

// NewMockNotifier creates a new MockNotifier with default behavior (no
// errors).
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{
		SendCalls: make([]SendCall, 0),
	}
}

// Send implements notify.Notifier.
func (m *MockNotifier) Send(ctx context.Context, message, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SendCalls = append(m.SendCalls, SendCall{
		Ctx:     ctx,
		Message: message,
		Title:   title,
	})

	if m.SendFunc != nil {
		return m.SendFunc(ctx, message, title)
	}
	return m.SendError
}

// Calls returns a snapshot of the recorded Send calls.
func (m *MockNotifier) Calls() []SendCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]SendCall, len(m.SendCalls))
	copy(calls, m.SendCalls)
	return calls
}

// Reset clears all tracked calls.
func (m *MockNotifier) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendCalls = make([]SendCall, 0)
}

// Ensure MockNotifier implements notify.Notifier.
var _ notify.Notifier = (*MockNotifier)(nil)
