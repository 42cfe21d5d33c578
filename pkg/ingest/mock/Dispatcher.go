// Package mock provides mock implementations of the ingest package
// interfaces for testing.
package mock

import (
	"context"
	"sync"

	"github.com/rjames86/grafana-collectors/pkg/ingest"
	"github.com/rjames86/grafana-collectors/pkg/point"
)

// MockDispatcher is a mock implementation of ingest.Dispatcher for testing.
// It tracks calls and allows configuring return values and behavior.
type MockDispatcher struct {
	mu sync.Mutex

	// WriteFunc is called when Write is invoked. If nil, returns WriteAck
	// and WriteError.
	WriteFunc func(ctx context.Context, destination string, batch *point.Batch, verbose bool) (*ingest.Ack, error)
	// WriteAck is returned by Write if WriteFunc is nil.
	WriteAck *ingest.Ack
	// WriteError is returned by Write if WriteFunc is nil.
	WriteError error
	// WriteCalls tracks all calls to Write with their arguments.
	WriteCalls []WriteCall
}

// WriteCall records the arguments to a Write call.
type WriteCall struct {
	Ctx         context.Context
	Destination string
	Batch       *point.Batch
	Verbose     bool
}

// NewMockDispatcher creates a new MockDispatcher that acknowledges every
// write.
func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{
		WriteAck:   &ingest.Ack{Message: "Successfully written"},
		WriteCalls: make([]WriteCall, 0),
	}
}

// Write implements ingest.Dispatcher.
func (m *MockDispatcher) Write(ctx context.Context, destination string, batch *point.Batch, verbose bool) (*ingest.Ack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteCalls = append(m.WriteCalls, WriteCall{
		Ctx:         ctx,
		Destination: destination,
		Batch:       batch,
		Verbose:     verbose,
	})

	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, destination, batch, verbose)
	}
	return m.WriteAck, m.WriteError
}

// Calls returns a snapshot of the recorded Write calls.
func (m *MockDispatcher) Calls() []WriteCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]WriteCall, len(m.WriteCalls))
	copy(calls, m.WriteCalls)
	return calls
}

// Reset clears all tracked calls.
func (m *MockDispatcher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteCalls = make([]WriteCall, 0)
}

// Ensure MockDispatcher implements ingest.Dispatcher.
var _ ingest.Dispatcher = (*MockDispatcher)(nil)
