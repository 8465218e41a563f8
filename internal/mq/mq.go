package mq

import (
	"context"
	"errors"
	"sync/atomic"
)

// Attributes set on published messages.
const (
	AttrContentType = "content-type"
	AttrEventType   = "event-type"
)

// ErrClosed is returned once a queue or backend has been closed.
var ErrClosed = errors.New("mq: closed")

// Message is a payload delivered to a subscriber, whatever the broker.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. A non-nil error asks the broker to redeliver.
type Handler func(ctx context.Context, msg Message) error

// Backend is implemented by each broker client.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// MQ fronts a Backend. It stops accepting publishes once closed so late
// requests during shutdown fail fast instead of hitting a dead connection.
type MQ struct {
	backend Backend
	closed  atomic.Bool
}

func New(backend Backend) *MQ {
	return &MQ{backend: backend}
}

// Publish sends data to channel and returns the broker message ID.
func (m *MQ) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if m.closed.Load() {
		return "", ErrClosed
	}
	return m.backend.Publish(ctx, channel, data, attrs)
}

// Subscribe consumes channel until ctx is done or the broker fails.
func (m *MQ) Subscribe(ctx context.Context, channel string, handler Handler) error {
	return m.backend.Subscribe(ctx, channel, handler)
}

// Close closes the backend. Calls after the first are no-ops.
func (m *MQ) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	return m.backend.Close()
}
