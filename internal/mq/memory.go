package mq

import (
	"context"
	"errors"
	"sync"

	"github.com/oklog/ulid/v2"
)

// MemoryBackend delivers messages between goroutines of one process.
// Messages published before anyone subscribes are buffered per channel.
type MemoryBackend struct {
	mu       sync.Mutex
	channels map[string]chan Message
	closed   chan struct{}
	once     sync.Once
	buffer   int
}

// NewMemoryBackend constructs an in-process backend with the given
// per-channel buffer size.
func NewMemoryBackend(buffer int) *MemoryBackend {
	if buffer <= 0 {
		buffer = 64
	}
	return &MemoryBackend{
		channels: make(map[string]chan Message),
		closed:   make(chan struct{}),
		buffer:   buffer,
	}
}

func (m *MemoryBackend) channel(name string) chan Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[name]
	if !ok {
		ch = make(chan Message, m.buffer)
		m.channels[name] = ch
	}
	return ch
}

// ErrFull is returned by MemoryBackend.Publish when the channel buffer has
// no room. The message is dropped.
var ErrFull = errors.New("mq: memory channel full")

// Publish enqueues a message without waiting for buffer space.
func (m *MemoryBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if channel == "" {
		return "", errors.New("memory channel is required")
	}
	msg := Message{
		ID:         ulid.Make().String(),
		Data:       append([]byte(nil), data...),
		Attributes: attrs,
	}
	select {
	case <-m.closed:
		return "", ErrClosed
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	select {
	case m.channel(channel) <- msg:
		return msg.ID, nil
	default:
		return "", ErrFull
	}
}

// Subscribe delivers messages to handler until ctx is done or the backend
// is closed. Failed messages are not redelivered.
func (m *MemoryBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if channel == "" {
		return errors.New("memory channel is required")
	}
	ch := m.channel(channel)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.closed:
			return ErrClosed
		case msg := <-ch:
			_ = handler(ctx, msg)
		}
	}
}

// Close stops all subscribers.
func (m *MemoryBackend) Close() error {
	m.once.Do(func() { close(m.closed) })
	return nil
}
