package mq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// started at init by the pubsub client's stats dependency
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

func TestMemoryBackendDeliversBufferedMessages(t *testing.T) {
	queue := New(NewMemoryBackend(4))
	defer queue.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	id, err := queue.Publish(ctx, "events", []byte("hello"), map[string]string{AttrEventType: "greeting"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	received := make(chan Message, 1)
	done := make(chan error, 1)
	subCtx, stop := context.WithCancel(ctx)
	go func() {
		done <- queue.Subscribe(subCtx, "events", func(_ context.Context, msg Message) error {
			received <- msg
			return nil
		})
	}()

	select {
	case msg := <-received:
		assert.Equal(t, id, msg.ID)
		assert.Equal(t, "hello", string(msg.Data))
		assert.Equal(t, "greeting", msg.Attributes[AttrEventType])
	case <-ctx.Done():
		t.Fatal("message was not delivered")
	}

	stop()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestMemoryBackendHandlerErrorDoesNotStopSubscriber(t *testing.T) {
	backend := NewMemoryBackend(4)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := backend.Publish(ctx, "events", []byte("first"), nil)
	require.NoError(t, err)
	_, err = backend.Publish(ctx, "events", []byte("second"), nil)
	require.NoError(t, err)

	seen := make(chan string, 2)
	done := make(chan error, 1)
	go func() {
		done <- backend.Subscribe(ctx, "events", func(_ context.Context, msg Message) error {
			seen <- string(msg.Data)
			return errors.New("boom")
		})
	}()

	assert.Equal(t, "first", <-seen)
	assert.Equal(t, "second", <-seen)

	require.NoError(t, backend.Close())
	assert.ErrorIs(t, <-done, ErrClosed)

	_, err = backend.Publish(ctx, "events", nil, nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMemoryBackendRequiresChannel(t *testing.T) {
	backend := NewMemoryBackend(1)
	defer backend.Close()

	_, err := backend.Publish(context.Background(), "", nil, nil)
	assert.Error(t, err)
}

func TestKafkaHeadersToAttributes(t *testing.T) {
	assert.Nil(t, kafkaHeadersToAttributes(nil))
	attrs := kafkaHeadersToAttributes([]kafka.Header{{Key: AttrEventType, Value: []byte("user.registered")}})
	assert.Equal(t, map[string]string{AttrEventType: "user.registered"}, attrs)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/octet-stream", contentType(nil))
	assert.Equal(t, "application/json", contentType(map[string]string{AttrContentType: "application/json"}))
}

func TestMQRejectsPublishAfterClose(t *testing.T) {
	queue := New(NewMemoryBackend(1))
	require.NoError(t, queue.Close())
	require.NoError(t, queue.Close())

	_, err := queue.Publish(context.Background(), "events", []byte("late"), nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMemoryBackendPublishDropsWhenFull(t *testing.T) {
	backend := NewMemoryBackend(1)
	defer backend.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := backend.Publish(ctx, "events", []byte("first"), nil)
	require.NoError(t, err)
	_, err = backend.Publish(ctx, "events", []byte("second"), nil)
	assert.ErrorIs(t, err, ErrFull)
	assert.NoError(t, ctx.Err())
}
