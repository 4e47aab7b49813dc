package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"parkly/pkg/logger"
)

type mockReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	fetchErr  error
	closed    bool
	drained   chan struct{}
}

func newMockReader(msgs ...kafka.Message) *mockReader {
	return &mockReader{queue: msgs, drained: make(chan struct{})}
}

func (r *mockReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if r.fetchErr != nil {
		err := r.fetchErr
		r.fetchErr = nil
		r.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(r.queue) > 0 {
		km := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return km, nil
	}
	r.mu.Unlock()

	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *mockReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	if len(r.queue) == 0 {
		select {
		case <-r.drained:
		default:
			close(r.drained)
		}
	}
	return nil
}

func (r *mockReader) Close() error {
	r.closed = true
	return nil
}

func runConsumer(t *testing.T, c *Consumer, r *mockReader) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	select {
	case <-r.drained:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not drain the queue")
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Start() returned %v, want context.Canceled", err)
	}
}

func TestConsumer_HandlesAndCommits(t *testing.T) {
	r := newMockReader(
		kafka.Message{Key: []byte("a"), Value: []byte(`{}`), Offset: 1},
		kafka.Message{Key: []byte("b"), Value: []byte(`{}`), Offset: 2},
	)

	var keys []string
	handler := func(_ context.Context, msg Message) error {
		keys = append(keys, msg.Key)
		return nil
	}
	c := newConsumer(r, nil, "t", "g", 3, handler, logger.NewNop())
	runConsumer(t, c, r)

	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("handled keys = %v", keys)
	}
	if len(r.committed) != 2 {
		t.Errorf("committed = %v", r.committed)
	}
}

func TestConsumer_RetriesTransientThenDLQ(t *testing.T) {
	r := newMockReader(kafka.Message{Key: []byte("a"), Value: []byte(`{}`), Offset: 7})
	dlq := &mockWriter{}

	attempts := 0
	handler := func(context.Context, Message) error {
		attempts++
		return NewTransientError("store busy", nil)
	}
	c := newConsumer(r, dlq, "t", "g", 2, handler, logger.NewNop())
	runConsumer(t, c, r)

	if attempts != 3 {
		t.Errorf("attempts = %d, want 3 (initial + 2 retries)", attempts)
	}
	if len(dlq.messages) != 1 {
		t.Fatalf("DLQ got %d messages, want 1", len(dlq.messages))
	}
	if header(dlq.messages[0], HeaderDLQGroup) != "g" {
		t.Errorf("DLQ message missing consumer group header")
	}
	if len(r.committed) != 1 {
		t.Errorf("failed message should still be committed, got %v", r.committed)
	}
}

func TestConsumer_PermanentErrorSkipsRetry(t *testing.T) {
	r := newMockReader(kafka.Message{Key: []byte("a"), Value: []byte(`nope`), Offset: 1})
	dlq := &mockWriter{}

	attempts := 0
	handler := func(context.Context, Message) error {
		attempts++
		return NewPermanentError("bad payload", nil)
	}
	c := newConsumer(r, dlq, "t", "g", 5, handler, logger.NewNop())
	runConsumer(t, c, r)

	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if len(dlq.messages) != 1 {
		t.Errorf("DLQ got %d messages, want 1", len(dlq.messages))
	}
}

func TestConsumer_FetchErrorBacksOff(t *testing.T) {
	r := newMockReader(kafka.Message{Key: []byte("a"), Value: []byte(`{}`), Offset: 1})
	r.fetchErr = errors.New("broker not available")

	handled := 0
	c := newConsumer(r, nil, "t", "g", 0, func(context.Context, Message) error {
		handled++
		return nil
	}, logger.NewNop())
	c.fetchBackoff = time.Millisecond

	runConsumer(t, c, r)

	if handled != 1 {
		t.Errorf("handled = %d, want 1", handled)
	}
}

func TestConsumer_MiddlewareOrder(t *testing.T) {
	r := newMockReader(kafka.Message{Key: []byte("a"), Value: []byte(`{}`), Offset: 1})

	var order []string
	c := newConsumer(r, nil, "t", "g", 0, func(context.Context, Message) error {
		order = append(order, "handler")
		return nil
	}, logger.NewNop())
	c.Use(func(ctx context.Context, msg Message, next MessageHandler) error {
		order = append(order, "first")
		return next(ctx, msg)
	})
	c.Use(func(ctx context.Context, msg Message, next MessageHandler) error {
		order = append(order, "second")
		return next(ctx, msg)
	})

	runConsumer(t, c, r)

	if len(order) != 3 || order[0] != "first" || order[1] != "second" || order[2] != "handler" {
		t.Errorf("order = %v", order)
	}
}

func TestConsumer_Close(t *testing.T) {
	r := newMockReader()
	c := newConsumer(r, nil, "t", "g", 0, func(context.Context, Message) error { return nil }, logger.NewNop())

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !r.closed {
		t.Errorf("reader not closed")
	}
	if err := c.Start(context.Background()); !errors.Is(err, ErrConsumerClosed) {
		t.Errorf("Start() after close error = %v", err)
	}
}
