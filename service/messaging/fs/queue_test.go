package fs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/viant/afs"
)

type testPayload struct {
	RunID string
}

func newTestQueue(t *testing.T, maxRetries int) *Queue[testPayload] {
	t.Helper()
	config := DefaultConfig("mem://localhost/gridrun-queue-" + uuid.New().String())
	config.MaxRetries = maxRetries
	config.PollInterval = 5 * time.Millisecond
	queue, err := NewQueue[testPayload](afs.New(), config)
	assert.NoError(t, err)
	return queue
}

func TestQueueRoundTrip(t *testing.T) {
	queue := newTestQueue(t, 3)
	ctx := context.Background()

	assert.NoError(t, queue.Publish(ctx, &testPayload{RunID: "r1"}))
	assert.NoError(t, queue.Publish(ctx, &testPayload{RunID: "r2"}))

	// oldest first
	first, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "r1", first.T().RunID)
	assert.NoError(t, first.Ack())

	second, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "r2", second.T().RunID)
	assert.NoError(t, second.Ack())
	assert.Error(t, second.Ack())
}

func TestQueueRetry(t *testing.T) {
	queue := newTestQueue(t, 1)
	ctx := context.Background()

	assert.NoError(t, queue.Publish(ctx, &testPayload{RunID: "flaky"}))

	message, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.NoError(t, message.Nack(fmt.Errorf("transient")))

	// failed message is redelivered
	retried, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "flaky", retried.T().RunID)
	assert.NoError(t, retried.Ack())
}

func TestQueueDeadLetter(t *testing.T) {
	queue := newTestQueue(t, 0)
	ctx := context.Background()

	assert.NoError(t, queue.Publish(ctx, &testPayload{RunID: "poison"}))

	message, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.NoError(t, message.Nack(fmt.Errorf("permanent")))

	// budget exhausted: nothing left to deliver
	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	_, err = queue.Consume(waitCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueueConsumeCancelled(t *testing.T) {
	queue := newTestQueue(t, 3)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := queue.Consume(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
