package event

import (
	"context"
	"time"

	"github.com/mediseg/gridrun/service/messaging"
)

// Publisher writes typed events to their queue and mirrors them onto the
// untyped queue when one is attached, so wildcard listeners observe every
// event type.
type Publisher[T any] struct {
	queue    messaging.Queue[Event[T]]
	anyQueue messaging.Queue[Event[any]]
}

func NewPublisher[T any](queue messaging.Queue[Event[T]]) *Publisher[T] {
	return &Publisher[T]{queue: queue}
}

// Publish stamps the event and enqueues it.
func (p *Publisher[T]) Publish(ctx context.Context, event *Event[T]) error {
	event.CreatedAt = time.Now()
	if p.anyQueue != nil {
		_ = p.anyQueue.Publish(ctx, &Event[any]{
			Context:   event.Context,
			CreatedAt: event.CreatedAt,
			Metadata:  event.Metadata,
			Data:      event.Data,
		})
	}
	return p.queue.Publish(ctx, event)
}

// Consume takes the next event off the queue, acking it before returning.
func (p *Publisher[T]) Consume(ctx context.Context) (*Event[T], error) {
	msg, err := p.queue.Consume(ctx)
	if err != nil || msg == nil {
		return nil, err
	}
	if err = msg.Ack(); err != nil {
		return nil, err
	}
	return msg.T(), nil
}
