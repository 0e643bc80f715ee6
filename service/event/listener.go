package event

import (
	"context"
	"errors"
	"log"
)

type Listener[T any] struct {
	publisher *Publisher[T]
	handler   func(*Event[T])
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewListener[T any](publisher *Publisher[T], handler func(*Event[T])) *Listener[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &Listener[T]{
		publisher: publisher,
		handler:   handler,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (l *Listener[T]) Stop() {
	l.cancel()
}

func (l *Listener[T]) Start() {
	go func() {
		for {
			event, err := l.publisher.Consume(l.ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}
				log.Printf("error consuming event: %v", err)
				continue
			}
			if event != nil {
				l.handler(event)
			}
		}
	}()
}
