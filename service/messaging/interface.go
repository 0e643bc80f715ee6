// Package messaging defines the queue contract connecting the monitor ticker
// to its worker pool and the event service to its listeners.
package messaging

import (
	"context"
)

// Vendor names a queue implementation (memory, fs).
type Vendor string

const (
	// VendorMemory selects the in-process channel queue
	VendorMemory Vendor = "memory"

	// VendorFs selects the workspace-backed filesystem queue
	VendorFs Vendor = "fs"
)

// Queue is an abstract message queue for any payload type.
type Queue[T any] interface {
	// Publish adds a new message with payload to the queue
	Publish(ctx context.Context, t *T) error

	// Consume retrieves a single message from the queue
	Consume(ctx context.Context) (Message[T], error)
}

// Message represents a message retrieved from a queue.
type Message[T any] interface {
	// T returns the payload of this message
	T() *T

	// Ack acknowledges successful processing of this message
	Ack() error

	// Nack indicates failure in processing this message; depending on the
	// retry budget the message is redelivered or dead-lettered
	Nack(err error) error
}
