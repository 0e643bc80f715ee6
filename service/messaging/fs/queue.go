// Package fs provides a filesystem-backed queue. Messages live as JSON
// documents under stage directories inside the workspace, which makes the
// monitor's backlog inspectable and lets it survive restarts.
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/storage"

	"github.com/mediseg/gridrun/service/messaging"
)

// MessageState represents the stage a message is in.
type MessageState string

const (
	MessageStatePending    MessageState = "pending"
	MessageStateProcessing MessageState = "processing"
	MessageStateCompleted  MessageState = "completed"
	MessageStateFailed     MessageState = "failed"
)

// Message implements messaging.Message for the filesystem queue.
type Message[T any] struct {
	ID        string       `json:"id"`
	Data      T            `json:"data"`
	State     MessageState `json:"state"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Retries   int          `json:"retries"`

	queue     *Queue[T]
	processed bool
	mu        sync.Mutex
}

// T returns the message payload.
func (m *Message[T]) T() *T {
	return &m.Data
}

// Ack moves the message from processing to completed.
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.processed {
		return fmt.Errorf("message already processed")
	}
	m.processed = true
	m.State = MessageStateCompleted
	m.UpdatedAt = time.Now()
	return m.queue.completeMessage(context.Background(), m)
}

// Nack moves the message to failed; a later Consume retries it until the
// retry budget is exhausted, after which it lands in the dead-letter
// directory.
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.processed {
		return fmt.Errorf("message already processed")
	}
	m.processed = true
	m.State = MessageStateFailed
	if err != nil {
		m.Error = err.Error()
	}
	m.Retries++
	m.UpdatedAt = time.Now()
	return m.queue.failMessage(context.Background(), m)
}

// Config holds configuration for the filesystem queue.
type Config struct {
	BasePath     string
	MaxRetries   int
	PollInterval time.Duration
}

// DefaultConfig returns a default queue configuration.
func DefaultConfig(basePath string) Config {
	return Config{BasePath: basePath, MaxRetries: 3, PollInterval: 100 * time.Millisecond}
}

// Queue implements a filesystem-based messaging.Queue.
type Queue[T any] struct {
	fs            afs.Service
	config        Config
	pendingDir    string
	processingDir string
	completedDir  string
	failedDir     string
	dlqDir        string
	mu            sync.Mutex
}

// NewQueue creates a filesystem queue rooted at config.BasePath.
func NewQueue[T any](fs afs.Service, config Config) (*Queue[T], error) {
	if config.BasePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	q := &Queue[T]{
		fs:            fs,
		config:        config,
		pendingDir:    path.Join(config.BasePath, "pending"),
		processingDir: path.Join(config.BasePath, "processing"),
		completedDir:  path.Join(config.BasePath, "completed"),
		failedDir:     path.Join(config.BasePath, "failed"),
		dlqDir:        path.Join(config.BasePath, "dlq"),
	}
	ctx := context.Background()
	for _, dir := range []string{q.pendingDir, q.processingDir, q.completedDir, q.failedDir, q.dlqDir} {
		if exists, _ := fs.Exists(ctx, dir); !exists {
			if err := fs.Create(ctx, dir, file.DefaultDirOsMode, true); err != nil {
				return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}
	return q, nil
}

// Publish writes a new message to the pending directory.
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	message := &Message[T]{
		ID:        uuid.New().String(),
		Data:      *t,
		State:     MessageStatePending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	target := path.Join(q.pendingDir, q.filename(message.CreatedAt, message.ID))
	return q.upload(ctx, target, data)
}

// Consume retrieves the oldest pending (or retry-eligible failed) message and
// moves it to the processing directory, blocking until a message is available
// or the context is cancelled.
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	interval := q.config.PollInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	for {
		message, err := q.takeOne(ctx)
		if err != nil {
			return nil, err
		}
		if message != nil {
			return message, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (q *Queue[T]) takeOne(ctx context.Context) (*Message[T], error) {
	if retry, err := q.takeFailed(ctx); retry != nil || err != nil {
		return retry, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	object := q.oldest(ctx, q.pendingDir)
	if object == nil {
		return nil, nil
	}
	message, err := q.read(ctx, object.URL())
	if err != nil {
		_ = q.fs.Move(ctx, object.URL(), path.Join(q.dlqDir, "invalid-"+object.Name()))
		return nil, err
	}
	return q.toProcessing(ctx, object, message)
}

func (q *Queue[T]) takeFailed(ctx context.Context) (*Message[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	object := q.oldest(ctx, q.failedDir)
	if object == nil {
		return nil, nil
	}
	message, err := q.read(ctx, object.URL())
	if err != nil {
		_ = q.fs.Move(ctx, object.URL(), path.Join(q.dlqDir, "invalid-"+object.Name()))
		return nil, err
	}
	if message.Retries > q.config.MaxRetries {
		if err := q.fs.Move(ctx, object.URL(), path.Join(q.dlqDir, object.Name())); err != nil {
			return nil, fmt.Errorf("failed to dead-letter message: %w", err)
		}
		return nil, nil
	}
	return q.toProcessing(ctx, object, message)
}

func (q *Queue[T]) toProcessing(ctx context.Context, object storage.Object, message *Message[T]) (*Message[T], error) {
	message.State = MessageStateProcessing
	message.UpdatedAt = time.Now()
	message.queue = q

	data, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	// write to processing first so a crash between the two steps duplicates
	// rather than loses the message
	if err := q.upload(ctx, path.Join(q.processingDir, object.Name()), data); err != nil {
		return nil, fmt.Errorf("failed to move message to processing: %w", err)
	}
	if err := q.fs.Delete(ctx, object.URL()); err != nil {
		return nil, fmt.Errorf("failed to remove message from %s: %w", object.URL(), err)
	}
	return message, nil
}

func (q *Queue[T]) completeMessage(ctx context.Context, m *Message[T]) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.move(ctx, m, q.completedDir)
}

func (q *Queue[T]) failMessage(ctx context.Context, m *Message[T]) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if m.Retries > q.config.MaxRetries {
		return q.move(ctx, m, q.dlqDir)
	}
	return q.move(ctx, m, q.failedDir)
}

func (q *Queue[T]) move(ctx context.Context, m *Message[T], targetDir string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	name := q.filename(m.CreatedAt, m.ID)
	if err := q.upload(ctx, path.Join(targetDir, name), data); err != nil {
		return fmt.Errorf("failed to write message to %s: %w", targetDir, err)
	}
	processingPath := path.Join(q.processingDir, name)
	if exists, _ := q.fs.Exists(ctx, processingPath); exists {
		if err := q.fs.Delete(ctx, processingPath); err != nil {
			return fmt.Errorf("failed to remove message from processing: %w", err)
		}
	}
	return nil
}

func (q *Queue[T]) oldest(ctx context.Context, dir string) storage.Object {
	objects, err := q.fs.List(ctx, dir)
	if err != nil {
		return nil
	}
	var candidates []storage.Object
	for _, object := range objects {
		if !object.IsDir() && strings.HasSuffix(object.Name(), ".json") {
			candidates = append(candidates, object)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	// filenames carry a nanosecond timestamp prefix, name order is age order
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Name() < candidates[j].Name()
	})
	return candidates[0]
}

func (q *Queue[T]) read(ctx context.Context, URL string) (*Message[T], error) {
	data, err := q.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read message %s: %w", URL, err)
	}
	var message Message[T]
	if err := json.Unmarshal(data, &message); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message %s: %w", URL, err)
	}
	return &message, nil
}

func (q *Queue[T]) upload(ctx context.Context, URL string, data []byte) error {
	return q.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data))
}

func (q *Queue[T]) filename(createdAt time.Time, id string) string {
	return fmt.Sprintf("%020d-%s.json", createdAt.UnixNano(), id)
}

var _ messaging.Queue[any] = (*Queue[any])(nil)
