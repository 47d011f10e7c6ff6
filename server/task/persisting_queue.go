// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"fmt"
	"sync"

	a2a "github.com/go-a2a/kagent-a2a"
	"github.com/go-a2a/kagent-a2a/internal/logger"
	"github.com/go-a2a/kagent-a2a/internal/metrics"
	"github.com/go-a2a/kagent-a2a/server/event"
)

// DefaultEventBufferSize is the capacity of the PersistingEventQueue side channel.
const DefaultEventBufferSize = 64

// PersistingEventQueue is an event.Queue that applies every update to a
// task record, saves it to a TaskStore and then forwards the event,
// unmodified, to a downstream queue.
//
// Saving is best-effort: a failed save is logged and counted, and the event
// is still forwarded. Downstream errors are returned to the caller.
type PersistingEventQueue struct {
	store      TaskStore
	downstream event.Queue
	logger     logger.Logger
	metrics    *metrics.Metrics
	events     chan event.Event

	mu   sync.Mutex
	task *a2a.Task
}

var _ event.Queue = (*PersistingEventQueue)(nil)

type persistingOptions struct {
	logger     logger.Logger
	metrics    *metrics.Metrics
	metadata   map[string]any
	message    *a2a.Message
	bufferSize int
}

// PersistingOption configures a PersistingEventQueue.
type PersistingOption func(*persistingOptions)

// WithLogger sets the logger. Defaults to the logger carried by the context.
func WithLogger(l logger.Logger) PersistingOption {
	return func(o *persistingOptions) { o.logger = l }
}

// WithMetrics records persistence failures and forwarded events on m.
func WithMetrics(m *metrics.Metrics) PersistingOption {
	return func(o *persistingOptions) { o.metrics = m }
}

// WithTaskMetadata merges metadata into the task record before the first save.
func WithTaskMetadata(metadata map[string]any) PersistingOption {
	return func(o *persistingOptions) { o.metadata = metadata }
}

// WithUserMessage records the inbound user message in the task history.
func WithUserMessage(message *a2a.Message) PersistingOption {
	return func(o *persistingOptions) { o.message = message }
}

// WithEventBuffer sets the capacity of the Events side channel.
func WithEventBuffer(n int) PersistingOption {
	return func(o *persistingOptions) { o.bufferSize = n }
}

// NewPersistingEventQueue returns a queue bound to taskID. The task record is
// loaded from store; when it is missing, or cannot be loaded, a new record in
// the submitted state is started. Nothing is saved until the first event.
func NewPersistingEventQueue(ctx context.Context, store TaskStore, downstream event.Queue, taskID, contextID string, opts ...PersistingOption) *PersistingEventQueue {
	o := persistingOptions{bufferSize: DefaultEventBufferSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.FromContext(ctx)
	}
	if downstream == nil {
		downstream = event.Discard
	}
	log := o.logger.With("task_id", taskID)

	t, err := Load(ctx, store, taskID)
	if err != nil {
		log.Error("failed to load task, starting a new record", "error", err)
	}
	if t == nil {
		t = &a2a.Task{
			ID:        taskID,
			ContextID: contextID,
			Kind:      a2a.KindTask,
			Status: a2a.TaskStatus{
				State:     a2a.TaskStateSubmitted,
				Timestamp: a2a.Now(),
			},
		}
	}
	if o.message != nil {
		t.AppendHistory(o.message)
	}
	if len(o.metadata) > 0 {
		md, err := NormalizeMetadata(o.metadata)
		if err != nil {
			log.Warn("dropping task metadata", "error", err)
		} else {
			t.Metadata = mergeMetadata(t.Metadata, md)
		}
	}

	return &PersistingEventQueue{
		store:      store,
		downstream: downstream,
		logger:     log,
		metrics:    o.metrics,
		events:     make(chan event.Event, max(o.bufferSize, 1)),
		task:       t,
	}
}

// EnqueueEvent applies ev to the task record, saves it, and forwards ev downstream.
func (q *PersistingEventQueue) EnqueueEvent(ctx context.Context, ev event.Event) error {
	if ev == nil {
		return fmt.Errorf("event cannot be nil")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.apply(ev) {
		q.save(ctx)
	}

	select {
	case q.events <- ev:
	default:
	}

	if err := q.downstream.EnqueueEvent(ctx, ev); err != nil {
		return err
	}
	q.metrics.IncEventsForwarded(ev.EventType())
	return nil
}

// apply mutates the task record and reports whether it changed.
func (q *PersistingEventQueue) apply(ev event.Event) bool {
	switch e := ev.(type) {
	case *event.TaskStatusUpdateEvent:
		q.task.Status = e.Status
		if e.ContextID != "" {
			q.task.ContextID = e.ContextID
		}
		if e.Status.Message != nil {
			q.task.AppendHistory(e.Status.Message)
		}
		return true
	case *event.TaskArtifactUpdateEvent:
		if e.Artifact == nil {
			return false
		}
		q.task.Artifacts = a2a.UpsertArtifact(q.task.Artifacts, e.Artifact)
		return true
	default:
		return false
	}
}

func (q *PersistingEventQueue) save(ctx context.Context) {
	if err := q.store.Save(ctx, q.task); err != nil {
		q.logger.Error("failed to persist task", "state", q.task.Status.State, "error", err)
		q.metrics.IncPersistenceFailures()
	}
}

// Events returns the side channel carrying every event passed through the
// queue. Events are dropped when the channel is full.
func (q *PersistingEventQueue) Events() <-chan event.Event {
	return q.events
}

// Task returns a snapshot of the task record.
func (q *PersistingEventQueue) Task() *a2a.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, err := q.task.Clone()
	if err != nil {
		q.logger.Warn("failed to snapshot task", "error", err)
		return nil
	}
	return t
}
