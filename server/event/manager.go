// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"fmt"
	"sync"
)

// QueueManager maps task IDs to the event queue their producer writes to.
type QueueManager interface {
	// Add registers queue for taskID.
	Add(taskID string, queue *EventQueue) error
	// Get returns the queue of taskID, or nil.
	Get(taskID string) *EventQueue
	// Tap returns a child of the queue of taskID, or nil.
	Tap(taskID string) *EventQueue
	// Close closes and forgets the queue of taskID.
	Close(taskID string) error
	// CreateOrTap returns a new queue for taskID, or a child of the existing one.
	CreateOrTap(taskID string) *EventQueue
}

// InMemoryQueueManager implements QueueManager using in-memory storage.
// It is suitable for single-instance deployments.
type InMemoryQueueManager struct {
	queues    map[string]*EventQueue
	queueSize int
	mu        sync.RWMutex
}

var _ QueueManager = (*InMemoryQueueManager)(nil)

// NewInMemoryQueueManager creates a new InMemoryQueueManager whose queues hold
// up to queueSize events.
func NewInMemoryQueueManager(queueSize int) *InMemoryQueueManager {
	return &InMemoryQueueManager{
		queues:    make(map[string]*EventQueue),
		queueSize: queueSize,
	}
}

// Add creates a new event queue for the given task ID.
// Returns TaskQueueExistsError if the queue already exists.
func (m *InMemoryQueueManager) Add(taskID string, queue *EventQueue) error {
	if taskID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}
	if queue == nil {
		return fmt.Errorf("queue cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.queues[taskID]; exists {
		return &TaskQueueExistsError{TaskID: taskID}
	}
	m.queues[taskID] = queue
	return nil
}

// Get retrieves an EventQueue for the given task ID.
// Returns nil if the queue does not exist.
func (m *InMemoryQueueManager) Get(taskID string) *EventQueue {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.queues[taskID]
}

// Tap creates a child queue for the given task ID.
// Returns nil if the parent queue does not exist.
func (m *InMemoryQueueManager) Tap(taskID string) *EventQueue {
	m.mu.RLock()
	queue, exists := m.queues[taskID]
	m.mu.RUnlock()

	if !exists {
		return nil
	}
	return queue.Tap()
}

// Close closes and removes the event queue for the given task ID.
// Returns NoTaskQueueError if the queue does not exist.
func (m *InMemoryQueueManager) Close(taskID string) error {
	m.mu.Lock()
	queue, exists := m.queues[taskID]
	delete(m.queues, taskID)
	m.mu.Unlock()

	if !exists {
		return &NoTaskQueueError{TaskID: taskID}
	}
	return queue.Close()
}

// CreateOrTap creates a new EventQueue for the task ID if one doesn't exist, or taps an existing one.
func (m *InMemoryQueueManager) CreateOrTap(taskID string) *EventQueue {
	m.mu.Lock()
	defer m.mu.Unlock()

	if queue, exists := m.queues[taskID]; exists {
		return queue.Tap()
	}
	queue := NewEventQueue(m.queueSize)
	m.queues[taskID] = queue
	return queue
}

// Len returns the number of registered queues.
func (m *InMemoryQueueManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.queues)
}
