// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/redis/go-redis/v9"

	a2a "github.com/go-a2a/kagent-a2a"
	"github.com/go-a2a/kagent-a2a/internal/logger"
)

// DefaultRedisPrefix is the key prefix used by RedisTaskStore when none is configured.
const DefaultRedisPrefix = "kagent:a2a"

// RedisTaskStore implements TaskStore backed by Redis.
//
// Each task is stored as JSON under <prefix>:task:<id>. A set per state,
// <prefix>:state:<state>, holds the IDs of the tasks currently in that state;
// it is kept in sync with the task document inside one MULTI/EXEC.
type RedisTaskStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var (
	_ TaskStore   = (*RedisTaskStore)(nil)
	_ StateLister = (*RedisTaskStore)(nil)
	_ Lifecycle   = (*RedisTaskStore)(nil)
)

// RedisStoreOption configures RedisTaskStore.
type RedisStoreOption func(*RedisTaskStore)

// WithPrefix sets a custom key prefix.
func WithPrefix(p string) RedisStoreOption {
	return func(s *RedisTaskStore) {
		if p != "" {
			s.prefix = p
		}
	}
}

// WithTTL expires task documents ttl after their last save. Zero keeps them forever.
func WithTTL(ttl time.Duration) RedisStoreOption {
	return func(s *RedisTaskStore) {
		s.ttl = ttl
	}
}

// NewRedisTaskStore creates a new Redis-backed task store.
func NewRedisTaskStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisTaskStore {
	s := &RedisTaskStore{client: client, prefix: DefaultRedisPrefix}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *RedisTaskStore) taskKey(taskID string) string {
	return s.prefix + ":task:" + taskID
}

func (s *RedisTaskStore) stateKey(state a2a.TaskState) string {
	return s.prefix + ":state:" + string(state)
}

// Save stores task and moves its ID into the set of its current state.
func (s *RedisTaskStore) Save(ctx context.Context, task *a2a.Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if err := task.Validate(); err != nil {
		return NewTaskValidationError(task.ID, err)
	}

	data, err := json.Marshal(task)
	if err != nil {
		return NewTaskStoreError("save", task.ID, fmt.Errorf("failed to marshal task: %w", err))
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.taskKey(task.ID), data, s.ttl)
		for _, state := range a2a.TaskStates {
			if state != task.Status.State {
				pipe.SRem(ctx, s.stateKey(state), task.ID)
			}
		}
		pipe.SAdd(ctx, s.stateKey(task.Status.State), task.ID)
		return nil
	})
	if err != nil {
		return NewTaskStoreError("save", task.ID, err)
	}
	return nil
}

// Get retrieves a task by ID.
func (s *RedisTaskStore) Get(ctx context.Context, taskID string) (*a2a.Task, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task ID cannot be empty")
	}

	data, err := s.client.Get(ctx, s.taskKey(taskID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, TaskNotFoundError{TaskID: taskID}
		}
		return nil, NewTaskStoreError("get", taskID, err)
	}

	var task a2a.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, NewTaskStoreError("get", taskID, fmt.Errorf("failed to unmarshal task: %w", err))
	}
	return &task, nil
}

// Delete removes a task and its state membership.
func (s *RedisTaskStore) Delete(ctx context.Context, taskID string) error {
	if taskID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}

	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.taskKey(taskID))
		for _, state := range a2a.TaskStates {
			pipe.SRem(ctx, s.stateKey(state), taskID)
		}
		return nil
	})
	if err != nil {
		return NewTaskStoreError("delete", taskID, err)
	}
	if del.Val() == 0 {
		return TaskNotFoundError{TaskID: taskID}
	}
	return nil
}

// ListByState returns every task whose ID is in the set of state. IDs whose
// document has expired are pruned from the set; documents that cannot be
// decoded are logged and left out.
func (s *RedisTaskStore) ListByState(ctx context.Context, state a2a.TaskState) ([]*a2a.Task, error) {
	ids, err := s.client.SMembers(ctx, s.stateKey(state)).Result()
	if err != nil {
		return nil, NewTaskStoreError("list_by_state", "", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.taskKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, NewTaskStoreError("list_by_state", "", err)
	}

	tasks := make([]*a2a.Task, 0, len(values))
	var stale []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var task a2a.Task
		if err := json.Unmarshal([]byte(raw), &task); err != nil {
			logger.FromContext(ctx).Warn("skipping undecodable task", "task_id", ids[i], "state", state, "error", err)
			continue
		}
		tasks = append(tasks, &task)
	}
	if len(stale) > 0 {
		if err := s.client.SRem(ctx, s.stateKey(state), stale...).Err(); err != nil {
			return nil, NewTaskStoreError("list_by_state", "", err)
		}
	}
	return tasks, nil
}

// Initialize checks connectivity.
func (s *RedisTaskStore) Initialize(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return NewTaskStoreError("initialize", "", err)
	}
	return nil
}

// Close closes the client.
func (s *RedisTaskStore) Close(ctx context.Context) error {
	return s.client.Close()
}
