// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	a2a "github.com/go-a2a/kagent-a2a"
)

// DatabaseTaskStore is a database implementation of TaskStore using GORM.
type DatabaseTaskStore struct {
	db          *gorm.DB
	tableName   string
	createTable bool
}

var (
	_ TaskStore   = (*DatabaseTaskStore)(nil)
	_ StateLister = (*DatabaseTaskStore)(nil)
	_ Lifecycle   = (*DatabaseTaskStore)(nil)
)

// DatabaseTaskStoreConfig holds configuration for DatabaseTaskStore.
type DatabaseTaskStoreConfig struct {
	DB          *gorm.DB
	TableName   string // Optional, defaults to "tasks"
	CreateTable bool   // Whether Initialize migrates the table
}

// NewDatabaseTaskStore creates a new DatabaseTaskStore.
func NewDatabaseTaskStore(config DatabaseTaskStoreConfig) (*DatabaseTaskStore, error) {
	if config.DB == nil {
		return nil, fmt.Errorf("database connection cannot be nil")
	}

	tableName := config.TableName
	if tableName == "" {
		tableName = DefaultTableName
	}

	return &DatabaseTaskStore{
		db:          config.DB,
		tableName:   tableName,
		createTable: config.CreateTable,
	}, nil
}

func (s *DatabaseTaskStore) table(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table(s.tableName)
}

// Save upserts a task into the database.
func (s *DatabaseTaskStore) Save(ctx context.Context, task *a2a.Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if err := task.Validate(); err != nil {
		return NewTaskValidationError(task.ID, err)
	}

	model, err := NewTaskModelFromTask(task)
	if err != nil {
		return NewTaskStoreError("save", task.ID, fmt.Errorf("failed to convert task to model: %w", err))
	}

	err = s.table(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"context_id", "kind", "state", "status", "artifacts", "history", "metadata", "updated_at",
		}),
	}).Create(model).Error
	if err != nil {
		return NewTaskStoreError("save", task.ID, err)
	}
	return nil
}

// Get retrieves a task by its ID from the database.
func (s *DatabaseTaskStore) Get(ctx context.Context, taskID string) (*a2a.Task, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task ID cannot be empty")
	}

	var model TaskModel
	if err := s.table(ctx).Where("id = ?", taskID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, TaskNotFoundError{TaskID: taskID}
		}
		return nil, NewTaskStoreError("get", taskID, err)
	}
	return model.ToTask(), nil
}

// Delete removes a task from the database.
func (s *DatabaseTaskStore) Delete(ctx context.Context, taskID string) error {
	if taskID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}

	result := s.table(ctx).Where("id = ?", taskID).Delete(&TaskModel{})
	if result.Error != nil {
		return NewTaskStoreError("delete", taskID, result.Error)
	}
	if result.RowsAffected == 0 {
		return TaskNotFoundError{TaskID: taskID}
	}
	return nil
}

// ListByState retrieves tasks in state, oldest update first.
func (s *DatabaseTaskStore) ListByState(ctx context.Context, state a2a.TaskState) ([]*a2a.Task, error) {
	var models []TaskModel
	if err := s.table(ctx).Where("state = ?", string(state)).Order("updated_at, id").Find(&models).Error; err != nil {
		return nil, NewTaskStoreError("list_by_state", "", err)
	}

	tasks := make([]*a2a.Task, len(models))
	for i := range models {
		tasks[i] = models[i].ToTask()
	}
	return tasks, nil
}

// Initialize migrates the task table when CreateTable is set.
func (s *DatabaseTaskStore) Initialize(ctx context.Context) error {
	if !s.createTable {
		return nil
	}
	if err := s.table(ctx).AutoMigrate(&TaskModel{}); err != nil {
		return NewTaskStoreError("initialize", "", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *DatabaseTaskStore) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return NewTaskStoreError("close", "", err)
	}
	return sqlDB.Close()
}
