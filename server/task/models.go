// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/go-json-experiment/json"

	a2a "github.com/go-a2a/kagent-a2a"
)

// DefaultTableName is the table used by DatabaseTaskStore when none is configured.
const DefaultTableName = "tasks"

// JSONColumn stores a value of T as JSON text in a database column.
type JSONColumn[T any] struct {
	V T
}

// Value implements the driver.Valuer interface for database storage.
func (c JSONColumn[T]) Value() (driver.Value, error) {
	data, err := json.Marshal(c.V)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the sql.Scanner interface for database retrieval.
func (c *JSONColumn[T]) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		var zero T
		c.V = zero
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONColumn", value)
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("cannot unmarshal JSONColumn: %w", err)
	}
	c.V = v
	return nil
}

// TaskModel is the relational representation of a task. The state is
// duplicated out of the status document into its own indexed column so
// tasks can be listed by state on any dialect.
type TaskModel struct {
	ID        string                      `gorm:"primaryKey;size:255"`
	ContextID string                      `gorm:"size:255;index"`
	Kind      string                      `gorm:"size:32"`
	State     string                      `gorm:"size:32;index"`
	Status    JSONColumn[a2a.TaskStatus]  `gorm:"type:text"`
	Artifacts JSONColumn[[]*a2a.Artifact] `gorm:"type:text"`
	History   JSONColumn[[]*a2a.Message]  `gorm:"type:text"`
	Metadata  JSONColumn[map[string]any]  `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the default table name; DatabaseTaskStore overrides it
// with the configured table.
func (TaskModel) TableName() string {
	return DefaultTableName
}

// NewTaskModelFromTask converts task into its database model.
func NewTaskModelFromTask(task *a2a.Task) (*TaskModel, error) {
	if task == nil {
		return nil, fmt.Errorf("task cannot be nil")
	}
	metadata, err := NormalizeMetadata(task.Metadata)
	if err != nil {
		return nil, err
	}

	return &TaskModel{
		ID:        task.ID,
		ContextID: task.ContextID,
		Kind:      a2a.KindTask,
		State:     string(task.Status.State),
		Status:    JSONColumn[a2a.TaskStatus]{V: task.Status},
		Artifacts: JSONColumn[[]*a2a.Artifact]{V: task.Artifacts},
		History:   JSONColumn[[]*a2a.Message]{V: task.History},
		Metadata:  JSONColumn[map[string]any]{V: metadata},
	}, nil
}

// ToTask converts the model back into a task.
func (m *TaskModel) ToTask() *a2a.Task {
	return &a2a.Task{
		ID:        m.ID,
		ContextID: m.ContextID,
		Kind:      a2a.KindTask,
		Status:    m.Status.V,
		Artifacts: m.Artifacts.V,
		History:   m.History.V,
		Metadata:  m.Metadata.V,
	}
}
