// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package executor

import (
	"github.com/google/uuid"

	"github.com/go-a2a/kagent-a2a/server/event"
)

// EventConverter maps one framework-native event to zero or more update events.
type EventConverter[E any] interface {
	Convert(ev E, cc *ConvertContext) ([]event.Event, error)
}

// EventConverterFunc adapts a function to EventConverter.
type EventConverterFunc[E any] func(ev E, cc *ConvertContext) ([]event.Event, error)

// Convert implements EventConverter.
func (f EventConverterFunc[E]) Convert(ev E, cc *ConvertContext) ([]event.Event, error) {
	return f(ev, cc)
}

// ConvertContext carries the identifiers a converter stamps on update events.
// It lives for one execution attempt and is not safe for concurrent use.
type ConvertContext struct {
	TaskID    string
	ContextID string
	AppName   string

	messageID string
}

// NewConvertContext returns the ConvertContext of one execution attempt.
func NewConvertContext(taskID, contextID, appName string) *ConvertContext {
	return &ConvertContext{
		TaskID:    taskID,
		ContextID: contextID,
		AppName:   appName,
	}
}

// MessageID returns the message ID for the next converted message.
//
// Partial chunks of one logical turn share an ID. The non-partial event that
// closes the turn gets the same ID, and the next chunk starts a new one.
func (cc *ConvertContext) MessageID(partial bool) string {
	if cc.messageID == "" {
		cc.messageID = uuid.NewString()
	}
	id := cc.messageID
	if !partial {
		cc.messageID = ""
	}
	return id
}
