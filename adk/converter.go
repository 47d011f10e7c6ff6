// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package adk

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	a2a "github.com/go-a2a/kagent-a2a"
	"github.com/go-a2a/kagent-a2a/server/event"
	"github.com/go-a2a/kagent-a2a/server/executor"
)

// MetadataKeyLongRunning marks a function call data part whose result is
// expected from the user.
const MetadataKeyLongRunning = "kagent_is_long_running"

// Converter converts runner events into task status updates.
type Converter struct{}

var _ executor.EventConverter[*Event] = Converter{}

// Convert implements executor.EventConverter.
//
// An event carrying an error code becomes a failed update. An event calling
// the confirmation function or a long-running tool becomes an input-required
// update. Any other event with content becomes a working update. Events
// without content produce nothing.
func (Converter) Convert(ev *Event, cc *executor.ConvertContext) ([]event.Event, error) {
	if ev == nil {
		return nil, errors.New("event cannot be nil")
	}

	if ev.ErrorCode != "" {
		text := ev.ErrorMessage
		if text == "" {
			text = fmt.Sprintf("agent error: %s", ev.ErrorCode)
		}
		msg := newMessage(a2a.Parts{a2a.NewTextPart(text)}, ev, cc)
		msg.MessageID = cc.MessageID(false)
		return []event.Event{event.NewTaskStatusUpdateEvent(cc.TaskID, cc.ContextID, a2a.TaskStateFailed, msg, false)}, nil
	}

	if ev.Content == nil || len(ev.Content.Parts) == 0 {
		return nil, nil
	}

	state := a2a.TaskStateWorking
	parts := make(a2a.Parts, 0, len(ev.Content.Parts))
	for _, p := range ev.Content.Parts {
		switch {
		case p == nil:
		case p.FunctionCall != nil:
			dp := functionCallPart(p.FunctionCall)
			if ev.IsLongRunning(p.FunctionCall) {
				dp.Metadata[MetadataKeyLongRunning] = true
				state = a2a.TaskStateInputRequired
			}
			if p.FunctionCall.Name == executor.RequestConfirmationFunctionName {
				state = a2a.TaskStateInputRequired
			}
			parts = append(parts, dp)
		case p.FunctionResponse != nil:
			parts = append(parts, functionResponsePart(p.FunctionResponse))
		case p.Text != "":
			parts = append(parts, a2a.NewTextPart(p.Text))
		}
	}
	if len(parts) == 0 {
		return nil, nil
	}

	msg := newMessage(parts, ev, cc)
	partial := ev.Partial && state == a2a.TaskStateWorking
	msg.MessageID = cc.MessageID(partial)
	return []event.Event{event.NewTaskStatusUpdateEvent(cc.TaskID, cc.ContextID, state, msg, false)}, nil
}

func newMessage(parts a2a.Parts, ev *Event, cc *executor.ConvertContext) *a2a.Message {
	msg := a2a.NewAgentPartsMessage(parts, cc.ContextID, cc.TaskID)
	msg.Metadata = map[string]any{
		a2a.MetadataKeyAppName: cc.AppName,
		a2a.MetadataKeyAuthor:  ev.Author,
		a2a.MetadataKeyPartial: ev.Partial,
	}
	return msg
}

func functionCallPart(call *FunctionCall) *a2a.DataPart {
	id := call.ID
	if id == "" {
		id = uuid.NewString()
	}
	args := call.Args
	if args == nil {
		args = map[string]any{}
	}
	return a2a.NewDataPart(map[string]any{
		executor.FunctionNameKey: call.Name,
		executor.FunctionIDKey:   id,
		executor.FunctionArgsKey: args,
	}, map[string]any{a2a.MetadataKeyType: a2a.DataPartTypeFunctionCall})
}

func functionResponsePart(resp *FunctionResponse) *a2a.DataPart {
	response := resp.Response
	if response == nil {
		response = map[string]any{}
	}
	return a2a.NewDataPart(map[string]any{
		executor.FunctionNameKey:     resp.Name,
		executor.FunctionIDKey:       resp.ID,
		executor.FunctionResponseKey: response,
	}, map[string]any{a2a.MetadataKeyType: a2a.DataPartTypeFunctionResponse})
}
