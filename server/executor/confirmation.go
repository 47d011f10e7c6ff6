// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package executor

import (
	a2a "github.com/go-a2a/kagent-a2a"
)

// RequestConfirmationFunctionName is the pseudo-function a runner calls to
// ask the user to approve or deny an action.
const RequestConfirmationFunctionName = "adk_request_confirmation"

// Confirmation decision payload.
const (
	DecisionTypeKey = "decision_type"
	DecisionApprove = "approve"
	DecisionDeny    = "deny"
)

// Keys of the function call and function response data part payloads.
const (
	FunctionNameKey     = "name"
	FunctionIDKey       = "id"
	FunctionArgsKey     = "args"
	FunctionResponseKey = "response"
	ConfirmedKey        = "confirmed"
)

// ConfirmationRequest is a confirmation pending on a task in the
// input-required state.
type ConfirmationRequest struct {
	// FunctionCallID correlates the decision with the call that requested it.
	FunctionCallID string
	// Args are the arguments of the confirmation call.
	Args map[string]any
}

// PendingConfirmation returns the confirmation request recorded in the status
// message of t, if t is waiting for one.
func PendingConfirmation(t *a2a.Task) (*ConfirmationRequest, bool) {
	if t == nil || t.Status.State != a2a.TaskStateInputRequired || t.Status.Message == nil {
		return nil, false
	}
	for _, dp := range a2a.GetDataParts(t.Status.Message.Parts) {
		if dp.Type() != a2a.DataPartTypeFunctionCall {
			continue
		}
		if name, _ := dp.Data[FunctionNameKey].(string); name != RequestConfirmationFunctionName {
			continue
		}
		id, _ := dp.Data[FunctionIDKey].(string)
		if id == "" {
			continue
		}
		args, _ := dp.Data[FunctionArgsKey].(map[string]any)
		return &ConfirmationRequest{FunctionCallID: id, Args: args}, true
	}
	return nil, false
}

// DecisionFromMessage returns the decision carried by m, looking at its data
// parts first and its metadata second.
func DecisionFromMessage(m *a2a.Message) (string, bool) {
	if m == nil {
		return "", false
	}
	for _, dp := range a2a.GetDataParts(m.Parts) {
		if d, ok := dp.Data[DecisionTypeKey].(string); ok {
			return d, true
		}
	}
	if d, ok := m.Metadata[DecisionTypeKey].(string); ok {
		return d, true
	}
	return "", false
}

// NewConfirmationResponse returns the user message answering req. Only
// DecisionApprove confirms; every other decision denies.
func NewConfirmationResponse(req *ConfirmationRequest, decision, contextID, taskID string) *a2a.Message {
	data := map[string]any{
		FunctionNameKey: RequestConfirmationFunctionName,
		FunctionIDKey:   req.FunctionCallID,
		FunctionResponseKey: map[string]any{
			ConfirmedKey: decision == DecisionApprove,
		},
	}
	part := a2a.NewDataPart(data, map[string]any{a2a.MetadataKeyType: a2a.DataPartTypeFunctionResponse})
	return a2a.NewUserMessage(a2a.Parts{part}, contextID, taskID)
}

// confirmationResume returns the continuation message when message answers a
// confirmation pending on current.
func confirmationResume(current *a2a.Task, message *a2a.Message) (*a2a.Message, *ConfirmationRequest, bool) {
	req, ok := PendingConfirmation(current)
	if !ok {
		return nil, nil, false
	}
	decision, ok := DecisionFromMessage(message)
	if !ok {
		return nil, nil, false
	}
	return NewConfirmationResponse(req, decision, current.ContextID, current.ID), req, true
}
