// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package adk adapts an agent development kit style runner to the executor.
//
// The runner speaks in [Content] and yields [Event] values; [Converter] and
// [ConvertRequest] translate between them and A2A messages and task updates.
package adk

import (
	"slices"
	"strings"
)

// Role is the producer of a Content.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// FunctionCall is a tool invocation requested by the model.
type FunctionCall struct {
	ID   string         `json:"id,omitzero"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitzero"`
}

// FunctionResponse is the result of a FunctionCall.
type FunctionResponse struct {
	ID       string         `json:"id,omitzero"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response,omitzero"`
}

// Part is one piece of a Content. Exactly one field is set.
type Part struct {
	Text             string            `json:"text,omitzero"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitzero"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitzero"`
}

// Content is a multi-part message.
type Content struct {
	Role  Role    `json:"role"`
	Parts []*Part `json:"parts"`
}

// NewTextContent returns a single text part content.
func NewTextContent(role Role, text string) *Content {
	return &Content{Role: role, Parts: []*Part{{Text: text}}}
}

// Text returns the concatenated text parts of c.
func (c *Content) Text() string {
	if c == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range c.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// Event is one step of a runner invocation.
type Event struct {
	InvocationID string   `json:"invocationId,omitzero"`
	Author       string   `json:"author,omitzero"`
	Content      *Content `json:"content,omitzero"`

	// Partial marks a chunk of a turn still being streamed.
	Partial bool `json:"partial,omitzero"`

	// ErrorCode is set when the invocation failed.
	ErrorCode    string `json:"errorCode,omitzero"`
	ErrorMessage string `json:"errorMessage,omitzero"`

	// LongRunningToolIDs lists the function calls of Content whose result
	// arrives later, from the user.
	LongRunningToolIDs []string `json:"longRunningToolIds,omitzero"`
}

// IsLongRunning reports whether call is a long-running tool call of e.
func (e *Event) IsLongRunning(call *FunctionCall) bool {
	return call != nil && call.ID != "" && slices.Contains(e.LongRunningToolIDs, call.ID)
}
