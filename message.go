// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Role identifies the sender of a message.
type Role string

// Roles.
const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Message represents a single message exchanged between a user and an agent.
type Message struct {
	Kind             string         `json:"kind"`
	MessageID        string         `json:"messageId"`
	Role             Role           `json:"role"`
	Parts            Parts          `json:"parts"`
	ContextID        string         `json:"contextId,omitzero"`
	TaskID           string         `json:"taskId,omitzero"`
	ReferenceTaskIDs []string       `json:"referenceTaskIds,omitzero"`
	Metadata         map[string]any `json:"metadata,omitzero"`
}

// Validate ensures the Message is valid.
func (m *Message) Validate() error {
	if m.MessageID == "" {
		return fmt.Errorf("message ID cannot be empty")
	}
	if m.Role != RoleUser && m.Role != RoleAgent {
		return fmt.Errorf("invalid message role: %q", m.Role)
	}
	if len(m.Parts) == 0 {
		return fmt.Errorf("message must contain at least one part")
	}
	return m.Parts.Validate()
}

// NewAgentTextMessage creates a new agent message containing a single TextPart.
func NewAgentTextMessage(text, contextID, taskID string) *Message {
	return NewAgentPartsMessage(Parts{NewTextPart(text)}, contextID, taskID)
}

// NewAgentPartsMessage creates a new agent message containing parts.
func NewAgentPartsMessage(parts Parts, contextID, taskID string) *Message {
	return &Message{
		Kind:      KindMessage,
		MessageID: uuid.NewString(),
		Role:      RoleAgent,
		Parts:     parts,
		ContextID: contextID,
		TaskID:    taskID,
	}
}

// NewUserMessage creates a new user message containing parts.
func NewUserMessage(parts Parts, contextID, taskID string) *Message {
	return &Message{
		Kind:      KindMessage,
		MessageID: uuid.NewString(),
		Role:      RoleUser,
		Parts:     parts,
		ContextID: contextID,
		TaskID:    taskID,
	}
}

// GetTextParts extracts the text content from all TextParts.
func GetTextParts(parts Parts) []string {
	var texts []string
	for _, part := range parts {
		if tp, ok := part.(*TextPart); ok {
			texts = append(texts, tp.Text)
		}
	}
	return texts
}

// GetDataParts returns every DataPart in parts.
func GetDataParts(parts Parts) []*DataPart {
	var data []*DataPart
	for _, part := range parts {
		if dp, ok := part.(*DataPart); ok {
			data = append(data, dp)
		}
	}
	return data
}

// GetMessageText joins the text of all TextParts of message with delimiter.
func GetMessageText(message *Message, delimiter string) string {
	if message == nil {
		return ""
	}
	return strings.Join(GetTextParts(message.Parts), delimiter)
}
