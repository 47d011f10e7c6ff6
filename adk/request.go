// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package adk

import (
	"errors"
	"fmt"

	"github.com/go-json-experiment/json"

	a2a "github.com/go-a2a/kagent-a2a"
	"github.com/go-a2a/kagent-a2a/server/agent_execution"
	"github.com/go-a2a/kagent-a2a/server/executor"
)

var _ executor.RequestConverter[*Content] = ConvertRequest

// ConvertRequest builds the runner request for reqCtx. The session is the
// A2A context. Function response data parts become function responses;
// other data parts and files are passed to the model as JSON text.
func ConvertRequest(reqCtx *agent_execution.RequestContext, cfg executor.RunConfig) (*executor.RunRequest[*Content], error) {
	msg := reqCtx.Message()
	if msg == nil {
		return nil, errors.New("request has no message")
	}

	content := &Content{Role: RoleUser, Parts: make([]*Part, 0, len(msg.Parts))}
	for _, p := range msg.Parts {
		part, err := convertPart(p)
		if err != nil {
			return nil, err
		}
		content.Parts = append(content.Parts, part)
	}

	return &executor.RunRequest[*Content]{
		UserID:     reqCtx.UserID(),
		SessionID:  reqCtx.ContextID(),
		NewMessage: content,
		RunConfig:  cfg,
	}, nil
}

func convertPart(p a2a.Part) (*Part, error) {
	switch p := p.(type) {
	case nil:
		return nil, errors.New("message part cannot be nil")

	case *a2a.TextPart:
		return &Part{Text: p.Text}, nil

	case *a2a.DataPart:
		if p.Type() == a2a.DataPartTypeFunctionResponse {
			name, _ := p.Data[executor.FunctionNameKey].(string)
			id, _ := p.Data[executor.FunctionIDKey].(string)
			response, _ := p.Data[executor.FunctionResponseKey].(map[string]any)
			return &Part{FunctionResponse: &FunctionResponse{ID: id, Name: name, Response: response}}, nil
		}
		b, err := json.Marshal(p.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode data part: %w", err)
		}
		return &Part{Text: string(b)}, nil

	case *a2a.FilePart:
		b, err := json.Marshal(p.File)
		if err != nil {
			return nil, fmt.Errorf("failed to encode file part: %w", err)
		}
		return &Part{Text: string(b)}, nil

	default:
		return nil, fmt.Errorf("unsupported part kind %q", p.GetKind())
	}
}
