// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package adk

import (
	"context"
	"errors"
	"iter"
	"strings"

	"github.com/google/uuid"

	"github.com/go-a2a/kagent-a2a/server/executor"
)

// ConfirmPrefix makes EchoRunner ask for confirmation of the rest of the input.
const ConfirmPrefix = "confirm:"

// defaultChunkSize is the streamed chunk length of EchoRunner, in bytes.
const defaultChunkSize = 16

// EchoRunner is a Runner that answers with the user's own text. It streams
// the answer in partial chunks when asked to. Input starting with
// [ConfirmPrefix] triggers a confirmation request instead; the answer to it
// reports the decision.
type EchoRunner struct {
	// Author is the event author. Defaults to "echo".
	Author string
	// ChunkSize is the partial chunk length. Defaults to 16.
	ChunkSize int
}

var _ executor.Runner[*Content, *Event] = (*EchoRunner)(nil)

// NewEchoRunnerFactory returns a factory handing out one EchoRunner per attempt.
func NewEchoRunnerFactory(author string) executor.RunnerFactory[*Content, *Event] {
	return func(context.Context) (executor.Runner[*Content, *Event], error) {
		return &EchoRunner{Author: author}, nil
	}
}

// Run implements executor.Runner.
func (r *EchoRunner) Run(ctx context.Context, req *executor.RunRequest[*Content]) iter.Seq2[*Event, error] {
	return func(yield func(*Event, error) bool) {
		if req == nil || req.NewMessage == nil {
			yield(nil, errors.New("run request has no message"))
			return
		}

		invocationID := uuid.NewString()
		emit := func(ev *Event) bool {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return false
			}
			ev.InvocationID = invocationID
			ev.Author = r.author()
			return yield(ev, nil)
		}

		for _, p := range req.NewMessage.Parts {
			if resp := p.FunctionResponse; resp != nil && resp.Name == executor.RequestConfirmationFunctionName {
				answer := "Action denied."
				if confirmed, _ := resp.Response[executor.ConfirmedKey].(bool); confirmed {
					answer = "Action approved."
				}
				emit(&Event{Content: NewTextContent(RoleModel, answer)})
				return
			}
		}

		text := req.NewMessage.Text()
		if action, ok := strings.CutPrefix(text, ConfirmPrefix); ok {
			call := &FunctionCall{
				ID:   uuid.NewString(),
				Name: executor.RequestConfirmationFunctionName,
				Args: map[string]any{"action": strings.TrimSpace(action)},
			}
			emit(&Event{
				Content:            &Content{Role: RoleModel, Parts: []*Part{{FunctionCall: call}}},
				LongRunningToolIDs: []string{call.ID},
			})
			return
		}

		if req.RunConfig.Streaming {
			for _, chunk := range chunks(text, r.chunkSize()) {
				if !emit(&Event{Content: NewTextContent(RoleModel, chunk), Partial: true}) {
					return
				}
			}
		}
		emit(&Event{Content: NewTextContent(RoleModel, text)})
	}
}

// Close implements executor.Runner.
func (r *EchoRunner) Close(context.Context) error { return nil }

func (r *EchoRunner) author() string {
	if r.Author == "" {
		return "echo"
	}
	return r.Author
}

func (r *EchoRunner) chunkSize() int {
	if r.ChunkSize <= 0 {
		return defaultChunkSize
	}
	return r.ChunkSize
}

func chunks(s string, n int) []string {
	var out []string
	for len(s) > n {
		out = append(out, s[:n])
		s = s[n:]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}
