// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/google/uuid"

	a2a "github.com/go-a2a/kagent-a2a"
	"github.com/go-a2a/kagent-a2a/auth"
	"github.com/go-a2a/kagent-a2a/server/event"
)

// Client calls an A2A agent served by [Server]. The caller identity found in
// the request context is forwarded with every call.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client. Its transport is wrapped so
// that the caller identity is still forwarded.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		clone := *hc
		clone.Transport = &auth.HeaderTransport{Base: hc.Transport}
		c.httpClient = &clone
	}
}

// NewClient returns a Client for the agent served at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Transport: &auth.HeaderTransport{}},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AgentCard fetches the agent card.
func (c *Client) AgentCard(ctx context.Context) (*a2a.AgentCard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+a2a.AgentCardWellKnownPath, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch agent card: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch agent card: unexpected status %s", resp.Status)
	}

	var card a2a.AgentCard
	if err := json.UnmarshalRead(resp.Body, &card); err != nil {
		return nil, fmt.Errorf("failed to decode agent card: %w", err)
	}
	return &card, nil
}

// SendMessage calls message/send.
func (c *Client) SendMessage(ctx context.Context, params *a2a.MessageSendParams) (*a2a.Task, error) {
	var t a2a.Task
	if err := c.call(ctx, a2a.MethodMessageSend, params, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTask calls tasks/get.
func (c *Client) GetTask(ctx context.Context, params *a2a.TaskQueryParams) (*a2a.Task, error) {
	var t a2a.Task
	if err := c.call(ctx, a2a.MethodTasksGet, params, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// CancelTask calls tasks/cancel.
func (c *Client) CancelTask(ctx context.Context, params *a2a.TaskIDParams) (*a2a.Task, error) {
	var t a2a.Task
	if err := c.call(ctx, a2a.MethodTasksCancel, params, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// SendMessageStream calls message/stream and yields the task events as they
// arrive. Stopping the iteration closes the connection.
func (c *Client) SendMessageStream(ctx context.Context, params *a2a.MessageSendParams) iter.Seq2[event.Event, error] {
	return func(yield func(event.Event, error) bool) {
		resp, err := c.post(ctx, a2a.MethodMessageStream, params, "text/event-stream")
		if err != nil {
			yield(nil, err)
			return
		}
		defer resp.Body.Close()

		if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
			// Errors raised before streaming starts come back as plain JSON.
			_, err := decodeResponse(resp)
			if err == nil {
				err = errors.New("server did not open an event stream")
			}
			yield(nil, err)
			return
		}

		for data, err := range scanSSE(resp.Body) {
			if err != nil {
				yield(nil, err)
				return
			}
			var frame rpcResponse
			if err := json.Unmarshal(data, &frame); err != nil {
				yield(nil, fmt.Errorf("failed to decode stream frame: %w", err))
				return
			}
			if frame.Error != nil {
				yield(nil, frame.Error)
				return
			}
			ev, err := decodeEvent(frame.Result)
			if !yield(ev, err) || err != nil {
				return
			}
		}
	}
}

type rpcResponse struct {
	Result jsontext.Value    `json:"result"`
	Error  *a2a.JSONRPCError `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params, result any) error {
	resp, err := c.post(ctx, method, params, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := decodeResponse(resp)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, method string, params any, accept string) (*http.Response, error) {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s params: %w", method, err)
	}
	body, err := json.Marshal(&a2a.JSONRPCRequest{
		JSONRPC: a2a.JSONRPCVersion,
		ID:      jsontext.Value(strconv.Quote(uuid.NewString())),
		Method:  method,
		Params:  rawParams,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+a2a.DefaultRPCURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to call %s: unexpected status %s", method, resp.Status)
	}
	return resp, nil
}

func decodeResponse(resp *http.Response) (jsontext.Value, error) {
	var out rpcResponse
	if err := json.UnmarshalRead(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Error != nil {
		return nil, out.Error
	}
	return out.Result, nil
}

// decodeEvent decodes a streamed event by its kind.
func decodeEvent(raw jsontext.Value) (event.Event, error) {
	var probe struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}

	var ev event.Event
	switch probe.Kind {
	case a2a.KindStatusUpdate:
		ev = new(event.TaskStatusUpdateEvent)
	case a2a.KindArtifactUpdate:
		ev = new(event.TaskArtifactUpdateEvent)
	default:
		return nil, fmt.Errorf("unsupported event kind %q", probe.Kind)
	}
	if err := json.Unmarshal(raw, ev); err != nil {
		return nil, fmt.Errorf("failed to decode %s event: %w", probe.Kind, err)
	}
	return ev, nil
}
