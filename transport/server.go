// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport serves an A2A agent over HTTP: the agent card and a
// JSON-RPC 2.0 endpoint whose streaming method answers with server-sent
// events.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	a2a "github.com/go-a2a/kagent-a2a"
	"github.com/go-a2a/kagent-a2a/auth"
	"github.com/go-a2a/kagent-a2a/internal/logger"
	"github.com/go-a2a/kagent-a2a/server/handler"
)

// Server is an [http.Handler] that serves one agent.
type Server struct {
	handler         handler.RequestHandler
	card            *a2a.AgentCard
	maxPayloadBytes int64
	logger          logger.Logger
	mux             *http.ServeMux
}

var _ http.Handler = (*Server)(nil)

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the server logger. Defaults to the logger carried by the
// request context.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// NewServer returns a Server dispatching to h. Request bodies larger than
// maxPayloadBytes are rejected.
func NewServer(h handler.RequestHandler, card *a2a.AgentCard, maxPayloadBytes int64, opts ...ServerOption) (*Server, error) {
	if h == nil {
		return nil, errors.New("request handler cannot be nil")
	}
	if card == nil {
		return nil, errors.New("agent card cannot be nil")
	}
	if err := card.Validate(); err != nil {
		return nil, fmt.Errorf("invalid agent card: %w", err)
	}
	if maxPayloadBytes <= 0 {
		return nil, fmt.Errorf("max payload bytes must be positive, got %d", maxPayloadBytes)
	}

	s := &Server{
		handler:         h,
		card:            card,
		maxPayloadBytes: maxPayloadBytes,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("GET "+a2a.AgentCardWellKnownPath, s.handleAgentCard)
	s.mux.HandleFunc("POST "+a2a.DefaultRPCURL+"{$}", s.handleRPC)
	return s, nil
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) log(ctx context.Context) logger.Logger {
	if s.logger != nil {
		return s.logger
	}
	return logger.FromContext(ctx)
}

func (s *Server) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.MarshalWrite(w, s.card); err != nil {
		s.log(r.Context()).Error("failed to write agent card", "error", err)
	}
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxPayloadBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeResponse(w, r, a2a.NewJSONRPCErrorResponse(nil,
				a2a.NewInvalidRequestError().WithData(fmt.Sprintf("payload exceeds %d bytes", tooLarge.Limit))))
			return
		}
		s.writeResponse(w, r, a2a.NewJSONRPCErrorResponse(nil, a2a.NewInvalidRequestError().WithData(err.Error())))
		return
	}

	var req a2a.JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeResponse(w, r, a2a.NewJSONRPCErrorResponse(nil, a2a.NewJSONParseError().WithData(err.Error())))
		return
	}
	if req.JSONRPC != a2a.JSONRPCVersion || req.Method == "" {
		s.writeResponse(w, r, a2a.NewJSONRPCErrorResponse(req.ID, a2a.NewInvalidRequestError()))
		return
	}

	ctx := auth.WithUser(r.Context(), auth.UserFromRequest(r))
	log := s.log(ctx).With("method", req.Method)
	log.Debug("handling request")

	var result any
	switch req.Method {
	case a2a.MethodMessageSend:
		params, perr := decodeParams[a2a.MessageSendParams](req.Params)
		if perr != nil {
			err = perr
			break
		}
		result, err = s.handler.OnMessageSend(ctx, params)

	case a2a.MethodMessageStream:
		params, perr := decodeParams[a2a.MessageSendParams](req.Params)
		if perr != nil {
			err = perr
			break
		}
		s.stream(ctx, w, req.ID, params)
		return

	case a2a.MethodTasksGet:
		params, perr := decodeParams[a2a.TaskQueryParams](req.Params)
		if perr != nil {
			err = perr
			break
		}
		result, err = s.handler.OnGetTask(ctx, params)

	case a2a.MethodTasksCancel:
		params, perr := decodeParams[a2a.TaskIDParams](req.Params)
		if perr != nil {
			err = perr
			break
		}
		result, err = s.handler.OnCancelTask(ctx, params)

	default:
		err = a2a.NewMethodNotFoundError().WithData(req.Method)
	}

	if err != nil {
		log.Debug("request failed", "error", err)
		s.writeResponse(w, r, a2a.NewJSONRPCErrorResponse(req.ID, a2a.AsJSONRPCError(err)))
		return
	}
	s.writeResponse(w, r, a2a.NewJSONRPCResponse(req.ID, result))
}

// stream answers a message/stream call with one SSE frame per event. Each
// frame carries a complete JSON-RPC response for the request id.
func (s *Server) stream(ctx context.Context, w http.ResponseWriter, id jsontext.Value, params *a2a.MessageSendParams) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeJSON(ctx, w, a2a.NewJSONRPCErrorResponse(id, a2a.NewUnsupportedOperationError().WithData("streaming unsupported")))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev, err := range s.handler.OnMessageSendStream(ctx, params) {
		resp := a2a.NewJSONRPCResponse(id, ev)
		if err != nil {
			resp = a2a.NewJSONRPCErrorResponse(id, a2a.AsJSONRPCError(err))
		}
		if werr := writeSSE(w, resp); werr != nil {
			// The client is gone; the handler keeps the attempt running.
			s.log(ctx).Debug("stopped streaming", "error", werr)
			return
		}
		flusher.Flush()
	}
}

func (s *Server) writeResponse(w http.ResponseWriter, r *http.Request, resp *a2a.JSONRPCResponse) {
	s.writeJSON(r.Context(), w, resp)
}

func (s *Server) writeJSON(ctx context.Context, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK) // JSON-RPC errors still use 200 OK
	if err := json.MarshalWrite(w, v); err != nil {
		s.log(ctx).Error("failed to write response", "error", err)
	}
}

// decodeParams decodes the params member of a request into a T.
func decodeParams[T any](raw jsontext.Value) (*T, error) {
	if len(raw) == 0 {
		return nil, a2a.NewInvalidParamsError().WithData("params are required")
	}
	params := new(T)
	if err := json.Unmarshal(raw, params); err != nil {
		return nil, a2a.NewInvalidParamsError().WithData(err.Error())
	}
	return params, nil
}
