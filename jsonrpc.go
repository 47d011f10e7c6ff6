// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"github.com/go-json-experiment/json/jsontext"
)

// JSONRPCVersion is the only supported JSON-RPC protocol version.
const JSONRPCVersion = "2.0"

// JSON-RPC method names.
const (
	MethodMessageSend   = "message/send"
	MethodMessageStream = "message/stream"
	MethodTasksGet      = "tasks/get"
	MethodTasksCancel   = "tasks/cancel"
)

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      jsontext.Value `json:"id,omitzero"`
	Method  string         `json:"method"`
	Params  jsontext.Value `json:"params,omitzero"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      jsontext.Value `json:"id"`
	Result  any            `json:"result,omitzero"`
	Error   *JSONRPCError  `json:"error,omitzero"`
}

// NewJSONRPCResponse creates a successful response for id.
func NewJSONRPCResponse(id jsontext.Value, result any) *JSONRPCResponse {
	return &JSONRPCResponse{JSONRPC: JSONRPCVersion, ID: normalizeID(id), Result: result}
}

// NewJSONRPCErrorResponse creates an error response for id.
func NewJSONRPCErrorResponse(id jsontext.Value, err *JSONRPCError) *JSONRPCResponse {
	return &JSONRPCResponse{JSONRPC: JSONRPCVersion, ID: normalizeID(id), Error: err}
}

func normalizeID(id jsontext.Value) jsontext.Value {
	if len(id) == 0 {
		return jsontext.Value("null")
	}
	return id
}
