// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

// A2A protocol path constants.
const (
	// AgentCardWellKnownPath is the standard path for retrieving an agent's public AgentCard.
	AgentCardWellKnownPath = "/.well-known/agent.json"

	// DefaultRPCURL is the default URL path for the A2A JSON-RPC endpoint.
	DefaultRPCURL = "/"

	// ProtocolVersion is the A2A protocol version spoken by this module.
	ProtocolVersion = "0.3.0"
)

// Kind discriminators carried on the wire.
const (
	KindTask           = "task"
	KindMessage        = "message"
	KindStatusUpdate   = "status-update"
	KindArtifactUpdate = "artifact-update"
)

// Metadata keys used by kagent on tasks, messages and parts.
const (
	// MetadataKeyUserID carries the caller identity on tasks and status messages.
	MetadataKeyUserID = "kagent_user_id"

	// MetadataKeyType tags a data part with the kind of structured payload it holds.
	MetadataKeyType = "kagent_type"

	// MetadataKeyAppName records the agent application that produced a message.
	MetadataKeyAppName = "kagent_app_name"

	// MetadataKeyAuthor records the framework author of a message.
	MetadataKeyAuthor = "kagent_author"

	// MetadataKeyPartial marks a message as a partial chunk of a longer turn.
	MetadataKeyPartial = "kagent_partial"
)

// Data part payload types.
const (
	DataPartTypeFunctionCall     = "function_call"
	DataPartTypeFunctionResponse = "function_response"
)

// UnknownUserID is the sentinel identity used when no caller can be recovered.
const UnknownUserID = "unknown"
