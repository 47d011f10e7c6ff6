// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent_execution provides the contract between the request handler
// and agent logic.
//
// The key components are:
//   - AgentExecutor: runs one execution attempt of a task and publishes its
//     update events to an event queue
//   - RequestContext: the inbound message, task identifiers, the current task
//     record and the caller identity
//   - RequestContextBuilder: assembles a RequestContext for a request
package agent_execution
