// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrCleanupCancelled reports that producer cleanup was interrupted by
// cancellation. The request handler absorbs it.
var ErrCleanupCancelled = errors.New("producer cleanup cancelled")

// benignCloseMessage is raised by some runner frameworks when a runner is
// closed from a different task than the one that opened it.
const benignCloseMessage = "cancel scope in a different task"

// InvalidRequestError is returned for a malformed inbound request. No event
// has been emitted when it is returned.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return "invalid request: " + e.Reason
}

// RunnerResolutionError reports that the runner for an attempt could not be
// obtained. The attempt ends with a failed status.
type RunnerResolutionError struct {
	Err error
}

func (e *RunnerResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve runner: %v", e.Err)
}

func (e *RunnerResolutionError) Unwrap() error {
	return e.Err
}

// ConversionError reports that a framework event could not be converted. The
// event is dropped and execution continues.
type ConversionError struct {
	Err error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("failed to convert runner event: %v", e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// IsBenignCloseError reports whether err, returned while closing a runner, is
// an expected consequence of cancellation.
func IsBenignCloseError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return strings.Contains(err.Error(), benignCloseMessage)
}
