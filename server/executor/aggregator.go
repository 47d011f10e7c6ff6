// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package executor

import (
	a2a "github.com/go-a2a/kagent-a2a"
	"github.com/go-a2a/kagent-a2a/server/event"
)

// resultAggregator tracks the outcome of an attempt from the update events
// it forwards, so that exactly one final status is emitted at the end.
//
// Status updates pass through as non-final working updates. A failed state
// is remembered and reported once the runner is done.
type resultAggregator struct {
	failed  bool
	message *a2a.Message
}

func (a *resultAggregator) process(ev event.Event) {
	st, ok := ev.(*event.TaskStatusUpdateEvent)
	if !ok {
		return
	}

	switch {
	case st.Status.State == a2a.TaskStateFailed:
		a.failed = true
		a.message = st.Status.Message
	case !a.failed && st.Status.Message != nil:
		a.message = st.Status.Message
	}

	st.Status.State = a2a.TaskStateWorking
	st.Final = false
}
