// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package executor

import (
	"github.com/go-a2a/kagent-a2a/internal/logger"
	"github.com/go-a2a/kagent-a2a/internal/metrics"
)

type options struct {
	appName   string
	logger    logger.Logger
	metrics   *metrics.Metrics
	streaming bool
}

// Option configures an Executor.
type Option func(*options)

// WithAppName sets the application name passed to event converters.
func WithAppName(name string) Option {
	return func(o *options) { o.appName = name }
}

// WithLogger sets the logger. Defaults to the logger carried by the context.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records execution outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithStreaming sets the default streaming mode of runner invocations. A
// transport may override it per call.
func WithStreaming(streaming bool) Option {
	return func(o *options) { o.streaming = streaming }
}
