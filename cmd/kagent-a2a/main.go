// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Command kagent-a2a serves an echo agent over the A2A protocol. It is the
// reference wiring of the executor, the request handler, the task stores and
// the HTTP transport.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "kagent-a2a",
		Short:         "Serve an agent over the A2A protocol",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand())
	return root
}
