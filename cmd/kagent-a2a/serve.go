// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	a2a "github.com/go-a2a/kagent-a2a"
	"github.com/go-a2a/kagent-a2a/adk"
	"github.com/go-a2a/kagent-a2a/internal/config"
	"github.com/go-a2a/kagent-a2a/internal/logger"
	"github.com/go-a2a/kagent-a2a/internal/metrics"
	"github.com/go-a2a/kagent-a2a/server/event"
	"github.com/go-a2a/kagent-a2a/server/executor"
	"github.com/go-a2a/kagent-a2a/server/handler"
	"github.com/go-a2a/kagent-a2a/transport"
)

type serveFlags struct {
	addr     string
	store    string
	dsn      string
	logLevel string
	logJSON  bool
	resume   bool
}

func newServeCommand() *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the A2A server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(f.overrides(cmd))
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.addr, "addr", "", "listen address (server.addr)")
	flags.StringVar(&f.store, "store", "", "task store driver: memory, sqlite, postgres or redis (store.driver)")
	flags.StringVar(&f.dsn, "dsn", "", "database DSN for the sqlite and postgres drivers (store.dsn)")
	flags.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error (log.level)")
	flags.BoolVar(&f.logJSON, "log-json", false, "log in JSON (log.json)")
	flags.BoolVar(&f.resume, "resume", true, "resume working tasks on start (executor.resume_on_start)")
	return cmd
}

// overrides returns the config keys of the flags set on cmd.
func (f *serveFlags) overrides(cmd *cobra.Command) map[string]any {
	changed := cmd.Flags().Changed
	out := make(map[string]any)
	if changed("addr") {
		out["server.addr"] = f.addr
	}
	if changed("store") {
		out["store.driver"] = f.store
	}
	if changed("dsn") {
		out["store.dsn"] = f.dsn
	}
	if changed("log-level") {
		out["log.level"] = f.logLevel
	}
	if changed("log-json") {
		out["log.json"] = f.logJSON
	}
	if changed("resume") {
		out["executor.resume_on_start"] = f.resume
	}
	return out
}

func agentCard(cfg *config.Config) *a2a.AgentCard {
	return &a2a.AgentCard{
		Name:            cfg.App.Name,
		Description:     cfg.App.Description,
		URL:             cfg.App.URL,
		Version:         cfg.App.Version,
		ProtocolVersion: a2a.ProtocolVersion,
		Capabilities: a2a.AgentCapabilities{
			Streaming:              true,
			StateTransitionHistory: true,
		},
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
		Skills: []a2a.AgentSkill{{
			ID:          "echo",
			Name:        "Echo",
			Description: "Answers with the input. Prefix the input with \"" + adk.ConfirmPrefix + "\" to be asked for approval.",
			Tags:        []string{"echo", "demo"},
		}},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		Output:     os.Stderr,
		JSON:       cfg.Log.JSON,
		TimeFormat: time.RFC3339,
	})
	logger.SetDefault(log)
	ctx = logger.ContextWithLogger(ctx, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.MustNewMetrics(reg)

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(context.Background()); err != nil {
			log.Error("failed to close task store", "error", err)
		}
	}()

	exec, err := executor.New(adk.NewEchoRunnerFactory(cfg.App.Name), adk.ConvertRequest, adk.Converter{},
		executor.WithAppName(cfg.App.Name),
		executor.WithLogger(log),
		executor.WithMetrics(m),
		executor.WithStreaming(cfg.Executor.Streaming),
	)
	if err != nil {
		return fmt.Errorf("failed to create executor: %w", err)
	}

	h, err := handler.NewDefaultRequestHandler(exec, store,
		handler.WithQueueManager(event.NewInMemoryQueueManager(cfg.Queue.Size)),
		handler.WithLogger(log),
		handler.WithMetrics(m),
	)
	if err != nil {
		return fmt.Errorf("failed to create request handler: %w", err)
	}

	a2aServer, err := transport.NewServer(h, agentCard(cfg), cfg.Server.MaxPayloadBytes, transport.WithLogger(log))
	if err != nil {
		return fmt.Errorf("failed to create transport: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.Handle("/", a2aServer)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	resumer := executor.NewResumeService(store, exec,
		executor.WithLauncher(h.Resume),
		executor.WithResumeLogger(log),
		executor.WithResumeMetrics(m),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("serving A2A", "addr", cfg.Server.Addr, "store", cfg.Store.Driver, "agent", cfg.App.Name)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})
	if cfg.Executor.ResumeOnStart {
		g.Go(func() error {
			n, err := resumer.Resume(gctx)
			if err != nil {
				log.Error("task resumption failed", "error", err)
				return nil
			}
			log.Info("resumed interrupted tasks", "count", n)
			return nil
		})
	}

	err = g.Wait()
	resumer.Wait()
	return err
}
