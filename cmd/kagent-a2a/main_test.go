// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	a2a "github.com/go-a2a/kagent-a2a"
	"github.com/go-a2a/kagent-a2a/internal/config"
	"github.com/go-a2a/kagent-a2a/server/task"
)

func TestServeFlagOverrides(t *testing.T) {
	cmd := newServeCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--addr", ":9999", "--store", "redis", "--log-json", "--resume=false"}))

	var f serveFlags
	f.addr, _ = cmd.Flags().GetString("addr")
	f.store, _ = cmd.Flags().GetString("store")
	f.logJSON, _ = cmd.Flags().GetBool("log-json")
	f.resume, _ = cmd.Flags().GetBool("resume")

	want := map[string]any{
		"server.addr":              ":9999",
		"store.driver":             "redis",
		"log.json":                 true,
		"executor.resume_on_start": false,
	}
	assert.Equal(t, want, f.overrides(cmd))

	cfg, err := config.Load(f.overrides(cmd))
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, config.DriverRedis, cfg.Store.Driver)
	assert.False(t, cfg.Executor.ResumeOnStart)
}

func TestAgentCard(t *testing.T) {
	card := agentCard(config.Default())
	require.NoError(t, card.Validate())
	assert.Equal(t, a2a.ProtocolVersion, card.ProtocolVersion)
	assert.True(t, card.Capabilities.Streaming)
}

func TestOpenStore(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := map[string]func(cfg *config.Config){
		"memory": func(cfg *config.Config) {},
		"sqlite": func(cfg *config.Config) {
			cfg.Store.Driver = config.DriverSQLite
			cfg.Store.DSN = filepath.Join(t.TempDir(), "tasks.db")
		},
		"redis": func(cfg *config.Config) {
			cfg.Store.Driver = config.DriverRedis
			cfg.Redis.Addr = mr.Addr()
		},
	}
	for name, setup := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			setup(cfg)

			store, closeStore, err := openStore(t.Context(), cfg)
			require.NoError(t, err)
			defer func() { assert.NoError(t, closeStore(t.Context())) }()

			in := &a2a.Task{
				ID:        "task-1",
				ContextID: "ctx-1",
				Kind:      a2a.KindTask,
				Status:    a2a.TaskStatus{State: a2a.TaskStateWorking},
			}
			require.NoError(t, store.Save(t.Context(), in))

			lister, ok := store.(task.StateLister)
			require.True(t, ok)
			working, err := lister.ListByState(t.Context(), a2a.TaskStateWorking)
			require.NoError(t, err)
			require.Len(t, working, 1)
			assert.Equal(t, "task-1", working[0].ID)
		})
	}
}

func TestOpenStoreUnsupported(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = "etcd"
	_, _, err := openStore(t.Context(), cfg)
	assert.Error(t, err)
}
