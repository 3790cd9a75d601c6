package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siteflow/internal/config"
	"siteflow/internal/domain"
	"siteflow/internal/events"
	"siteflow/internal/natsx"
	"siteflow/internal/orchestrator"
	"siteflow/internal/store"
	"siteflow/internal/tools"
)

func TestBuildDefaultsToSQLite(t *testing.T) {
	ctx := context.Background()
	a, err := Build(ctx, t.TempDir(), config.Default(), nil)
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, store.SQLite{}, a.Store)
	resp := a.Orchestrator.Handle(ctx, orchestrator.Request{Message: "analyze terrain at 35.067482, -101.395466"})
	require.True(t, resp.Success, resp.Message)

	evs, err := a.Events.Tail(ctx, 10, resp.ProjectName)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, events.TypeContextSaved, evs[0].Type)
}

func TestBuildMemoryStore(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = "memory"
	cfg.BulkDelete.Concurrency = 2
	a, err := Build(context.Background(), t.TempDir(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &store.Memory{}, a.Store)
	assert.Equal(t, 2, a.Orchestrator.BulkConcurrency)
}

func TestBuildEmbeddedNATS(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Store.Backend = "nats"
	cfg.Store.NATS.URL = natsx.EmbeddedURL
	cfg.Store.NATS.Bucket = "projects"
	cfg.Events.Enabled = true
	cfg.Events.NATSURL = natsx.EmbeddedURL
	cfg.Events.SubjectBase = "siteflow.events"

	a, err := Build(ctx, t.TempDir(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &store.KV{}, a.Store)
	assert.NotNil(t, a.embedded)
	assert.Len(t, a.conns, 2)

	sub, err := a.conns[1].SubscribeSync("siteflow.events.>")
	require.NoError(t, err)

	resp := a.Orchestrator.Handle(ctx, orchestrator.Request{Message: "analyze terrain at 40.1, -3.7"})
	require.True(t, resp.Success, resp.Message)

	pc, err := a.Store.Get(ctx, resp.ProjectName)
	require.NoError(t, err)
	assert.NotNil(t, pc.TerrainResults)

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "siteflow.events."+events.TypeContextSaved, msg.Subject)
}

func TestBuildHTTPToolsOverrideBuiltin(t *testing.T) {
	cfg := config.Default()
	cfg.Tools.Mode = "http"
	cfg.Tools.Endpoints = map[string]string{"terrain_analysis": "http://127.0.0.1:1/terrain"}
	cfg.Tools.Timeout = config.Duration{Duration: time.Second}

	reg := buildTools(cfg)
	h, ok := reg.Lookup(domain.IntentTerrainAnalysis)
	require.True(t, ok)
	assert.IsType(t, tools.HTTP{}, h)

	h, ok = reg.Lookup(domain.IntentLayoutOptimization)
	require.True(t, ok)
	_, remote := h.(tools.HTTP)
	assert.False(t, remote)
}
