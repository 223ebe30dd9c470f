package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarflowx/avatarflowx/internal/core/graph"
	"github.com/avatarflowx/avatarflowx/internal/infrastructure/config"
)

func testConfig(driver string) *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{
			Driver:          driver,
			Codec:           "msgpack",
			Compression:     "zstd",
			CheckpointTable: "flow_checkpoints",
			RecordTable:     "form_submissions",
		},
		LLM:    config.LLMConfig{Provider: "none"},
		Editor: config.EditorConfig{HistoryLimit: 10, ExtractorStrategy: "balanced"},
	}
}

func TestInitializeContainer(t *testing.T) {
	tests := []struct {
		name   string
		driver string
	}{
		{name: "memory", driver: config.DriverMemory},
		{name: "sqlite", driver: config.DriverSQLite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			cfg := testConfig(tt.driver)
			cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "avatarflowx.db")

			c, err := InitializeContainer(ctx, cfg, nil)
			require.NoError(t, err)
			defer c.Close()

			assert.Nil(t, c.Generator)
			assert.Equal(t, "msgpack+zstd", c.Serializer.Describe())

			st := c.Editor.Open(ctx, "flow-1", graph.NewSnapshot([]graph.Node{{ID: "a"}}, nil))
			cp, err := c.Checkpoints.Save(ctx, st.ID, "v1", nil)
			require.NoError(t, err)

			loaded, err := c.Saver.Load(ctx, cp.ID)
			require.NoError(t, err)
			assert.Len(t, loaded.Snapshot.Nodes, 1)

			_, err = c.Submissions.Submit(ctx, "contact", map[string]interface{}{"email": "a@example.com"})
			require.NoError(t, err)

			rec := httptest.NewRecorder()
			c.Router().Setup().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestInitializeContainer_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{name: "unknown codec", mutate: func(c *config.Config) { c.Storage.Codec = "xml" }},
		{name: "unknown compression", mutate: func(c *config.Config) { c.Storage.Compression = "lz4" }},
		{name: "unknown driver", mutate: func(c *config.Config) { c.Storage.Driver = "mongo" }},
		{name: "gemini without key", mutate: func(c *config.Config) { c.LLM.Provider = "gemini" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(config.DriverMemory)
			tt.mutate(cfg)
			_, err := InitializeContainer(context.Background(), cfg, nil)
			assert.Error(t, err)
		})
	}
}

func TestProvideExtractor_UnknownStrategyFallsBack(t *testing.T) {
	cfg := testConfig(config.DriverMemory)
	cfg.Editor.ExtractorStrategy = "greedy"
	x := ProvideExtractor(cfg, nil)
	require.NotNil(t, x)

	_, ok := x.Extract(`{"nodes":[{"id":"a"}],"edges":[]}`)
	assert.True(t, ok)
}

func TestInitializeContainer_EditorAndProfilerSettings(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(config.DriverMemory)
	cfg.Editor.SessionIdleTTL = 10 * time.Millisecond
	cfg.Editor.SessionSweep = 2 * time.Millisecond

	c, err := InitializeContainer(ctx, cfg, nil)
	require.NoError(t, err)
	defer c.Close()

	c.Editor.Open(ctx, "flow-1", graph.Snapshot{})
	assert.Eventually(t, func() bool { return c.Editor.Count() == 0 }, time.Second, 2*time.Millisecond)

	rec := httptest.NewRecorder()
	c.Router().Setup().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
