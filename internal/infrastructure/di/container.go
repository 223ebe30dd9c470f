// Package di assembles the server's dependencies from configuration
package di

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/avatarflowx/avatarflowx/internal/adapters/llm"
	"github.com/avatarflowx/avatarflowx/internal/adapters/repository/memory"
	"github.com/avatarflowx/avatarflowx/internal/adapters/repository/postgres"
	"github.com/avatarflowx/avatarflowx/internal/adapters/repository/sqlite"
	"github.com/avatarflowx/avatarflowx/internal/app/services"
	"github.com/avatarflowx/avatarflowx/internal/core/checkpoint"
	"github.com/avatarflowx/avatarflowx/internal/core/extract"
	"github.com/avatarflowx/avatarflowx/internal/core/record"
	"github.com/avatarflowx/avatarflowx/internal/infrastructure/config"
	"github.com/avatarflowx/avatarflowx/internal/interfaces/http/rest"
	"github.com/avatarflowx/avatarflowx/pkg/serialization"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	Serializer  *serialization.Serializer
	Saver       checkpoint.Saver
	Records     record.Store
	Extractor   *extract.Extractor
	Generator   services.Generator
	Editor      *services.EditorService
	Checkpoints *services.CheckpointService
	Generation  *services.GenerationService
	Submissions *services.SubmissionService

	closers []func()
}

// InitializeContainer creates a fully wired container. Storage tables are
// created when missing.
func InitializeContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Container{Config: cfg, Logger: logger}

	ser, err := ProvideSerializer(cfg)
	if err != nil {
		return nil, err
	}
	c.Serializer = ser

	if err := c.provideStorage(ctx); err != nil {
		c.Close()
		return nil, err
	}

	c.Extractor = ProvideExtractor(cfg, logger)

	gen, err := ProvideGenerator(cfg, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Generator = gen

	c.Editor = services.NewEditorService(logger,
		services.WithHistoryLimit(cfg.Editor.HistoryLimit),
		services.WithIdleTimeout(cfg.Editor.SessionIdleTTL, cfg.Editor.SessionSweep))
	c.closers = append(c.closers, c.Editor.Stop)
	c.Checkpoints = services.NewCheckpointService(c.Saver, c.Editor, logger)
	c.Generation = services.NewGenerationService(c.Generator, c.Extractor, c.Editor, logger)
	c.Submissions = services.NewSubmissionService(c.Records, logger)

	logger.Info("container initialized",
		zap.String("storage", cfg.Storage.Driver),
		zap.String("snapshot_format", ser.Describe()),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.Bool("generation_enabled", gen != nil))
	return c, nil
}

// Router builds the HTTP router over the container's services
func (c *Container) Router() *rest.Router {
	handler := rest.NewHandler(rest.Services{
		Editor:      c.Editor,
		Checkpoints: c.Checkpoints,
		Generation:  c.Generation,
		Submissions: c.Submissions,
		Extractor:   c.Extractor,
	}, c.Logger)
	return rest.NewRouter(handler, rest.RouterConfig{
		AllowedOrigins: c.Config.CORS.AllowedOrigins,
		RequestTimeout: c.Config.App.RequestTimeout,
		EnableProfiler: c.Config.App.EnableProfiler,
	}, c.Logger)
}

// Close releases storage handles in reverse order of acquisition
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// ProvideSerializer builds the snapshot serializer named by the storage config
func ProvideSerializer(cfg *config.Config) (*serialization.Serializer, error) {
	codec, err := serialization.CodecByName(cfg.Storage.Codec)
	if err != nil {
		return nil, err
	}
	return serialization.NewSerializer(serialization.Config{
		Codec:       codec,
		Compression: serialization.CompressionType(cfg.Storage.Compression),
	})
}

// ProvideExtractor builds the flow extractor with the configured strategy
func ProvideExtractor(cfg *config.Config, logger *zap.Logger) *extract.Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	strategy, ok := extract.ParseStrategy(cfg.Editor.ExtractorStrategy)
	if !ok {
		logger.Warn("unknown extractor strategy, using balanced",
			zap.String("strategy", cfg.Editor.ExtractorStrategy))
	}
	return extract.NewExtractor(logger, extract.WithStrategy(strategy))
}

// ProvideGenerator builds the configured model client. A nil Generator means
// generation is disabled.
func ProvideGenerator(cfg *config.Config, logger *zap.Logger) (services.Generator, error) {
	gen, err := llm.New(llm.Config{
		Provider: cfg.LLM.Provider,
		Gemini: llm.GeminiConfig{
			APIKey:      cfg.LLM.GeminiAPIKey,
			Model:       cfg.LLM.GeminiModel,
			BaseURL:     cfg.LLM.GeminiBaseURL,
			Timeout:     cfg.LLM.Timeout,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		},
		OpenAI: llm.OpenAIConfig{
			APIKey:      cfg.LLM.OpenAIAPIKey,
			Model:       cfg.LLM.OpenAIModel,
			BaseURL:     cfg.LLM.OpenAIBaseURL,
			Timeout:     cfg.LLM.Timeout,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.LLM.Provider, err)
	}
	if gen == nil {
		return nil, nil
	}
	return gen, nil
}

func (c *Container) provideStorage(ctx context.Context) error {
	st := c.Config.Storage
	switch st.Driver {
	case config.DriverMemory:
		saver := memory.NewCheckpointSaver(memory.Config{Serializer: c.Serializer})
		c.closers = append(c.closers, func() { _ = saver.Close() })
		c.Saver = saver
		c.Records = memory.NewRecordStore()
		return nil

	case config.DriverSQLite:
		db, err := sql.Open("sqlite", st.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to open sqlite database: %w", err)
		}
		// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
		c.closers = append(c.closers, func() { _ = db.Close() })

		saver := sqlite.NewCheckpointSaver(db, c.Serializer).WithTableName(st.CheckpointTable)
		if err := saver.CreateTables(ctx); err != nil {
			return err
		}
		records, err := sqlite.NewRecordStore(db, st.RecordTable)
		if err != nil {
			return err
		}
		if err := records.CreateTable(ctx); err != nil {
			return err
		}
		c.Saver, c.Records = saver, records
		return nil

	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, st.PostgresDSN)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		c.closers = append(c.closers, pool.Close)

		saver := postgres.NewCheckpointSaver(pool, c.Serializer).WithTableName(st.CheckpointTable)
		if err := saver.CreateTables(ctx); err != nil {
			return err
		}
		records, err := postgres.NewRecordStore(pool, st.RecordTable)
		if err != nil {
			return err
		}
		if err := records.CreateTable(ctx); err != nil {
			return err
		}
		c.Saver, c.Records = saver, records
		return nil

	default:
		return fmt.Errorf("unknown storage driver %q", st.Driver)
	}
}
