// Package app builds the process object graph from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/completion"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/config"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/embedding"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/extract"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/heuristics"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/index"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/pipeline"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/registry"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/storage"
)

// App holds the long-lived components of a running process.
type App struct {
	Config     *config.Config
	Store      *storage.QdrantStorage
	Registry   *registry.Store
	Heuristics *heuristics.Holder
	Service    *pipeline.Service
	// HiRes is nil when EXTRACTOR_URL is unset.
	HiRes  *extract.HTTPBackend
	Logger *slog.Logger
}

// New connects to Qdrant and the registry and wires the pipeline. The
// heuristics file, when configured, is reloaded on change until ctx ends.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	holder, err := LoadHeuristics(ctx, cfg.HeuristicsFile, logger)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewQdrantStorage(cfg.QdrantHost, cfg.QdrantPort, cfg.EmbeddingDimension, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to Qdrant at %s:%d: %w", cfg.QdrantHost, cfg.QdrantPort, err)
	}
	if err := store.EnsureCollection(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("ensure collection: %w", err)
	}

	reg, err := registry.Open(cfg.DataDir)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open registry: %w", err)
	}

	embedClient, err := embedding.NewClient(cfg.OpenAIAPIKey, cfg.EmbeddingURL())
	if err != nil {
		reg.Close()
		store.Close()
		return nil, fmt.Errorf("create embedding client: %w", err)
	}
	embedder := embedding.NewEmbedder(embedClient, embedding.Config{
		Model:     cfg.EmbeddingModel,
		Dimension: cfg.EmbeddingDimension,
	}, logger)

	completer, err := completion.NewClient(completion.Config{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.SynthesisModel,
		VisionModel: cfg.VisionModel,
		RPS:         cfg.CompletionRPS,
	}, logger)
	if err != nil {
		reg.Close()
		store.Close()
		return nil, fmt.Errorf("create completion client: %w", err)
	}

	backend := Backend(cfg, logger)
	hiRes, _ := backend.HiRes.(*extract.HTTPBackend)

	svc := pipeline.New(pipeline.Deps{
		Extractor:  extract.NewExtractor(backend, holder, logger),
		Index:      index.NewVectorIndex(embedder, store, logger),
		Images:     reg.Images(),
		Documents:  reg.Documents(),
		Completer:  completer,
		Heuristics: holder,
		Logger:     logger,
	}, pipeline.Config{
		TopK:               cfg.TopK,
		MaxFileSize:        cfg.MaxFileSize(),
		SummarizeThreshold: cfg.SummarizeThreshold,
		MaxContextTokens:   cfg.MaxContextTokens,
		MaxContextMessages: cfg.MaxContextMessages,
	})

	logger.Info("Application ready",
		"qdrant", fmt.Sprintf("%s:%d", cfg.QdrantHost, cfg.QdrantPort),
		"registry", reg.Path(),
		"hi_res_extractor", cfg.ExtractorURL != "",
	)

	return &App{
		Config:     cfg,
		Store:      store,
		Registry:   reg,
		Heuristics: holder,
		Service:    svc,
		HiRes:      hiRes,
		Logger:     logger,
	}, nil
}

// Close releases the registry and the Qdrant connection.
func (a *App) Close() error {
	return errors.Join(a.Registry.Close(), a.Store.Close())
}

// Backend selects the extraction backends. The fast pass always runs
// in-process; the high-fidelity pass needs EXTRACTOR_URL and is otherwise
// left unset so uploads degrade to fast output.
func Backend(cfg *config.Config, logger *slog.Logger) *extract.RoutingBackend {
	routing := &extract.RoutingBackend{Fast: extract.NewPDFBackend(logger)}
	if cfg.ExtractorURL != "" {
		routing.HiRes = extract.NewHTTPBackend(cfg.ExtractorURL, cfg.ExtractorTimeout, logger)
	}
	return routing
}

// LoadHeuristics returns the default tables, or the tables in path watched
// for changes until ctx ends.
func LoadHeuristics(ctx context.Context, path string, logger *slog.Logger) (*heuristics.Holder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return heuristics.NewHolder(heuristics.MustDefault()), nil
	}
	holder, err := heuristics.LoadHolder(path)
	if err != nil {
		return nil, fmt.Errorf("load heuristics: %w", err)
	}
	if err := heuristics.Watch(ctx, path, holder, logger); err != nil {
		logger.Warn("Heuristics reload disabled", "path", path, "error", err)
	}
	return holder, nil
}
