package main

import (
	"context"
	"fmt"

	"github.com/hyperjump/kura/internal/config"
	"github.com/hyperjump/kura/internal/embedding"
	"github.com/hyperjump/kura/internal/generation"
	"github.com/hyperjump/kura/internal/indexer"
	"github.com/hyperjump/kura/internal/knowledge"
	"github.com/hyperjump/kura/internal/search"
	"github.com/hyperjump/kura/internal/source"
	"github.com/hyperjump/kura/internal/watcher"
	"go.uber.org/zap"
)

// Components holds initialized services.
type Components struct {
	Embedder embedding.Embedder
	Source   source.Source
	Manager  *knowledge.Manager
	Engine   *search.Engine
}

// Close releases the embedder. The cached wrapper closes the provider it wraps.
func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	embedder, err := embedding.New(&cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	cached := embedding.NewCachedEmbedder(embedder, cfg.Embedding.CacheSize)

	idx := indexer.NewIndexer(embedder, cfg.Retrieval.ChunkSize, indexer.WithLogger(logger))
	opts := []knowledge.ManagerOption{knowledge.WithLogger(logger)}
	src, err := source.New(&cfg.Source)
	if err != nil {
		logger.Warn("no usable knowledge source configured; reload is disabled", zap.Error(err))
	} else {
		opts = append(opts, knowledge.WithSource(src))
	}
	manager := knowledge.NewManager(idx, opts...)

	generator, err := generation.New(&cfg.Generation, logger)
	if err != nil {
		_ = cached.Close()
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}
	if generator == nil {
		logger.Info("answer generation disabled", zap.String("provider", cfg.Generation.Provider))
	}

	retriever := search.NewRetriever(manager, cached, cfg.Retrieval.QueryTimeout)
	engine := search.NewEngine(search.NewFuser(retriever, logger), generator, cfg, logger)

	return &Components{
		Embedder: cached,
		Source:   src,
		Manager:  manager,
		Engine:   engine,
	}, nil
}

// startWatcher watches local file sources when source.watch is set. It returns nil when
// the source is not a watchable file.
func startWatcher(ctx context.Context, cfg *config.Config, c *Components, logger *zap.Logger, debug bool) (*watcher.Watcher, error) {
	if !cfg.Source.Watch {
		return nil, nil
	}
	file, ok := c.Source.(*source.FileSource)
	if !ok {
		logger.Warn("source.watch is only supported for local csv and xlsx sources", zap.String("type", cfg.Source.Type))
		return nil, nil
	}
	var opts []watcher.WatcherOption
	if debug {
		opts = append(opts, watcher.WithLogger(logger))
	}
	w := watcher.NewWatcher(file.Path(), func() {
		gen, err := c.Manager.ReloadFromSource(ctx)
		if err != nil {
			logger.Warn("reload after source change failed", zap.String("path", file.Path()), zap.Error(err))
			return
		}
		logger.Info("knowledge base reloaded after source change",
			zap.String("build_id", gen.ID()),
			zap.Int("total_chunks", gen.Snapshot.Len()))
	}, opts...)
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return w, nil
}
