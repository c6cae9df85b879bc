// Package knowledge owns the lifecycle of the published knowledge base: building generations
// off to the side and swapping them in atomically while queries keep running.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hyperjump/kura/internal/indexer"
	"github.com/hyperjump/kura/internal/keyword"
	"github.com/hyperjump/kura/internal/models"
	"github.com/hyperjump/kura/internal/source"
	"github.com/hyperjump/kura/internal/vector"
	"go.uber.org/zap"
)

var (
	// ErrReloadFailure wraps every failed build. The previous generation stays published.
	ErrReloadFailure = errors.New("knowledge base reload failed")
	// ErrBuildSuperseded is returned by a build that finished after a newer build had published.
	ErrBuildSuperseded = errors.New("knowledge base build superseded by a newer build")
	// ErrNoSource is returned by ReloadFromSource when no record source is configured.
	ErrNoSource = errors.New("no record source configured")
)

// State is the lifecycle state of the knowledge base.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateBuilding      State = "building"
	StateReady         State = "ready"
)

// Manager publishes knowledge-base generations. Readers never block: they load the current
// generation with a single atomic read.
type Manager struct {
	indexer *indexer.Indexer
	source  source.Source
	logger  *zap.Logger

	current   atomic.Pointer[indexer.Generation]
	building  atomic.Int32
	nextSeq   atomic.Uint64
	mu        sync.Mutex // guards published and the pointer store
	published uint64
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets a logger for lifecycle events.
func WithLogger(l *zap.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// WithSource sets the record source used by ReloadFromSource.
func WithSource(s source.Source) ManagerOption {
	return func(m *Manager) { m.source = s }
}

// NewManager creates a manager with nothing published.
func NewManager(idx *indexer.Indexer, opts ...ManagerOption) *Manager {
	m := &Manager{indexer: idx, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Reload builds a new generation from records and publishes it. On failure nothing changes
// and the error wraps ErrReloadFailure. A build that completes after a newer-started build
// has published returns ErrBuildSuperseded.
func (m *Manager) Reload(ctx context.Context, records []models.Record) (*indexer.Generation, error) {
	return m.reload(ctx, records, "records")
}

// ReloadFromSource loads records from the configured source, then reloads.
func (m *Manager) ReloadFromSource(ctx context.Context) (*indexer.Generation, error) {
	if m.source == nil {
		return nil, fmt.Errorf("%w: %w", ErrReloadFailure, ErrNoSource)
	}
	seq := m.begin()
	defer m.building.Add(-1)

	records, err := m.source.Load(ctx)
	if err != nil {
		m.logger.Error("failed to load records", zap.String("source", m.source.Name()), zap.Error(err))
		return nil, fmt.Errorf("%w: load %s: %w", ErrReloadFailure, m.source.Name(), err)
	}
	return m.build(ctx, seq, records, m.source.Name())
}

func (m *Manager) reload(ctx context.Context, records []models.Record, name string) (*indexer.Generation, error) {
	seq := m.begin()
	defer m.building.Add(-1)
	return m.build(ctx, seq, records, name)
}

// begin takes the build's sequence number. Sequence numbers order builds by start time.
func (m *Manager) begin() uint64 {
	m.building.Add(1)
	return m.nextSeq.Add(1)
}

func (m *Manager) build(ctx context.Context, seq uint64, records []models.Record, name string) (*indexer.Generation, error) {
	gen, err := m.indexer.Build(ctx, records, name)
	if err != nil {
		m.logger.Error("knowledge base build failed",
			zap.Uint64("seq", seq),
			zap.String("source", name),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrReloadFailure, err)
	}

	m.mu.Lock()
	if seq < m.published {
		m.mu.Unlock()
		m.logger.Warn("discarding superseded build",
			zap.Uint64("seq", seq),
			zap.String("build_id", gen.ID()))
		return nil, ErrBuildSuperseded
	}
	m.published = seq
	m.current.Store(gen)
	m.mu.Unlock()

	m.logger.Info("knowledge base published",
		zap.Uint64("seq", seq),
		zap.String("build_id", gen.ID()),
		zap.Int("total_chunks", gen.Snapshot.Len()))
	return gen, nil
}

// Current returns the published snapshot, or nil.
func (m *Manager) Current() *vector.Snapshot {
	gen := m.current.Load()
	if gen == nil {
		return nil
	}
	return gen.Snapshot
}

// Generation returns the published generation, or nil.
func (m *Manager) Generation() *indexer.Generation {
	return m.current.Load()
}

// State reports building while any build runs, otherwise ready or uninitialized.
func (m *Manager) State() State {
	if m.building.Load() > 0 {
		return StateBuilding
	}
	if m.current.Load() != nil {
		return StateReady
	}
	return StateUninitialized
}

// Stats describes the published generation. Dimension and vector count are nil when nothing is published.
func (m *Manager) Stats() models.Stats {
	stats := models.Stats{State: string(m.State())}
	gen := m.current.Load()
	if gen == nil {
		return stats
	}
	total := gen.Snapshot.Len()
	dim := gen.Snapshot.Dimension()
	builtAt := gen.BuiltAt()
	stats.TotalChunks = total
	stats.TotalVectors = &total
	stats.EmbeddingDimension = &dim
	stats.BuildID = gen.ID()
	stats.BuiltAt = &builtAt
	stats.Source = gen.Source
	return stats
}

// Lookup runs a keyword search over the chunks of the published generation.
func (m *Manager) Lookup(ctx context.Context, query string, limit int, opts *keyword.SearchOptions) ([]models.ChunkHit, error) {
	gen := m.current.Load()
	if gen == nil || gen.Snapshot.Len() == 0 {
		return nil, vector.ErrEmptyIndex
	}
	results, err := gen.Lookup.Search(ctx, query, limit, opts)
	if err != nil {
		return nil, err
	}
	hits := make([]models.ChunkHit, 0, len(results))
	for _, r := range results {
		if r.Position < 0 || r.Position >= gen.Snapshot.Len() {
			continue
		}
		text, meta := gen.Snapshot.Entry(r.Position)
		hits = append(hits, models.ChunkHit{
			RowIndex:   meta.RowIndex,
			ChunkIndex: meta.ChunkIndex,
			Text:       text,
			Score:      r.Score,
		})
	}
	return hits, nil
}
