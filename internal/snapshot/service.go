package snapshot

import (
	"context"
	"log/slog"

	"github.com/vicrego/vicrego/internal/logging"
	"github.com/vicrego/vicrego/internal/rego"
)

// Freshness describes where a served snapshot came from.
type Freshness string

const (
	FreshnessCached    Freshness = "cached"
	FreshnessRefreshed Freshness = "refreshed"
	FreshnessFallback  Freshness = "fallback"
)

// Importer produces a new snapshot from the external fee schedule pages.
type Importer interface {
	Fetch(ctx context.Context) (*rego.FeeSnapshot, error)
}

// RefreshRecorder counts snapshot refresh attempts. Satisfied by
// instrumentation.Metrics.
type RefreshRecorder interface {
	RecordSnapshotRefresh(ctx context.Context, source, status string)
}

// Service resolves the snapshot the tools should use: the cached copy first,
// then a fresh import (persisted on success), then the hard-coded fallback.
type Service struct {
	store    Store
	importer Importer
	logger   *slog.Logger
	recorder RefreshRecorder
}

// NewService creates a snapshot service. importer may be nil, in which case
// only the cached and fallback paths are available.
func NewService(store Store, importer Importer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		store = NopStore{}
	}
	return &Service{store: store, importer: importer, logger: logger}
}

// SetRecorder attaches a refresh-attempt recorder. Applied after construction
// so metrics stay optional, matching how the server context receives its
// recorder.
func (s *Service) SetRecorder(recorder RefreshRecorder) {
	s.recorder = recorder
}

func (s *Service) recordRefresh(ctx context.Context, source, status string) {
	if s.recorder != nil {
		s.recorder.RecordSnapshotRefresh(ctx, source, status)
	}
}

// Resolve returns the snapshot for get_fee_snapshot, importing a fresh one
// when the store is empty. Import failures degrade to the fallback; they
// never surface to the caller.
func (s *Service) Resolve(ctx context.Context) (*rego.FeeSnapshot, Freshness) {
	if snapshot := s.store.Load(); snapshot != nil {
		return snapshot, FreshnessCached
	}
	if s.importer != nil {
		snapshot, err := s.importer.Fetch(ctx)
		if err == nil {
			s.store.Save(snapshot)
			s.recordRefresh(ctx, "resolve", "success")
			return snapshot, FreshnessRefreshed
		}
		s.recordRefresh(ctx, "resolve", "error")
		s.logger.Warn("fee snapshot import failed, using fallback",
			logging.Operation("snapshot_resolve"), logging.Err(err))
	}
	return Fallback(), FreshnessFallback
}

// Current returns the cached snapshot or the fallback without triggering an
// import. Estimation uses this so a cold store never blocks on network I/O.
func (s *Service) Current() *rego.FeeSnapshot {
	if snapshot := s.store.Load(); snapshot != nil {
		return snapshot
	}
	return Fallback()
}

// HasCached reports whether a persisted snapshot is available, as
// opposed to serving the hard-coded fallback.
func (s *Service) HasCached() bool {
	return s.store.Load() != nil
}

// Refresh runs the importer and persists the result. Used by the one-shot
// refresh command.
func (s *Service) Refresh(ctx context.Context) (*rego.FeeSnapshot, error) {
	if s.importer == nil {
		return nil, errNoImporter
	}
	snapshot, err := s.importer.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	s.store.Save(snapshot)
	return snapshot, nil
}
