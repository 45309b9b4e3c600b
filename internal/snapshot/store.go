package snapshot

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/vicrego/vicrego/internal/rego"
)

// DefaultKey is the store key holding the latest snapshot.
const DefaultKey = "vic/latest.json"

// Store persists fee snapshots as opaque blobs. Load returns nil (not an
// error) when no snapshot is available, so callers can fall through to a
// scrape or the hard-coded fallback.
type Store interface {
	Load() *rego.FeeSnapshot
	Save(snapshot *rego.FeeSnapshot)
	Close() error
}

// LevelDBStore keeps snapshots in a local LevelDB database. It satisfies the
// blob get/put contract the estimator tools need without requiring an
// external object store.
type LevelDBStore struct {
	db  *leveldb.DB
	key []byte
}

// OpenLevelDBStore opens (or creates) a LevelDB database at path and stores
// snapshots under key.
func OpenLevelDBStore(path, key string) (*LevelDBStore, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("snapshot store path required")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("resolve snapshot store path: %w", err)
	}
	db, err := leveldb.OpenFile(abs, nil)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	if key == "" {
		key = DefaultKey
	}
	return &LevelDBStore{db: db, key: []byte(key)}, nil
}

// Load returns the stored snapshot, or nil when the store is empty or the
// stored blob cannot be decoded. Storage failures never propagate.
func (s *LevelDBStore) Load() *rego.FeeSnapshot {
	if s == nil || s.db == nil {
		return nil
	}
	data, err := s.db.Get(s.key, nil)
	if err != nil {
		return nil
	}
	var snapshot rego.FeeSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil
	}
	return &snapshot
}

// Save writes the snapshot, replacing any previous blob. Failures are
// swallowed: persistence is best-effort and the caller always holds the
// snapshot it just built.
func (s *LevelDBStore) Save(snapshot *rego.FeeSnapshot) {
	if s == nil || s.db == nil || snapshot == nil {
		return
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	_ = s.db.Put(s.key, data, nil)
}

// Close releases the underlying database.
func (s *LevelDBStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// NopStore is a Store that never persists anything, used when no storage
// path is configured.
type NopStore struct{}

func (NopStore) Load() *rego.FeeSnapshot  { return nil }
func (NopStore) Save(_ *rego.FeeSnapshot) {}
func (NopStore) Close() error             { return nil }

var (
	_ Store = (*LevelDBStore)(nil)
	_ Store = NopStore{}
)
