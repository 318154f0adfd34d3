package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/fields"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/version"
)

// MemoryStore keeps history in process memory. Used for development and
// unit tests; number assignment and insert happen under one lock.
type MemoryStore struct {
	mu       sync.RWMutex
	versions map[string]*version.DocumentVersion
	byDoc    map[string][]string
	changes  map[string][]version.DocumentChange
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		versions: make(map[string]*version.DocumentVersion),
		byDoc:    make(map[string][]string),
		changes:  make(map[string][]version.DocumentChange),
	}
}

func clone(v *version.DocumentVersion) *version.DocumentVersion {
	c := *v
	if v.Metadata != nil {
		c.Metadata = make(fields.Map, len(v.Metadata))
		for k, val := range v.Metadata {
			c.Metadata[k] = val
		}
	}
	return &c
}

func (m *MemoryStore) InsertVersion(ctx context.Context, v *version.DocumentVersion) (*version.DocumentVersion, error) {
	if err := ctx.Err(); err != nil {
		return nil, version.Storage("insert version", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := clone(v)
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if _, ok := m.versions[rec.ID]; ok {
		return nil, version.Storage("insert version", fmt.Errorf("duplicate id %s", rec.ID))
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	next := len(m.byDoc[rec.DocumentID]) + 1
	if err := expectNext(rec.VersionNumber, next); err != nil {
		return nil, err
	}
	rec.VersionNumber = next
	m.versions[rec.ID] = rec
	m.byDoc[rec.DocumentID] = append(m.byDoc[rec.DocumentID], rec.ID)
	return clone(rec), nil
}

func (m *MemoryStore) InsertChanges(ctx context.Context, changes []version.DocumentChange) error {
	if err := ctx.Err(); err != nil {
		return version.Storage("insert changes", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// validate the whole batch before touching state
	for _, c := range changes {
		if _, ok := m.versions[c.VersionID]; !ok {
			return version.Storage("insert changes", fmt.Errorf("unknown version %s", c.VersionID))
		}
	}
	for _, c := range changes {
		m.changes[c.VersionID] = append(m.changes[c.VersionID], c)
	}
	return nil
}

func (m *MemoryStore) LatestVersion(ctx context.Context, documentID string) (*version.DocumentVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.byDoc[documentID]
	if len(ids) == 0 {
		return nil, version.NotFound("latest version")
	}
	return clone(m.versions[ids[len(ids)-1]]), nil
}

func (m *MemoryStore) ListVersions(ctx context.Context, documentID string) ([]*version.DocumentVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.byDoc[documentID]
	out := make([]*version.DocumentVersion, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, clone(m.versions[ids[i]]))
	}
	return out, nil
}

func (m *MemoryStore) GetVersion(ctx context.Context, id string) (*version.VersionWithChanges, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.versions[id]
	if !ok {
		return nil, version.NotFound("get version")
	}
	changes := make([]version.DocumentChange, 0, len(m.changes[id]))
	changes = append(changes, m.changes[id]...)
	sort.SliceStable(changes, func(i, j int) bool { return changes[i].Ordinal < changes[j].Ordinal })
	return &version.VersionWithChanges{DocumentVersion: *clone(v), Changes: changes}, nil
}

var _ Store = (*MemoryStore)(nil)
