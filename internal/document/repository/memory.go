package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/document"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/fields"
)

// MemoryRepo is the in-process Repository used in development and tests.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*document.Document
	perms map[string]map[string]document.Permission // document -> user -> permission
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		store: make(map[string]*document.Document),
		perms: make(map[string]map[string]document.Permission),
	}
}

func copyDoc(d *document.Document) *document.Document {
	c := *d
	if d.Metadata != nil {
		c.Metadata = make(fields.Map, len(d.Metadata))
		for k, v := range d.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

func (m *MemoryRepo) Create(_ context.Context, d *document.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[d.ID] = copyDoc(d)
	return nil
}

func (m *MemoryRepo) Get(_ context.Context, id string) (*document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.store[id]; ok {
		return copyDoc(d), nil
	}
	return nil, document.ErrNotFound
}

func (m *MemoryRepo) List(_ context.Context, f document.ListFilter) ([]*document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*document.Document, 0, len(m.store))
	for _, d := range m.store {
		if f.FolderID != "" && d.FolderID != f.FolderID {
			continue
		}
		if f.AccessibleBy != "" && d.OwnerID != f.AccessibleBy {
			if _, shared := m.perms[d.ID][f.AccessibleBy]; !shared {
				continue
			}
		}
		out = append(out, copyDoc(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryRepo) Update(_ context.Context, d *document.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.store[d.ID]
	if !ok {
		return document.ErrNotFound
	}
	next := copyDoc(d)
	next.Content, next.Version = cur.Content, cur.Version
	m.store[d.ID] = next
	return nil
}

func (m *MemoryRepo) SetHead(_ context.Context, id, content string, version int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.store[id]
	if !ok {
		return document.ErrNotFound
	}
	if version > d.Version {
		d.Content, d.Version, d.UpdatedAt = content, version, at
	}
	return nil
}

func (m *MemoryRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return document.ErrNotFound
	}
	delete(m.store, id)
	delete(m.perms, id)
	return nil
}

func (m *MemoryRepo) UpsertPermissions(_ context.Context, perms []document.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range perms {
		if _, ok := m.store[p.DocumentID]; !ok {
			return document.ErrNotFound
		}
	}
	for _, p := range perms {
		if m.perms[p.DocumentID] == nil {
			m.perms[p.DocumentID] = make(map[string]document.Permission)
		}
		m.perms[p.DocumentID][p.UserID] = p
	}
	return nil
}

func (m *MemoryRepo) ListPermissions(_ context.Context, documentID string) ([]document.Permission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]document.Permission, 0, len(m.perms[documentID]))
	for _, p := range m.perms[documentID] {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *MemoryRepo) GetPermission(_ context.Context, documentID, userID string) (*document.Permission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.perms[documentID][userID]
	if !ok {
		return nil, document.ErrNotFound
	}
	return &p, nil
}

func (m *MemoryRepo) DeletePermission(_ context.Context, documentID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.perms[documentID][userID]; !ok {
		return document.ErrNotFound
	}
	delete(m.perms[documentID], userID)
	return nil
}

var _ Repository = (*MemoryRepo)(nil)
