package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/template"
)

type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*template.Template
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*template.Template)}
}

func clone(t *template.Template) *template.Template {
	c := *t
	c.Tags = append([]string(nil), t.Tags...)
	c.Fields = make([]template.Field, len(t.Fields))
	for i, f := range t.Fields {
		f.Options = append([]string(nil), f.Options...)
		c.Fields[i] = f
	}
	return &c
}

func matches(t *template.Template, f template.Filter) bool {
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.VisibleTo != "" && !t.IsPublic && t.CreatedBy != f.VisibleTo {
		return false
	}
	if q := strings.ToLower(f.Query); q != "" {
		return strings.Contains(strings.ToLower(t.Name), q) ||
			strings.Contains(strings.ToLower(t.Description), q)
	}
	return true
}

func (m *MemoryRepo) Create(_ context.Context, t *template.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[t.ID] = clone(t)
	return nil
}

func (m *MemoryRepo) Get(_ context.Context, id string) (*template.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.store[id]
	if !ok {
		return nil, template.ErrNotFound
	}
	return clone(t), nil
}

func (m *MemoryRepo) List(_ context.Context, f template.Filter) ([]*template.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*template.Template{}
	for _, t := range m.store {
		if matches(t, f) {
			out = append(out, clone(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryRepo) Update(_ context.Context, t *template.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[t.ID]; !ok {
		return template.ErrNotFound
	}
	m.store[t.ID] = clone(t)
	return nil
}

func (m *MemoryRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return template.ErrNotFound
	}
	delete(m.store, id)
	return nil
}

var _ Repository = (*MemoryRepo)(nil)
