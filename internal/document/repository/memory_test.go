package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/document"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/fields"
)

func TestMemoryRepoCRUD(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()
	d := &document.Document{ID: "d1", Title: "Contract", Content: "hello", OwnerID: "alice", Metadata: fields.Map{"k": fields.Text("v")}}
	require.NoError(t, r.Create(ctx, d))

	got, err := r.Get(ctx, "d1")
	require.NoError(t, err)
	require.Equal(t, "hello", got.Content)

	// callers get copies
	got.Metadata["k"] = fields.Text("changed")
	again, err := r.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, fields.Text("v"), again.Metadata["k"])

	got.Title = "Lease"
	got.Content = "ignored"
	require.NoError(t, r.Update(ctx, got))
	got2, err := r.Get(ctx, "d1")
	require.NoError(t, err)
	require.Equal(t, "Lease", got2.Title)
	require.Equal(t, "hello", got2.Content)

	require.NoError(t, r.Delete(ctx, "d1"))
	_, err = r.Get(ctx, "d1")
	require.ErrorIs(t, err, document.ErrNotFound)
	require.ErrorIs(t, r.Update(ctx, got), document.ErrNotFound)
	require.ErrorIs(t, r.Delete(ctx, "d1"), document.ErrNotFound)
}

func TestMemoryRepoSetHead(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, r.Create(ctx, &document.Document{ID: "d1", OwnerID: "alice"}))

	require.NoError(t, r.SetHead(ctx, "d1", "three", 3, at))
	require.NoError(t, r.SetHead(ctx, "d1", "two", 2, at.Add(time.Hour)))
	require.NoError(t, r.SetHead(ctx, "d1", "three again", 3, at.Add(time.Hour)))

	got, err := r.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "three", got.Content)
	assert.Equal(t, 3, got.Version)
	assert.Equal(t, at, got.UpdatedAt)

	require.ErrorIs(t, r.SetHead(ctx, "missing", "x", 1, at), document.ErrNotFound)
}

func TestMemoryRepoListFilters(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, r.Create(ctx, &document.Document{ID: "a", OwnerID: "alice", FolderID: "f1", CreatedAt: base}))
	require.NoError(t, r.Create(ctx, &document.Document{ID: "b", OwnerID: "bob", FolderID: "f1", CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, r.Create(ctx, &document.Document{ID: "c", OwnerID: "bob", CreatedAt: base.Add(2 * time.Hour)}))
	require.NoError(t, r.UpsertPermissions(ctx, []document.Permission{{DocumentID: "c", UserID: "alice", Level: document.LevelViewer}}))

	all, err := r.List(ctx, document.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID)

	mine, err := r.List(ctx, document.ListFilter{AccessibleBy: "alice"})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "c", mine[0].ID)
	assert.Equal(t, "a", mine[1].ID)

	folder, err := r.List(ctx, document.ListFilter{FolderID: "f1", AccessibleBy: "bob"})
	require.NoError(t, err)
	require.Len(t, folder, 1)
	assert.Equal(t, "b", folder[0].ID)
}

func TestMemoryRepoPermissions(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()
	require.NoError(t, r.Create(ctx, &document.Document{ID: "d1", OwnerID: "alice"}))

	err := r.UpsertPermissions(ctx, []document.Permission{{DocumentID: "missing", UserID: "bob"}})
	require.ErrorIs(t, err, document.ErrNotFound)

	require.NoError(t, r.UpsertPermissions(ctx, []document.Permission{
		{DocumentID: "d1", UserID: "carol", Level: document.LevelViewer},
		{DocumentID: "d1", UserID: "bob", Level: document.LevelViewer},
	}))
	require.NoError(t, r.UpsertPermissions(ctx, []document.Permission{{DocumentID: "d1", UserID: "bob", Level: document.LevelEditor}}))

	perms, err := r.ListPermissions(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, perms, 2)
	assert.Equal(t, "bob", perms[0].UserID)
	assert.Equal(t, document.LevelEditor, perms[0].Level)

	p, err := r.GetPermission(ctx, "d1", "carol")
	require.NoError(t, err)
	assert.Equal(t, document.LevelViewer, p.Level)

	require.NoError(t, r.DeletePermission(ctx, "d1", "carol"))
	_, err = r.GetPermission(ctx, "d1", "carol")
	require.ErrorIs(t, err, document.ErrNotFound)
	require.ErrorIs(t, r.DeletePermission(ctx, "d1", "carol"), document.ErrNotFound)

	require.NoError(t, r.Delete(ctx, "d1"))
	perms, err = r.ListPermissions(ctx, "d1")
	require.NoError(t, err)
	assert.Empty(t, perms)
}
