package repository

import (
	"context"
	"fmt"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/version"
)

// Store is the append-only persistence for versions and their change logs.
// Implementations assign VersionNumber as the current maximum for the
// document plus one and report a duplicate number as version.ErrConflict.
// A non-zero VersionNumber on the incoming record is the number the caller
// expects to receive; any other outcome is also version.ErrConflict.
type Store interface {
	InsertVersion(ctx context.Context, v *version.DocumentVersion) (*version.DocumentVersion, error)
	// InsertChanges writes every row or none where the backend allows it.
	InsertChanges(ctx context.Context, changes []version.DocumentChange) error
	// LatestVersion returns version.ErrNotFound for a document without history.
	LatestVersion(ctx context.Context, documentID string) (*version.DocumentVersion, error)
	// ListVersions is ordered by VersionNumber, highest first.
	ListVersions(ctx context.Context, documentID string) ([]*version.DocumentVersion, error)
	GetVersion(ctx context.Context, id string) (*version.VersionWithChanges, error)
}

// expectNext fails with version.ErrConflict when the caller expected a
// number other than next.
func expectNext(expected, next int) error {
	if expected > 0 && expected != next {
		return version.Conflict("insert version",
			fmt.Errorf("expected version %d, head is %d", expected, next-1))
	}
	return nil
}
