package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/version"
)

var versionColumns = []string{
	"id", "document_id", "content", "version_number", "created_at",
	"created_by", "change_description", "metadata",
}

var changeColumns = []string{
	"id", "version_id", "ordinal", "field_path", "old_value", "new_value", "change_type",
}

// changeBatchSize keeps each statement under the sqlite and postgres
// bind parameter limits.
const changeBatchSize = 500

// SQLStore persists history in document_versions and document_changes on
// postgres or sqlite. The schema comes from database.Migrate. Number
// assignment and insert share one transaction and the unique key on
// (document_id, version_number) rejects a concurrent duplicate.
type SQLStore struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	format := sq.PlaceholderFormat(sq.Dollar)
	if db.DriverName() != "postgres" {
		format = sq.Question
	}
	return &SQLStore{db: db, sb: sq.StatementBuilder.PlaceholderFormat(format)}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func rollback(tx *sqlx.Tx) {
	_ = tx.Rollback()
}

func (s *SQLStore) InsertVersion(ctx context.Context, v *version.DocumentVersion) (*version.DocumentVersion, error) {
	rec := *v
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, version.Storage("insert version", err)
	}
	defer rollback(tx)

	query, args, err := s.sb.Select("COALESCE(MAX(version_number), 0)").
		From("document_versions").
		Where(sq.Eq{"document_id": rec.DocumentID}).
		ToSql()
	if err != nil {
		return nil, version.Storage("insert version", err)
	}
	var current int
	if err := tx.GetContext(ctx, &current, query, args...); err != nil {
		return nil, version.Storage("insert version", err)
	}
	if err := expectNext(rec.VersionNumber, current+1); err != nil {
		return nil, err
	}
	rec.VersionNumber = current + 1

	query, args, err = s.sb.Insert("document_versions").
		Columns(versionColumns...).
		Values(rec.ID, rec.DocumentID, rec.Content, rec.VersionNumber, rec.CreatedAt,
			rec.CreatedBy, rec.ChangeDescription, rec.Metadata).
		ToSql()
	if err != nil {
		return nil, version.Storage("insert version", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return nil, version.Conflict("insert version", err)
		}
		return nil, version.Storage("insert version", err)
	}
	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return nil, version.Conflict("insert version", err)
		}
		return nil, version.Storage("insert version", err)
	}
	return &rec, nil
}

func (s *SQLStore) InsertChanges(ctx context.Context, changes []version.DocumentChange) error {
	if len(changes) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return version.Storage("insert changes", err)
	}
	defer rollback(tx)
	for start := 0; start < len(changes); start += changeBatchSize {
		end := min(start+changeBatchSize, len(changes))
		ins := s.sb.Insert("document_changes").Columns(changeColumns...)
		for _, c := range changes[start:end] {
			ins = ins.Values(c.ID, c.VersionID, c.Ordinal, c.FieldPath, c.OldValue, c.NewValue, string(c.ChangeType))
		}
		query, args, err := ins.ToSql()
		if err != nil {
			return version.Storage("insert changes", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return version.Storage("insert changes", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return version.Storage("insert changes", err)
	}
	return nil
}

func normalize(v *version.DocumentVersion) *version.DocumentVersion {
	v.CreatedAt = v.CreatedAt.UTC()
	return v
}

func (s *SQLStore) LatestVersion(ctx context.Context, documentID string) (*version.DocumentVersion, error) {
	query, args, err := s.sb.Select(versionColumns...).
		From("document_versions").
		Where(sq.Eq{"document_id": documentID}).
		OrderBy("version_number DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, version.Storage("latest version", err)
	}
	var v version.DocumentVersion
	if err := s.db.GetContext(ctx, &v, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, version.NotFound("latest version")
		}
		return nil, version.Storage("latest version", err)
	}
	return normalize(&v), nil
}

func (s *SQLStore) ListVersions(ctx context.Context, documentID string) ([]*version.DocumentVersion, error) {
	query, args, err := s.sb.Select(versionColumns...).
		From("document_versions").
		Where(sq.Eq{"document_id": documentID}).
		OrderBy("version_number DESC").
		ToSql()
	if err != nil {
		return nil, version.Storage("list versions", err)
	}
	var rows []version.DocumentVersion
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, version.Storage("list versions", err)
	}
	out := make([]*version.DocumentVersion, 0, len(rows))
	for i := range rows {
		out = append(out, normalize(&rows[i]))
	}
	return out, nil
}

func (s *SQLStore) GetVersion(ctx context.Context, id string) (*version.VersionWithChanges, error) {
	query, args, err := s.sb.Select(versionColumns...).
		From("document_versions").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, version.Storage("get version", err)
	}
	var v version.DocumentVersion
	if err := s.db.GetContext(ctx, &v, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, version.NotFound("get version")
		}
		return nil, version.Storage("get version", err)
	}

	query, args, err = s.sb.Select(changeColumns...).
		From("document_changes").
		Where(sq.Eq{"version_id": id}).
		OrderBy("ordinal ASC").
		ToSql()
	if err != nil {
		return nil, version.Storage("get changes", err)
	}
	changes := []version.DocumentChange{}
	if err := s.db.SelectContext(ctx, &changes, query, args...); err != nil {
		return nil, version.Storage("get changes", fmt.Errorf("version %s: %w", id, err))
	}
	return &version.VersionWithChanges{DocumentVersion: *normalize(&v), Changes: changes}, nil
}

var _ Store = (*SQLStore)(nil)
