package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/diff"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/fields"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/version"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/version/repository"
	"github.com/lexdraft/lexdraft/backend/go-services/pkg/logger"
	"github.com/lexdraft/lexdraft/backend/go-services/pkg/metrics"
)

const (
	originCommit  = "commit"
	originRestore = "restore"
)

// Archiver mirrors created versions to secondary storage.
type Archiver interface {
	PutSnapshot(ctx context.Context, v *version.DocumentVersion) error
}

// Comparison is the live diff between two stored versions.
type Comparison struct {
	From  version.DocumentVersion `json:"from"`
	To    version.DocumentVersion `json:"to"`
	Spans []diff.Span             `json:"spans"`
	Stats diff.Stats              `json:"stats"`
}

type Option func(*Service)

// WithUnchangedSpans controls whether unchanged spans are written to the
// change log. Enabled by default.
func WithUnchangedSpans(on bool) Option {
	return func(s *Service) { s.recordUnchanged = on }
}

func WithArchive(a Archiver) Option {
	return func(s *Service) { s.archive = a }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithConflictRetries bounds how often RetryOnConflict re-runs its callback.
func WithConflictRetries(n uint64) Option {
	return func(s *Service) { s.conflictRetries = n }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Service) { s.log = l }
}

// Service owns the versioning rules: the store checks the expected number,
// change logs are diffed against the previous head and comparisons are
// always recomputed from full contents.
type Service struct {
	store           repository.Store
	recordUnchanged bool
	archive         Archiver
	now             func() time.Time
	conflictRetries uint64
	log             *zap.SugaredLogger
}

func NewService(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:           store,
		recordUnchanged: true,
		now:             func() time.Time { return time.Now().UTC() },
		conflictRetries: 5,
	}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = logger.Named("versions")
	}
	return s
}

// CreateVersion appends content as the new head of documentID's history.
// When the version is stored but its change log is not, the version is
// returned together with an error matching version.ErrDegradedWrite.
func (s *Service) CreateVersion(ctx context.Context, documentID, content, description, actor string) (*version.DocumentVersion, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, version.Invalid("create version", "document id is required")
	}
	if !utf8.ValidString(content) {
		return nil, version.Invalid("create version", "content is not valid UTF-8")
	}
	return s.append(ctx, &version.DocumentVersion{
		DocumentID:        documentID,
		Content:           content,
		CreatedBy:         actor,
		ChangeDescription: description,
	}, originCommit)
}

func (s *Service) append(ctx context.Context, rec *version.DocumentVersion, origin string) (*version.DocumentVersion, error) {
	prev, err := s.store.LatestVersion(ctx, rec.DocumentID)
	if err != nil {
		if !errors.Is(err, version.ErrNotFound) {
			return nil, err
		}
		prev = nil
	}

	// the store refuses the number if another writer got there first, so
	// the change log is never diffed against a stale head
	rec.VersionNumber = 1
	if prev != nil {
		rec.VersionNumber = prev.VersionNumber + 1
	}
	rec.CreatedAt = s.now()
	created, err := s.store.InsertVersion(ctx, rec)
	if err != nil {
		if errors.Is(err, version.ErrConflict) {
			metrics.VersionConflicts.Inc()
			s.log.Infow("version number conflict", "document", rec.DocumentID, "error", err)
		}
		return nil, err
	}
	metrics.VersionsCreated.WithLabelValues(origin).Inc()

	if prev != nil {
		start := time.Now()
		spans := diff.Compute(prev.Content, created.Content)
		metrics.DiffDuration.WithLabelValues("record").Observe(time.Since(start).Seconds())

		changes := diff.Records(created.ID, spans, s.recordUnchanged)
		if err := s.store.InsertChanges(ctx, changes); err != nil {
			metrics.DegradedWrites.Inc()
			s.log.Warnw("change log write failed",
				"document", created.DocumentID, "version", created.VersionNumber, "error", err)
			return created, version.Degraded("create version", err)
		}
		for _, c := range changes {
			metrics.ChangeRecordsWritten.WithLabelValues(string(c.ChangeType)).Inc()
		}
	}

	s.log.Debugw("version created",
		"document", created.DocumentID, "version", created.VersionNumber, "origin", origin)
	if s.archive != nil {
		if err := s.archive.PutSnapshot(ctx, created); err != nil {
			s.log.Warnw("snapshot archive failed",
				"document", created.DocumentID, "version", created.VersionNumber, "error", err)
		}
	}
	return created, nil
}

// ListVersions returns documentID's history, newest first.
func (s *Service) ListVersions(ctx context.Context, documentID string) ([]*version.DocumentVersion, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, version.Invalid("list versions", "document id is required")
	}
	return s.store.ListVersions(ctx, documentID)
}

func (s *Service) GetVersion(ctx context.Context, id string) (*version.VersionWithChanges, error) {
	if strings.TrimSpace(id) == "" {
		return nil, version.Invalid("get version", "version id is required")
	}
	return s.store.GetVersion(ctx, id)
}

// CompareVersions diffs the full contents of any two versions. The stored
// change logs are not consulted.
func (s *Service) CompareVersions(ctx context.Context, fromID, toID string) (*Comparison, error) {
	if strings.TrimSpace(fromID) == "" || strings.TrimSpace(toID) == "" {
		return nil, version.Invalid("compare versions", "both version ids are required")
	}
	from, err := s.store.GetVersion(ctx, fromID)
	if err != nil {
		return nil, err
	}
	to, err := s.store.GetVersion(ctx, toID)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	spans := diff.Compute(from.Content, to.Content)
	metrics.DiffDuration.WithLabelValues("compare").Observe(time.Since(start).Seconds())
	return &Comparison{
		From:  from.DocumentVersion,
		To:    to.DocumentVersion,
		Spans: spans,
		Stats: diff.Summarize(spans),
	}, nil
}

// RestoreVersion appends a copy of versionID's content as the new head.
// History is never rewritten. A version of another document is reported
// as not found.
func (s *Service) RestoreVersion(ctx context.Context, documentID, versionID, actor string) (*version.DocumentVersion, error) {
	if strings.TrimSpace(documentID) == "" || strings.TrimSpace(versionID) == "" {
		return nil, version.Invalid("restore version", "document and version ids are required")
	}
	target, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if target.DocumentID != documentID {
		return nil, version.NotFound("restore version")
	}
	return s.append(ctx, &version.DocumentVersion{
		DocumentID:        documentID,
		Content:           target.Content,
		CreatedBy:         actor,
		ChangeDescription: fmt.Sprintf("restored to version %d", target.VersionNumber),
		Metadata:          fields.Map{version.MetaRestoredFrom: fields.Number(target.VersionNumber)},
	}, originRestore)
}

// RetryOnConflict runs fn until it succeeds, fails with anything other than
// version.ErrConflict, the retry budget runs out or ctx is done.
func (s *Service) RetryOnConflict(ctx context.Context, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 0
	op := func() error {
		err := fn()
		if err != nil && !version.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		s.log.Debugw("retrying after conflict", "wait", wait, "error", err)
	}
	return backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(b, s.conflictRetries), ctx), notify)
}
