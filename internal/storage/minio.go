package storage

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/version"
)

// Options configures the snapshot archive connection.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// Region skips the bucket-location lookup when set.
	Region string
}

// SnapshotArchive mirrors every version's full content into an object
// store as documents/<document id>/versions/<number>.txt.
type SnapshotArchive struct {
	client *minio.Client
	bucket string
}

// NewSnapshotArchive connects to MinIO. It does not touch the network; call
// EnsureBucket before the first upload.
func NewSnapshotArchive(opts Options) (*SnapshotArchive, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint missing")
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("minio bucket missing")
	}
	mc, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	return &SnapshotArchive{client: mc, bucket: opts.Bucket}, nil
}

// EnsureBucket creates the bucket unless it already exists.
func (s *SnapshotArchive) EnsureBucket(ctx context.Context) error {
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		exists, xerr := s.client.BucketExists(ctx, s.bucket)
		if xerr != nil || !exists {
			return fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return nil
}

func SnapshotKey(documentID string, number int) string {
	return "documents/" + url.PathEscape(documentID) + "/versions/" + strconv.Itoa(number) + ".txt"
}

func (s *SnapshotArchive) PutSnapshot(ctx context.Context, v *version.DocumentVersion) error {
	key := SnapshotKey(v.DocumentID, v.VersionNumber)
	_, err := s.client.PutObject(ctx, s.bucket, key, strings.NewReader(v.Content), int64(len(v.Content)), minio.PutObjectOptions{
		ContentType: "text/plain; charset=utf-8",
		UserMetadata: map[string]string{
			"version-id": v.ID,
			"created-by": v.CreatedBy,
		},
	})
	if err != nil {
		return fmt.Errorf("put snapshot %s: %w", key, err)
	}
	return nil
}

// PresignSnapshot returns a GET URL for v's snapshot valid for ttl.
func (s *SnapshotArchive) PresignSnapshot(ctx context.Context, v *version.DocumentVersion, ttl time.Duration) (string, error) {
	params := make(url.Values)
	params.Set("response-content-disposition",
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("%s-v%d.txt", v.DocumentID, v.VersionNumber)))
	u, err := s.client.PresignedGetObject(ctx, s.bucket, SnapshotKey(v.DocumentID, v.VersionNumber), ttl, params)
	if err != nil {
		return "", fmt.Errorf("presign snapshot: %w", err)
	}
	return u.String(), nil
}
