package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/version"
)

// MongoStore keeps versions and changes in two collections. A unique index
// on (document_id, version_number) turns concurrent appends of the same
// number into version.ErrConflict. InsertMany is not atomic, so a failed
// change insert may leave a partial log behind.
type MongoStore struct {
	versions *mongo.Collection
	changes  *mongo.Collection
}

func NewMongoStore(ctx context.Context, db *mongo.Database) (*MongoStore, error) {
	s := &MongoStore{
		versions: db.Collection("document_versions"),
		changes:  db.Collection("document_changes"),
	}
	_, err := s.versions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "document_id", Value: 1}, {Key: "version_number", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("document_version_number"),
	})
	if err != nil {
		return nil, version.Storage("create version index", err)
	}
	_, err = s.changes.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "version_id", Value: 1}, {Key: "ordinal", Value: 1}},
	})
	if err != nil {
		return nil, version.Storage("create change index", err)
	}
	return s, nil
}

func (s *MongoStore) latest(ctx context.Context, documentID string) (*version.DocumentVersion, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "version_number", Value: -1}})
	var v version.DocumentVersion
	err := s.versions.FindOne(ctx, bson.M{"document_id": documentID}, opts).Decode(&v)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, version.NotFound("latest version")
		}
		return nil, version.Storage("latest version", err)
	}
	return &v, nil
}

func (s *MongoStore) InsertVersion(ctx context.Context, v *version.DocumentVersion) (*version.DocumentVersion, error) {
	rec := *v
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	next := 1
	prev, err := s.latest(ctx, rec.DocumentID)
	switch {
	case err == nil:
		next = prev.VersionNumber + 1
	case !errors.Is(err, version.ErrNotFound):
		return nil, err
	}
	if err := expectNext(rec.VersionNumber, next); err != nil {
		return nil, err
	}
	rec.VersionNumber = next
	if _, err := s.versions.InsertOne(ctx, &rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, version.Conflict("insert version", err)
		}
		return nil, version.Storage("insert version", err)
	}
	return &rec, nil
}

func (s *MongoStore) InsertChanges(ctx context.Context, changes []version.DocumentChange) error {
	if len(changes) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(changes))
	for i := range changes {
		docs = append(docs, changes[i])
	}
	if _, err := s.changes.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return version.Storage("insert changes", err)
	}
	return nil
}

func (s *MongoStore) LatestVersion(ctx context.Context, documentID string) (*version.DocumentVersion, error) {
	return s.latest(ctx, documentID)
}

func (s *MongoStore) ListVersions(ctx context.Context, documentID string) ([]*version.DocumentVersion, error) {
	opts := options.Find().SetSort(bson.D{{Key: "version_number", Value: -1}})
	cur, err := s.versions.Find(ctx, bson.M{"document_id": documentID}, opts)
	if err != nil {
		return nil, version.Storage("list versions", err)
	}
	defer cur.Close(ctx)
	out := []*version.DocumentVersion{}
	for cur.Next(ctx) {
		var v version.DocumentVersion
		if err := cur.Decode(&v); err != nil {
			return nil, version.Storage("list versions", err)
		}
		out = append(out, &v)
	}
	if err := cur.Err(); err != nil {
		return nil, version.Storage("list versions", err)
	}
	return out, nil
}

func (s *MongoStore) GetVersion(ctx context.Context, id string) (*version.VersionWithChanges, error) {
	var v version.DocumentVersion
	if err := s.versions.FindOne(ctx, bson.M{"_id": id}).Decode(&v); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, version.NotFound("get version")
		}
		return nil, version.Storage("get version", err)
	}
	opts := options.Find().SetSort(bson.D{{Key: "ordinal", Value: 1}})
	cur, err := s.changes.Find(ctx, bson.M{"version_id": id}, opts)
	if err != nil {
		return nil, version.Storage("get changes", err)
	}
	defer cur.Close(ctx)
	changes := []version.DocumentChange{}
	if err := cur.All(ctx, &changes); err != nil {
		return nil, version.Storage("get changes", err)
	}
	return &version.VersionWithChanges{DocumentVersion: v, Changes: changes}, nil
}

var _ Store = (*MongoStore)(nil)
