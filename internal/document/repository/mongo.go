package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/document"
)

// MongoRepo stores documents keyed by their uuid in _id and the share list
// in a separate collection with one entry per (document, user).
type MongoRepo struct {
	docs  *mongo.Collection
	perms *mongo.Collection
}

func NewMongoRepo(ctx context.Context, db *mongo.Database) (*MongoRepo, error) {
	m := &MongoRepo{
		docs:  db.Collection("documents"),
		perms: db.Collection("document_permissions"),
	}
	_, err := m.docs.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "folder_id", Value: 1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("create document indexes: %w", err)
	}
	_, err = m.perms.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "document_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("create permission indexes: %w", err)
	}
	return m, nil
}

func (m *MongoRepo) Create(ctx context.Context, d *document.Document) error {
	_, err := m.docs.InsertOne(ctx, d)
	return err
}

func (m *MongoRepo) Get(ctx context.Context, id string) (*document.Document, error) {
	var d document.Document
	if err := m.docs.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, document.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (m *MongoRepo) sharedWith(ctx context.Context, userID string) ([]string, error) {
	cur, err := m.perms.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	var perms []document.Permission
	if err := cur.All(ctx, &perms); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(perms))
	for _, p := range perms {
		ids = append(ids, p.DocumentID)
	}
	return ids, nil
}

func (m *MongoRepo) List(ctx context.Context, f document.ListFilter) ([]*document.Document, error) {
	filter := bson.M{}
	if f.FolderID != "" {
		filter["folder_id"] = f.FolderID
	}
	if f.AccessibleBy != "" {
		shared, err := m.sharedWith(ctx, f.AccessibleBy)
		if err != nil {
			return nil, err
		}
		filter["$or"] = bson.A{
			bson.M{"owner_id": f.AccessibleBy},
			bson.M{"_id": bson.M{"$in": shared}},
		}
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := m.docs.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*document.Document{}
	for cur.Next(ctx) {
		var d document.Document
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, cur.Err()
}

func (m *MongoRepo) Update(ctx context.Context, d *document.Document) error {
	set := bson.M{"title": d.Title, "status": d.Status, "updated_at": d.UpdatedAt}
	unset := bson.M{}
	if d.FolderID != "" {
		set["folder_id"] = d.FolderID
	} else {
		unset["folder_id"] = ""
	}
	if len(d.Metadata) > 0 {
		set["metadata"] = d.Metadata
	} else {
		unset["metadata"] = ""
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	res, err := m.docs.UpdateOne(ctx, bson.M{"_id": d.ID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return document.ErrNotFound
	}
	return nil
}

func (m *MongoRepo) SetHead(ctx context.Context, id, content string, version int, at time.Time) error {
	res, err := m.docs.UpdateOne(ctx,
		bson.M{"_id": id, "version": bson.M{"$lt": version}},
		bson.M{"$set": bson.M{"content": content, "version": version, "updated_at": at}})
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	// either already at version or newer, or gone
	n, err := m.docs.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return document.ErrNotFound
	}
	return nil
}

func (m *MongoRepo) Delete(ctx context.Context, id string) error {
	res, err := m.docs.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return document.ErrNotFound
	}
	_, err = m.perms.DeleteMany(ctx, bson.M{"document_id": id})
	return err
}

func (m *MongoRepo) UpsertPermissions(ctx context.Context, perms []document.Permission) error {
	if len(perms) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(perms))
	for _, p := range perms {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"document_id": p.DocumentID, "user_id": p.UserID}).
			SetUpdate(bson.M{
				"$set":         bson.M{"permission": p.Level},
				"$setOnInsert": bson.M{"created_at": p.CreatedAt},
			}).
			SetUpsert(true))
	}
	_, err := m.perms.BulkWrite(ctx, models)
	return err
}

func (m *MongoRepo) ListPermissions(ctx context.Context, documentID string) ([]document.Permission, error) {
	opts := options.Find().SetSort(bson.D{{Key: "user_id", Value: 1}})
	cur, err := m.perms.Find(ctx, bson.M{"document_id": documentID}, opts)
	if err != nil {
		return nil, err
	}
	out := []document.Permission{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *MongoRepo) GetPermission(ctx context.Context, documentID, userID string) (*document.Permission, error) {
	var p document.Permission
	err := m.perms.FindOne(ctx, bson.M{"document_id": documentID, "user_id": userID}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, document.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (m *MongoRepo) DeletePermission(ctx context.Context, documentID, userID string) error {
	res, err := m.perms.DeleteOne(ctx, bson.M{"document_id": documentID, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return document.ErrNotFound
	}
	return nil
}

var _ Repository = (*MongoRepo)(nil)
