package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/template"
)

// MongoRepo keeps each template with its fields embedded, so a field list
// is always replaced in one write.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(ctx context.Context, db *mongo.Database) (*MongoRepo, error) {
	col := db.Collection("templates")
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "created_by", Value: 1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("create template indexes: %w", err)
	}
	return &MongoRepo{col: col}, nil
}

func filterOf(f template.Filter) bson.M {
	filter := bson.M{}
	var and bson.A
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.VisibleTo != "" {
		and = append(and, bson.M{"$or": bson.A{
			bson.M{"is_public": true},
			bson.M{"created_by": f.VisibleTo},
		}})
	}
	if f.Query != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(f.Query), Options: "i"}
		and = append(and, bson.M{"$or": bson.A{
			bson.M{"name": re},
			bson.M{"description": re},
		}})
	}
	if len(and) > 0 {
		filter["$and"] = and
	}
	return filter
}

func (m *MongoRepo) Create(ctx context.Context, t *template.Template) error {
	_, err := m.col.InsertOne(ctx, t)
	return err
}

func (m *MongoRepo) Get(ctx context.Context, id string) (*template.Template, error) {
	var t template.Template
	if err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, template.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (m *MongoRepo) List(ctx context.Context, f template.Filter) ([]*template.Template, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := m.col.Find(ctx, filterOf(f), opts)
	if err != nil {
		return nil, err
	}
	out := []*template.Template{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *MongoRepo) Update(ctx context.Context, t *template.Template) error {
	res, err := m.col.ReplaceOne(ctx, bson.M{"_id": t.ID}, t)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return template.ErrNotFound
	}
	return nil
}

func (m *MongoRepo) Delete(ctx context.Context, id string) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return template.ErrNotFound
	}
	return nil
}

var _ Repository = (*MongoRepo)(nil)
