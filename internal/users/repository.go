package users

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/models"
)

var ErrNotFound = errors.New("user not found")

// UserRepository defines persistence operations for users.
// GetBySub returns (nil, nil) for an unknown subject.
type UserRepository interface {
	UpsertBySub(ctx context.Context, u *models.User) (*models.User, error)
	GetBySub(ctx context.Context, sub string) (*models.User, error)
	SetRole(ctx context.Context, sub, role string) error
}

// MongoUserRepository implements UserRepository using MongoDB
type MongoUserRepository struct {
	col *mongo.Collection
}

func NewMongoUserRepository(col *mongo.Collection) *MongoUserRepository {
	return &MongoUserRepository{col: col}
}

// UpsertBySub refreshes profile fields from claims. The role is only
// written on insert so a claims refresh never resets an assigned role.
func (r *MongoUserRepository) UpsertBySub(ctx context.Context, u *models.User) (*models.User, error) {
	now := time.Now().UTC()
	filter := bson.M{"sub": u.Sub}
	upd := bson.M{
		"$set": bson.M{
			"email":     u.Email,
			"name":      u.Name,
			"updatedAt": now,
		},
		"$setOnInsert": bson.M{
			"createdAt": now,
			"role":      u.Role,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var updated models.User
	if err := r.col.FindOneAndUpdate(ctx, filter, upd, opts).Decode(&updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *MongoUserRepository) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"sub": sub}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *MongoUserRepository) SetRole(ctx context.Context, sub, role string) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"sub": sub}, bson.M{"$set": bson.M{"role": role, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
