package database

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/dhobighat/api/pkg/config"
)

// Collection names used by the service.
const (
	ClothingItemsCollection = "clothing_items"
	UsersCollection         = "users"
)

// NewMongo returns a connected MongoDB database handle.
func NewMongo(ctx context.Context, cfg config.MongoConfig) (*mongo.Database, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return client.Database(cfg.Database), nil
}

// EnsureIndexes creates the indexes the query paths rely on. It is safe to
// call on every startup; existing indexes are left untouched.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	items := db.Collection(ClothingItemsCollection)
	itemIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}},
		{Keys: bson.D{{Key: "last_cleaned", Value: 1}}},
		{Keys: bson.D{{Key: "next_cleaning_date", Value: 1}}},
	}
	if _, err := items.Indexes().CreateMany(ctx, itemIndexes); err != nil {
		return err
	}

	users := db.Collection(UsersCollection)
	userIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "name", Value: 1}}},
	}
	if _, err := users.Indexes().CreateMany(ctx, userIndexes); err != nil {
		return err
	}

	return nil
}
