package infra

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/accountd/accountd/internal/account"
)

// NewMongoDatabase connects to MongoDB, verifies connectivity and ensures the
// unique indexes backing the account uniqueness invariants.
func NewMongoDatabase(ctx context.Context, uri, database string) (*mongo.Client, *mongo.Database, error) {
	if uri == "" {
		return nil, nil, fmt.Errorf("mongo uri is required")
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	if err := ensureUserIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("ensure indexes: %w", err)
	}

	return client, db, nil
}

func ensureUserIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(account.UsersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "username", Value: 1}},
		},
	})
	return err
}
