package userdb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository is the Repository used when userdb.uri/userdb.name are
// configured, grounded on original_source's use of the mongodb crate for
// account persistence (same database, different driver).
type MongoRepository struct {
	collection *mongo.Collection
}

// NewMongoRepository connects to uri and returns a Repository backed by the
// "users" collection of database dbName.
func NewMongoRepository(ctx context.Context, uri, dbName string) (*MongoRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("userdb: connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("userdb: pinging mongo: %w", err)
	}
	coll := client.Database(dbName).Collection("users")
	return &MongoRepository{collection: coll}, nil
}

var _ Repository = (*MongoRepository)(nil)

func (r *MongoRepository) Create(ctx context.Context, u User) error {
	_, err := r.collection.InsertOne(ctx, u)
	if err != nil {
		return fmt.Errorf("userdb: inserting user: %w", err)
	}
	return nil
}

func (r *MongoRepository) Get(ctx context.Context, userID string) (User, error) {
	var u User
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("userdb: finding user: %w", err)
	}
	return u, nil
}

func (r *MongoRepository) Delete(ctx context.Context, userID string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		return fmt.Errorf("userdb: deleting user: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
