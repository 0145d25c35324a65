package account

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// ErrNotFound is returned by lookups that match no user.
var ErrNotFound = errors.New("user not found")

// Repository persists user records.
type Repository interface {
	Create(ctx context.Context, user User) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByPhone(ctx context.Context, phone int64) (User, error)
	// SetRefreshToken overwrites the stored refresh token without touching
	// any other field.
	SetRefreshToken(ctx context.Context, id, refreshToken string) error
	// ClearRefreshToken removes the stored refresh token. Clearing an
	// already-clear or unknown user is not an error.
	ClearRefreshToken(ctx context.Context, id string) error
}

// MongoRepository implements Repository on a MongoDB collection. Uniqueness
// of email and phone is backed by the indexes created in infra.NewMongoDatabase.
type MongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository builds a Mongo-backed user repository.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(UsersCollection)}
}

// UsersCollection is the name of the account document collection.
const UsersCollection = "users"

// Create inserts a new user and returns it with the assigned id.
func (r *MongoRepository) Create(ctx context.Context, user User) (User, error) {
	if user.ID.IsZero() {
		user.ID = bson.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// FindByID fetches a user by its hex object id.
func (r *MongoRepository) FindByID(ctx context.Context, id string) (User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// FindByEmail fetches a user by its normalized email.
func (r *MongoRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// FindByPhone fetches a user by phone number.
func (r *MongoRepository) FindByPhone(ctx context.Context, phone int64) (User, error) {
	return r.findOne(ctx, bson.M{"phone": phone})
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (User, error) {
	var user User
	err := r.coll.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// SetRefreshToken stores the latest refresh token; last write wins.
func (r *MongoRepository) SetRefreshToken(ctx context.Context, id, refreshToken string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.coll.UpdateByID(ctx, oid, bson.M{"$set": bson.M{"refresh_token": refreshToken}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearRefreshToken unsets the refresh token field entirely.
func (r *MongoRepository) ClearRefreshToken(ctx context.Context, id string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	_, err = r.coll.UpdateByID(ctx, oid, bson.M{"$unset": bson.M{"refresh_token": ""}})
	return err
}
