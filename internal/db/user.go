package db

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ukydev/car-tracker/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserStore defines the interface for user account operations. The auth flow
// only depends on this interface, so the default in-memory store can be
// swapped for a real credential store without touching the handlers.
type UserStore interface {
	InsertUser(ctx context.Context, user models.User) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	// FindUserByLogin matches either the username or the account email.
	FindUserByLogin(ctx context.Context, login string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string) error
}

// InMemoryUserStore is a process-local user store. It backs the default
// deployment, where accounts exist only for the lifetime of the process.
type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]models.User
}

// NewInMemoryUserStore creates an empty in-memory user store.
func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{users: make(map[string]models.User)}
}

// InsertUser adds a user; username and email must be unique.
func (s *InMemoryUserStore) InsertUser(ctx context.Context, user models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, user.Username) || strings.EqualFold(existing.Email, user.Email) {
			return nil, fmt.Errorf("%w: user %s", ErrDuplicateKey, user.Username)
		}
	}

	if user.ID == "" {
		user.ID = primitive.NewObjectID().Hex()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = user
	return &user, nil
}

// FindUserByID finds a user by id.
func (s *InMemoryUserStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	return &user, nil
}

// FindUserByLogin finds a user by username or email.
func (s *InMemoryUserStore) FindUserByLogin(ctx context.Context, login string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Username, login) || strings.EqualFold(user.Email, login) {
			u := user
			return &u, nil
		}
	}
	return nil, fmt.Errorf("%w: user %s", ErrNotFound, login)
}

// UpdateLastLogin records the login time for a user.
func (s *InMemoryUserStore) UpdateLastLogin(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	now := time.Now()
	user.LastLogin = &now
	user.UpdatedAt = now
	s.users[id] = user
	return nil
}

// MongoUserStore implements UserStore for MongoDB, for deployments that want
// accounts to outlive the process.
type MongoUserStore struct {
	Collection *mongo.Collection
}

// InsertUser inserts a new user into the database.
func (c *MongoUserStore) InsertUser(ctx context.Context, user models.User) (*models.User, error) {
	err := c.Collection.FindOne(ctx, bson.M{"$or": []bson.M{
		{"username": user.Username},
		{"email": user.Email},
	}}).Err()
	if err == nil {
		return nil, fmt.Errorf("%w: user %s", ErrDuplicateKey, user.Username)
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	if user.ID == "" {
		user.ID = primitive.NewObjectID().Hex()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := c.Collection.InsertOne(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUserByID finds a user by id.
func (c *MongoUserStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
		}
		return nil, err
	}
	return &user, nil
}

// FindUserByLogin finds a user by username or email.
func (c *MongoUserStore) FindUserByLogin(ctx context.Context, login string) (*models.User, error) {
	var user models.User
	err := c.Collection.FindOne(ctx, bson.M{"$or": []bson.M{
		{"username": login},
		{"email": login},
	}}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, login)
		}
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin updates the last login time for a user.
func (c *MongoUserStore) UpdateLastLogin(ctx context.Context, id string) error {
	now := time.Now()
	result, err := c.Collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"last_login": now, "updated_at": now}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	return nil
}
