// Package db manages MongoDB connections, collections and indexes.
package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Collection names.
const (
	Users    = "users"
	Posts    = "posts"
	Likes    = "likes"
	Messages = "messages"
	Sessions = "sessions"
)

// Client wraps mongo.Client and exposes collections.
type Client struct {
	client *mongo.Client
	db     *mongo.Database

	// transactions requires a replica set or sharded cluster
	transactions bool
}

// Options configures New.
type Options struct {
	Database     string
	Transactions bool
}

// New connects to MongoDB and returns a Client.
func New(ctx context.Context, mongoURI string, o Options) (*Client, error) {
	opts := options.Client().
		ApplyURI(mongoURI).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Connect is lazy; ping so a bad URI fails at startup
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	name := o.Database
	if name == "" {
		name = "socialhub"
	}

	return &Client{
		client:       client,
		db:           client.Database(name),
		transactions: o.Transactions,
	}, nil
}

// Collection returns the named collection.
func (c *Client) Collection(name string) *mongo.Collection {
	return c.db.Collection(name)
}

// UsersCollection returns the users collection.
func (c *Client) UsersCollection() *mongo.Collection { return c.Collection(Users) }

// PostsCollection returns the posts collection.
func (c *Client) PostsCollection() *mongo.Collection { return c.Collection(Posts) }

// LikesCollection returns the like ledger collection.
func (c *Client) LikesCollection() *mongo.Collection { return c.Collection(Likes) }

// MessagesCollection returns the messages collection.
func (c *Client) MessagesCollection() *mongo.Collection { return c.Collection(Messages) }

// SessionsCollection returns the server-side session collection.
func (c *Client) SessionsCollection() *mongo.Collection { return c.Collection(Sessions) }

// Close disconnects from MongoDB.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// WithTransaction runs fn inside a multi-document transaction when
// transactions are enabled. Otherwise fn runs directly and its writes are
// only individually atomic.
func (c *Client) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !c.transactions {
		return fn(ctx)
	}

	sess, err := c.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}

// CreateIndexes creates the indexes every store relies on. The unique
// indexes are what enforce username/email uniqueness and one like per
// (user, post).
func (c *Client) CreateIndexes(ctx context.Context) error {
	// identifiers are lowercased before insert, so these are case-insensitive
	userIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := c.UsersCollection().Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("failed to create users indexes: %w", err)
	}

	postIndexes := []mongo.IndexModel{
		// feed, newest first
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		// one user's posts
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	if _, err := c.PostsCollection().Indexes().CreateMany(ctx, postIndexes); err != nil {
		return fmt.Errorf("failed to create posts indexes: %w", err)
	}

	likeIndexes := []mongo.IndexModel{
		// at most one like per (user, post)
		{
			Keys:    bson.D{{Key: "user", Value: 1}, {Key: "post", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		// like counts and cleanup on post delete
		{Keys: bson.D{{Key: "post", Value: 1}}},
	}
	if _, err := c.LikesCollection().Indexes().CreateMany(ctx, likeIndexes); err != nil {
		return fmt.Errorf("failed to create likes indexes: %w", err)
	}

	messageIndexes := []mongo.IndexModel{
		// conversation history between a pair, newest first
		{Keys: bson.D{{Key: "sender", Value: 1}, {Key: "recipient", Value: 1}, {Key: "created_at", Value: -1}}},
		// unread counts and mark-as-read
		{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "is_read", Value: 1}}},
		// conversation list sort
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}
	if _, err := c.MessagesCollection().Indexes().CreateMany(ctx, messageIndexes); err != nil {
		return fmt.Errorf("failed to create message indexes: %w", err)
	}

	// Mongo removes a session once expires_at passes
	sessionIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	}
	if _, err := c.SessionsCollection().Indexes().CreateOne(ctx, sessionIndex); err != nil {
		return fmt.Errorf("failed to create sessions index: %w", err)
	}

	return nil
}
