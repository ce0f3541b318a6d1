package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// DefaultPostLimit is used when ListPosts gets a non-positive limit.
const DefaultPostLimit = 20

// Transactor runs fn as one unit of work. *db.Client implements it.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// PostsStore provides post database operations.
type PostsStore struct {
	coll      *mongo.Collection
	usersColl string
	likesColl string
	likes     *mongo.Collection
	tx        Transactor
}

// NewPostsStore returns a PostsStore. users and likes are the collections
// joined in to populate the author and the like count.
func NewPostsStore(posts, users, likes *mongo.Collection, tx Transactor) *PostsStore {
	return &PostsStore{
		coll:      posts,
		usersColl: users.Name(),
		likesColl: likes.Name(),
		likes:     likes,
		tx:        tx,
	}
}

// CreatePost stores a post for userID and returns it with its author populated.
// content must already be trimmed and validated.
func (p *PostsStore) CreatePost(ctx context.Context, userID bson.ObjectID, content string) (*Post, error) {
	now := time.Now().UTC()
	post := &Post{
		User:      userID,
		Content:   content,
		Likes:     []bson.ObjectID{},
		Comments:  []Comment{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	result, err := p.coll.InsertOne(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	return p.GetPost(ctx, result.InsertedID.(bson.ObjectID))
}

// GetPost returns one post with its author populated.
func (p *PostsStore) GetPost(ctx context.Context, id bson.ObjectID) (*Post, error) {
	posts, err := p.populated(ctx, bson.D{{Key: "_id", Value: id}}, 1)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, ErrNotFound
	}
	return posts[0], nil
}

// ListPosts returns the newest posts first, authors populated.
func (p *PostsStore) ListPosts(ctx context.Context, limit int64) ([]*Post, error) {
	if limit <= 0 {
		limit = DefaultPostLimit
	}
	return p.populated(ctx, bson.D{}, limit)
}

// UpdatePost replaces the content of a post owned by userID.
// ErrNotFound if the post is unknown, ErrForbidden if userID is not the owner.
func (p *PostsStore) UpdatePost(ctx context.Context, postID, userID bson.ObjectID, content string) (*Post, error) {
	if err := p.checkOwner(ctx, postID, userID); err != nil {
		return nil, err
	}

	res, err := p.coll.UpdateOne(ctx,
		bson.M{"_id": postID, "user": userID},
		bson.M{"$set": bson.M{"content": content, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	if res.MatchedCount == 0 {
		// deleted between the ownership check and the write
		return nil, ErrNotFound
	}
	return p.GetPost(ctx, postID)
}

// DeletePost removes a post owned by userID along with its like records.
// ErrNotFound if the post is unknown, ErrForbidden if userID is not the owner.
func (p *PostsStore) DeletePost(ctx context.Context, postID, userID bson.ObjectID) error {
	if err := p.checkOwner(ctx, postID, userID); err != nil {
		return err
	}

	return p.tx.WithTransaction(ctx, func(ctx context.Context) error {
		// owner in the filter so a concurrent ownership change cannot slip through
		res, err := p.coll.DeleteOne(ctx, bson.M{"_id": postID, "user": userID})
		if err != nil {
			return fmt.Errorf("delete post: %w", err)
		}
		if res.DeletedCount == 0 {
			return ErrNotFound
		}
		// ledger rows for a deleted post would never be read again
		if _, err := p.likes.DeleteMany(ctx, bson.M{"post": postID}); err != nil {
			return fmt.Errorf("delete post likes: %w", err)
		}
		return nil
	})
}

func (p *PostsStore) checkOwner(ctx context.Context, postID, userID bson.ObjectID) error {
	var owner struct {
		User bson.ObjectID `bson:"user"`
	}
	opts := options.FindOne().SetProjection(bson.D{{Key: "user", Value: 1}})
	if err := p.coll.FindOne(ctx, bson.M{"_id": postID}, opts).Decode(&owner); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return fmt.Errorf("find post: %w", err)
	}
	// the post exists but belongs to someone else
	if owner.User != userID {
		return ErrForbidden
	}
	return nil
}

// populated runs match -> sort -> limit -> join author -> count ledger likes.
func (p *PostsStore) populated(ctx context.Context, match bson.D, limit int64) ([]*Post, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		// newest first; _id breaks ties in insertion order
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$limit", Value: limit}},

		// owner profile without the password hash
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: p.usersColl},
			{Key: "localField", Value: "user"},
			{Key: "foreignField", Value: "_id"},
			{Key: "pipeline", Value: bson.A{
				bson.D{{Key: "$project", Value: withoutHash}},
			}},
			{Key: "as", Value: "author"},
		}}},
		// keep posts whose owner was deleted; author decodes as nil
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$author"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
		// count from the ledger, not the embedded likes mirror
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: p.likesColl},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "post"},
			{Key: "as", Value: "like_docs"},
		}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "like_count", Value: bson.D{{Key: "$size", Value: "$like_docs"}}},
		}}},
		{{Key: "$project", Value: bson.D{{Key: "like_docs", Value: 0}}}},
	}

	cursor, err := p.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate posts: %w", err)
	}
	defer cursor.Close(ctx)

	posts := []*Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}
	return posts, nil
}
