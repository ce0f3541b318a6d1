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

var errConcurrentLike = errors.New("like inserted concurrently")

// LikesStore is the like ledger. It is the source of truth for like counts;
// the post's embedded likes list is a mirror updated in the same unit of work.
type LikesStore struct {
	coll  *mongo.Collection
	posts *mongo.Collection
	tx    Transactor
}

// NewLikesStore returns a LikesStore over the likes and posts collections.
func NewLikesStore(likes, posts *mongo.Collection, tx Transactor) *LikesStore {
	return &LikesStore{coll: likes, posts: posts, tx: tx}
}

// ToggleLike removes userID's like on postID if present, otherwise adds it.
// ErrNotFound if the post does not exist.
func (l *LikesStore) ToggleLike(ctx context.Context, postID, userID bson.ObjectID) (*LikeResult, error) {
	exists, err := l.posts.CountDocuments(ctx, bson.M{"_id": postID}, options.Count().SetLimit(1))
	if err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}
	if exists == 0 {
		return nil, ErrNotFound
	}

	var liked bool
	err = l.tx.WithTransaction(ctx, func(ctx context.Context) error {
		pair := bson.M{"user": userID, "post": postID}

		// an existing like means this toggle is an unlike
		res, err := l.coll.DeleteOne(ctx, pair)
		if err != nil {
			return fmt.Errorf("delete like: %w", err)
		}
		if res.DeletedCount > 0 {
			liked = false
			if _, err := l.posts.UpdateOne(ctx, bson.M{"_id": postID}, bson.M{"$pull": bson.M{"likes": userID}}); err != nil {
				return fmt.Errorf("pull like: %w", err)
			}
			return nil
		}

		if _, err := l.coll.InsertOne(ctx, &Like{User: userID, Post: postID, CreatedAt: time.Now().UTC()}); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return errConcurrentLike
			}
			return fmt.Errorf("insert like: %w", err)
		}
		liked = true
		// $addToSet keeps the mirror free of duplicates
		if _, err := l.posts.UpdateOne(ctx, bson.M{"_id": postID}, bson.M{"$addToSet": bson.M{"likes": userID}}); err != nil {
			return fmt.Errorf("push like: %w", err)
		}
		return nil
	})
	if errors.Is(err, errConcurrentLike) {
		// a concurrent toggle inserted the same pair first and mirrors it
		// itself; the unique index keeps the ledger at one like
		liked, err = true, nil
	}
	if err != nil {
		return nil, err
	}

	count, err := l.LikeCount(ctx, postID)
	if err != nil {
		return nil, err
	}
	return &LikeResult{Liked: liked, LikeCount: count}, nil
}

// LikeCount counts ledger records for postID.
func (l *LikesStore) LikeCount(ctx context.Context, postID bson.ObjectID) (int64, error) {
	n, err := l.coll.CountDocuments(ctx, bson.M{"post": postID})
	if err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}
	return n, nil
}

// HasLiked reports whether userID currently likes postID.
func (l *LikesStore) HasLiked(ctx context.Context, postID, userID bson.ObjectID) (bool, error) {
	err := l.coll.FindOne(ctx, bson.M{"user": userID, "post": postID}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find like: %w", err)
	}
	return true, nil
}
