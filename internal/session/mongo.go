package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type mongoSession struct {
	ID   string `bson:"_id"`
	Data `bson:",inline"`
}

// MongoStore keeps sessions in a collection with a TTL index on expires_at
// (see db.CreateIndexes). The TTL monitor runs about once a minute, so Get
// also filters on expiry.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore returns a MongoStore using the sessions collection.
func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

func (s *MongoStore) Save(ctx context.Context, id string, d Data) error {
	doc := mongoSession{ID: id, Data: d}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*Data, error) {
	filter := bson.M{"_id": id, "expires_at": bson.M{"$gt": time.Now().UTC()}}

	var doc mongoSession
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &doc.Data, nil
}

func (s *MongoStore) Destroy(ctx context.Context, id string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

func (s *MongoStore) Purge(ctx context.Context, all bool) (int64, error) {
	filter := bson.M{"expires_at": bson.M{"$lte": time.Now().UTC()}}
	if all {
		filter = bson.M{}
	}
	res, err := s.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return res.DeletedCount, nil
}
