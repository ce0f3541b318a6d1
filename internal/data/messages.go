package data

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Default and maximum page sizes for message reads.
const (
	DefaultHistoryLimit  = 50
	MaxConversationCount = 50
)

// MessagesStore provides message database operations.
type MessagesStore struct {
	coll      *mongo.Collection
	users     *mongo.Collection
	usersColl string
}

// NewMessagesStore returns a MessagesStore. users is read to attach the
// public profiles of both parties.
func NewMessagesStore(messages, users *mongo.Collection) *MessagesStore {
	return &MessagesStore{coll: messages, users: users, usersColl: users.Name()}
}

// SendMessage inserts an unread message and returns it with both parties attached.
// content must already be trimmed and validated.
func (m *MessagesStore) SendMessage(ctx context.Context, senderID, recipientID bson.ObjectID, content string) (*Message, error) {
	msg := &Message{
		Sender:    senderID,
		Recipient: recipientID,
		Content:   content,
		IsRead:    false,
		CreatedAt: time.Now().UTC(),
	}

	result, err := m.coll.InsertOne(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	msg.ID = result.InsertedID.(bson.ObjectID)

	if err := m.attachParties(ctx, []*Message{msg}); err != nil {
		return nil, err
	}
	return msg, nil
}

// GetConversation returns up to limit of the newest messages exchanged
// between userID and otherID, ordered oldest to newest.
func (m *MessagesStore) GetConversation(ctx context.Context, userID, otherID bson.ObjectID, limit int64) ([]*Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)

	// both directions of the pair
	filter := bson.M{
		"$or": bson.A{
			bson.M{"sender": userID, "recipient": otherID},
			bson.M{"sender": otherID, "recipient": userID},
		},
	}

	cursor, err := m.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	defer cursor.Close(ctx)

	messages := []*Message{}
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	// the newest page was fetched; display it oldest first
	reverse(messages)

	if err := m.attachParties(ctx, messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// GetConversations lists userID's counterparts, each with the newest message
// exchanged and the number of unread incoming messages, newest conversation
// first. Equal timestamps fall back to ObjectID order, i.e. insertion order.
func (m *MessagesStore) GetConversations(ctx context.Context, userID bson.ObjectID, limit int64) ([]*Conversation, error) {
	if limit <= 0 || limit > MaxConversationCount {
		limit = MaxConversationCount
	}

	pipeline := mongo.Pipeline{
		// every message the user sent or received
		{{Key: "$match", Value: bson.D{
			{Key: "$or", Value: bson.A{
				bson.D{{Key: "sender", Value: userID}},
				bson.D{{Key: "recipient", Value: userID}},
			}},
		}}},

		// newest first so $first picks the latest message of each group
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}}},

		{{Key: "$group", Value: bson.D{
			// the other party: recipient when userID sent it, else sender
			{Key: "_id", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$eq", Value: bson.A{"$sender", userID}}},
				"$recipient",
				"$sender",
			}}}},
			{Key: "last_message", Value: bson.D{{Key: "$first", Value: "$$ROOT"}}},
			// incoming and still unread
			{Key: "unread_count", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$and", Value: bson.A{
					bson.D{{Key: "$eq", Value: bson.A{"$recipient", userID}}},
					bson.D{{Key: "$eq", Value: bson.A{"$is_read", false}}},
				}}},
				1,
				0,
			}}}}}},
		}}},

		// most recently active conversation first, then cap the list
		{{Key: "$sort", Value: bson.D{
			{Key: "last_message.created_at", Value: -1},
			{Key: "last_message._id", Value: -1},
		}}},
		{{Key: "$limit", Value: limit}},

		// counterpart profile, password hash projected out
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: m.usersColl},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "pipeline", Value: bson.A{
				bson.D{{Key: "$project", Value: withoutHash}},
			}},
			{Key: "as", Value: "with"},
		}}},
		// drops conversations whose counterpart account no longer exists
		{{Key: "$unwind", Value: "$with"}},
	}

	cursor, err := m.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate conversations: %w", err)
	}
	defer cursor.Close(ctx)

	conversations := []*Conversation{}
	if err = cursor.All(ctx, &conversations); err != nil {
		return nil, fmt.Errorf("decode conversations: %w", err)
	}

	// $$ROOT carries only the ids; load both parties for every last message
	lasts := make([]*Message, 0, len(conversations))
	for _, conv := range conversations {
		if conv.LastMessage != nil {
			lasts = append(lasts, conv.LastMessage)
		}
	}
	if err := m.attachParties(ctx, lasts); err != nil {
		return nil, err
	}
	return conversations, nil
}

// MarkAsRead flips is_read on every unread message partnerID sent to userID.
// Messages userID sent are not touched.
func (m *MessagesStore) MarkAsRead(ctx context.Context, partnerID, userID bson.ObjectID) (int64, error) {
	res, err := m.coll.UpdateMany(ctx,
		bson.M{"recipient": userID, "sender": partnerID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}
	return res.ModifiedCount, nil
}

// UnreadCount counts every unread message addressed to userID.
func (m *MessagesStore) UnreadCount(ctx context.Context, userID bson.ObjectID) (int64, error) {
	n, err := m.coll.CountDocuments(ctx, bson.M{"recipient": userID, "is_read": false})
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// attachParties loads the distinct senders/recipients once and sets them on each message.
func (m *MessagesStore) attachParties(ctx context.Context, messages []*Message) error {
	if len(messages) == 0 {
		return nil
	}

	ids := partyIDs(messages)
	cursor, err := m.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetProjection(withoutHash))
	if err != nil {
		return fmt.Errorf("find message parties: %w", err)
	}
	defer cursor.Close(ctx)

	var users []*User
	if err := cursor.All(ctx, &users); err != nil {
		return fmt.Errorf("decode message parties: %w", err)
	}

	byID := make(map[bson.ObjectID]*User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, msg := range messages {
		msg.SenderUser = byID[msg.Sender]
		msg.RecipientUser = byID[msg.Recipient]
	}
	return nil
}

func partyIDs(messages []*Message) []bson.ObjectID {
	seen := map[bson.ObjectID]bool{}
	var ids []bson.ObjectID
	for _, msg := range messages {
		for _, id := range []bson.ObjectID{msg.Sender, msg.Recipient} {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// reverse turns a newest-first page into chronological order in place.
func reverse(messages []*Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}
