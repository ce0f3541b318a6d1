package main

import (
	"time"

	"github.com/PaulBabatuyi/socialhub/internal/data"
)

type postView struct {
	ID        string           `json:"id"`
	User      *data.PublicUser `json:"user"`
	Content   string           `json:"content"`
	Likes     []string         `json:"likes"`
	LikeCount int64            `json:"likeCount"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

func newPostView(p *data.Post) *postView {
	likes := make([]string, 0, len(p.Likes))
	for _, id := range p.Likes {
		likes = append(likes, id.Hex())
	}
	return &postView{
		ID:        p.ID.Hex(),
		User:      p.Author.Public(),
		Content:   p.Content,
		Likes:     likes,
		LikeCount: p.LikeCount,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func newPostViews(posts []*data.Post) []*postView {
	out := make([]*postView, 0, len(posts))
	for _, p := range posts {
		out = append(out, newPostView(p))
	}
	return out
}

// messageView carries both parties as public users. SenderID and RecipientID
// are always set, even when a party's profile could not be attached.
type messageView struct {
	ID          string           `json:"id"`
	Sender      *data.PublicUser `json:"sender"`
	Recipient   *data.PublicUser `json:"recipient"`
	SenderID    string           `json:"senderId"`
	RecipientID string           `json:"recipientId"`
	Content     string           `json:"content"`
	IsRead      bool             `json:"isRead"`
	CreatedAt   time.Time        `json:"createdAt"`
}

func newMessageView(m *data.Message) *messageView {
	return &messageView{
		ID:          m.ID.Hex(),
		Sender:      m.SenderUser.Public(),
		Recipient:   m.RecipientUser.Public(),
		SenderID:    m.Sender.Hex(),
		RecipientID: m.Recipient.Hex(),
		Content:     m.Content,
		IsRead:      m.IsRead,
		CreatedAt:   m.CreatedAt,
	}
}

func newMessageViews(msgs []*data.Message) []*messageView {
	out := make([]*messageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, newMessageView(m))
	}
	return out
}

type conversationView struct {
	ConversationWith *data.PublicUser `json:"conversationWith"`
	LastMessage      *messageView     `json:"lastMessage"`
	UnreadCount      int64            `json:"unreadCount"`
}

func newConversationViews(convs []*data.Conversation) []*conversationView {
	out := make([]*conversationView, 0, len(convs))
	for _, conv := range convs {
		v := &conversationView{
			ConversationWith: conv.With.Public(),
			UnreadCount:      conv.UnreadCount,
		}
		if conv.LastMessage != nil {
			v.LastMessage = newMessageView(conv.LastMessage)
		}
		out = append(out, v)
	}
	return out
}
