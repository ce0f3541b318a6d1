package data

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Field limits shared by validation and storage.
const (
	MaxPostLength    = 500
	MaxCommentLength = 300
	MaxMessageLength = 1000
)

// User maps to the users collection. Username and Email are stored lowercase.
type User struct {
	ID             bson.ObjectID `bson:"_id,omitempty"`
	Username       string        `bson:"username"`
	Email          string        `bson:"email"`
	DisplayName    *string       `bson:"display_name"`
	Bio            *string       `bson:"bio"`
	ProfilePicture *string       `bson:"profile_picture"`
	PasswordHash   string        `bson:"password_hash,omitempty"`
	CreatedAt      time.Time     `bson:"created_at"`
	UpdatedAt      time.Time     `bson:"updated_at"`
}

// PublicUser is the password-free view of a User sent to clients.
type PublicUser struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	DisplayName    *string   `json:"displayName"`
	Bio            *string   `json:"bio"`
	ProfilePicture *string   `json:"profilePicture"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Public strips the password hash. A nil user yields nil.
func (u *User) Public() *PublicUser {
	if u == nil {
		return nil
	}
	return &PublicUser{
		ID:             u.ID.Hex(),
		Username:       u.Username,
		Email:          u.Email,
		DisplayName:    u.DisplayName,
		Bio:            u.Bio,
		ProfilePicture: u.ProfilePicture,
		CreatedAt:      u.CreatedAt,
	}
}

// NewUser carries the fields accepted at registration.
type NewUser struct {
	Username     string
	Email        string
	DisplayName  string
	PasswordHash string
}

// ProfileUpdate is a partial update; nil fields are left untouched.
type ProfileUpdate struct {
	DisplayName    *string
	Bio            *string
	ProfilePicture *string
	Email          *string
	PasswordHash   *string
}

// Empty reports whether the update would change nothing.
func (p ProfileUpdate) Empty() bool {
	return p.DisplayName == nil && p.Bio == nil && p.ProfilePicture == nil &&
		p.Email == nil && p.PasswordHash == nil
}

// Comment is embedded in a Post. Comments are stored but not exposed by any
// endpoint yet.
type Comment struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	User      bson.ObjectID `bson:"user"`
	Content   string        `bson:"content"`
	CreatedAt time.Time     `bson:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at"`
}

// Post maps to the posts collection. Likes mirrors the like ledger.
type Post struct {
	ID        bson.ObjectID   `bson:"_id,omitempty"`
	User      bson.ObjectID   `bson:"user"`
	Content   string          `bson:"content"`
	Likes     []bson.ObjectID `bson:"likes"`
	Comments  []Comment       `bson:"comments"`
	CreatedAt time.Time       `bson:"created_at"`
	UpdatedAt time.Time       `bson:"updated_at"`

	// populated by aggregation, never written
	Author    *User `bson:"author,omitempty"`
	LikeCount int64 `bson:"like_count,omitempty"`
}

// Like is one row of the like ledger: at most one per (user, post).
type Like struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	User      bson.ObjectID `bson:"user"`
	Post      bson.ObjectID `bson:"post"`
	CreatedAt time.Time     `bson:"created_at"`
}

// LikeResult is returned by ToggleLike.
type LikeResult struct {
	Liked     bool
	LikeCount int64
}

// Message maps to the messages collection. Only IsRead ever changes.
type Message struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Sender    bson.ObjectID `bson:"sender"`
	Recipient bson.ObjectID `bson:"recipient"`
	Content   string        `bson:"content"`
	IsRead    bool          `bson:"is_read"`
	CreatedAt time.Time     `bson:"created_at"`

	// populated after reads, never written
	SenderUser    *User `bson:"sender_user,omitempty"`
	RecipientUser *User `bson:"recipient_user,omitempty"`
}

// Conversation is derived: one counterpart plus the newest message exchanged.
type Conversation struct {
	With        *User    `bson:"with"`
	LastMessage *Message `bson:"last_message"`
	UnreadCount int64    `bson:"unread_count"`
}
