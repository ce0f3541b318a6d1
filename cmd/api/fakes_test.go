package main

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/PaulBabatuyi/socialhub/internal/data"
	"github.com/PaulBabatuyi/socialhub/internal/normalize"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// memStore is an in-memory stand-in for all four Mongo stores. It keeps the
// same contracts: typed errors, hash-free reads, newest-first ordering.
type memStore struct {
	mu    sync.Mutex
	clock time.Time
	fail  error

	users map[bson.ObjectID]*data.User
	posts map[bson.ObjectID]*data.Post
	likes map[[2]bson.ObjectID]bool // {post, user}
	msgs  []*data.Message
}

func newMemStore() *memStore {
	return &memStore{
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		users: map[bson.ObjectID]*data.User{},
		posts: map[bson.ObjectID]*data.Post{},
		likes: map[[2]bson.ObjectID]bool{},
	}
}

// tick returns strictly increasing timestamps so ordering is deterministic.
func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Millisecond)
	return m.clock
}

func stripHash(u *data.User) *data.User {
	if u == nil {
		return nil
	}
	c := *u
	c.PasswordHash = ""
	return &c
}

func (m *memStore) CreateUser(ctx context.Context, in data.NewUser) (*data.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	username, email := normalize.Username(in.Username), normalize.Email(in.Email)
	for _, u := range m.users {
		if u.Username == username || u.Email == email {
			return nil, data.ErrConflict
		}
	}
	now := m.tick()
	u := &data.User{
		ID:           bson.NewObjectID(),
		Username:     username,
		Email:        email,
		PasswordHash: in.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.DisplayName != "" {
		dn := in.DisplayName
		u.DisplayName = &dn
	}
	m.users[u.ID] = u
	return stripHash(u), nil
}

func (m *memStore) IdentifierTaken(ctx context.Context, username, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return false, m.fail
	}
	username, email = normalize.Username(username), normalize.Email(email)
	for _, u := range m.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) FindByIdentifier(ctx context.Context, identifier string) (*data.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	id := normalize.Identifier(identifier)
	for _, u := range m.users {
		if u.Username == id || u.Email == id {
			c := *u
			return &c, nil
		}
	}
	return nil, data.ErrNotFound
}

func (m *memStore) GetUserByID(ctx context.Context, id bson.ObjectID) (*data.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	u, ok := m.users[id]
	if !ok {
		return nil, data.ErrNotFound
	}
	return stripHash(u), nil
}

func (m *memStore) GetCredentials(ctx context.Context, id bson.ObjectID) (*data.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, data.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (m *memStore) UserExists(ctx context.Context, id bson.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return false, m.fail
	}
	_, ok := m.users[id]
	return ok, nil
}

func (m *memStore) UpdateProfile(ctx context.Context, id bson.ObjectID, p data.ProfileUpdate) (*data.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, data.ErrNotFound
	}
	if p.Email != nil {
		email := normalize.Email(*p.Email)
		for oid, other := range m.users {
			if oid != id && other.Email == email {
				return nil, data.ErrConflict
			}
		}
		u.Email = email
	}
	if p.DisplayName != nil {
		v := *p.DisplayName
		u.DisplayName = &v
	}
	if p.Bio != nil {
		v := *p.Bio
		u.Bio = &v
	}
	if p.ProfilePicture != nil {
		v := *p.ProfilePicture
		u.ProfilePicture = &v
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	u.UpdatedAt = m.tick()
	return stripHash(u), nil
}

// populate returns a copy of p with author and like count filled in.
// Caller holds mu.
func (m *memStore) populate(p *data.Post) *data.Post {
	c := *p
	c.Likes = append([]bson.ObjectID{}, p.Likes...)
	c.Author = stripHash(m.users[p.User])
	for k := range m.likes {
		if k[0] == p.ID {
			c.LikeCount++
		}
	}
	return &c
}

func (m *memStore) CreatePost(ctx context.Context, userID bson.ObjectID, content string) (*data.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	now := m.tick()
	p := &data.Post{
		ID:        bson.NewObjectID(),
		User:      userID,
		Content:   content,
		Likes:     []bson.ObjectID{},
		Comments:  []data.Comment{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.posts[p.ID] = p
	return m.populate(p), nil
}

func (m *memStore) GetPost(ctx context.Context, id bson.ObjectID) (*data.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, data.ErrNotFound
	}
	return m.populate(p), nil
}

func (m *memStore) ListPosts(ctx context.Context, limit int64) ([]*data.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	out := make([]*data.Post, 0, len(m.posts))
	for _, p := range m.posts {
		out = append(out, m.populate(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ownedPost(postID, userID bson.ObjectID) (*data.Post, error) {
	p, ok := m.posts[postID]
	if !ok {
		return nil, data.ErrNotFound
	}
	if p.User != userID {
		return nil, data.ErrForbidden
	}
	return p, nil
}

func (m *memStore) UpdatePost(ctx context.Context, postID, userID bson.ObjectID, content string) (*data.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.ownedPost(postID, userID)
	if err != nil {
		return nil, err
	}
	p.Content = content
	p.UpdatedAt = m.tick()
	return m.populate(p), nil
}

func (m *memStore) DeletePost(ctx context.Context, postID, userID bson.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.ownedPost(postID, userID); err != nil {
		return err
	}
	delete(m.posts, postID)
	for k := range m.likes {
		if k[0] == postID {
			delete(m.likes, k)
		}
	}
	return nil
}

func (m *memStore) ToggleLike(ctx context.Context, postID, userID bson.ObjectID) (*data.LikeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[postID]
	if !ok {
		return nil, data.ErrNotFound
	}
	key := [2]bson.ObjectID{postID, userID}
	liked := !m.likes[key]
	if liked {
		m.likes[key] = true
		p.Likes = append(p.Likes, userID)
	} else {
		delete(m.likes, key)
		kept := p.Likes[:0]
		for _, id := range p.Likes {
			if id != userID {
				kept = append(kept, id)
			}
		}
		p.Likes = kept
	}
	return &data.LikeResult{Liked: liked, LikeCount: m.populate(p).LikeCount}, nil
}

func (m *memStore) HasLiked(ctx context.Context, postID, userID bson.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return false, m.fail
	}
	return m.likes[[2]bson.ObjectID{postID, userID}], nil
}

// attach fills both parties on a copy of msg. Caller holds mu.
func (m *memStore) attach(msg *data.Message) *data.Message {
	c := *msg
	c.SenderUser = stripHash(m.users[msg.Sender])
	c.RecipientUser = stripHash(m.users[msg.Recipient])
	return &c
}

func (m *memStore) SendMessage(ctx context.Context, senderID, recipientID bson.ObjectID, content string) (*data.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	msg := &data.Message{
		ID:        bson.NewObjectID(),
		Sender:    senderID,
		Recipient: recipientID,
		Content:   content,
		CreatedAt: m.tick(),
	}
	m.msgs = append(m.msgs, msg)
	return m.attach(msg), nil
}

func (m *memStore) GetConversation(ctx context.Context, userID, otherID bson.ObjectID, limit int64) ([]*data.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*data.Message
	// m.msgs is chronological; walk it backwards to keep the newest page
	for i := len(m.msgs) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		msg := m.msgs[i]
		if (msg.Sender == userID && msg.Recipient == otherID) || (msg.Sender == otherID && msg.Recipient == userID) {
			out = append(out, m.attach(msg))
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (m *memStore) GetConversations(ctx context.Context, userID bson.ObjectID, limit int64) ([]*data.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byPartner := map[bson.ObjectID]*data.Conversation{}
	var order []bson.ObjectID
	for i := len(m.msgs) - 1; i >= 0; i-- {
		msg := m.msgs[i]
		var other bson.ObjectID
		switch userID {
		case msg.Sender:
			other = msg.Recipient
		case msg.Recipient:
			other = msg.Sender
		default:
			continue
		}
		conv, ok := byPartner[other]
		if !ok {
			u, exists := m.users[other]
			if !exists {
				continue
			}
			raw := *msg
			conv = &data.Conversation{With: stripHash(u), LastMessage: &raw}
			byPartner[other] = conv
			order = append(order, other)
		}
		if msg.Recipient == userID && !msg.IsRead {
			conv.UnreadCount++
		}
	}
	out := make([]*data.Conversation, 0, len(order))
	for _, id := range order {
		if int64(len(out)) == limit {
			break
		}
		out = append(out, byPartner[id])
	}
	// same two steps as MessagesStore: group raw messages, then attach parties
	for _, conv := range out {
		conv.LastMessage = m.attach(conv.LastMessage)
	}
	return out, nil
}

func (m *memStore) MarkAsRead(ctx context.Context, partnerID, userID bson.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, msg := range m.msgs {
		if msg.Recipient == userID && msg.Sender == partnerID && !msg.IsRead {
			msg.IsRead = true
			n++
		}
	}
	return n, nil
}

func (m *memStore) UnreadCount(ctx context.Context, userID bson.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, msg := range m.msgs {
		if msg.Recipient == userID && !msg.IsRead {
			n++
		}
	}
	return n, nil
}
