// Package data provides DB models and stores.
package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PaulBabatuyi/socialhub/internal/normalize"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// UsersStore performs user DB operations.
type UsersStore struct {
	coll *mongo.Collection
}

// NewUsersStore returns a UsersStore using the provided collection.
func NewUsersStore(coll *mongo.Collection) *UsersStore {
	return &UsersStore{coll: coll}
}

// withoutHash excludes the password hash from reads that leave the auth flow.
var withoutHash = bson.D{{Key: "password_hash", Value: 0}}

// CreateUser inserts a new user document. A username or email collision
// reported by the unique indexes is returned as ErrConflict.
func (u *UsersStore) CreateUser(ctx context.Context, in NewUser) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		Username:     normalize.Username(in.Username),
		Email:        normalize.Email(in.Email),
		PasswordHash: in.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.DisplayName != "" {
		dn := in.DisplayName
		user.DisplayName = &dn
	}

	result, err := u.coll.InsertOne(ctx, user)
	if err != nil {
		// unique username/email index
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	user.ID = result.InsertedID.(bson.ObjectID)
	// callers only ever get the public view back
	user.PasswordHash = ""
	return user, nil
}

// IdentifierTaken reports whether any user already holds the username or the email.
func (u *UsersStore) IdentifierTaken(ctx context.Context, username, email string) (bool, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"username": normalize.Username(username)},
		bson.M{"email": normalize.Email(email)},
	}}
	count, err := u.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return count > 0, nil
}

// FindByIdentifier matches a username or an email, case-insensitively. The
// returned user includes the password hash so the caller can verify it.
func (u *UsersStore) FindByIdentifier(ctx context.Context, identifier string) (*User, error) {
	id := normalize.Identifier(identifier)
	// the identifier may be either; both are stored lowercase
	filter := bson.M{"$or": bson.A{
		bson.M{"username": id},
		bson.M{"email": id},
	}}

	var user User
	if err := u.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// GetUserByID finds a user by ObjectID without the password hash.
func (u *UsersStore) GetUserByID(ctx context.Context, id bson.ObjectID) (*User, error) {
	var user User
	err := u.coll.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(withoutHash)).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// GetCredentials finds a user by ObjectID including the password hash.
func (u *UsersStore) GetCredentials(ctx context.Context, id bson.ObjectID) (*User, error) {
	var user User
	if err := u.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user credentials: %w", err)
	}
	return &user, nil
}

// UserExists checks if a user exists by id.
func (u *UsersStore) UserExists(ctx context.Context, id bson.ObjectID) (bool, error) {
	count, err := u.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return count > 0, nil
}

// UpdateProfile applies only the fields set in p and returns the updated
// user. ErrNotFound if id does not resolve; ErrConflict if a new email is
// already taken.
func (u *UsersStore) UpdateProfile(ctx context.Context, id bson.ObjectID, p ProfileUpdate) (*User, error) {
	// only fields the caller provided are written
	set := bson.M{"updated_at": time.Now().UTC()}
	if p.DisplayName != nil {
		set["display_name"] = *p.DisplayName
	}
	if p.Bio != nil {
		set["bio"] = *p.Bio
	}
	if p.ProfilePicture != nil {
		set["profile_picture"] = *p.ProfilePicture
	}
	if p.Email != nil {
		set["email"] = normalize.Email(*p.Email)
	}
	if p.PasswordHash != nil {
		set["password_hash"] = *p.PasswordHash
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutHash)

	var user User
	err := u.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		// new email already belongs to another account
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return &user, nil
}

// DeleteAll removes every user and returns the number deleted. Used by the
// admin CLI only.
func (u *UsersStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := u.coll.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("delete users: %w", err)
	}
	return res.DeletedCount, nil
}
