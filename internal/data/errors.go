package data

import (
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Store errors. Callers branch on these with errors.Is; anything else is an
// infrastructure failure.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("already exists")
	ErrInvalidID = errors.New("invalid id")
)

// ParseID converts a hex string into an ObjectID, mapping failures to ErrInvalidID.
func ParseID(hex string) (bson.ObjectID, error) {
	id, err := bson.ObjectIDFromHex(hex)
	if err != nil {
		return bson.NilObjectID, ErrInvalidID
	}
	return id, nil
}
