package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/PaulBabatuyi/socialhub/internal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set; skipping integration test")
	}

	ctx := context.Background()
	c, err := db.New(ctx, uri, db.Options{Database: "socialhub_session_test"})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = c.SessionsCollection().Drop(context.Background())
		_ = c.Close(context.Background())
	})
	_ = c.SessionsCollection().Drop(ctx)

	store := NewMongoStore(c.SessionsCollection())
	now := time.Now().UTC()

	require.NoError(t, store.Save(ctx, "live", Data{UserID: "u1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, store.Save(ctx, "dead", Data{UserID: "u2", CreatedAt: now, ExpiresAt: now.Add(-time.Minute)}))

	got, err := store.Get(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	// expired records are invisible before the TTL monitor runs
	_, err = store.Get(ctx, "dead")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := store.Purge(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, store.Destroy(ctx, "live"))
	_, err = store.Get(ctx, "live")
	assert.ErrorIs(t, err, ErrNotFound)
}
