// Command socialhub-admin runs operator tasks against the socialhub database.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/PaulBabatuyi/socialhub/internal/config"
	"github.com/PaulBabatuyi/socialhub/internal/data"
	"github.com/PaulBabatuyi/socialhub/internal/db"
	"github.com/PaulBabatuyi/socialhub/internal/logging"
	"github.com/PaulBabatuyi/socialhub/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		Production: cfg.IsProduction(),
		Out:        os.Stderr,
	})

	cmd := newRootCmd(&admin{
		log:  log,
		open: func(ctx context.Context) (*backend, error) { return openBackend(ctx, cfg) },
	})
	if err := cmd.Execute(); err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

// openBackend connects to Mongo and, when SESSION_STORE=redis, to Redis.
func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	dbClient, err := db.New(ctx, cfg.MongoURI, db.Options{Database: cfg.MongoDatabase})
	if err != nil {
		return nil, fmt.Errorf("connect to DB: %w", err)
	}

	b := &backend{
		users:    data.NewUsersStore(dbClient.UsersCollection()),
		indexes:  dbClient,
		sessions: session.NewMongoStore(dbClient.SessionsCollection()),
		close:    func() { _ = dbClient.Close(context.Background()) },
	}

	if cfg.SessionStore == "redis" {
		rdb, err := session.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			b.close()
			return nil, err
		}
		b.sessions = session.NewRedisStore(rdb)
		closeDB := b.close
		b.close = func() {
			_ = rdb.Close()
			closeDB()
		}
	}

	return b, nil
}
