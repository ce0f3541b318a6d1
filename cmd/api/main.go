package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PaulBabatuyi/socialhub/internal/auth"
	"github.com/PaulBabatuyi/socialhub/internal/config"
	"github.com/PaulBabatuyi/socialhub/internal/data"
	"github.com/PaulBabatuyi/socialhub/internal/db"
	"github.com/PaulBabatuyi/socialhub/internal/logging"
	"github.com/PaulBabatuyi/socialhub/internal/middleware"
	"github.com/PaulBabatuyi/socialhub/internal/session"

	"github.com/sirupsen/logrus"
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
	})

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx := context.Background()

	dbClient, err := db.New(ctx, cfg.MongoURI, db.Options{
		Database:     cfg.MongoDatabase,
		Transactions: cfg.MongoTransactions,
	})
	if err != nil {
		return fmt.Errorf("connect to DB: %w", err)
	}
	defer func() {
		_ = dbClient.Close(context.Background())
	}()

	if err := dbClient.CreateIndexes(ctx); err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}

	store, closeStore, err := newSessionStore(ctx, cfg, dbClient)
	if err != nil {
		return err
	}
	defer closeStore()

	signer, err := newCookieSigner(cfg)
	if err != nil {
		return err
	}
	sessions := session.NewManager(store, signer, session.Options{
		CookieName: cfg.CookieName,
		TTL:        cfg.SessionTTL,
		Secure:     cfg.CookieSecure,
	})

	// small burst allows a couple of quick retries
	limiter := middleware.NewLimiterStore(cfg.RateLimitRPM, 3, time.Minute)
	defer limiter.Stop()

	srv := newServer(
		data.NewUsersStore(dbClient.UsersCollection()),
		data.NewPostsStore(dbClient.PostsCollection(), dbClient.UsersCollection(), dbClient.LikesCollection(), dbClient),
		data.NewLikesStore(dbClient.LikesCollection(), dbClient.PostsCollection(), dbClient),
		data.NewMessagesStore(dbClient.MessagesCollection(), dbClient.UsersCollection()),
		sessions,
		limiter,
		log,
	)
	srv.staticDir = cfg.StaticDir
	srv.origins = cfg.Origins()

	app := srv.newApp()

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"port":          cfg.Port,
			"env":           cfg.Env,
			"session_store": cfg.SessionStore,
		}).Info("HTTP server listening")
		errCh <- app.Listen(":" + cfg.Port)
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.WithField("signal", sig.String()).Info("shutting down HTTP server")
	}

	return app.ShutdownWithTimeout(10 * time.Second)
}

// newSessionStore picks the backend named by SESSION_STORE. The returned
// func releases whatever the store holds open.
func newSessionStore(ctx context.Context, cfg *config.Config, dbClient *db.Client) (session.Store, func(), error) {
	if cfg.SessionStore == "redis" {
		rdb, err := session.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return session.NewRedisStore(rdb), func() { _ = rdb.Close() }, nil
	}
	return session.NewMongoStore(dbClient.SessionsCollection()), func() {}, nil
}

// newCookieSigner prefers SESSION_KEYS so secrets can be rotated; otherwise
// the single SESSION_SECRET is used.
func newCookieSigner(cfg *config.Config) (*auth.CookieSigner, error) {
	if cfg.SessionKeys == "" {
		return auth.NewCookieSigner(cfg.SessionSecret), nil
	}
	keys, err := cfg.SigningKeys()
	if err != nil {
		return nil, err
	}
	return auth.NewCookieSignerFromKeys(keys, cfg.SessionActiveKID)
}
