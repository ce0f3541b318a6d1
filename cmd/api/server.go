package main

import (
	"context"
	"strings"
	"time"

	"github.com/PaulBabatuyi/socialhub/internal/data"
	"github.com/PaulBabatuyi/socialhub/internal/metrics"
	"github.com/PaulBabatuyi/socialhub/internal/middleware"
	"github.com/PaulBabatuyi/socialhub/internal/session"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type userStore interface {
	CreateUser(ctx context.Context, in data.NewUser) (*data.User, error)
	IdentifierTaken(ctx context.Context, username, email string) (bool, error)
	FindByIdentifier(ctx context.Context, identifier string) (*data.User, error)
	GetUserByID(ctx context.Context, id bson.ObjectID) (*data.User, error)
	GetCredentials(ctx context.Context, id bson.ObjectID) (*data.User, error)
	UserExists(ctx context.Context, id bson.ObjectID) (bool, error)
	UpdateProfile(ctx context.Context, id bson.ObjectID, p data.ProfileUpdate) (*data.User, error)
}

type postStore interface {
	CreatePost(ctx context.Context, userID bson.ObjectID, content string) (*data.Post, error)
	GetPost(ctx context.Context, id bson.ObjectID) (*data.Post, error)
	ListPosts(ctx context.Context, limit int64) ([]*data.Post, error)
	UpdatePost(ctx context.Context, postID, userID bson.ObjectID, content string) (*data.Post, error)
	DeletePost(ctx context.Context, postID, userID bson.ObjectID) error
}

type likeLedger interface {
	ToggleLike(ctx context.Context, postID, userID bson.ObjectID) (*data.LikeResult, error)
	HasLiked(ctx context.Context, postID, userID bson.ObjectID) (bool, error)
}

type messageStore interface {
	SendMessage(ctx context.Context, senderID, recipientID bson.ObjectID, content string) (*data.Message, error)
	GetConversation(ctx context.Context, userID, otherID bson.ObjectID, limit int64) ([]*data.Message, error)
	GetConversations(ctx context.Context, userID bson.ObjectID, limit int64) ([]*data.Conversation, error)
	MarkAsRead(ctx context.Context, partnerID, userID bson.ObjectID) (int64, error)
	UnreadCount(ctx context.Context, userID bson.ObjectID) (int64, error)
}

// Server holds the stores and request-scoped collaborators the handlers use.
type Server struct {
	users    userStore
	posts    postStore
	likes    likeLedger
	msgs     messageStore
	sessions *session.Manager
	limiter  *middleware.LimiterStore
	log      *logrus.Logger
	validate *validator.Validate

	staticDir string
	origins   []string
}

// newServer returns a ready-to-use Server wired with stores and the session manager.
func newServer(users userStore, posts postStore, likes likeLedger, msgs messageStore,
	sessions *session.Manager, limiter *middleware.LimiterStore, log *logrus.Logger) *Server {
	return &Server{
		users:     users,
		posts:     posts,
		likes:     likes,
		msgs:      msgs,
		sessions:  sessions,
		limiter:   limiter,
		log:       log,
		validate:  newValidator(),
		staticDir: "./public",
		origins:   []string{"http://localhost:3000"},
	}
}

// newApp builds the fiber app: middleware first, then routes.
func (s *Server) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "socialhub",
		ErrorHandler: errorHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		BodyLimit:    1 << 20,
	})

	s.setupMiddleware(app)
	s.setupRoutes(app)
	return app
}

func (s *Server) setupMiddleware(app *fiber.App) {
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			s.log.WithField("panic", e).Error("recovered from panic")
		},
	}))
	app.Use(requestid.New())
	app.Use(middleware.Metrics())
	app.Use(middleware.RequestLogger(s.log))
	app.Use(helmet.New(helmet.Config{
		// profile pictures are hosted elsewhere
		CrossOriginEmbedderPolicy: "unsafe-none",
	}))

	allowOrigins := "*"
	if len(s.origins) > 0 && s.origins[0] != "*" {
		allowOrigins = strings.Join(s.origins, ",")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: allowOrigins != "*",
		MaxAge:           86400,
	}))
}

func (s *Server) setupRoutes(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	limited := middleware.RateLimit(s.limiter, middleware.CredentialKey)
	authRoutes.Post("/register", limited, s.handleRegister)
	authRoutes.Post("/login", limited, s.handleLogin)
	authRoutes.Post("/logout", s.handleLogout)
	authRoutes.Get("/me", s.handleMe)

	user := api.Group("/user", s.requireAuth)
	user.Post("/profile", s.handleUpdateProfile)
	user.Put("/settings", s.handleUpdateSettings)
	user.Post("/change-password", s.handleChangePassword)

	api.Get("/users/:id", s.requireAuth, s.handleGetUser)

	posts := api.Group("/posts", s.requireAuth)
	posts.Get("/", s.handleListPosts)
	posts.Post("/", s.handleCreatePost)
	posts.Get("/:id", s.handleGetPost)
	posts.Put("/:id", s.handleUpdatePost)
	posts.Delete("/:id", s.handleDeletePost)
	posts.Post("/:id/like", s.handleToggleLike)

	msgs := api.Group("/messages", s.requireAuth)
	msgs.Post("/send", s.handleSendMessage)
	msgs.Get("/conversations", s.handleListConversations)
	msgs.Get("/conversation/:userId", s.handleGetConversation)
	msgs.Post("/conversation/:userId/read", s.handleMarkRead)
	msgs.Get("/unread-count", s.handleUnreadCount)

	// unmatched /api paths answer in JSON rather than falling through to static files
	api.Use(func(c *fiber.Ctx) error {
		return notFound("Not found")
	})

	for _, page := range protectedPages {
		app.Get(page, s.requirePage, s.servePage(page))
	}
	app.Static("/", s.staticDir, fiber.Static{Index: "index.html"})
}

