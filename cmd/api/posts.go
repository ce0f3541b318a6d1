package main

import (
	"errors"
	"fmt"

	"github.com/PaulBabatuyi/socialhub/internal/data"
	"github.com/PaulBabatuyi/socialhub/internal/metrics"
	"github.com/PaulBabatuyi/socialhub/internal/normalize"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const maxPostPage = 50

type postRequest struct {
	Content string `json:"content"`
}

// content trims raw and enforces 1..limit characters.
func content(raw string, limit int, what string) (string, error) {
	text, n := normalize.Content(raw)
	if n == 0 {
		return "", badRequest(what + " content is required")
	}
	if n > limit {
		return "", badRequest(fmt.Sprintf("%s must be at most %d characters", what, limit))
	}
	return text, nil
}

// clampLimit reads ?limit, falling back to def and capping at ceiling.
func clampLimit(c *fiber.Ctx, def, ceiling int) int64 {
	limit := c.QueryInt("limit", def)
	if limit <= 0 {
		limit = def
	}
	if limit > ceiling {
		limit = ceiling
	}
	return int64(limit)
}

// postID treats a malformed id like an unknown one.
func postID(c *fiber.Ctx) (bson.ObjectID, error) {
	id, err := data.ParseID(c.Params("id"))
	if err != nil {
		return bson.NilObjectID, notFound("Post not found")
	}
	return id, nil
}

func postError(err error) error {
	switch {
	case errors.Is(err, data.ErrNotFound):
		return notFound("Post not found")
	case errors.Is(err, data.ErrForbidden):
		return &apiError{Status: fiber.StatusForbidden, Message: "You can only modify your own posts"}
	}
	return err
}

func (s *Server) handleListPosts(c *fiber.Ctx) error {
	posts, err := s.posts.ListPosts(c.UserContext(), clampLimit(c, data.DefaultPostLimit, maxPostPage))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"posts": newPostViews(posts)})
}

func (s *Server) handleCreatePost(c *fiber.Ctx) error {
	var req postRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	text, err := content(req.Content, data.MaxPostLength, "Post")
	if err != nil {
		return err
	}

	post, err := s.posts.CreatePost(c.UserContext(), currentUser(c), text)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"post": newPostView(post)})
}

// handleGetPost returns one post and whether the caller currently likes it,
// read from the like ledger rather than the embedded mirror.
func (s *Server) handleGetPost(c *fiber.Ctx) error {
	id, err := postID(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()

	post, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return postError(err)
	}
	liked, err := s.likes.HasLiked(ctx, id, currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"post": newPostView(post), "liked": liked})
}

func (s *Server) handleUpdatePost(c *fiber.Ctx) error {
	id, err := postID(c)
	if err != nil {
		return err
	}
	var req postRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	text, err := content(req.Content, data.MaxPostLength, "Post")
	if err != nil {
		return err
	}

	post, err := s.posts.UpdatePost(c.UserContext(), id, currentUser(c), text)
	if err != nil {
		return postError(err)
	}
	return c.JSON(fiber.Map{"post": newPostView(post)})
}

func (s *Server) handleDeletePost(c *fiber.Ctx) error {
	id, err := postID(c)
	if err != nil {
		return err
	}
	if err := s.posts.DeletePost(c.UserContext(), id, currentUser(c)); err != nil {
		return postError(err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (s *Server) handleToggleLike(c *fiber.Ctx) error {
	id, err := postID(c)
	if err != nil {
		return err
	}

	res, err := s.likes.ToggleLike(c.UserContext(), id, currentUser(c))
	if err != nil {
		return postError(err)
	}

	result := "unliked"
	if res.Liked {
		result = "liked"
	}
	metrics.LikeToggles.WithLabelValues(result).Inc()

	return c.JSON(fiber.Map{"liked": res.Liked, "likeCount": res.LikeCount})
}
