package main

import (
	"github.com/PaulBabatuyi/socialhub/internal/data"
	"github.com/PaulBabatuyi/socialhub/internal/metrics"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const maxHistoryPage = 200

type sendMessageRequest struct {
	RecipientID string `json:"recipientId" validate:"required"`
	Content     string `json:"content"`
}

// partnerID parses the :userId route parameter.
func partnerID(c *fiber.Ctx) (bson.ObjectID, error) {
	id, err := data.ParseID(c.Params("userId"))
	if err != nil {
		return bson.NilObjectID, badRequest("Invalid user id")
	}
	return id, nil
}

func (s *Server) handleSendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	recipient, err := data.ParseID(req.RecipientID)
	if err != nil {
		return badRequest("Invalid recipient id")
	}
	sender := currentUser(c)
	if recipient == sender {
		return badRequest("You cannot message yourself")
	}
	text, err := content(req.Content, data.MaxMessageLength, "Message")
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	exists, err := s.users.UserExists(ctx, recipient)
	if err != nil {
		return err
	}
	if !exists {
		return notFound("Recipient not found")
	}

	msg, err := s.msgs.SendMessage(ctx, sender, recipient, text)
	if err != nil {
		return err
	}
	metrics.MessagesSent.Inc()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": newMessageView(msg)})
}

// handleGetConversation marks the partner's messages read before reading the
// page, so the returned isRead flags are current.
func (s *Server) handleGetConversation(c *fiber.Ctx) error {
	other, err := partnerID(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	me := currentUser(c)

	if _, err := s.msgs.MarkAsRead(ctx, other, me); err != nil {
		return err
	}

	msgs, err := s.msgs.GetConversation(ctx, me, other, clampLimit(c, data.DefaultHistoryLimit, maxHistoryPage))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"messages": newMessageViews(msgs)})
}

func (s *Server) handleListConversations(c *fiber.Ctx) error {
	convs, err := s.msgs.GetConversations(c.UserContext(), currentUser(c), data.MaxConversationCount)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"conversations": newConversationViews(convs)})
}

func (s *Server) handleMarkRead(c *fiber.Ctx) error {
	other, err := partnerID(c)
	if err != nil {
		return err
	}
	n, err := s.msgs.MarkAsRead(c.UserContext(), other, currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"updated": n})
}

func (s *Server) handleUnreadCount(c *fiber.Ctx) error {
	n, err := s.msgs.UnreadCount(c.UserContext(), currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"count": n})
}
