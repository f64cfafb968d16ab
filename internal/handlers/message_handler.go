package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/harbor-im/harbor/internal/model"
	"github.com/harbor-im/harbor/internal/repository"
	"github.com/harbor-im/harbor/internal/service"
)

const defaultHistoryLimit = 50

// MessageHandler is the REST read side of the messaging core: history,
// session list, mark-as-read and soft delete all operate on the same durable
// store the router writes to.
type MessageHandler struct {
	messages repository.IMessageRepository
	sessions *service.SessionService
	reads    *service.ReadStatusService
}

func NewMessageHandler(
	messages repository.IMessageRepository,
	sessions *service.SessionService,
	reads *service.ReadStatusService,
) *MessageHandler {
	return &MessageHandler{messages: messages, sessions: sessions, reads: reads}
}

func historyParams(c *gin.Context) (beforeID int64, limit int) {
	beforeID, _ = strconv.ParseInt(c.Query("before"), 10, 64)
	limit, _ = strconv.Atoi(c.Query("limit"))
	if limit <= 0 || limit > 200 {
		limit = defaultHistoryLimit
	}
	return beforeID, limit
}

func (h *MessageHandler) PrivateHistory(c *gin.Context) {
	userID := c.GetString("user_id")
	partnerID := c.Param("partnerId")
	beforeID, limit := historyParams(c)

	messages, err := h.messages.FindPrivate(c.Request.Context(), userID, partnerID, beforeID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (h *MessageHandler) GroupHistory(c *gin.Context) {
	userID := c.GetString("user_id")
	groupID := c.Param("groupId")
	beforeID, limit := historyParams(c)

	messages, err := h.messages.FindByGroup(c.Request.Context(), groupID, userID, beforeID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (h *MessageHandler) Sessions(c *gin.Context) {
	userID := c.GetString("user_id")
	sessions, err := h.sessions.Sessions(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build session list"})
		return
	}
	c.JSON(http.StatusOK, sessions)
}

type markReadRequest struct {
	PartnerID string `json:"partner_id" binding:"required"`
	Type      string `json:"type" binding:"required,oneof=private group"`
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("user_id")
	if err := h.reads.MarkRead(c.Request.Context(), userID, req.PartnerID, req.Type); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark read"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *MessageHandler) Hide(c *gin.Context) {
	messageID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	userID := c.GetString("user_id")
	if err := h.reads.Hide(c.Request.Context(), userID, messageID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hide message"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *MessageHandler) UnreadCount(c *gin.Context) {
	userID := c.GetString("user_id")
	partnerID := c.Query("partner_id")
	conversationType := c.DefaultQuery("type", model.ConversationPrivate)

	count, err := h.reads.UnreadCount(c.Request.Context(), userID, partnerID, conversationType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count unread"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}
