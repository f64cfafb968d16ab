package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harbor-im/harbor/internal/repository"
	"github.com/harbor-im/harbor/internal/service"
)

type FriendHandler struct {
	friends *service.FriendService
}

func NewFriendHandler(friends *service.FriendService) *FriendHandler {
	return &FriendHandler{friends: friends}
}

func (h *FriendHandler) Pending(c *gin.Context) {
	userID := c.GetString("user_id")
	requests, err := h.friends.PendingFor(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list friend requests"})
		return
	}
	c.JSON(http.StatusOK, requests)
}

type sendRequestRequest struct {
	ReceiverID string `json:"receiver_id" binding:"required"`
}

func (h *FriendHandler) Send(c *gin.Context) {
	var req sendRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("user_id")
	created, err := h.friends.SendRequest(c.Request.Context(), userID, req.ReceiverID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyContacts),
			errors.Is(err, service.ErrRequestPending),
			errors.Is(err, service.ErrSelfRequest):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send friend request"})
		}
		return
	}
	c.JSON(http.StatusCreated, created)
}

type handleRequestRequest struct {
	Accept *bool `json:"accept" binding:"required"`
}

func (h *FriendHandler) Handle(c *gin.Context) {
	var req handleRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resolved, err := h.friends.HandleRequest(c.Request.Context(), c.Param("id"), *req.Accept)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRequestNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, repository.ErrAlreadyResolved):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to handle friend request"})
		}
		return
	}
	c.JSON(http.StatusOK, resolved)
}
