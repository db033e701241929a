package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"reminder-engine/internal/middleware"
	"reminder-engine/internal/model"
)

type subscribeRequest struct {
	Endpoint  string `json:"endpoint" binding:"required"`
	P256dhKey string `json:"p256dh_key" binding:"required"`
	AuthKey   string `json:"auth_key" binding:"required"`
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

func (h *Handler) VAPIDPublicKey(c *gin.Context) {
	if h.vapidPublicKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "push not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"public_key": h.vapidPublicKey})
}

// Subscribe registers the caller's browser for reminder pushes.
func (h *Handler) Subscribe(c *gin.Context) {
	if h.subs == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "missing configuration"})
		return
	}
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint, p256dh_key and auth_key required"})
		return
	}
	if !validEndpoint(req.Endpoint) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint must be an https url"})
		return
	}

	sub := &model.PushSubscription{
		Endpoint:  req.Endpoint,
		UserID:    c.GetString(middleware.UserIDKey),
		P256dhKey: req.P256dhKey,
		AuthKey:   req.AuthKey,
	}
	if err := h.subs.UpsertSubscription(c.Request.Context(), sub); err != nil {
		h.log.WithError(err).WithField("user_id", sub.UserID).Error("push: saving subscription failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	h.log.WithFields(logrus.Fields{"user_id": sub.UserID, "endpoint": sub.Endpoint}).Info("push: subscription saved")
	c.JSON(http.StatusCreated, sub)
}

// Unsubscribe only removes subscriptions owned by the caller.
func (h *Handler) Unsubscribe(c *gin.Context) {
	if h.subs == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "missing configuration"})
		return
	}
	var req unsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint required"})
		return
	}
	uid := c.GetString(middleware.UserIDKey)
	if err := h.subs.DeleteUserSubscription(c.Request.Context(), uid, req.Endpoint); err != nil {
		h.log.WithError(err).WithField("user_id", uid).Error("push: deleting subscription failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.Status(http.StatusNoContent)
}

func validEndpoint(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme == "https" && u.Host != ""
}
