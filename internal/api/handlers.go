package api

import (
	"errors"
	"net/http"
	"strconv"

	"fixam/internal/apperrors"
	"fixam/internal/booking"
	"fixam/internal/models"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleCreateBooking(c *gin.Context) {
	user := currentUser(c)

	var input booking.CreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	created, err := s.engine.Create(c.Request.Context(), user.ID, input)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created.View())
}

func (s *Server) handleListBookings(c *gin.Context) {
	user := currentUser(c)

	views, err := s.engine.ListForUser(c.Request.Context(), user.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if views == nil {
		views = []models.BookingView{}
	}

	c.JSON(http.StatusOK, views)
}

func (s *Server) handleBookingAction(c *gin.Context) {
	user := currentUser(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	action, ok := booking.ParseAction(c.Param("action"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action: " + c.Param("action")})
		return
	}

	updated, err := s.engine.Apply(c.Request.Context(), id, user.ID, action)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated.View())
}

func (s *Server) handleCreateNotification(c *gin.Context) {
	var req struct {
		UserID  int64                       `json:"user_id"`
		Title   string                      `json:"title"`
		Message string                      `json:"message"`
		Type    string                      `json:"type"`
		Payload *models.NotificationPayload `json:"payload"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	if req.UserID <= 0 || req.Title == "" || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id, title and message are required"})
		return
	}

	if err := s.notifier.Dispatch(c.Request.Context(), req.UserID, req.Title, req.Message, req.Type, req.Payload); err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "created"})
}

func (s *Server) handleListNotifications(c *gin.Context) {
	user := currentUser(c)

	notifications, err := s.notifier.ListForUser(c.Request.Context(), user.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if notifications == nil {
		notifications = []*models.Notification{}
	}

	c.JSON(http.StatusOK, notifications)
}

func (s *Server) handleMarkRead(c *gin.Context) {
	user := currentUser(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	if err := s.notifier.MarkRead(c.Request.Context(), id, user.ID); err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

func (s *Server) handleMarkAllRead(c *gin.Context) {
	user := currentUser(c)

	updated, err := s.notifier.MarkAllRead(c.Request.Context(), user.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "read", "updated": updated})
}

// writeError maps the error taxonomy onto HTTP codes. Self-booking keeps its
// documented 403 even though it is modeled as a conflict.
func (s *Server) writeError(c *gin.Context, err error) {
	var ve *apperrors.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": ve.Fields})
		return
	}
	if apperrors.IsAuthorization(err) {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if errors.Is(err, apperrors.ErrUnknownAction) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if apperrors.IsConflict(err) {
		status := http.StatusConflict
		if errors.Is(err, apperrors.ErrSelfBooking) {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("internal error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
