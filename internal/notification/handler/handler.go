// Package handler exposes recorded notifications over HTTP.
package handler

import (
	"context"
	"net/http"
	"strconv"

	"pipeline_backend/internal/notification/repository"
	"pipeline_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultLimit = 20
	maxLimit     = 50
)

// Lister reads notifications of one subject.
type Lister interface {
	ListBySubject(ctx context.Context, subjectID uuid.UUID, limit, offset int) ([]repository.Notification, int, error)
}

// Handler serves the notification endpoints.
type Handler struct {
	notifications Lister
}

// New creates a notification handler.
func New(notifications Lister) *Handler {
	return &Handler{notifications: notifications}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
}

// List returns a page of notifications for ?subjectId=.
func (h *Handler) List(c *gin.Context) {
	subjectID, err := uuid.Parse(c.Query("subjectId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid subjectId", nil)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	items, total, err := h.notifications.ListBySubject(c.Request.Context(), subjectID, limit, (page-1)*limit)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{
		"items": items,
		"total": total,
		"page":  page,
	})
}
