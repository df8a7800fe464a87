package handler

import (
	"net/http"

	"pipeline_backend/internal/pipelines/service"
	"pipeline_backend/internal/pipelines/transition"
	"pipeline_backend/internal/pipelines/transport"
	"pipeline_backend/platform/httpkit"
	"pipeline_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid id"
)

// Handler handles HTTP requests for pipeline entries and health.
type Handler struct {
	moves      *transition.Service
	reads      *service.Service
	enrollment *service.Enrollment
	val        *validator.Validator
}

// New creates a new pipelines handler.
func New(moves *transition.Service, reads *service.Service, enrollment *service.Enrollment, val *validator.Validator) *Handler {
	return &Handler{moves: moves, reads: reads, enrollment: enrollment, val: val}
}

// RegisterRoutes registers the pipeline routes on the protected group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	entries := rg.Group("/entries")
	entries.POST("/:id/move", h.Move)
	entries.POST("/:id/move/preview", h.PreviewMove)
	entries.GET("/:id/timing", h.Timing)

	pipelines := rg.Group("/pipelines")
	pipelines.GET("/health", h.AllHealth)
	pipelines.GET("/:id/health", h.PipelineHealth)
	pipelines.GET("/:id/stages/health", h.StageHealth)
	pipelines.POST("/:id/entries", h.Inscribe)

	rg.PUT("/leads/:id/checklist/:itemId", h.SetChecklistItem)
}

// Move handles POST /api/v1/entries/:id/move
func (h *Handler) Move(c *gin.Context) {
	entryID, toStageID, ok := h.bindMove(c)
	if !ok {
		return
	}

	result, err := h.moves.Move(c.Request.Context(), entryID, toStageID, httpkit.Actor(c))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// PreviewMove handles POST /api/v1/entries/:id/move/preview
func (h *Handler) PreviewMove(c *gin.Context) {
	entryID, toStageID, ok := h.bindMove(c)
	if !ok {
		return
	}

	result, err := h.moves.Preview(c.Request.Context(), entryID, toStageID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Timing handles GET /api/v1/entries/:id/timing
func (h *Handler) Timing(c *gin.Context) {
	entryID, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.reads.Timing(c.Request.Context(), entryID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// AllHealth handles GET /api/v1/pipelines/health
func (h *Handler) AllHealth(c *gin.Context) {
	result, err := h.reads.AllPipelinesHealth(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"items": result})
}

// PipelineHealth handles GET /api/v1/pipelines/:id/health
func (h *Handler) PipelineHealth(c *gin.Context) {
	pipelineID, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.reads.PipelineHealth(c.Request.Context(), pipelineID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// StageHealth handles GET /api/v1/pipelines/:id/stages/health
func (h *Handler) StageHealth(c *gin.Context) {
	pipelineID, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.reads.StageHealth(c.Request.Context(), pipelineID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"items": result})
}

// Inscribe handles POST /api/v1/pipelines/:id/entries
func (h *Handler) Inscribe(c *gin.Context) {
	pipelineID, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.InscribeLeadRequest
	if !h.bind(c, &req) {
		return
	}
	leadID, err := uuid.Parse(req.LeadID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	entry, err := h.enrollment.Inscribe(c.Request.Context(), leadID, pipelineID, httpkit.Actor(c))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, entry)
}

// SetChecklistItem handles PUT /api/v1/leads/:id/checklist/:itemId
func (h *Handler) SetChecklistItem(c *gin.Context) {
	leadID, ok := parseID(c)
	if !ok {
		return
	}
	itemID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.ChecklistItemRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.enrollment.SetChecklistItem(c.Request.Context(), leadID, itemID, *req.Completed); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"itemId": itemID, "completed": *req.Completed})
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Describe(err))
		return false
	}
	return true
}

func (h *Handler) bindMove(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	entryID, ok := parseID(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}

	var req transport.MoveEntryRequest
	if !h.bind(c, &req) {
		return uuid.Nil, uuid.Nil, false
	}

	toStageID, err := uuid.Parse(req.ToStageID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, uuid.Nil, false
	}
	return entryID, toStageID, true
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, false
	}
	return id, true
}
