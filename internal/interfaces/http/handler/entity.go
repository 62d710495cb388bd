package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domain "github.com/datawald/hub/internal/domain/sync"
	"github.com/datawald/hub/internal/interfaces/http/dto"
)

// EntityHandler serves the entity-store endpoints
type EntityHandler struct {
	BaseHandler
	store  domain.EntityStore
	clock  domain.Clock
	logger *zap.Logger
}

// NewEntityHandler creates an entity handler
func NewEntityHandler(store domain.EntityStore, clock domain.Clock, logger *zap.Logger) *EntityHandler {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntityHandler{store: store, clock: clock, logger: logger}
}

// RegisterRoutes wires the entity routes
func (h *EntityHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/entities")
	group.GET("/:table", h.GetEntity)
	group.PUT("/:table", h.UpsertEntity)
	group.PATCH("/:table/:id/status", h.UpdateEntityStatus)
}

// GetEntity looks an entity up by store id or by business key
func (h *EntityHandler) GetEntity(c *gin.Context) {
	table := c.Param("table")

	var rec *domain.EntityRecord
	var err error
	if id := c.Query("id"); id != "" {
		rec, err = h.store.FindByID(c.Request.Context(), table, id)
	} else {
		frontend := c.Query("frontend")
		key := c.Query("business_key")
		if frontend == "" || key == "" {
			h.BadRequest(c, "id or (frontend, business_key) is required")
			return
		}
		rec, err = h.store.FindByBusinessKey(c.Request.Context(), table, frontend, key, c.Query("data_type"))
	}
	if err != nil {
		if errors.Is(err, domain.ErrEntityNotFound) {
			h.NotFound(c, "entity not found")
			return
		}
		h.Internal(c, "failed to load entity")
		return
	}

	h.Success(c, dto.NewEntityResponse(rec))
}

// UpsertEntity records one source-side sighting of an entity
func (h *EntityHandler) UpsertEntity(c *gin.Context) {
	var req dto.UpsertEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, 400, dto.ErrCodeValidation, err.Error())
		return
	}

	rec := &domain.EntityRecord{
		Table:        c.Param("table"),
		Frontend:     req.Frontend,
		BusinessKey:  req.BusinessKey,
		DataType:     req.DataType,
		SourceStatus: req.SourceStatus,
		TxNote:       req.TxNote,
		Data:         req.Data,
		UpdateDt:     h.clock.Now(),
	}

	id, err := h.store.Upsert(c.Request.Context(), rec)
	if err != nil {
		h.logger.Error("entity upsert failed",
			zap.String("table", rec.Table), zap.String("business_key", rec.BusinessKey), zap.Error(err))
		h.Internal(c, "failed to record entity")
		return
	}

	h.Success(c, gin.H{"id": id})
}

// UpdateEntityStatus applies a worker-reported outcome to one entity
func (h *EntityHandler) UpdateEntityStatus(c *gin.Context) {
	var req dto.UpdateEntityStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, 400, dto.ErrCodeValidation, err.Error())
		return
	}

	err := h.store.UpdateStatus(c.Request.Context(), c.Param("table"), c.Param("id"), domain.EntityStatus{
		TargetKey: req.TargetKey,
		TxStatus:  domain.TxStatus(req.TxStatus),
		TxNote:    req.TxNote,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEntityNotFound) {
			h.NotFound(c, "entity not found")
			return
		}
		h.Internal(c, "failed to update entity status")
		return
	}

	h.NoContent(c)
}
