package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/datawald/hub/internal/application/producer"
	"github.com/datawald/hub/internal/domain/connector"
	domain "github.com/datawald/hub/internal/domain/sync"
	"github.com/datawald/hub/internal/interfaces/http/dto"
)

// PollService runs one extraction cycle against a source system
type PollService interface {
	Poll(ctx context.Context, req producer.PollRequest) (*domain.SyncRun, error)
}

// ProducerHandler exposes the poll side: one call pulls a page from the
// source system and dispatches the resulting run
type ProducerHandler struct {
	BaseHandler
	svc    PollService
	logger *zap.Logger
}

// NewProducerHandler creates a producer handler
func NewProducerHandler(svc PollService, logger *zap.Logger) *ProducerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProducerHandler{svc: svc, logger: logger}
}

// RegisterRoutes wires the producer routes
func (h *ProducerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/producer")
	group.POST("/poll", h.Poll)
}

// Poll handles POST /producer/poll
func (h *ProducerHandler) Poll(c *gin.Context) {
	var req dto.PollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	run, err := h.svc.Poll(c.Request.Context(), producer.PollRequest{
		BackOffice: req.BackOffice,
		Frontend:   req.Frontend,
		Table:      req.Table,
		StoreCode:  req.StoreCode,
		Limit:      req.Limit,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownTable):
			h.ErrorWithCode(c, dto.ErrCodeUnknownTable, err.Error())
		case errors.Is(err, connector.ErrAgentNotRegistered):
			h.BadRequest(c, err.Error())
		default:
			h.logger.Error("poll failed",
				zap.String("table", req.Table),
				zap.String("frontend", req.Frontend),
				zap.Error(err))
			h.Internal(c, "Poll failed")
		}
		return
	}
	if run == nil {
		// Nothing new at the source
		h.Success(c, nil)
		return
	}
	h.Created(c, dto.NewRunResponse(run))
}
