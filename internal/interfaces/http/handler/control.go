package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/datawald/hub/internal/application/control"
	domain "github.com/datawald/hub/internal/domain/sync"
	"github.com/datawald/hub/internal/interfaces/http/dto"
)

// ControlService is the control-plane surface the handler exposes
type ControlService interface {
	CreateSyncRun(ctx context.Context, in control.CreateRunInput) (*domain.SyncRun, error)
	GetSyncRun(ctx context.Context, id string) (*domain.SyncRun, error)
	UpdateSyncRun(ctx context.Context, id string, results []domain.EntityStub) (*domain.SyncRun, error)
	DeleteSyncRun(ctx context.Context, id string) error
	ResyncSyncRun(ctx context.Context, id string) (*domain.SyncRun, error)
	GetCutDt(ctx context.Context, frontend, task string) (domain.Watermark, error)
	GetTask(ctx context.Context, table, id string) (control.TaskState, error)
}

// ControlHandler serves the sync-control endpoints
type ControlHandler struct {
	BaseHandler
	svc    ControlService
	logger *zap.Logger
}

// NewControlHandler creates a control handler
func NewControlHandler(svc ControlService, logger *zap.Logger) *ControlHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ControlHandler{svc: svc, logger: logger}
}

// RegisterRoutes wires the control routes
func (h *ControlHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/control")
	group.GET("/cutdt", h.GetCutDt)
	group.GET("/tasks/:table/:id", h.GetTask)
	group.POST("/runs", h.CreateRun)
	group.GET("/runs/:id", h.GetRun)
	group.PUT("/runs/:id", h.UpdateRun)
	group.DELETE("/runs/:id", h.DeleteRun)
	group.POST("/runs/:id/resync", h.ResyncRun)
}

// GetCutDt resolves the extraction watermark for a (frontend, task) pair
func (h *ControlHandler) GetCutDt(c *gin.Context) {
	frontend := c.Query("frontend")
	task := c.Query("task")
	if frontend == "" || task == "" {
		h.BadRequest(c, "frontend and task are required")
		return
	}

	mark, err := h.svc.GetCutDt(c.Request.Context(), frontend, task)
	if err != nil {
		h.logger.Error("cut date resolution failed",
			zap.String("frontend", frontend), zap.String("task", task), zap.Error(err))
		h.Internal(c, "failed to resolve cut date")
		return
	}

	h.Success(c, dto.CutDtResponse{
		Frontend: frontend,
		Task:     task,
		CutDt:    mark.CutDt.Format(domain.DtLayout),
		Offset:   mark.Offset,
	})
}

// GetTask reports one entity's readiness within a sync task
func (h *ControlHandler) GetTask(c *gin.Context) {
	state, err := h.svc.GetTask(c.Request.Context(), c.Param("table"), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrEntityNotFound) {
			h.NotFound(c, "entity not found")
			return
		}
		h.Internal(c, "failed to read task state")
		return
	}

	h.Success(c, dto.TaskStateResponse{
		Ready:      state.Ready,
		TaskStatus: string(state.TaskStatus),
		Note:       state.Note,
		TargetKey:  state.TargetKey,
	})
}

// CreateRun records and dispatches a sync run
func (h *ControlHandler) CreateRun(c *gin.Context) {
	var req dto.CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, 400, dto.ErrCodeValidation, err.Error())
		return
	}

	var cutDt time.Time
	if req.CutDt != "" {
		parsed, err := time.Parse(domain.DtLayout, req.CutDt)
		if err != nil {
			h.Error(c, 400, dto.ErrCodeValidation,
				fmt.Sprintf("cut_dt must use layout %q", domain.DtLayout))
			return
		}
		cutDt = parsed
	}

	run, err := h.svc.CreateSyncRun(c.Request.Context(), control.CreateRunInput{
		BackOffice: req.BackOffice,
		Frontend:   req.Frontend,
		Task:       req.Task,
		Table:      req.Table,
		CutDt:      cutDt,
		Offset:     req.Offset,
		StoreCode:  req.StoreCode,
		Entities:   stubsFromRequest(req.Entities),
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnknownTable) {
			h.ErrorWithCode(c, dto.ErrCodeUnknownTable, err.Error())
			return
		}
		h.logger.Error("run creation failed", zap.String("task", req.Task), zap.Error(err))
		h.Internal(c, "failed to create sync run")
		return
	}
	if run == nil {
		// Nothing to sync; deliberately not an error
		h.Success(c, nil)
		return
	}

	h.Created(c, dto.NewRunResponse(run))
}

// GetRun returns one sync run
func (h *ControlHandler) GetRun(c *gin.Context) {
	run, err := h.svc.GetSyncRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			h.NotFound(c, "run not found")
			return
		}
		h.Internal(c, "failed to load run")
		return
	}
	h.Success(c, dto.NewRunResponse(run))
}

// UpdateRun folds reported entity outcomes into a run and finalizes it
func (h *ControlHandler) UpdateRun(c *gin.Context) {
	var req dto.UpdateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, 400, dto.ErrCodeValidation, err.Error())
		return
	}

	results := make([]domain.EntityStub, 0, len(req.Entities))
	for _, e := range req.Entities {
		results = append(results, domain.EntityStub{
			EntityID:   e.EntityID,
			TaskStatus: domain.TaskStatus(e.TaskStatus),
			TaskDetail: domain.TaskDetail{Note: e.Note, TargetKey: e.TargetKey},
		})
	}

	run, err := h.svc.UpdateSyncRun(c.Request.Context(), c.Param("id"), results)
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			h.NotFound(c, "run not found")
			return
		}
		h.Internal(c, "failed to update run")
		return
	}
	h.Success(c, dto.NewRunResponse(run))
}

// DeleteRun removes one run from the ledger
func (h *ControlHandler) DeleteRun(c *gin.Context) {
	if err := h.svc.DeleteSyncRun(c.Request.Context(), c.Param("id")); err != nil {
		h.Internal(c, "failed to delete run")
		return
	}
	h.NoContent(c)
}

// ResyncRun re-dispatches a run's unfinished entities as a fresh run
func (h *ControlHandler) ResyncRun(c *gin.Context) {
	run, err := h.svc.ResyncSyncRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			h.NotFound(c, "run not found")
			return
		}
		h.logger.Error("resync failed", zap.String("run_id", c.Param("id")), zap.Error(err))
		h.Internal(c, "failed to resync run")
		return
	}
	if run == nil {
		h.Success(c, nil)
		return
	}
	h.Created(c, dto.NewRunResponse(run))
}

func stubsFromRequest(entities []dto.EntityStubRequest) []domain.EntityStub {
	stubs := make([]domain.EntityStub, 0, len(entities))
	for _, e := range entities {
		stubs = append(stubs, domain.EntityStub{
			EntityID:    e.EntityID,
			BusinessKey: e.BusinessKey,
			UpdateDt:    e.UpdateDt,
		})
	}
	return stubs
}
