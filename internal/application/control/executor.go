package control

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/datawald/hub/internal/application/backoffice"
	"github.com/datawald/hub/internal/application/frontend"
	domain "github.com/datawald/hub/internal/domain/sync"
)

// RegistryExecutor routes commands to the area service matching the table's
// drain side. It is the in-process TaskExecutor; deployments that split the
// areas across processes swap in a remote invoker behind the same interface
type RegistryExecutor struct {
	backoffice *backoffice.Service
	frontend   *frontend.Service
	logger     *zap.Logger
}

// NewRegistryExecutor wires the in-process executor
func NewRegistryExecutor(bo *backoffice.Service, fe *frontend.Service, log *zap.Logger) *RegistryExecutor {
	if log == nil {
		log = zap.NewNop()
	}
	return &RegistryExecutor{backoffice: bo, frontend: fe, logger: log}
}

// Execute runs one command synchronously against the area service
func (e *RegistryExecutor) Execute(ctx context.Context, cmd domain.Command) error {
	switch cmd.Area {
	case domain.AreaBackOffice:
		return e.backoffice.InsertEntities(ctx, cmd.System, cmd.Params)
	case domain.AreaFrontEnd:
		return e.frontend.SyncEntities(ctx, cmd.System, cmd.Params)
	default:
		return fmt.Errorf("unknown command area %q", cmd.Area)
	}
}

// ExecuteAsync schedules the command on a fresh goroutine. Failures are
// logged; the caller has already moved on
func (e *RegistryExecutor) ExecuteAsync(ctx context.Context, cmd domain.Command) error {
	go func() {
		bg := context.WithoutCancel(ctx)
		if err := e.Execute(bg, cmd); err != nil {
			e.logger.Error("async command failed",
				zap.String("area", string(cmd.Area)),
				zap.String("system", cmd.System),
				zap.String("subject", string(cmd.Subject)),
				zap.Error(err))
		}
	}()
	return nil
}
