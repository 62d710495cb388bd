// Package producer implements the poll side: incremental extraction from a
// source system, entity-store sighting, watermark advance and sync-run
// creation. One poll produces at most one run.
package producer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/datawald/hub/internal/application/control"
	"github.com/datawald/hub/internal/domain/connector"
	domain "github.com/datawald/hub/internal/domain/sync"
	"github.com/datawald/hub/internal/infrastructure/logger"
)

// ControlPort is the slice of the control service a producer needs
type ControlPort interface {
	GetCutDt(ctx context.Context, frontend, task string) (domain.Watermark, error)
	CreateSyncRun(ctx context.Context, in control.CreateRunInput) (*domain.SyncRun, error)
}

// PollRequest identifies one poll cycle: which backoffice/frontend pair and
// which table, plus the page size of the extraction
type PollRequest struct {
	BackOffice string
	Frontend   string
	Table      string
	StoreCode  string
	Limit      int
}

// Producer drives one incremental extraction cycle per call. The source
// agent depends on the table's area: backoffice-area tables pull from the
// frontend, frontend-area tables pull from the backoffice
type Producer struct {
	registry *connector.Registry
	store    domain.EntityStore
	control  ControlPort
	logger   *zap.Logger
}

// NewProducer wires a producer
func NewProducer(registry *connector.Registry, store domain.EntityStore, ctrl ControlPort, log *zap.Logger) *Producer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Producer{registry: registry, store: store, control: ctrl, logger: log}
}

// Poll runs one extraction cycle: resume from the task's watermark, pull a
// page, upsert every sighting, advance the watermark and create the run.
// Returns (nil, nil) when the source has nothing new
func (p *Producer) Poll(ctx context.Context, req PollRequest) (*domain.SyncRun, error) {
	spec, err := domain.TableFor(req.Table)
	if err != nil {
		return nil, err
	}
	if req.Limit <= 0 {
		req.Limit = 100
	}

	source, sourceName, err := p.sourceFor(spec, req)
	if err != nil {
		return nil, err
	}

	log := p.logger.With(logger.Table(req.Table), logger.Frontend(req.Frontend),
		logger.BackOffice(req.BackOffice))

	mark, err := p.control.GetCutDt(ctx, req.Frontend, req.Table)
	if err != nil {
		return nil, fmt.Errorf("resolve cut date: %w", err)
	}

	pull := connector.PullRequest{
		Frontend: req.Frontend,
		Table:    req.Table,
		DataType: tableDataType(req.Table),
		CutDt:    mark.CutDt,
		Offset:   mark.Offset,
		Limit:    req.Limit,
	}

	// The total is read once at poll start; rows landing mid-poll are
	// picked up by the next cycle
	total, err := source.Count(ctx, pull)
	if err != nil {
		return nil, fmt.Errorf("count %s since %s: %w", req.Table,
			mark.CutDt.Format(domain.DtLayout), err)
	}
	if total == 0 {
		log.Info("nothing to pull",
			zap.String("cut_dt", mark.CutDt.Format(domain.DtLayout)))
		return nil, nil
	}

	page, err := source.Pull(ctx, pull)
	if err != nil {
		return nil, fmt.Errorf("pull %s page at offset %d: %w", req.Table, mark.Offset, err)
	}
	if len(page) == 0 {
		log.Info("empty pull page", zap.Int("offset", mark.Offset), zap.Int("total", total))
		return nil, nil
	}

	stubs := p.sight(ctx, log, sourceName, req, page)
	if len(stubs) == 0 {
		return nil, nil
	}

	next := advance(mark, page, total)

	run, err := p.control.CreateSyncRun(ctx, control.CreateRunInput{
		BackOffice: req.BackOffice,
		Frontend:   req.Frontend,
		Task:       req.Table,
		Table:      req.Table,
		CutDt:      next.CutDt,
		Offset:     next.Offset,
		StoreCode:  req.StoreCode,
		Entities:   stubs,
	})
	if err != nil {
		return nil, fmt.Errorf("create run for %s: %w", req.Table, err)
	}
	return run, nil
}

// sight upserts every pulled record and collects the resulting stubs. A
// record that fails to persist is logged and skipped; the next poll sees it
// again via the unchanged watermark slot
func (p *Producer) sight(ctx context.Context, log *zap.Logger, sourceName string, req PollRequest, page []domain.EntityRecord) []domain.EntityStub {
	stubs := make([]domain.EntityStub, 0, len(page))
	for i := range page {
		rec := &page[i]
		rec.Table = req.Table
		rec.Frontend = req.Frontend
		if rec.DataType == "" {
			rec.DataType = tableDataType(req.Table)
		}
		rec.TxNote = fmt.Sprintf("%s -> DataWald", sourceName)

		id, err := p.store.Upsert(ctx, rec)
		if err != nil {
			log.Error("failed to record sighting",
				zap.String("business_key", rec.BusinessKey), zap.Error(err))
			continue
		}
		stubs = append(stubs, domain.EntityStub{
			EntityID:    id,
			BusinessKey: rec.BusinessKey,
			UpdateDt:    rec.UpdateDt,
		})
	}
	return stubs
}

// sourceAgent is the subset of connector methods the poll side uses; both
// agent interfaces satisfy it
type sourceAgent interface {
	Pull(ctx context.Context, req connector.PullRequest) ([]domain.EntityRecord, error)
	Count(ctx context.Context, req connector.PullRequest) (int, error)
}

func (p *Producer) sourceFor(spec domain.TableSpec, req PollRequest) (sourceAgent, string, error) {
	if spec.Area == domain.AreaBackOffice {
		agent, err := p.registry.FrontEnd(req.Frontend)
		if err != nil {
			return nil, "", err
		}
		return agent, req.Frontend, nil
	}
	agent, err := p.registry.BackOffice(req.BackOffice)
	if err != nil {
		return nil, "", err
	}
	return agent, req.BackOffice, nil
}

// advance moves the watermark past the page just consumed: offset grows
// within a cut date, and rolls to a fresh cut date once the poll-start total
// is exhausted
func advance(mark domain.Watermark, page []domain.EntityRecord, total int) domain.Watermark {
	next := domain.Watermark{CutDt: mark.CutDt, Offset: mark.Offset + len(page)}
	if next.Offset >= total {
		maxDt := mark.CutDt
		for i := range page {
			if page[i].UpdateDt.After(maxDt) {
				maxDt = page[i].UpdateDt
			}
		}
		next = domain.Watermark{CutDt: maxDt, Offset: 0}
	}
	return next
}

// tableDataType extracts the ext-data qualifier from a products table name
// (products-inventory -> inventory). The customers-bo/customers-fe suffixes
// are direction markers, not data types
func tableDataType(table string) string {
	if !strings.HasPrefix(table, "products-") {
		return ""
	}
	return strings.TrimPrefix(table, "products-")
}
