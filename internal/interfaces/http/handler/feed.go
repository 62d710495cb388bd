package handler

import (
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domain "github.com/datawald/hub/internal/domain/sync"
	"github.com/datawald/hub/internal/infrastructure/agency"
	"github.com/datawald/hub/internal/interfaces/http/dto"
)

// FeedHandler ingests raw ext-data feed rows: the agency shapes them per SKU
// and each shaped feed lands in the entity store as a products-<type> sighting
type FeedHandler struct {
	BaseHandler
	agency *agency.FeedAgency
	store  domain.EntityStore
	clock  domain.Clock
	logger *zap.Logger
}

// NewFeedHandler creates a feed handler
func NewFeedHandler(feedAgency *agency.FeedAgency, store domain.EntityStore, clock domain.Clock, logger *zap.Logger) *FeedHandler {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedHandler{agency: feedAgency, store: store, clock: clock, logger: logger}
}

// RegisterRoutes wires the feed routes
func (h *FeedHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/feeds")
	group.POST("/products/:data_type", h.IngestProductsExtData)
}

// IngestProductsExtData handles POST /feeds/products/:data_type
func (h *FeedHandler) IngestProductsExtData(c *gin.Context) {
	dataType := c.Param("data_type")

	var req dto.FeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, 400, dto.ErrCodeValidation, err.Error())
		return
	}

	feeds, err := h.agency.ProductsExtData(req.Frontend, dataType, req.Rows)
	if err != nil {
		if strings.Contains(err.Error(), "not supported") {
			h.Error(c, 400, dto.ErrCodeValidation, err.Error())
			return
		}
		h.Error(c, 400, dto.ErrCodeBadRequest, err.Error())
		return
	}

	now := h.clock.Now()
	ids := make([]string, 0, len(feeds))
	for _, feed := range feeds {
		data, err := feedData(feed)
		if err != nil {
			h.logger.Error("feed payload not encodable",
				zap.String("sku", feed.SKU), zap.String("data_type", dataType), zap.Error(err))
			h.Internal(c, "failed to encode feed payload")
			return
		}

		rec := &domain.EntityRecord{
			Table:       "products-" + dataType,
			Frontend:    feed.Frontend,
			BusinessKey: feed.SKU,
			DataType:    dataType,
			TxNote:      "feed -> DataWald",
			Data:        data,
			UpdateDt:    now,
		}
		id, err := h.store.Upsert(c.Request.Context(), rec)
		if err != nil {
			h.logger.Error("feed upsert failed",
				zap.String("sku", feed.SKU), zap.String("data_type", dataType), zap.Error(err))
			h.Internal(c, "failed to record feed")
			return
		}
		ids = append(ids, id)
	}

	h.Success(c, gin.H{"count": len(ids), "ids": ids})
}

// feedData converts the shaped payload (a typed struct or slice) into the
// opaque map form the entity store holds
func feedData(feed agency.ExtDataFeed) (map[string]any, error) {
	raw, err := json.Marshal(feed.Data)
	if err != nil {
		return nil, err
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, err
	}
	return map[string]any{feed.DataType: value}, nil
}
