package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domain "github.com/datawald/hub/internal/domain/sync"
	"github.com/datawald/hub/internal/infrastructure/agency"
	"github.com/datawald/hub/internal/interfaces/http/dto"
)

func setupFeedRouter(store domain.EntityStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	api := engine.Group("/api/v1")
	NewFeedHandler(agency.NewFeedAgency(nil, nil), store, nil, nil).RegisterRoutes(api)
	return engine
}

func feedBody(t *testing.T, rows []map[string]any) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(dto.FeedRequest{Frontend: "mage2", Rows: rows})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func TestIngestInventoryFeed(t *testing.T) {
	store := new(MockEntityStore)
	store.On("Upsert", mock.Anything, mock.MatchedBy(func(rec *domain.EntityRecord) bool {
		return rec.Table == "products-inventory" &&
			rec.Frontend == "mage2" &&
			rec.BusinessKey == "SKU-1" &&
			rec.DataType == "inventory" &&
			rec.Data["inventory"] != nil
	})).Return("e1", nil)

	router := setupFeedRouter(store)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/feeds/products/inventory",
		feedBody(t, []map[string]any{
			{"sku": "SKU-1", "warehouse": "main", "qty": 12.0},
		}))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	store.AssertExpectations(t)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestIngestImageGalleryFeed(t *testing.T) {
	store := new(MockEntityStore)
	store.On("Upsert", mock.Anything, mock.MatchedBy(func(rec *domain.EntityRecord) bool {
		return rec.Table == "products-imagegallery" && rec.BusinessKey == "SKU-9"
	})).Return("e2", nil)

	router := setupFeedRouter(store)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/feeds/products/imagegallery",
		feedBody(t, []map[string]any{
			{"sku": "SKU-9", "value": "/a.jpg", "type": "image"},
		}))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	store.AssertExpectations(t)
}

func TestIngestUnsupportedDataType(t *testing.T) {
	store := new(MockEntityStore)

	router := setupFeedRouter(store)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/feeds/products/pricelevels",
		feedBody(t, []map[string]any{{"sku": "SKU-1"}}))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	store.AssertNotCalled(t, "Upsert")
}

func TestIngestMissingRows(t *testing.T) {
	store := new(MockEntityStore)

	router := setupFeedRouter(store)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/feeds/products/inventory",
		bytes.NewBufferString(`{"frontend":"mage2"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
