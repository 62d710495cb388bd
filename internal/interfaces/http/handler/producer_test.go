package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/datawald/hub/internal/application/producer"
	domain "github.com/datawald/hub/internal/domain/sync"
	"github.com/datawald/hub/internal/interfaces/http/dto"
)

// MockPollService implements PollService for testing
type MockPollService struct {
	mock.Mock
}

func (m *MockPollService) Poll(ctx context.Context, req producer.PollRequest) (*domain.SyncRun, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SyncRun), args.Error(1)
}

func setupProducerRouter(svc PollService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	api := engine.Group("/api/v1")
	NewProducerHandler(svc, nil).RegisterRoutes(api)
	return engine
}

func pollBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(dto.PollRequest{
		BackOffice: "ns",
		Frontend:   "mage2",
		Table:      "orders",
		Limit:      50,
	})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func TestPollDispatchesRun(t *testing.T) {
	svc := new(MockPollService)
	svc.On("Poll", mock.Anything, mock.MatchedBy(func(req producer.PollRequest) bool {
		return req.BackOffice == "ns" && req.Frontend == "mage2" &&
			req.Table == "orders" && req.Limit == 50
	})).Return(sampleRun(t), nil)

	router := setupProducerRouter(svc)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/producer/poll", pollBody(t))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	svc.AssertExpectations(t)
}

func TestPollNothingNew(t *testing.T) {
	svc := new(MockPollService)
	svc.On("Poll", mock.Anything, mock.Anything).Return(nil, nil)

	router := setupProducerRouter(svc)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/producer/poll", pollBody(t))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPollUnknownTable(t *testing.T) {
	svc := new(MockPollService)
	svc.On("Poll", mock.Anything, mock.Anything).
		Return(nil, domain.ErrUnknownTable)

	router := setupProducerRouter(svc)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/producer/poll", pollBody(t))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPollMissingFields(t *testing.T) {
	svc := new(MockPollService)

	router := setupProducerRouter(svc)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/producer/poll",
		bytes.NewBufferString(`{"table":"orders"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Poll")
}

func TestPollSourceFailure(t *testing.T) {
	svc := new(MockPollService)
	svc.On("Poll", mock.Anything, mock.Anything).
		Return(nil, errors.New("source timeout"))

	router := setupProducerRouter(svc)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/producer/poll", pollBody(t))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
