package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func findHTTPLog(t *testing.T, recorded *observer.ObservedLogs) *observer.LoggedEntry {
	t.Helper()
	logs := recorded.All()
	require.NotEmpty(t, logs)
	for i := range logs {
		if logs[i].Message == "HTTP Request" {
			return &logs[i]
		}
	}
	t.Fatal("HTTP Request log entry not found")
	return nil
}

func TestGinMiddlewareLogsRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.InfoLevel)
	router := gin.New()
	router.Use(GinMiddleware(zap.New(core)))
	router.GET("/control/runs", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"runs": []string{}})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/control/runs", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	httpLog := findHTTPLog(t, recorded)
	assert.Equal(t, zapcore.InfoLevel, httpLog.Level)
}

func TestGinMiddlewarePropagatesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.InfoLevel)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("request_id", "producer-42")
		c.Next()
	})
	router.Use(GinMiddleware(zap.New(core)))
	router.POST("/producer/poll", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"id": "run-1"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/producer/poll", nil)
	router.ServeHTTP(w, req)

	httpLog := findHTTPLog(t, recorded)

	hasRequestID := false
	for _, field := range httpLog.Context {
		if field.Key == "request_id" {
			hasRequestID = true
			assert.Equal(t, "producer-42", field.String)
		}
	}
	assert.True(t, hasRequestID, "request_id should be in log fields")
}

func TestGinMiddlewareClientErrorLogsWarn(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.WarnLevel)
	router := gin.New()
	router.Use(GinMiddleware(zap.New(core)))
	router.GET("/entities/orders", func(c *gin.Context) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "frontend is required"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/entities/orders", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	httpLog := findHTTPLog(t, recorded)
	assert.Equal(t, zapcore.WarnLevel, httpLog.Level)
}

func TestGinMiddlewareServerErrorLogsError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.ErrorLevel)
	router := gin.New()
	router.Use(GinMiddleware(zap.New(core)))
	router.GET("/control/runs", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ledger unavailable"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/control/runs", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	httpLog := findHTTPLog(t, recorded)
	assert.Equal(t, zapcore.ErrorLevel, httpLog.Level)
}

func TestGinMiddlewareLogsQueryString(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.InfoLevel)
	router := gin.New()
	router.Use(GinMiddleware(zap.New(core)))
	router.GET("/control/runs", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"runs": []string{}})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/control/runs?frontend=shop-us&task=orders", nil)
	router.ServeHTTP(w, req)

	httpLog := findHTTPLog(t, recorded)

	hasQuery := false
	for _, field := range httpLog.Context {
		if field.Key == "query" {
			hasQuery = true
			assert.Contains(t, field.String, "frontend=shop-us")
		}
	}
	assert.True(t, hasQuery, "query should be in log fields")
}

func TestGinMiddlewareLogsStandardFields(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.InfoLevel)
	router := gin.New()
	router.Use(GinMiddleware(zap.New(core)))
	router.POST("/feeds/products/inventory", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"count": 2})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/feeds/products/inventory", nil)
	req.Header.Set("User-Agent", "datawald-agent/1.0")
	router.ServeHTTP(w, req)

	httpLog := findHTTPLog(t, recorded)

	fieldMap := make(map[string]any)
	for _, field := range httpLog.Context {
		fieldMap[field.Key] = field
	}

	for _, key := range []string{"status", "latency", "client_ip", "user_agent", "method", "path"} {
		assert.Contains(t, fieldMap, key)
	}
}

func TestRecoveryHandlesPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.ErrorLevel)
	router := gin.New()
	router.Use(Recovery(zap.New(core)))
	router.GET("/control/runs/:id", func(c *gin.Context) {
		panic("nil entity projection")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/control/runs/run-1", nil)

	assert.NotPanics(t, func() {
		router.ServeHTTP(w, req)
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	logs := recorded.All()
	require.NotEmpty(t, logs)
	assert.Contains(t, logs[0].Message, "Panic recovered")
}

func TestGetGinLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, _ := observer.New(zapcore.InfoLevel)

	var retrievedLogger *zap.Logger
	router := gin.New()
	router.Use(GinMiddleware(zap.New(core)))
	router.GET("/system/health", func(c *gin.Context) {
		retrievedLogger = GetGinLogger(c)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/system/health", nil)
	router.ServeHTTP(w, req)

	assert.NotNil(t, retrievedLogger)
}

func TestGetGinLoggerWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var retrievedLogger *zap.Logger
	router := gin.New()
	router.GET("/system/health", func(c *gin.Context) {
		retrievedLogger = GetGinLogger(c)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/system/health", nil)
	router.ServeHTTP(w, req)

	require.NotNil(t, retrievedLogger)
	assert.NotPanics(t, func() {
		retrievedLogger.Info("noop")
	})
}
