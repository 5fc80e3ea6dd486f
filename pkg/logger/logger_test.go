package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitialize(t *testing.T) {
	t.Run("InvalidLevel", func(t *testing.T) {
		err := Initialize(&Config{Level: "loud", Environment: "development"})
		assert.Error(t, err)
	})

	t.Run("Production", func(t *testing.T) {
		err := Initialize(&Config{Level: "warn", Environment: "production", OutputPaths: []string{"stderr"}})
		require.NoError(t, err)
		assert.NotNil(t, GetLogger())
	})
}

func TestWithContext(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))

	ctx := ContextWithCorrelationID(context.Background(), "corr-1")
	ctx = ContextWithInvocation(ctx, "inv-1", "user-1", "")

	GetLogger().WithContext(ctx).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "corr-1", fields["correlation_id"])
	assert.Equal(t, "inv-1", fields["invocation_id"])
	assert.Equal(t, "user-1", fields["user_id"])
	assert.NotContains(t, fields, "chat_id")

	assert.Equal(t, "inv-1", GetInvocationIDFromContext(ctx))
	assert.Equal(t, "", GetCorrelationIDFromContext(context.Background()))
}

func TestLoggingMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	SetLogger(zap.New(core))

	engine := gin.New()
	engine.Use(RecoveryMiddleware(), LoggingMiddleware())
	engine.GET("/ok", func(c *gin.Context) {
		c.String(http.StatusOK, GetCorrelationIDFromContext(c.Request.Context()))
	})
	engine.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	t.Run("PropagatesCorrelationID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set("X-Correlation-ID", "given-id")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "given-id", w.Body.String())
		assert.Equal(t, "given-id", w.Header().Get("X-Correlation-ID"))
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		assert.Equal(t, 2, logs.FilterMessage("Request started").Len()+logs.FilterMessage("Request completed").Len())
	})

	t.Run("RecoversPanic", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/panic", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
		assert.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
	})
}
