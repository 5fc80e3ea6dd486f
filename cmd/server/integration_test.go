package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"siliconflow-balance-plugin/internal/config"
	"siliconflow-balance-plugin/internal/handlers"
	"siliconflow-balance-plugin/internal/services"
	"siliconflow-balance-plugin/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testAPIKey    = "sk-integration"
	testAuthToken = "server-secret"
)

func TestMain(m *testing.M) {
	logger.SetLogger(zap.NewNop())
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// mockUpstream stands in for the SiliconFlow user info endpoint
type mockUpstream struct {
	*httptest.Server
	calls int64
}

func newMockUpstream(t *testing.T) *mockUpstream {
	t.Helper()

	u := &mockUpstream{}
	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&u.calls, 1)
		w.Header().Set("Content-Type", "application/json")

		if r.Header.Get("Authorization") != "Bearer "+testAPIKey {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid token"}`))
			return
		}
		_, _ = w.Write([]byte(`{"code":20000,"status":true,"data":{"balance":"12.5","chargeBalance":"7.25","totalBalance":"19.75","status":"normal"}}`))
	}))
	t.Cleanup(u.Close)
	return u
}

func (u *mockUpstream) CallCount() int64 {
	return atomic.LoadInt64(&u.calls)
}

func newTestServer(t *testing.T, mutate func(cfg *config.Config)) (*Server, http.Handler) {
	t.Helper()

	cfg := config.Default()
	cfg.API.Timeout = 2 * time.Second
	if mutate != nil {
		mutate(cfg)
	}

	server, err := NewServer(cfg)
	require.NoError(t, err)
	return server, server.Engine()
}

func invoke(router http.Handler, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/commands", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeCommand(t *testing.T, w *httptest.ResponseRecorder) handlers.CommandResponse {
	t.Helper()

	var resp handlers.CommandResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestBalanceQueryFlow(t *testing.T) {
	upstream := newMockUpstream(t)
	server, router := newTestServer(t, func(cfg *config.Config) {
		cfg.API.APIKey = testAPIKey
		cfg.API.Endpoint = upstream.URL
		cfg.Server.AuthToken = testAuthToken
	})

	t.Run("RequiresServerToken", func(t *testing.T) {
		w := invoke(router, `{"text":"/余额"}`, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "MISSING_TOKEN")
		assert.Equal(t, int64(0), upstream.CallCount())
	})

	t.Run("Success", func(t *testing.T) {
		w := invoke(router, `{"text":"/余额","chat_type":"group","chat_id":"g1","user_id":"42"}`, testAuthToken)
		require.Equal(t, http.StatusOK, w.Code)

		resp := decodeCommand(t, w)
		assert.True(t, resp.Success)
		assert.True(t, resp.Intercept)
		assert.Equal(t, "余额查询成功", resp.Reason)
		require.Len(t, resp.Messages, 1)
		assert.Equal(t,
			"SiliconFlow 账户余额\n\n当前余额: 12.5000 元\n充值余额: 7.2500 元\n总余额: 19.7500 元\n\n账户状态: normal",
			resp.Messages[0],
		)
		assert.Equal(t, w.Header().Get("X-Correlation-ID"), resp.CorrelationID)
	})

	t.Run("AliasWithArguments", func(t *testing.T) {
		w := invoke(router, `{"text":"/硅基余额 now please"}`, testAuthToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, decodeCommand(t, w).Success)
	})

	t.Run("Metrics", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.Equal(t, http.StatusOK, w.Code)

		m := server.metrics.GetMetrics()
		assert.Equal(t, int64(2), m.Invocations)
		assert.Equal(t, int64(2), m.SuccessfulInvocations)
		assert.Equal(t, int64(2), m.UpstreamCalls)
		assert.Contains(t, w.Body.String(), `"success_rate":100`)
	})
}

func TestInvalidAPIKeyFlow(t *testing.T) {
	upstream := newMockUpstream(t)
	_, router := newTestServer(t, func(cfg *config.Config) {
		cfg.API.APIKey = "sk-revoked"
		cfg.API.Endpoint = upstream.URL
	})

	w := invoke(router, `{"text":"/sf余额"}`, "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeCommand(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, "API Key 无效或已过期，请检查配置", resp.Reason)
	assert.Equal(t, []string{"查询失败：API Key 无效或已过期，请检查配置"}, resp.Messages)
}

func TestMissingAPIKeyFlow(t *testing.T) {
	upstream := newMockUpstream(t)
	_, router := newTestServer(t, func(cfg *config.Config) {
		cfg.API.Endpoint = upstream.URL
	})

	w := invoke(router, `{"text":"/siliconflow_balance"}`, "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeCommand(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, "未配置 API Key", resp.Reason)
	assert.Equal(t, int64(0), upstream.CallCount())

	ready := httptest.NewRecorder()
	router.ServeHTTP(ready, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, ready.Code)
}

func TestUpstreamUnavailable(t *testing.T) {
	upstream := newMockUpstream(t)
	endpoint := upstream.URL
	upstream.Close()

	_, router := newTestServer(t, func(cfg *config.Config) {
		cfg.API.APIKey = testAPIKey
		cfg.API.Endpoint = endpoint
	})

	w := invoke(router, `{"text":"/余额"}`, "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeCommand(t, w)
	assert.False(t, resp.Success)
	assert.True(t, resp.Intercept)
	require.Len(t, resp.Messages, 1)
	assert.Contains(t, resp.Messages[0], "查询过程中发生错误：")
	assert.Contains(t, resp.Reason, "查询异常: ")
}

func TestDisabledPlugin(t *testing.T) {
	_, router := newTestServer(t, func(cfg *config.Config) {
		cfg.API.APIKey = testAPIKey
		cfg.Plugin.Enabled = false
	})

	w := invoke(router, `{"text":"/余额"}`, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "UNKNOWN_COMMAND")
}

func TestConcurrentInvocations(t *testing.T) {
	upstream := newMockUpstream(t)
	server, router := newTestServer(t, func(cfg *config.Config) {
		cfg.API.APIKey = testAPIKey
		cfg.API.Endpoint = upstream.URL
	})

	const workers = 25
	var (
		wg        sync.WaitGroup
		successes int64
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := invoke(router, `{"text":"/余额","chat_type":"private"}`, "")
			if w.Code != http.StatusOK {
				return
			}
			var resp handlers.CommandResponse
			if json.Unmarshal(w.Body.Bytes(), &resp) == nil && resp.Success {
				atomic.AddInt64(&successes, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(workers), successes)
	assert.Equal(t, int64(workers), upstream.CallCount())
	assert.Equal(t, int64(workers), server.metrics.GetMetrics().Invocations)
}

func TestStatusAndCORS(t *testing.T) {
	_, router := newTestServer(t, nil)

	t.Run("Status", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "running", body["status"])
		assert.Equal(t, "siliconflow_balance_plugin", body["plugin"])
		assert.Equal(t, false, body["api_key_configured"])
		assert.Equal(t, config.DefaultEndpoint, body["endpoint"])
	})

	t.Run("Preflight", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/commands", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("Health", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		var body handlers.HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, services.HealthStatusDegraded, body.Status)
		assert.Equal(t, "1.0.0", body.Version)
	})
}
