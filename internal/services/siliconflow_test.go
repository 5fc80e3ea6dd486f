package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"siliconflow-balance-plugin/internal/config"
	"siliconflow-balance-plugin/internal/models"
	"siliconflow-balance-plugin/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newUpstream starts a fake balance API answering every request with status and body
func newUpstream(t *testing.T, status int, body string, seen func(*http.Request)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			seen(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestClient(endpoint string, timeout time.Duration) (*SiliconFlowClient, *metrics.MetricsCollector) {
	mc := metrics.NewMetricsCollector()
	return NewSiliconFlowClient(&config.APIConfig{Endpoint: endpoint, Timeout: timeout}, mc), mc
}

func TestSiliconFlowClientQueryBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		var got *http.Request
		server := newUpstream(t, http.StatusOK,
			`{"code":20000,"status":true,"data":{"balance":"12.3400","totalBalance":"50.0000","chargeBalance":"37.6600","status":"normal"}}`,
			func(r *http.Request) { got = r.Clone(context.Background()) })

		client, mc := newTestClient(server.URL+"/v1/user/info", 5*time.Second)
		result, err := client.QueryBalance(ctx, "sk-test")
		require.NoError(t, err)
		require.True(t, result.Success)

		assert.Contains(t, result.Message, "当前余额: 12.3400 元")
		assert.Contains(t, result.Message, "充值余额: 37.6600 元")
		assert.Contains(t, result.Message, "总余额: 50.0000 元")
		assert.Contains(t, result.Message, "账户状态: normal")

		require.NotNil(t, got)
		assert.Equal(t, http.MethodGet, got.Method)
		assert.Equal(t, "/v1/user/info", got.URL.Path)
		assert.Equal(t, "Bearer sk-test", got.Header.Get("Authorization"))
		assert.Equal(t, "application/json", got.Header.Get("Content-Type"))

		m := mc.GetMetrics()
		assert.Equal(t, int64(1), m.UpstreamCalls)
		assert.Equal(t, int64(0), m.UpstreamFailures)
	})

	t.Run("Unauthorized", func(t *testing.T) {
		server := newUpstream(t, http.StatusUnauthorized, `not even json`, nil)

		client, mc := newTestClient(server.URL, 5*time.Second)
		result, err := client.QueryBalance(ctx, "sk-expired")
		require.NoError(t, err)

		assert.False(t, result.Success)
		assert.Equal(t, models.ErrorCodeInvalidAPIKey, result.Code)
		assert.Contains(t, result.Error, "API Key 无效或已过期")
		assert.Equal(t, MsgInvalidAPIKey, result.Error)
		assert.Equal(t, int64(1), mc.GetMetrics().UpstreamFailures)
	})

	t.Run("ServerError", func(t *testing.T) {
		server := newUpstream(t, http.StatusInternalServerError, `internal error`, nil)

		client, _ := newTestClient(server.URL, 5*time.Second)
		result, err := client.QueryBalance(ctx, "sk-test")
		require.NoError(t, err)

		assert.False(t, result.Success)
		assert.Equal(t, models.ErrorCodeUpstreamError, result.Code)
		assert.Contains(t, result.Error, "500")
		assert.Contains(t, result.Error, "internal error")
		assert.Equal(t, "API 返回错误 (状态码: 500): internal error", result.Error)
	})

	t.Run("OtherStatusKeepsRawBody", func(t *testing.T) {
		server := newUpstream(t, http.StatusTooManyRequests, `{"message":"slow down"}`, nil)

		client, _ := newTestClient(server.URL, 5*time.Second)
		result, err := client.QueryBalance(ctx, "sk-test")
		require.NoError(t, err)

		assert.Contains(t, result.Error, "429")
		assert.Contains(t, result.Error, `{"message":"slow down"}`)
	})

	t.Run("MalformedAmount", func(t *testing.T) {
		server := newUpstream(t, http.StatusOK, `{"data":{"balance":"abc"}}`, nil)

		client, _ := newTestClient(server.URL, 5*time.Second)
		result, err := client.QueryBalance(ctx, "sk-test")
		require.NoError(t, err)

		assert.False(t, result.Success)
		assert.Empty(t, result.Message)
		assert.Contains(t, result.Error, "解析余额数据失败")
	})

	t.Run("UndecodableBody", func(t *testing.T) {
		server := newUpstream(t, http.StatusOK, `<html>gateway</html>`, nil)

		client, _ := newTestClient(server.URL, 5*time.Second)
		result, err := client.QueryBalance(ctx, "sk-test")
		assert.Error(t, err)
		assert.Nil(t, result)
	})

	t.Run("Timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		t.Cleanup(server.Close)

		client, mc := newTestClient(server.URL, 50*time.Millisecond)
		result, err := client.QueryBalance(ctx, "sk-test")
		assert.Error(t, err)
		assert.Nil(t, result)
		assert.Equal(t, int64(1), mc.GetMetrics().UpstreamFailures)
	})

	t.Run("ConnectionRefused", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		endpoint := server.URL
		server.Close()

		client, _ := newTestClient(endpoint, time.Second)
		_, err := client.QueryBalance(ctx, "sk-test")
		assert.Error(t, err)
	})

	t.Run("EmptyKey", func(t *testing.T) {
		client, mc := newTestClient("http://127.0.0.1:1", time.Second)
		_, err := client.QueryBalance(ctx, "")
		assert.ErrorIs(t, err, ErrEmptyAPIKey)
		assert.Equal(t, int64(0), mc.GetMetrics().UpstreamCalls)
	})
}
