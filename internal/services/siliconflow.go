package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"siliconflow-balance-plugin/internal/config"
	"siliconflow-balance-plugin/internal/models"
	"siliconflow-balance-plugin/pkg/logger"
	"siliconflow-balance-plugin/pkg/metrics"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// MsgInvalidAPIKey is returned when the API rejects the key with 401
const MsgInvalidAPIKey = "API Key 无效或已过期，请检查配置"

// ErrEmptyAPIKey is returned when QueryBalance is called without a key
var ErrEmptyAPIKey = errors.New("api key is empty")

// SiliconFlowClient issues balance queries against the SiliconFlow API
type SiliconFlowClient struct {
	client  *resty.Client
	config  *config.APIConfig
	metrics *metrics.MetricsCollector
}

// NewSiliconFlowClient creates a client for cfg.Endpoint.
// One GET per query, cfg.Timeout per attempt, no retries.
func NewSiliconFlowClient(cfg *config.APIConfig, mc *metrics.MetricsCollector) *SiliconFlowClient {
	if mc == nil {
		mc = metrics.NewMetricsCollector()
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetLogger(logger.GetLogger())

	return &SiliconFlowClient{
		client:  client,
		config:  cfg,
		metrics: mc,
	}
}

// QueryBalance fetches the account info for apiKey and formats it.
// Transport errors and undecodable 200 bodies are returned as errors.
func (s *SiliconFlowClient) QueryBalance(ctx context.Context, apiKey string) (*models.QueryResult, error) {
	if apiKey == "" {
		return nil, ErrEmptyAPIKey
	}

	log := logger.GetLogger().WithContext(ctx).WithFields(map[string]interface{}{
		"component": "siliconflow_client",
		"endpoint":  s.config.Endpoint,
	})

	start := time.Now()
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(apiKey).
		Get(s.config.Endpoint)
	duration := time.Since(start)

	if err != nil {
		s.metrics.RecordUpstreamCall(duration, false)
		log.Error("Balance request failed",
			zap.Error(err),
			zap.Duration("duration", duration),
		)
		return nil, fmt.Errorf("balance request failed: %w", err)
	}

	status := resp.StatusCode()
	s.metrics.RecordUpstreamCall(duration, status == http.StatusOK)

	log.Debug("Balance request completed",
		zap.Int("status_code", status),
		zap.Duration("duration", duration),
	)

	switch status {
	case http.StatusOK:
		payload, err := DecodePayload(resp.Body())
		if err != nil {
			log.Error("Failed to decode balance response", zap.Error(err))
			return nil, fmt.Errorf("failed to decode balance response: %w", err)
		}
		return FormatBalance(payload), nil

	case http.StatusUnauthorized:
		log.Warn("API key rejected by upstream")
		return models.NewFailureResult(models.ErrorCodeInvalidAPIKey, MsgInvalidAPIKey), nil

	default:
		body := resp.String()
		log.Warn("Upstream returned error status",
			zap.Int("status_code", status),
			zap.String("body", body),
		)
		return models.NewFailureResult(
			models.ErrorCodeUpstreamError,
			fmt.Sprintf("API 返回错误 (状态码: %d): %s", status, body),
		), nil
	}
}
