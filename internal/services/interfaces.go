package services

import (
	"context"

	"siliconflow-balance-plugin/internal/models"
)

// BalanceQuerier queries the account balance for an API key.
// A returned error means the query could not complete (transport failure,
// timeout, undecodable body); upstream rejections come back as a failed
// QueryResult instead.
type BalanceQuerier interface {
	QueryBalance(ctx context.Context, apiKey string) (*models.QueryResult, error)
}

// HealthCheckerInterface reports readiness of the plugin's dependencies
type HealthCheckerInterface interface {
	CheckHealth() *HealthCheck
	GetDetailedHealth() map[string]*HealthCheck
}
