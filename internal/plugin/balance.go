package plugin

import (
	"context"
	"fmt"

	"siliconflow-balance-plugin/internal/command"
	"siliconflow-balance-plugin/internal/config"
	"siliconflow-balance-plugin/internal/models"
	"siliconflow-balance-plugin/internal/services"
	"siliconflow-balance-plugin/pkg/logger"
	"siliconflow-balance-plugin/pkg/metrics"

	"go.uber.org/zap"
)

// User-facing texts and outcome reasons of the balance command
const (
	MsgMissingAPIKey    = "未配置 API Key\n请在 config/plugins/siliconflow_balance_plugin/config.toml 中设置 api_key"
	ReasonMissingAPIKey = "未配置 API Key"
	ReasonSuccess       = "余额查询成功"

	unknownError = "未知错误"
)

// BalanceCommand answers the 余额 command
type BalanceCommand struct {
	config  *config.Config
	querier services.BalanceQuerier
	metrics *metrics.MetricsCollector
}

// NewBalanceCommand creates the command handler
func NewBalanceCommand(cfg *config.Config, querier services.BalanceQuerier, mc *metrics.MetricsCollector) *BalanceCommand {
	if mc == nil {
		mc = metrics.NewMetricsCollector()
	}
	return &BalanceCommand{
		config:  cfg,
		querier: querier,
		metrics: mc,
	}
}

// Command returns the registration record
func (b *BalanceCommand) Command() *command.Command {
	return &command.Command{
		Name:        "余额",
		Aliases:     []string{"siliconflow_balance", "sf余额", "硅基余额"},
		Description: "查询 SiliconFlow (硅基流动) API 账户余额",
		Permission:  PermissionQueryBalance,
		ChatTypes:   command.ChatTypeAll,
		Handler:     b.Execute,
	}
}

// Execute runs one balance query and sends exactly one message to the
// invoking chat, whatever the outcome
func (b *BalanceCommand) Execute(ctx context.Context, inv *command.Invocation) command.Outcome {
	log := logger.GetLogger().WithContext(ctx).WithFields(map[string]interface{}{
		"component": "balance_command",
	})

	apiKey := b.config.Lookup("api.api_key", "")
	if apiKey == "" {
		log.Warn("Balance query without configured API key")
		b.send(ctx, log, inv, MsgMissingAPIKey)
		return b.finish(false, models.ErrorCodeMissingAPIKey, ReasonMissingAPIKey)
	}

	result, err := b.query(ctx, apiKey)
	if err != nil {
		log.Error("Balance query raised an error", zap.Error(err))
		b.send(ctx, log, inv, fmt.Sprintf("查询过程中发生错误：%v", err))
		return b.finish(false, models.ErrorCodeQueryException, fmt.Sprintf("查询异常: %v", err))
	}

	if result.Success {
		log.Debug("Balance query succeeded", zap.Any("balance", result.Balance))
		b.send(ctx, log, inv, result.Message)
		return b.finish(true, "", ReasonSuccess)
	}

	errText := result.Error
	if errText == "" {
		errText = unknownError
	}
	log.Warn("Balance query failed",
		zap.String("error_code", string(result.Code)),
		zap.String("error", errText),
	)
	b.send(ctx, log, inv, "查询失败："+errText)
	return b.finish(false, result.Code, errText)
}

// query calls the querier and turns a panic into an error so the
// handler stays the single catch-all boundary
func (b *BalanceCommand) query(ctx context.Context, apiKey string) (result *models.QueryResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	result, err = b.querier.QueryBalance(ctx, apiKey)
	if err == nil && result == nil {
		err = fmt.Errorf("balance query returned no result")
	}
	return result, err
}

func (b *BalanceCommand) send(ctx context.Context, log *logger.Logger, inv *command.Invocation, text string) {
	if inv.Sender == nil {
		log.Error("Invocation has no sender, message dropped")
		return
	}
	if err := inv.Sender.SendText(ctx, text); err != nil {
		log.Error("Failed to send message", zap.Error(err))
	}
}

func (b *BalanceCommand) finish(success bool, code models.ErrorCode, reason string) command.Outcome {
	b.metrics.RecordInvocation(success, string(code))
	return command.Outcome{Success: success, Reason: reason, Intercept: true}
}
