package services

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"siliconflow-balance-plugin/internal/models"
	"siliconflow-balance-plugin/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultAmount = "0"
	defaultStatus = "unknown"

	// Amounts whose decimal exponent lies outside this range are rejected
	// before any float conversion.
	maxAmountExponent = 400
)

const balanceTemplate = `SiliconFlow 账户余额

当前余额: %s 元
充值余额: %s 元
总余额: %s 元

账户状态: %s`

// DecodePayload decodes a JSON body keeping numbers as json.Number so
// amounts sent as bare numbers keep their exact text.
func DecodePayload(body []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload interface{}
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// FormatBalance turns a decoded user info payload into a QueryResult.
// Either every amount parses and the full message is rendered, or the
// result is a failure and nothing is rendered.
func FormatBalance(payload interface{}) *models.QueryResult {
	info, err := ParseBalance(payload)
	if err != nil {
		logger.GetLogger().Error("Failed to parse balance payload",
			zap.Error(err),
			zap.Any("payload", payload),
		)
		return models.NewFailureResult(
			models.ErrorCodeMalformedResponse,
			fmt.Sprintf("解析余额数据失败: %v", err),
		)
	}

	raw, _ := payload.(map[string]interface{})
	return models.NewSuccessResult(RenderBalanceMessage(info), info, raw)
}

// ParseBalance extracts and parses the "data" object of a payload
func ParseBalance(payload interface{}) (*models.BalanceInfo, error) {
	resp, err := ExtractBalanceResponse(payload)
	if err != nil {
		return nil, err
	}
	return ParseBalanceResponse(resp)
}

// ExtractBalanceResponse pulls the balance fields out of a payload as strings.
// A missing "data" key yields the defaults; a present but null one is an error.
func ExtractBalanceResponse(payload interface{}) (*models.BalanceResponse, error) {
	root, ok := payload.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("response is %s, want object", jsonKind(payload))
	}

	data := map[string]interface{}{}
	if v, present := root["data"]; present {
		data, ok = v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("data is %s, want object", jsonKind(v))
		}
	}

	resp := &models.BalanceResponse{Status: statusField(data)}
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"balance", &resp.Balance},
		{"totalBalance", &resp.TotalBalance},
		{"chargeBalance", &resp.ChargeBalance},
	} {
		value, err := amountField(data, f.key)
		if err != nil {
			return nil, err
		}
		*f.dst = value
	}

	return resp, nil
}

// ParseBalanceResponse parses the three amounts of resp
func ParseBalanceResponse(resp *models.BalanceResponse) (*models.BalanceInfo, error) {
	balance, err := parseAmount("balance", resp.Balance)
	if err != nil {
		return nil, err
	}
	totalBalance, err := parseAmount("totalBalance", resp.TotalBalance)
	if err != nil {
		return nil, err
	}
	chargeBalance, err := parseAmount("chargeBalance", resp.ChargeBalance)
	if err != nil {
		return nil, err
	}

	return &models.BalanceInfo{
		Balance:       balance,
		TotalBalance:  totalBalance,
		ChargeBalance: chargeBalance,
		Status:        resp.Status,
	}, nil
}

// RenderBalanceMessage renders info with every amount fixed to 4 places,
// rounded from the nearest float64
func RenderBalanceMessage(info *models.BalanceInfo) string {
	return fmt.Sprintf(balanceTemplate,
		formatAmount(info.Balance),
		formatAmount(info.ChargeBalance),
		formatAmount(info.TotalBalance),
		info.Status,
	)
}

func formatAmount(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

func amountField(data map[string]interface{}, key string) (string, error) {
	v, present := data[key]
	if !present {
		return defaultAmount, nil
	}

	switch value := v.(type) {
	case string:
		return value, nil
	case json.Number:
		return value.String(), nil
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("%s is %s, want number", key, jsonKind(v))
	}
}

func statusField(data map[string]interface{}) string {
	switch value := data["status"].(type) {
	case nil:
		return defaultStatus
	case string:
		return value
	default:
		return fmt.Sprint(value)
	}
}

// parseAmount accepts plain decimal notation only (no inf, nan or hex)
// and rejects values a float64 cannot hold
func parseAmount(field, raw string) (float64, error) {
	s := strings.TrimSpace(raw)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, raw, err)
	}
	if exp := d.Exponent(); exp > maxAmountExponent || exp < -maxAmountExponent {
		return 0, fmt.Errorf("invalid %s %q: exponent %d out of range", field, raw, exp)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, raw, err)
	}
	return f, nil
}

func jsonKind(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
