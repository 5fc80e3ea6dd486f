package models

// QueryResult is the outcome of one balance query. Exactly one of Message
// (on success) or Error (on failure) is meaningful.
type QueryResult struct {
	Success bool
	Message string
	Error   string
	Code    ErrorCode

	// Set on success only
	Balance *BalanceInfo
	Raw     map[string]interface{}
}

// NewSuccessResult wraps a rendered message
func NewSuccessResult(message string, info *BalanceInfo, raw map[string]interface{}) *QueryResult {
	return &QueryResult{
		Success: true,
		Message: message,
		Balance: info,
		Raw:     raw,
	}
}

// NewFailureResult wraps a user-facing error text with its classification
func NewFailureResult(code ErrorCode, errText string) *QueryResult {
	return &QueryResult{
		Success: false,
		Error:   errText,
		Code:    code,
	}
}
