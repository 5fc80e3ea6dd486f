package models

// BalanceResponse holds the fields of the "data" object returned by
// GET /v1/user/info. Amounts arrive as decimal strings.
type BalanceResponse struct {
	Balance       string `json:"balance"`
	TotalBalance  string `json:"totalBalance"`
	ChargeBalance string `json:"chargeBalance"`
	Status        string `json:"status"`
}

// BalanceInfo is the parsed form of a BalanceResponse
type BalanceInfo struct {
	Balance       float64 `json:"balance"`
	TotalBalance  float64 `json:"total_balance"`
	ChargeBalance float64 `json:"charge_balance"`
	Status        string  `json:"status"`
}
