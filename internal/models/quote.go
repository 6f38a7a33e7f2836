package models

// Token is one entry of the configured rate table.
type Token struct {
	Symbol    string  `json:"symbol" yaml:"symbol"`
	Rate      float64 `json:"rate" yaml:"rate"` // local currency per 1 token
	ChainID   int64   `json:"chainId" yaml:"chainId"`
	ChainName string  `json:"chainName" yaml:"chainName"`
	Decimals  int32   `json:"decimals" yaml:"decimals"`
}

type Quote struct {
	TokenSymbol      string  `json:"token"`
	InputAmount      float64 `json:"inputAmount"`
	LocalAmount      float64 `json:"localAmount"`
	CommissionAmount float64 `json:"commissionAmount"`
	FinalAmount      float64 `json:"finalAmount"`
	Accepted         bool    `json:"accepted"`
}
