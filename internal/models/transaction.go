package models

import "time"

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionPending, TransactionCompleted, TransactionFailed:
		return true
	}
	return false
}

type Transaction struct {
	ID              string            `json:"id"`
	Date            time.Time         `json:"date"`
	MerchantAddress string            `json:"merchantAddress"`
	MerchantName    string            `json:"merchantName"`
	Amount          float64           `json:"amount"` // local currency
	TokenSymbol     string            `json:"tokenSymbol,omitempty"`
	InputAmount     float64           `json:"inputAmount,omitempty"`
	Status          TransactionStatus `json:"status"`
	UserAddress     string            `json:"userAddress"`
	TransactionHash string            `json:"transactionHash"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

type CreateTransactionInput struct {
	MerchantAddress string  `json:"merchantAddress"`
	MerchantName    string  `json:"merchantName"`
	Amount          float64 `json:"amount"`
	TokenSymbol     string  `json:"tokenSymbol"`
	InputAmount     float64 `json:"inputAmount"`
	UserAddress     string  `json:"userAddress"`
	TransactionHash string  `json:"transactionHash"`
}

// TransactionEvent is published after a transaction has been stored.
type TransactionEvent struct {
	TransactionID   string            `json:"transaction_id"`
	MerchantAddress string            `json:"merchant_address"`
	UserAddress     string            `json:"user_address"`
	Amount          float64           `json:"amount"`
	TokenSymbol     string            `json:"token_symbol,omitempty"`
	TransactionHash string            `json:"transaction_hash"`
	Status          TransactionStatus `json:"status"`
	Timestamp       time.Time         `json:"timestamp"`
}

// LimitEvent is published after a merchant's daily limit changed.
type LimitEvent struct {
	MerchantAddress string    `json:"merchant_address"`
	PreviousLimit   float64   `json:"previous_limit"`
	DailyLimit      float64   `json:"daily_limit"`
	AmountUsed      float64   `json:"amount_used"`
	Timestamp       time.Time `json:"timestamp"`
}
