package models

import "time"

// DefaultDailyLimit is the local-currency capacity a merchant starts with.
const DefaultDailyLimit = 1000000

// Location is a WGS84 point in decimal degrees.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Merchant struct {
	WalletAddress     string    `json:"walletAddress"`
	Name              string    `json:"name"`
	BrandName         string    `json:"brandName"`
	Description       string    `json:"description,omitempty"`
	PhoneNumber       string    `json:"phoneNumber"`
	Email             string    `json:"email"`
	Address           string    `json:"address"`
	PlaceID           string    `json:"placeId"`
	Location          Location  `json:"location"`
	CommissionPercent float64   `json:"commissionPercent"`
	DailyLimit        float64   `json:"dailyLimit"`
	Reputation        float64   `json:"reputation"`
	SuccessCount      int64     `json:"successCount"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// CreateMerchantInput is the registration payload. The wallet address comes
// from the authenticated session, not from the body.
type CreateMerchantInput struct {
	Name              string   `json:"name"`
	BrandName         string   `json:"brandName"`
	Description       string   `json:"description"`
	PhoneNumber       string   `json:"phoneNumber"`
	Email             string   `json:"email"`
	Address           string   `json:"address"`
	PlaceID           string   `json:"placeId"`
	Latitude          *float64 `json:"latitude"`
	Longitude         *float64 `json:"longitude"`
	CommissionPercent float64  `json:"commissionPercent"`
	DailyLimit        *float64 `json:"dailyLimit"`
}

// RankedMerchant is a merchant as shown in discovery results.
type RankedMerchant struct {
	Merchant
	DistanceKm *float64 `json:"distanceKm"`
	Quote      *Quote   `json:"quote,omitempty"`
	QuoteError string   `json:"quoteError,omitempty"`
}
