package repository

import "errors"

var (
	ErrMerchantNotFound = errors.New("merchant not found")
	ErrMerchantExists   = errors.New("a merchant with this wallet address already exists")
)
