// Package payintent builds and parses the URL a merchant's QR code carries.
package payintent

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/taipay/cashme/internal/wallet"
)

const Path = "/payment-intent"

var ErrInvalidIntent = errors.New("invalid payment intent")

type Intent struct {
	Address           string  `json:"address"`
	BrandName         string  `json:"brandName"`
	DailyLimit        float64 `json:"dailyLimit"`
	CommissionPercent float64 `json:"commissionPercent"`
	Token             string  `json:"token"`
}

// Build renders <origin>/payment-intent?address=..&brandName=..&dailyLimit=..&commissionPercent=..&token=..
func Build(origin string, in Intent) (string, error) {
	base, err := url.Parse(strings.TrimRight(origin, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("%w: bad origin %q", ErrInvalidIntent, origin)
	}
	if err := in.validate(); err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("address", in.Address)
	q.Set("brandName", in.BrandName)
	q.Set("dailyLimit", strconv.FormatFloat(in.DailyLimit, 'f', -1, 64))
	q.Set("commissionPercent", strconv.FormatFloat(in.CommissionPercent, 'f', -1, 64))
	if in.Token != "" {
		q.Set("token", in.Token)
	}

	base.Path = strings.TrimRight(base.Path, "/") + Path
	base.RawQuery = q.Encode()
	return base.String(), nil
}

// Parse decodes a scanned payment-intent URL.
func Parse(raw string) (Intent, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Intent{}, fmt.Errorf("%w: %v", ErrInvalidIntent, err)
	}
	if !strings.HasSuffix(u.Path, Path) {
		return Intent{}, fmt.Errorf("%w: unexpected path %q", ErrInvalidIntent, u.Path)
	}

	q := u.Query()
	in := Intent{
		Address:   q.Get("address"),
		BrandName: q.Get("brandName"),
		Token:     strings.ToUpper(q.Get("token")),
	}
	if in.DailyLimit, err = parseNumber(q, "dailyLimit"); err != nil {
		return Intent{}, err
	}
	if in.CommissionPercent, err = parseNumber(q, "commissionPercent"); err != nil {
		return Intent{}, err
	}
	if err := in.validate(); err != nil {
		return Intent{}, err
	}
	in.Address, _ = wallet.NormalizeAddress(in.Address)
	return in, nil
}

func parseNumber(q url.Values, key string) (float64, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidIntent, key, v)
	}
	return f, nil
}

func (in Intent) validate() error {
	if _, err := wallet.NormalizeAddress(in.Address); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidIntent, err)
	}
	if in.DailyLimit < 0 {
		return fmt.Errorf("%w: negative daily limit", ErrInvalidIntent)
	}
	if in.CommissionPercent < 0 || in.CommissionPercent > 100 {
		return fmt.Errorf("%w: commission %v%% out of range", ErrInvalidIntent, in.CommissionPercent)
	}
	return nil
}
