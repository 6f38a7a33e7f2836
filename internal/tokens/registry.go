package tokens

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/taipay/cashme/internal/models"
)

var ErrUnknownToken = errors.New("unknown token")

// Registry is the rate table: token symbol to rate and chain metadata.
// It is read-only after construction and safe for concurrent use.
type Registry struct {
	bySymbol map[string]models.Token
	order    []string
}

type fileFormat struct {
	Tokens []models.Token `yaml:"tokens"`
}

// Default returns the table the mobile app shipped with. Rates are NTD per
// token.
func Default() *Registry {
	r, err := New([]models.Token{
		{Symbol: "USDC", Rate: 30, ChainID: 11155111, ChainName: "Sepolia", Decimals: 18},
		{Symbol: "CBTC", Rate: 2748918, ChainID: 5115, ChainName: "Citrea Testnet", Decimals: 18},
		{Symbol: "TRBTC", Rate: 2748918, ChainID: 31, ChainName: "Rootstock Testnet", Decimals: 18},
		{Symbol: "FLOW", Rate: 12, ChainID: 545, ChainName: "Flow Testnet", Decimals: 18},
	})
	if err != nil {
		panic(err)
	}
	return r
}

func New(list []models.Token) (*Registry, error) {
	if len(list) == 0 {
		return nil, errors.New("token table is empty")
	}
	r := &Registry{bySymbol: make(map[string]models.Token, len(list))}
	for _, t := range list {
		t.Symbol = strings.ToUpper(strings.TrimSpace(t.Symbol))
		if t.Symbol == "" {
			return nil, errors.New("token without symbol")
		}
		if _, dup := r.bySymbol[t.Symbol]; dup {
			return nil, fmt.Errorf("duplicate token %s", t.Symbol)
		}
		if math.IsNaN(t.Rate) || math.IsInf(t.Rate, 0) || t.Rate <= 0 {
			return nil, fmt.Errorf("token %s: rate must be positive, got %v", t.Symbol, t.Rate)
		}
		if t.Decimals < 0 || t.Decimals > 36 {
			return nil, fmt.Errorf("token %s: unsupported decimals %d", t.Symbol, t.Decimals)
		}
		r.bySymbol[t.Symbol] = t
		r.order = append(r.order, t.Symbol)
	}
	return r, nil
}

// Load reads a YAML token table from path.
func Load(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token table: %w", err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse token table %s: %w", path, err)
	}
	return New(f.Tokens)
}

func (r *Registry) Lookup(symbol string) (models.Token, error) {
	t, ok := r.bySymbol[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return models.Token{}, fmt.Errorf("%w: %q", ErrUnknownToken, symbol)
	}
	return t, nil
}

// All returns the tokens in configuration order.
func (r *Registry) All() []models.Token {
	out := make([]models.Token, 0, len(r.order))
	for _, s := range r.order {
		out = append(out, r.bySymbol[s])
	}
	return out
}

// ToSmallestUnit converts a token amount to its on-chain integer
// representation, truncating anything below one unit.
func ToSmallestUnit(token models.Token, amount float64) (*big.Int, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return nil, fmt.Errorf("amount must be a positive number, got %v", amount)
	}
	units := decimal.NewFromFloat(amount).Shift(token.Decimals).Truncate(0)
	if !units.IsPositive() {
		return nil, fmt.Errorf("amount %v is below the smallest unit of %s", amount, token.Symbol)
	}
	return units.BigInt(), nil
}
