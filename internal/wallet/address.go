package wallet

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var ErrInvalidAddress = errors.New("invalid wallet address")

// NormalizeAddress validates an EVM hex address and returns its EIP-55
// checksummed form.
func NormalizeAddress(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return "", ErrInvalidAddress
	}
	addr := common.HexToAddress(raw)
	if addr == (common.Address{}) {
		return "", ErrInvalidAddress
	}
	return addr.Hex(), nil
}
