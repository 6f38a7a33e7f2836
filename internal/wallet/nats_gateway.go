package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/taipay/cashme/internal/telemetry"
)

const (
	SubjectSendPayment = "wallet.payment.send"
	SubjectSwitchChain = "wallet.chain.switch"
)

var ErrProviderRejected = errors.New("wallet provider rejected the request")

type SendPaymentRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	ChainID int64  `json:"chain_id"`
	Amount  string `json:"amount"` // smallest unit, base 10
}

type SwitchChainRequest struct {
	Address string `json:"address"`
	ChainID int64  `json:"chain_id"`
}

type ProviderResponse struct {
	TransactionHash string `json:"transaction_hash,omitempty"`
	Error           string `json:"error,omitempty"`
}

// NATSGateway talks to the embedded-wallet bridge over NATS request/reply.
type NATSGateway struct {
	nc      *nats.Conn
	timeout time.Duration
}

func NewNATSGateway(nc *nats.Conn, timeout time.Duration) *NATSGateway {
	return &NATSGateway{nc: nc, timeout: timeout}
}

func (g *NATSGateway) SwitchChain(ctx context.Context, address string, chainID int64) error {
	_, err := g.request(ctx, SubjectSwitchChain, SwitchChainRequest{Address: address, ChainID: chainID})
	return err
}

func (g *NATSGateway) SendPayment(ctx context.Context, from, to string, chainID int64, amount *big.Int) (string, error) {
	resp, err := g.request(ctx, SubjectSendPayment, SendPaymentRequest{
		From:    from,
		To:      to,
		ChainID: chainID,
		Amount:  amount.String(),
	})
	if err != nil {
		return "", err
	}
	if resp.TransactionHash == "" {
		return "", fmt.Errorf("%w: empty transaction hash", ErrProviderRejected)
	}
	return resp.TransactionHash, nil
}

func (g *NATSGateway) request(ctx context.Context, subject string, payload any) (*ProviderResponse, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	msg, err := g.nc.RequestWithContext(ctx, subject, data)
	if err != nil {
		telemetry.Logger.Warn("Wallet provider request failed",
			zap.String("subject", subject),
			zap.Error(err),
		)
		return nil, fmt.Errorf("wallet provider %s: %w", subject, err)
	}

	var resp ProviderResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return nil, fmt.Errorf("wallet provider %s: malformed reply: %w", subject, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrProviderRejected, resp.Error)
	}
	return &resp, nil
}
