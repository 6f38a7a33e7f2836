package interfaces

import (
	"context"
	"math/big"
)

// WalletGateway forwards payments to the embedded wallet provider.
type WalletGateway interface {
	SwitchChain(ctx context.Context, address string, chainID int64) error
	SendPayment(ctx context.Context, from, to string, chainID int64, amount *big.Int) (string, error)
}

// EventPublisher publishes domain events keyed for partitioning.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
}

// Locker serialises work on a single key across service instances.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
