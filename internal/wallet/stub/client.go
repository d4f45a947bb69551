// Package stub provides a scripted in-memory swap client for tests.
package stub

import (
	"context"
	"sync"

	"agent-colony/internal/wallet"
)

// Swap records one executed swap call.
type Swap struct {
	Side             string // "buy" | "sell"
	CredentialHandle string
	AssetAddress     string
	AmountSOL        float64
}

// Client is a scripted implementation of wallet.Client. Zero value
// succeeds with a fixed tx reference.
type Client struct {
	mu sync.Mutex

	// Err fails every swap when set (typically *wallet.ExecutionError).
	Err error

	// DecimalsErr fails every decimals lookup when set.
	DecimalsErr error

	// TxRef overrides the returned transaction reference.
	TxRef string

	Swaps    []Swap
	Decimals int
}

// Compile-time interface check.
var _ wallet.Client = (*Client)(nil)

// Buy records and acknowledges a buy swap.
func (c *Client) Buy(_ context.Context, credentialHandle, assetAddress string, amountSOL float64) (*wallet.SwapResult, error) {
	return c.swap("buy", credentialHandle, assetAddress, amountSOL)
}

// Sell records and acknowledges a sell swap.
func (c *Client) Sell(_ context.Context, credentialHandle, assetAddress string, amountSOL float64) (*wallet.SwapResult, error) {
	return c.swap("sell", credentialHandle, assetAddress, amountSOL)
}

func (c *Client) swap(side, credentialHandle, assetAddress string, amountSOL float64) (*wallet.SwapResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Swaps = append(c.Swaps, Swap{
		Side:             side,
		CredentialHandle: credentialHandle,
		AssetAddress:     assetAddress,
		AmountSOL:        amountSOL,
	})
	if c.Err != nil {
		return nil, c.Err
	}

	txRef := c.TxRef
	if txRef == "" {
		txRef = "5VERYFAKETRANSACTIONSIGNATURExxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx"
	}
	return &wallet.SwapResult{TxRef: txRef, Amount: amountSOL * 1000}, nil
}

// ResolveDecimals returns the scripted decimal precision.
func (c *Client) ResolveDecimals(_ context.Context, assetAddress string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.DecimalsErr != nil {
		return 0, c.DecimalsErr
	}
	if c.Decimals != 0 {
		return c.Decimals, nil
	}
	return 9, nil
}

// SwapCount returns the number of executed swaps.
func (c *Client) SwapCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Swaps)
}
