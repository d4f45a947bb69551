// Package wallet is the swap-execution service client. The engine never
// constructs blockchain transactions itself; it hands an encrypted key
// handle and trade parameters to the service and interprets the result.
package wallet

import (
	"context"
	"errors"
	"fmt"
)

// ExecutionError is a typed swap failure carrying the collaborator's
// human-readable reason. The trade processor records it on the trade
// record and echoes a truncated form in the outcome reply.
type ExecutionError struct {
	Reason string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("swap execution failed: %s", e.Reason)
}

// AsExecutionError unwraps err into an ExecutionError if possible.
func AsExecutionError(err error) (*ExecutionError, bool) {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}

// SwapResult is a successful swap outcome.
type SwapResult struct {
	TxRef  string  // transaction reference
	Amount float64 // tokens received (buy) or SOL proceeds (sell)
}

// Client is the outbound swap-execution surface. credentialHandle is an
// opaque encrypted key reference; plaintext keys never cross this
// boundary.
type Client interface {
	// Buy swaps amountSOL of SOL into the asset.
	Buy(ctx context.Context, credentialHandle, assetAddress string, amountSOL float64) (*SwapResult, error)

	// Sell swaps amountSOL worth of the asset back into SOL.
	Sell(ctx context.Context, credentialHandle, assetAddress string, amountSOL float64) (*SwapResult, error)

	// ResolveDecimals returns the asset's decimal precision.
	ResolveDecimals(ctx context.Context, assetAddress string) (int, error)
}
