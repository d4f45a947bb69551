package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds one swap request end to end. Swaps include
// on-chain confirmation, so this is deliberately generous.
const DefaultTimeout = 90 * time.Second

// HTTPClient implements Client against the swap service REST API.
// Swap calls are never retried here: a timed-out swap may still land,
// and double-execution is worse than a failed trade record.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a swap service client.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
}

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

type swapRequest struct {
	CredentialHandle string  `json:"credential_handle"`
	AssetAddress     string  `json:"asset_address"`
	AmountSOL        float64 `json:"amount_sol"`
}

type swapResponse struct {
	OK     bool    `json:"ok"`
	TxRef  string  `json:"tx_ref,omitempty"`
	Amount float64 `json:"amount,omitempty"`
	Reason string  `json:"reason,omitempty"`
}

type decimalsResponse struct {
	Decimals int `json:"decimals"`
}

// Buy swaps amountSOL of SOL into the asset.
func (c *HTTPClient) Buy(ctx context.Context, credentialHandle, assetAddress string, amountSOL float64) (*SwapResult, error) {
	return c.swap(ctx, "/v1/swap/buy", credentialHandle, assetAddress, amountSOL)
}

// Sell swaps amountSOL worth of the asset back into SOL.
func (c *HTTPClient) Sell(ctx context.Context, credentialHandle, assetAddress string, amountSOL float64) (*SwapResult, error) {
	return c.swap(ctx, "/v1/swap/sell", credentialHandle, assetAddress, amountSOL)
}

func (c *HTTPClient) swap(ctx context.Context, path, credentialHandle, assetAddress string, amountSOL float64) (*SwapResult, error) {
	body, err := json.Marshal(swapRequest{
		CredentialHandle: credentialHandle,
		AssetAddress:     assetAddress,
		AmountSOL:        amountSOL,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal swap request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("swap request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp swapResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response (status %d): %w", httpResp.StatusCode, err)
	}

	if !resp.OK {
		reason := resp.Reason
		if reason == "" {
			reason = fmt.Sprintf("swap service status %d", httpResp.StatusCode)
		}
		return nil, &ExecutionError{Reason: reason}
	}

	return &SwapResult{TxRef: resp.TxRef, Amount: resp.Amount}, nil
}

// ResolveDecimals returns the asset's decimal precision.
func (c *HTTPClient) ResolveDecimals(ctx context.Context, assetAddress string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/assets/"+assetAddress+"/decimals", nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	httpResp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("decimals request: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("decimals status %d", httpResp.StatusCode)
	}

	var resp decimalsResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return 0, fmt.Errorf("unmarshal response: %w", err)
	}
	return resp.Decimals, nil
}
