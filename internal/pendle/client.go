// Package pendle provides a minimal client for the Pendle Finance core API.
// Only the active-markets listing is used; responses are decoded loosely and
// turned into models.Market records.
package pendle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rewired-gh/pendlewatch/internal/logger"
	"github.com/rewired-gh/pendlewatch/internal/models"
)

const activeMarketsPath = "/v1/markets/active"

// maxErrorBody caps how much of a failed response is kept in StatusError.
const maxErrorBody = 512

// Client provides access to the Pendle API
type Client struct {
	apiBaseURL string
	httpClient *http.Client
}

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// NewClient creates a new Pendle client
func NewClient(apiBaseURL string, timeout time.Duration) *Client {
	return &Client{
		apiBaseURL: apiBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchActiveMarkets retrieves the markets currently active on a chain.
//
// The endpoint has answered both {"data": [...]} and a bare array over time;
// both are accepted. Any other top-level shape yields no markets.
func (c *Client) FetchActiveMarkets(ctx context.Context, chainID int) ([]models.Market, error) {
	params := url.Values{}
	params.Set("chainId", strconv.Itoa(chainID))
	fullURL := fmt.Sprintf("%s%s?%s", c.apiBaseURL, activeMarketsPath, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active markets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode active markets: %w", err)
	}

	items, err := normalize(payload)
	if err != nil {
		return nil, err
	}

	markets := make([]models.Market, 0, len(items))
	for i, item := range items {
		raw, ok := item.(map[string]any)
		if !ok {
			logger.Warn("Skipping market %d on chain %d: expected object, got %T", i, chainID, item)
			continue
		}
		markets = append(markets, models.ParseMarket(raw))
	}

	return markets, nil
}

// normalize extracts the market list from a decoded response body.
func normalize(payload any) ([]any, error) {
	switch body := payload.(type) {
	case map[string]any:
		data, ok := body["data"]
		if !ok {
			return nil, nil
		}
		if data == nil {
			return nil, nil
		}
		items, ok := data.([]any)
		if !ok {
			return nil, fmt.Errorf("unexpected data field type %T", data)
		}
		return items, nil
	case []any:
		return body, nil
	default:
		return nil, nil
	}
}
