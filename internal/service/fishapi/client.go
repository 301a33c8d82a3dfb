// Package fishapi fetches fish records from the upstream NOAA data API.
package fishapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/kapu/noaa-fisheries-web-go/internal/constants"
	"github.com/kapu/noaa-fisheries-web-go/internal/domain"
	"github.com/kapu/noaa-fisheries-web-go/internal/util"
	"github.com/kapu/noaa-fisheries-web-go/pkg/errors"
	"go.uber.org/zap"
)

// Fetcher returns the full upstream record list.
type Fetcher interface {
	FetchAll(ctx context.Context) ([]domain.FishRecord, error)
}

// Client calls GET {baseURL}/gofish?apikey={key}. It never retries; callers
// see every failure as a NetworkError.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	breaker    *util.CircuitBreaker
	logger     *zap.Logger
}

func NewClient(httpClient *http.Client, baseURL, apiKey string, breaker *util.CircuitBreaker, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: constants.APIConfig.Timeout}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		breaker:    breaker,
		logger:     logger,
	}
}

func (c *Client) FetchAll(ctx context.Context) ([]domain.FishRecord, error) {
	endpoint := c.baseURL + constants.APIConfig.FishPath

	if c.breaker != nil && !c.breaker.Allow() {
		c.logger.Warn("Circuit breaker is open, skipping upstream call", zap.String("url", endpoint))
		return nil, errors.NewNetworkError("Circuit breaker open", endpoint, http.StatusServiceUnavailable, nil)
	}

	reqURL := endpoint + "?" + url.Values{"apikey": {c.apiKey}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.NewNetworkError("Failed to build request", endpoint, 0, redactURL(err, endpoint))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = redactURL(err, endpoint)
		c.recordFailure()
		c.logger.Warn("Upstream request failed", zap.String("url", endpoint), zap.Error(err))
		return nil, errors.NewNetworkError("Upstream request failed", endpoint, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordFailure()
		return nil, errors.NewNetworkError("Failed to read upstream response", endpoint, resp.StatusCode, err)
	}

	if resp.StatusCode >= 500 {
		c.recordFailure()
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("Upstream returned error status",
			zap.String("url", endpoint),
			zap.Int("status", resp.StatusCode),
		)
		return nil, errors.NewNetworkError(fmt.Sprintf("Upstream error: %d", resp.StatusCode), endpoint, resp.StatusCode, nil)
	}

	var records []domain.FishRecord
	if err := json.Unmarshal(body, &records); err != nil {
		c.recordFailure()
		c.logger.Warn("Upstream returned malformed payload", zap.String("url", endpoint), zap.Error(err))
		return nil, errors.NewNetworkError("Malformed upstream payload", endpoint, resp.StatusCode, err)
	}

	if c.breaker != nil {
		c.breaker.RecordSuccess()
	}

	c.logger.Debug("Fetched fish records",
		zap.Int("count", len(records)),
		zap.Int("bytes", len(body)),
	)
	return records, nil
}

// redactURL replaces the request URL carried by a *url.Error, which holds
// the api key in its query string.
func redactURL(err error, endpoint string) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	return &url.Error{Op: ue.Op, URL: endpoint, Err: ue.Err}
}

// BreakerStatus reports the upstream circuit state.
func (c *Client) BreakerStatus() util.CircuitBreakerStatus {
	if c.breaker == nil {
		return util.CircuitBreakerStatus{Name: "fishapi", State: util.CircuitStateClosed}
	}
	return c.breaker.Status()
}

func (c *Client) recordFailure() {
	if c.breaker != nil {
		c.breaker.RecordFailure()
	}
}
