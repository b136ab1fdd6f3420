package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"reseller-ledger/config"
	"reseller-ledger/internal/core/ports"
	"reseller-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements ports.FulfillmentProvider against the provider's HTTP
// status API. The provider is treated as unreliable: any transport failure
// or reply the client cannot parse surfaces as ProviderUnavailable and is
// never interpreted as a delivery verdict.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPClient
	log        zerolog.Logger
}

// statusReply is the provider's status response body.
type statusReply struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// NewClient creates a new provider client.
func NewClient(cfg config.ProviderConfig, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

// NewClientWithHTTP creates a provider client with a custom HTTP client.
func NewClientWithHTTP(cfg config.ProviderConfig, httpClient HTTPClient, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		log:        log,
	}
}

// QueryDeliveryStatus asks the provider for the current state of an
// existing delivery request.
func (c *Client) QueryDeliveryStatus(ctx context.Context, providerReference string) (*ports.DeliveryStatus, error) {
	if providerReference == "" {
		return nil, apperror.Validation("provider reference is required")
	}

	url := fmt.Sprintf("%s/v1/deliveries/%s", c.baseURL, providerReference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("building provider request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperror.ErrProviderUnavailable(fmt.Errorf("querying delivery status: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperror.ErrProviderUnavailable(fmt.Errorf("reading provider response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().
			Int("status_code", resp.StatusCode).
			Str("provider_reference", providerReference).
			Msg("provider returned non-OK status")
		return nil, apperror.ErrProviderUnavailable(
			fmt.Errorf("provider returned status %d", resp.StatusCode))
	}

	var reply statusReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, apperror.ErrProviderUnavailable(fmt.Errorf("decoding provider response: %w", err))
	}

	status := &ports.DeliveryStatus{Reason: reply.Reason, Raw: string(body)}
	switch strings.ToUpper(reply.Status) {
	case "DELIVERED", "SUCCESS":
		status.State = ports.DeliveryDelivered
	case "FAILED", "REJECTED":
		status.State = ports.DeliveryFailed
	case "PROCESSING", "PENDING", "IN_FLIGHT":
		status.State = ports.DeliveryInFlight
	default:
		return nil, apperror.ErrProviderUnavailable(
			fmt.Errorf("provider returned unknown status %q", reply.Status))
	}
	return status, nil
}
