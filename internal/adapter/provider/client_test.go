package provider

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"reseller-ledger/config"
	"reseller-ledger/internal/core/ports"
	"reseller-ledger/pkg/apperror"
	"reseller-ledger/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHTTPClient struct {
	resp    *http.Response
	err     error
	lastReq *http.Request
}

func (f *fakeHTTPClient) Do(req *http.Request) (*http.Response, error) {
	f.lastReq = req
	return f.resp, f.err
}

func jsonResponse(code int, body string) *http.Response {
	return &http.Response{
		StatusCode: code,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func newTestClient(httpClient HTTPClient) *Client {
	cfg := config.ProviderConfig{
		BaseURL: "https://provider.example.com/",
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	}
	return NewClientWithHTTP(cfg, httpClient, logger.New("error", false))
}

func TestQueryDeliveryStatus_Delivered(t *testing.T) {
	body := `{"status":"DELIVERED","reason":""}`
	fake := &fakeHTTPClient{resp: jsonResponse(http.StatusOK, body)}
	client := newTestClient(fake)

	status, err := client.QueryDeliveryStatus(context.Background(), "prov-ref-1")
	require.NoError(t, err)
	assert.Equal(t, ports.DeliveryDelivered, status.State)
	assert.Equal(t, body, status.Raw)

	assert.Equal(t, "test-key", fake.lastReq.Header.Get("X-API-Key"))
	assert.Equal(t, "https://provider.example.com/v1/deliveries/prov-ref-1", fake.lastReq.URL.String())
}

func TestQueryDeliveryStatus_Failed(t *testing.T) {
	fake := &fakeHTTPClient{resp: jsonResponse(http.StatusOK, `{"status":"FAILED","reason":"recipient number blocked"}`)}
	client := newTestClient(fake)

	status, err := client.QueryDeliveryStatus(context.Background(), "prov-ref-2")
	require.NoError(t, err)
	assert.Equal(t, ports.DeliveryFailed, status.State)
	assert.Equal(t, "recipient number blocked", status.Reason)
}

func TestQueryDeliveryStatus_InFlight(t *testing.T) {
	fake := &fakeHTTPClient{resp: jsonResponse(http.StatusOK, `{"status":"PROCESSING"}`)}
	client := newTestClient(fake)

	status, err := client.QueryDeliveryStatus(context.Background(), "prov-ref-3")
	require.NoError(t, err)
	assert.Equal(t, ports.DeliveryInFlight, status.State)
}

func TestQueryDeliveryStatus_TransportError(t *testing.T) {
	fake := &fakeHTTPClient{err: errors.New("connection timed out")}
	client := newTestClient(fake)

	_, err := client.QueryDeliveryStatus(context.Background(), "prov-ref-4")
	require.Error(t, err)
	assert.Equal(t, "PROV_001", apperror.Code(err))
}

func TestQueryDeliveryStatus_Non200(t *testing.T) {
	fake := &fakeHTTPClient{resp: jsonResponse(http.StatusServiceUnavailable, "busy")}
	client := newTestClient(fake)

	_, err := client.QueryDeliveryStatus(context.Background(), "prov-ref-5")
	require.Error(t, err)
	assert.Equal(t, "PROV_001", apperror.Code(err))
}

func TestQueryDeliveryStatus_MalformedBody(t *testing.T) {
	fake := &fakeHTTPClient{resp: jsonResponse(http.StatusOK, "not json at all")}
	client := newTestClient(fake)

	_, err := client.QueryDeliveryStatus(context.Background(), "prov-ref-6")
	require.Error(t, err)
	assert.Equal(t, "PROV_001", apperror.Code(err))
}

func TestQueryDeliveryStatus_UnknownStatus(t *testing.T) {
	fake := &fakeHTTPClient{resp: jsonResponse(http.StatusOK, `{"status":"MAYBE"}`)}
	client := newTestClient(fake)

	_, err := client.QueryDeliveryStatus(context.Background(), "prov-ref-7")
	require.Error(t, err)
	assert.Equal(t, "PROV_001", apperror.Code(err))
}

func TestQueryDeliveryStatus_EmptyReference(t *testing.T) {
	fake := &fakeHTTPClient{}
	client := newTestClient(fake)

	_, err := client.QueryDeliveryStatus(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, "VAL_001", apperror.Code(err))
	assert.Nil(t, fake.lastReq)
}
