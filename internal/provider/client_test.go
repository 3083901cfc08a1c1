package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardrelay/cardrelay/internal/config"
	"github.com/cardrelay/cardrelay/internal/sign"
)

func newTestConfig(url string, format config.AmountFormat) config.Config {
	return config.Config{
		PartnerID:       "P123",
		PartnerKey:      "K456",
		ProviderURL:     url,
		ProviderTimeout: 2 * time.Second,
		AmountFormat:    format,
	}
}

func TestCharge_PayloadContract(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":99,"message":"queued"}`))
	}))
	defer srv.Close()

	c := New(newTestConfig(srv.URL, config.AmountAsString))
	err := c.Charge(context.Background(), ChargeRequest{
		Telco:     "VTT",
		Pin:       "P1",
		Serial:    "S1",
		Amount:    50000,
		RequestID: "req-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "VTT", got["telco"])
	assert.Equal(t, "P1", got["code"])
	assert.Equal(t, "S1", got["serial"])
	assert.Equal(t, "50000", got["amount"], "amount is string-encoded by default")
	assert.Equal(t, "req-1", got["request_id"])
	assert.Equal(t, "P123", got["partner_id"])
	assert.Equal(t, "charging", got["command"])
	assert.Equal(t, sign.Token("K456", "P1", "S1"), got["sign"])
}

func TestCharge_AmountAsNumber(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(newTestConfig(srv.URL, config.AmountAsNumber))
	require.NoError(t, c.Charge(context.Background(), ChargeRequest{Telco: "VTT", Pin: "p", Serial: "s", Amount: 20000, RequestID: "r"}))

	assert.Equal(t, float64(20000), got["amount"])
}

func TestCharge_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(newTestConfig(srv.URL, config.AmountAsString))
	err := c.Charge(context.Background(), ChargeRequest{Telco: "VTT", Pin: "p", Serial: "s", Amount: 1, RequestID: "r"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestCharge_TimeoutIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	cfg := newTestConfig(srv.URL, config.AmountAsString)
	cfg.ProviderTimeout = 20 * time.Millisecond
	c := New(cfg)
	err := c.Charge(context.Background(), ChargeRequest{Telco: "VTT", Pin: "p", Serial: "s", Amount: 1, RequestID: "r"})
	require.Error(t, err)
}

func TestCharge_IgnoresResponseBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json at all`))
	}))
	defer srv.Close()

	c := New(newTestConfig(srv.URL, config.AmountAsString))
	assert.NoError(t, c.Charge(context.Background(), ChargeRequest{Telco: "VTT", Pin: "p", Serial: "s", Amount: 1, RequestID: "r"}))
}
