package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/cardrelay/cardrelay/internal/config"
	"github.com/cardrelay/cardrelay/internal/sign"
)

// ChargeRequest is one card forwarded for charging.
type ChargeRequest struct {
	Telco     string
	Pin       string
	Serial    string
	Amount    int64
	RequestID string
}

// Client posts charging requests to the third-party provider. The
// provider's synchronous response body is informational only; the
// authoritative verdict arrives later on the callback endpoint.
type Client struct {
	BaseURL        string
	PartnerID      string
	PartnerKey     string
	AmountAsString bool
	HTTP           *http.Client
}

func New(cfg config.Config) *Client {
	return &Client{
		BaseURL:        cfg.ProviderURL,
		PartnerID:      cfg.PartnerID,
		PartnerKey:     cfg.PartnerKey,
		AmountAsString: cfg.AmountFormat == config.AmountAsString,
		HTTP:           &http.Client{Timeout: cfg.ProviderTimeout},
	}
}

func (c *Client) Charge(ctx context.Context, r ChargeRequest) error {
	payload := map[string]any{
		"telco":      r.Telco,
		"code":       r.Pin,
		"serial":     r.Serial,
		"request_id": r.RequestID,
		"partner_id": c.PartnerID,
		"sign":       sign.Token(c.PartnerKey, r.Pin, r.Serial),
		"command":    "charging",
	}
	if c.AmountAsString {
		payload["amount"] = strconv.FormatInt(r.Amount, 10)
	} else {
		payload["amount"] = r.Amount
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("provider charge: %w", err)
	}
	defer res.Body.Close()
	// drain so the connection can be reused; the body carries no verdict
	_, _ = io.Copy(io.Discard, res.Body)
	if res.StatusCode >= 300 {
		return fmt.Errorf("provider charge http %d", res.StatusCode)
	}
	return nil
}
