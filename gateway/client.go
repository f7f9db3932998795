package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	lnpos "github.com/lightningpos/lnpos"
)

// ============================================================================
// Processor HTTP Client
// ============================================================================

// Client talks to the remote payment processor: it creates invoices,
// requests quotes (the payable Lightning request plus its expiry), polls
// invoice status and fetches the exchange-rate ticker.
type Client struct {
	baseURL    string
	apiKey     string
	currency   string
	httpClient *http.Client
}

// Config configures the processor client.
type Config struct {
	// BaseURL is the processor API base. Defaults to ProductionBaseURL.
	BaseURL string

	// APIKey is the bearer credential. Operations that create invoices
	// fail without it; status polling degrades to StateUnknown instead.
	APIKey string

	// Currency is the fiat currency for invoices and the rate ticker
	// (optional, defaults to USD).
	Currency string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient *http.Client

	// Timeout for requests (optional, defaults to 30s). Ignored when
	// HTTPClient is set.
	Timeout time.Duration
}

// ProductionBaseURL is the live processor API.
const ProductionBaseURL = "https://api.strike.me"

// SandboxBaseURL is the processor's sandbox environment.
const SandboxBaseURL = "https://api.dev.strike.me"

// MaxDescriptionLen is the processor's invoice description limit.
const MaxDescriptionLen = 200

// MaxCorrelationIDLen is the processor's correlation id limit.
const MaxCorrelationIDLen = 40

// DefaultDescription is used when a sale has no description of its own.
const DefaultDescription = "POS sale"

// NewClient creates a processor client.
func NewClient(config *Config) *Client {
	if config == nil {
		config = &Config{}
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = ProductionBaseURL
	}

	currency := config.Currency
	if currency == "" {
		currency = string(lnpos.Fiat)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{
			Timeout: timeout,
		}
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     config.APIKey,
		currency:   currency,
		httpClient: httpClient,
	}
}

// Configured reports whether a processor credential is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// ============================================================================
// Wire Types
// ============================================================================

// InvoiceRequest is the processor-facing invoice creation request. Amount is
// a decimal string; Currency is the processor's currency code (sats are
// converted to "BTC" before reaching this type).
type InvoiceRequest struct {
	Currency      string
	Amount        string
	Description   string
	CorrelationID string
}

type wireAmount struct {
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

type createInvoiceBody struct {
	Amount        wireAmount `json:"amount"`
	Description   string     `json:"description"`
	CorrelationID string     `json:"correlationId,omitempty"`
}

type invoiceResponse struct {
	InvoiceID string `json:"invoiceId"`
	State     string `json:"state"`
}

type quoteResponse struct {
	LnInvoice       string    `json:"lnInvoice"`
	ExpirationInSec int       `json:"expirationInSec"`
	Expiration      time.Time `json:"expiration"`
}

type errorEnvelope struct {
	Data struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"data"`
}

// ============================================================================
// Invoice Creation
// ============================================================================

// CreateInvoice requests an invoice for a settlement amount and returns the
// payable result. Sats amounts are converted to the processor's fractional
// bitcoin representation; the description is clamped to the processor limit
// and a generated correlation token is attached.
func (c *Client) CreateInvoice(ctx context.Context, amount lnpos.Money, description string) (*lnpos.Invoice, error) {
	req := InvoiceRequest{
		Currency:      c.currency,
		Amount:        amount.Fiat.String(),
		Description:   description,
		CorrelationID: uuid.NewString(),
	}
	if amount.Kind == lnpos.Sats {
		req.Currency = "BTC"
		req.Amount = lnpos.BTCAmount(amount.Sats)
	}
	return c.Create(ctx, req)
}

// Create performs the two sequential processor calls behind one invoice:
// (1) create the invoice record, (2) request its quote. Both must succeed.
// If the quote call fails, the record created in step 1 is abandoned on the
// processor side; it expires there on its own.
func (c *Client) Create(ctx context.Context, req InvoiceRequest) (*lnpos.Invoice, error) {
	if c.apiKey == "" {
		return nil, lnpos.ErrNoAPIKey
	}

	description := req.Description
	if description == "" {
		description = DefaultDescription
	}
	if len(description) > MaxDescriptionLen {
		description = description[:MaxDescriptionLen]
	}
	correlationID := req.CorrelationID
	if len(correlationID) > MaxCorrelationIDLen {
		correlationID = correlationID[:MaxCorrelationIDLen]
	}

	body, err := json.Marshal(createInvoiceBody{
		Amount:        wireAmount{Currency: req.Currency, Amount: req.Amount},
		Description:   description,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invoice request: %w", err)
	}

	var created invoiceResponse
	if err := c.do(ctx, "POST", "/v1/invoices", body, &created); err != nil {
		return nil, err
	}
	if created.InvoiceID == "" {
		return nil, lnpos.NewUpstreamError(http.StatusOK, "processor returned no invoice id", "")
	}

	var quote quoteResponse
	if err := c.do(ctx, "POST", "/v1/invoices/"+url.PathEscape(created.InvoiceID)+"/quote", nil, &quote); err != nil {
		return nil, err
	}

	return &lnpos.Invoice{
		InvoiceID:       created.InvoiceID,
		PaymentRequest:  quote.LnInvoice,
		ExpirationInSec: quote.ExpirationInSec,
		Expiration:      quote.Expiration,
	}, nil
}

// ============================================================================
// Status and Rates
// ============================================================================

// InvoiceStatus polls the processor for an invoice's state. Without a
// configured credential it returns StateUnknown instead of an error so that
// polling degrades gracefully.
func (c *Client) InvoiceStatus(ctx context.Context, invoiceID string) (lnpos.InvoiceState, error) {
	if c.apiKey == "" {
		return lnpos.StateUnknown, nil
	}

	var inv invoiceResponse
	if err := c.do(ctx, "GET", "/v1/invoices/"+url.PathEscape(invoiceID), nil, &inv); err != nil {
		return lnpos.StateUnknown, err
	}
	if inv.State == "" {
		return lnpos.StateUnknown, nil
	}
	return lnpos.InvoiceState(inv.State), nil
}

type tickerPair struct {
	SourceCurrency string `json:"sourceCurrency"`
	TargetCurrency string `json:"targetCurrency"`
	Amount         string `json:"amount"`
}

// FetchRate reads the processor ticker and returns the BTC to fiat rate for
// the client's configured currency. Implements lnpos.RateSource.
func (c *Client) FetchRate(ctx context.Context) (decimal.Decimal, error) {
	if c.apiKey == "" {
		return decimal.Zero, lnpos.ErrNoAPIKey
	}

	var pairs []tickerPair
	if err := c.do(ctx, "GET", "/v1/rates/ticker", nil, &pairs); err != nil {
		return decimal.Zero, err
	}
	for _, pair := range pairs {
		if pair.SourceCurrency == "BTC" && pair.TargetCurrency == c.currency {
			rate, err := decimal.NewFromString(pair.Amount)
			if err != nil {
				return decimal.Zero, fmt.Errorf("invalid ticker amount %q: %w", pair.Amount, err)
			}
			return rate, nil
		}
	}
	return decimal.Zero, fmt.Errorf("ticker has no BTC/%s pair", c.currency)
}

// ============================================================================
// Internal HTTP
// ============================================================================

func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("processor request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope errorEnvelope
		message := resp.Status
		code := ""
		if json.Unmarshal(responseBody, &envelope) == nil && envelope.Data.Message != "" {
			message = envelope.Data.Message
			code = envelope.Data.Code
		}
		return lnpos.NewUpstreamError(resp.StatusCode, message, code)
	}

	if out != nil {
		if err := json.Unmarshal(responseBody, out); err != nil {
			return fmt.Errorf("failed to decode processor response: %w", err)
		}
	}
	return nil
}
