package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	lnpos "github.com/lightningpos/lnpos"
)

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(nil)
	if client.baseURL != ProductionBaseURL {
		t.Errorf("Expected default base URL %s, got %s", ProductionBaseURL, client.baseURL)
	}
	if client.currency != "USD" {
		t.Errorf("Expected default currency USD, got %s", client.currency)
	}
	if client.Configured() {
		t.Error("Expected unconfigured client without an API key")
	}

	client = NewClient(&Config{BaseURL: SandboxBaseURL, APIKey: "key", Currency: "EUR"})
	if client.baseURL != SandboxBaseURL {
		t.Errorf("Expected sandbox base URL, got %s", client.baseURL)
	}
	if !client.Configured() {
		t.Error("Expected configured client")
	}
}

func TestCreateInvoiceNoAPIKey(t *testing.T) {
	client := NewClient(nil)
	_, err := client.CreateInvoice(context.Background(), lnpos.FiatMoney(decimal.NewFromInt(5)), "sale")
	if !errors.Is(err, lnpos.ErrNoAPIKey) {
		t.Fatalf("Expected ErrNoAPIKey, got %v", err)
	}
}

func TestCreateInvoiceSats(t *testing.T) {
	ctx := context.Background()

	var createBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected bearer credential, got %q", r.Header.Get("Authorization"))
		}
		switch r.URL.Path {
		case "/v1/invoices":
			if r.Method != "POST" {
				t.Errorf("Expected POST, got %s", r.Method)
			}
			if err := json.NewDecoder(r.Body).Decode(&createBody); err != nil {
				t.Fatalf("Failed to decode request: %v", err)
			}
			json.NewEncoder(w).Encode(map[string]string{"invoiceId": "inv-1"})
		case "/v1/invoices/inv-1/quote":
			if r.Method != "POST" {
				t.Errorf("Expected POST, got %s", r.Method)
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"lnInvoice":       "lnbc18450n1...",
				"expirationInSec": 120,
				"expiration":      "2026-01-02T15:04:05Z",
			})
		default:
			t.Errorf("Unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(&Config{BaseURL: server.URL, APIKey: "test-key"})
	inv, err := client.CreateInvoice(ctx, lnpos.SatsMoney(18450), "POS – Coffee")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	amount := createBody["amount"].(map[string]interface{})
	if amount["currency"] != "BTC" {
		t.Errorf("Expected sats converted to BTC, got %v", amount["currency"])
	}
	if amount["amount"] != "0.00018450" {
		t.Errorf("Expected 8-decimal bitcoin amount, got %v", amount["amount"])
	}
	if createBody["description"] != "POS – Coffee" {
		t.Errorf("Unexpected description %v", createBody["description"])
	}
	correlationID, _ := createBody["correlationId"].(string)
	if correlationID == "" || len(correlationID) > MaxCorrelationIDLen {
		t.Errorf("Expected generated correlation id of at most %d chars, got %q", MaxCorrelationIDLen, correlationID)
	}

	if inv.InvoiceID != "inv-1" {
		t.Errorf("Expected invoice id inv-1, got %s", inv.InvoiceID)
	}
	if inv.PaymentRequest != "lnbc18450n1..." {
		t.Errorf("Expected payment request from quote, got %s", inv.PaymentRequest)
	}
	if inv.ExpirationInSec != 120 {
		t.Errorf("Expected expiry 120, got %d", inv.ExpirationInSec)
	}
}

func TestCreateClampsDescription(t *testing.T) {
	var gotDescription string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/invoices" {
			var body map[string]interface{}
			json.NewDecoder(r.Body).Decode(&body)
			gotDescription, _ = body["description"].(string)
			json.NewEncoder(w).Encode(map[string]string{"invoiceId": "inv-1"})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"lnInvoice": "ln", "expirationInSec": 60})
	}))
	defer server.Close()

	client := NewClient(&Config{BaseURL: server.URL, APIKey: "k"})
	_, err := client.Create(context.Background(), InvoiceRequest{
		Currency:    "USD",
		Amount:      "5.00",
		Description: strings.Repeat("x", 300),
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(gotDescription) != MaxDescriptionLen {
		t.Errorf("Expected description clamped to %d chars, got %d", MaxDescriptionLen, len(gotDescription))
	}
}

func TestCreateQuoteFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/invoices" {
			json.NewEncoder(w).Encode(map[string]string{"invoiceId": "inv-1"})
			return
		}
		// Quote rejected: the created invoice record is abandoned.
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]string{"message": "Insufficient permissions", "code": "FORBIDDEN"},
		})
	}))
	defer server.Close()

	client := NewClient(&Config{BaseURL: server.URL, APIKey: "k"})
	_, err := client.CreateInvoice(context.Background(), lnpos.FiatMoney(decimal.NewFromInt(5)), "sale")

	var upstream *lnpos.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("Expected UpstreamError, got %v", err)
	}
	if upstream.StatusCode != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", upstream.StatusCode)
	}
	if upstream.Message != "Insufficient permissions" || upstream.Code != "FORBIDDEN" {
		t.Errorf("Expected processor envelope passthrough, got %+v", upstream)
	}
}

func TestInvoiceStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/invoices/inv-1" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"invoiceId": "inv-1", "state": "PAID"})
	}))
	defer server.Close()

	client := NewClient(&Config{BaseURL: server.URL, APIKey: "k"})
	state, err := client.InvoiceStatus(context.Background(), "inv-1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if state != lnpos.StatePaid {
		t.Errorf("Expected PAID, got %s", state)
	}
}

func TestInvoiceStatusNoAPIKey(t *testing.T) {
	client := NewClient(nil)
	state, err := client.InvoiceStatus(context.Background(), "inv-1")
	if err != nil {
		t.Fatalf("Expected graceful degradation, got error %v", err)
	}
	if state != lnpos.StateUnknown {
		t.Errorf("Expected UNKNOWN without credential, got %s", state)
	}
}

func TestFetchRate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/rates/ticker" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]map[string]string{
			{"sourceCurrency": "BTC", "targetCurrency": "EUR", "amount": "58000.1"},
			{"sourceCurrency": "BTC", "targetCurrency": "USD", "amount": "64123.45"},
		})
	}))
	defer server.Close()

	client := NewClient(&Config{BaseURL: server.URL, APIKey: "k"})
	rate, err := client.FetchRate(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !rate.Equal(decimal.RequireFromString("64123.45")) {
		t.Errorf("Expected BTC/USD pair 64123.45, got %s", rate)
	}
}

func TestFetchRateMissingPair(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]string{
			{"sourceCurrency": "BTC", "targetCurrency": "EUR", "amount": "58000"},
		})
	}))
	defer server.Close()

	client := NewClient(&Config{BaseURL: server.URL, APIKey: "k"})
	if _, err := client.FetchRate(context.Background()); err == nil {
		t.Fatal("Expected error for missing pair")
	}
}
