// Package http exposes the local proxy that keeps the processor credential
// server-side: browsers call these endpoints instead of the processor API.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	lnpos "github.com/lightningpos/lnpos"
	"github.com/lightningpos/lnpos/gateway"
)

// AllowedCurrencies are the fiat and bitcoin currency codes the proxy will
// forward. "sats" is accepted as input and converted to BTC before the
// upstream call.
var AllowedCurrencies = []string{"USD", "EUR", "GBP", "AUD", "USDT", "BTC"}

// createInvoiceRequest is the browser-facing request body. Amount is kept
// raw so both string and numeric JSON encodings are accepted.
type createInvoiceRequest struct {
	Amount        json.RawMessage `json:"amount"`
	Currency      string          `json:"currency"`
	Description   string          `json:"description"`
	CorrelationID string          `json:"correlationId"`
}

// NewRouter builds the proxy routes over a processor client.
func NewRouter(gw *gateway.Client) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), corsMiddleware())

	router.Any("/api/create-invoice", createInvoiceHandler(gw))
	router.Any("/api/get-invoice", getInvoiceHandler(gw))

	return router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// createInvoiceHandler validates the request at the trust boundary, maps
// sats to the processor's fractional-bitcoin representation and forwards
// the creation through the gateway. Upstream failures pass through with
// their original status code.
func createInvoiceHandler(gw *gateway.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
			return
		}
		if !gw.Configured() {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "API key not configured"})
			return
		}

		var body createInvoiceRequest
		if err := c.ShouldBindJSON(&body); err != nil || len(body.Amount) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Request body must include amount and currency"})
			return
		}

		amount := strings.Trim(strings.TrimSpace(string(body.Amount)), `"`)
		currency := strings.ToUpper(body.Currency)
		if currency == "" {
			currency = "USD"
		}

		if currency == "SATS" {
			sats, err := strconv.ParseInt(amount, 10, 64)
			if err != nil || sats <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sats amount"})
				return
			}
			currency = "BTC"
			amount = lnpos.BTCAmount(sats)
		} else if value, err := decimal.NewFromString(amount); err != nil || value.Sign() <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
			return
		}

		if !currencyAllowed(currency) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Currency must be one of: " + strings.Join(AllowedCurrencies, ", ") + ", or sats",
			})
			return
		}

		inv, err := gw.Create(c.Request.Context(), gateway.InvoiceRequest{
			Currency:      currency,
			Amount:        amount,
			Description:   body.Description,
			CorrelationID: body.CorrelationID,
		})
		if err != nil {
			status, payload := upstreamFailure(err)
			c.JSON(status, payload)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"invoiceId":       inv.InvoiceID,
			"lnInvoice":       inv.PaymentRequest,
			"expirationInSec": inv.ExpirationInSec,
			"expiration":      inv.Expiration,
		})
	}
}

func getInvoiceHandler(gw *gateway.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
			return
		}
		if !gw.Configured() {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "API key not configured"})
			return
		}

		invoiceID := c.Query("id")
		if invoiceID == "" {
			invoiceID = c.Query("invoiceId")
		}
		if invoiceID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing query parameter: id"})
			return
		}

		state, err := gw.InvoiceStatus(c.Request.Context(), invoiceID)
		if err != nil {
			status, payload := upstreamFailure(err)
			c.JSON(status, payload)
			return
		}

		c.JSON(http.StatusOK, gin.H{"state": state, "invoiceId": invoiceID})
	}
}

func currencyAllowed(currency string) bool {
	for _, allowed := range AllowedCurrencies {
		if currency == allowed {
			return true
		}
	}
	return false
}

// upstreamFailure maps a gateway error to a response. Processor errors
// keep their status code and carry the processor's message and code;
// transport failures become a 500 with a generic message.
func upstreamFailure(err error) (int, gin.H) {
	var upstream *lnpos.UpstreamError
	if errors.As(err, &upstream) {
		payload := gin.H{"error": upstream.Message}
		if upstream.Code != "" {
			payload["code"] = upstream.Code
		}
		return upstream.StatusCode, payload
	}
	return http.StatusInternalServerError, gin.H{"error": "Processor request failed"}
}
