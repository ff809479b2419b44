// Package processor is the HTTP client for the NMI-style card processor
// (transact.php). Every call fails closed: timeouts, transport errors and
// non-200 answers come back as an OutcomeError result, never as a Go error.
package processor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"multi-merchant-settlement/config"
	"multi-merchant-settlement/internal/core/domain"
	"multi-merchant-settlement/internal/core/ports"
	"multi-merchant-settlement/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// Customer-facing messages for failures that never reached a processor verdict.
const (
	MsgTransportFailure   = "Payment processing error. Please try again."
	MsgServiceUnavailable = "Payment service unavailable. Please try again."
	MsgGenericFailure     = "Payment failed. Please try again or contact support."
)

const (
	responseApproved = "1"
	responseDeclined = "2"

	testCardNumber = "4111111111111111"
	maxBodyBytes   = 64 << 10
)

// curatedMessages maps responsetext fragments to stable customer messages.
// Order matters: the first matching fragment wins.
var curatedMessages = []struct {
	fragment string
	message  string
}{
	{"DECLINED", "Payment was declined. Please check your card details."},
	{"INVALID CARD NUMBER", "Invalid card number. Please check and try again."},
	{"INVALID EXPIRATION DATE", "Invalid expiration date. Please check and try again."},
	{"INSUFFICIENT FUNDS", "Insufficient funds. Please use a different card."},
	{"EXPIRED CARD", "Card has expired. Please use a different card."},
	{"INVALID CVV", "Invalid security code. Please check and try again."},
}

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements ports.ProcessorGateway.
type Client struct {
	apiURL        string
	httpClient    HTTPClient
	limiter       *rate.Limiter
	chargeTimeout time.Duration
	testTimeout   time.Duration
	siteName      string
	log           zerolog.Logger
	now           func() time.Time
}

// NewClient creates a processor client. A non-positive rate disables throttling.
func NewClient(cfg config.ProcessorConfig, httpClient HTTPClient, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		apiURL:        cfg.APIURL,
		httpClient:    httpClient,
		limiter:       rate.NewLimiter(limit, burst),
		chargeTimeout: cfg.ChargeTimeout,
		testTimeout:   cfg.TestTimeout,
		siteName:      cfg.SiteName,
		log:           logger.Component(log, "processor"),
		now:           time.Now,
	}
}

// Charge runs a sale for one item.
func (c *Client) Charge(ctx context.Context, creds domain.ProcessorCredentials, req ports.ChargeRequest) *ports.ProcessorResult {
	form := c.authForm(creds, "sale")
	form.Set("amount", req.Amount.StringFixed(2))
	form.Set("ccnumber", domain.NormalizeCardNumber(req.Card.Number))
	form.Set("ccexp", domain.ProcessorExpiry(req.Card.Expiry))
	form.Set("cvv", req.Card.CVC)
	form.Set("orderid", strconv.FormatInt(req.OrderID, 10))

	description := req.Description
	if description == "" {
		description = fmt.Sprintf("Order #%d - %s", req.OrderID, c.siteName)
	}
	form.Set("orderdescription", description)
	setAddress(form, req.Billing, "")
	if !req.Shipping.IsZero() {
		setAddress(form, req.Shipping, "shipping_")
	}
	if req.CustomerIP != "" {
		form.Set("ipaddress", req.CustomerIP)
	}

	res := c.post(ctx, c.chargeTimeout, form)
	if res.Success() {
		res.Message = "Payment successful"
	}
	return res
}

// Void cancels an unsettled charge.
func (c *Client) Void(ctx context.Context, creds domain.ProcessorCredentials, transactionID string) *ports.ProcessorResult {
	form := c.authForm(creds, "void")
	form.Set("transactionid", transactionID)

	res := c.post(ctx, c.chargeTimeout, form)
	if res.Success() {
		res.Message = "Transaction voided successfully"
	}
	return res
}

// Refund returns money for a settled charge.
func (c *Client) Refund(ctx context.Context, creds domain.ProcessorCredentials, transactionID string, amount decimal.Decimal, reason string) *ports.ProcessorResult {
	form := c.authForm(creds, "refund")
	form.Set("transactionid", transactionID)
	form.Set("amount", amount.StringFixed(2))
	form.Set("orderdescription", "Refund: "+reason)

	res := c.post(ctx, c.chargeTimeout, form)
	if res.Success() {
		res.Message = "Refund processed successfully"
	}
	return res
}

// TestCredentials authorizes $1.00 on the well-known test card. A decline
// still proves the credentials authenticate; only an error answer does not.
func (c *Client) TestCredentials(ctx context.Context, creds domain.ProcessorCredentials) bool {
	form := c.authForm(creds, "auth")
	form.Set("ccnumber", testCardNumber)
	form.Set("ccexp", fmt.Sprintf("12%02d", (c.now().Year()+2)%100))
	form.Set("cvv", "123")
	form.Set("amount", "1.00")
	setAddress(form, domain.Address{
		FirstName: "Test",
		LastName:  "User",
		Address1:  "123 Test St",
		City:      "Test City",
		State:     "TS",
		Postcode:  "12345",
		Country:   "US",
		Email:     "test@example.com",
	}, "")

	res := c.post(ctx, c.testTimeout, form)
	return res.Outcome == ports.OutcomeApproved || res.Outcome == ports.OutcomeDeclined
}

func (c *Client) authForm(creds domain.ProcessorCredentials, txType string) url.Values {
	form := url.Values{}
	form.Set("username", creds.Username)
	form.Set("password", creds.Password)
	if creds.APIKey != "" {
		form.Set("security_key", creds.APIKey)
	}
	form.Set("type", txType)
	return form
}

func setAddress(form url.Values, a domain.Address, prefix string) {
	fields := map[string]string{
		"firstname": a.FirstName,
		"lastname":  a.LastName,
		"company":   a.Company,
		"address1":  a.Address1,
		"address2":  a.Address2,
		"city":      a.City,
		"state":     a.State,
		"zip":       a.Postcode,
		"country":   a.Country,
		"phone":     a.Phone,
		"email":     a.Email,
	}
	for k, v := range fields {
		if v != "" {
			form.Set(prefix+k, v)
		}
	}
}

func (c *Client) post(ctx context.Context, timeout time.Duration, form url.Values) *ports.ProcessorResult {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	txType := form.Get("type")
	logEvent := c.log.With().
		Str("type", txType).
		Str("order_id", form.Get("orderid")).
		Logger()

	if err := c.limiter.Wait(ctx); err != nil {
		logEvent.Warn().Err(err).Msg("processor call throttled past deadline")
		return transportFailure(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		logEvent.Error().Err(err).Msg("build processor request")
		return transportFailure(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logEvent.Error().Err(err).Interface("request", logger.RedactForm(form)).Msg("processor transport failure")
		return transportFailure(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logEvent.Error().Int("status", resp.StatusCode).Interface("request", logger.RedactForm(form)).Msg("processor HTTP error")
		return &ports.ProcessorResult{
			Outcome: ports.OutcomeError,
			Message: MsgServiceUnavailable,
			RawText: fmt.Sprintf("HTTP %d", resp.StatusCode),
			Curated: true,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		logEvent.Error().Err(err).Msg("read processor response")
		return transportFailure(err)
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		logEvent.Error().Err(err).Msg("parse processor response")
		return &ports.ProcessorResult{Outcome: ports.OutcomeError, Message: MsgGenericFailure, RawText: string(body)}
	}

	res := parseResponse(values)
	logEvent.Debug().
		Interface("request", logger.RedactForm(form)).
		Str("outcome", string(res.Outcome)).
		Str("response_text", res.RawText).
		Str("transaction_id", res.TransactionID).
		Dur("latency", time.Since(start)).
		Msg("processor call")
	return res
}

func parseResponse(values url.Values) *ports.ProcessorResult {
	res := &ports.ProcessorResult{
		TransactionID: values.Get("transactionid"),
		AuthCode:      values.Get("authcode"),
		RawText:       values.Get("responsetext"),
	}

	switch values.Get("response") {
	case responseApproved:
		res.Outcome = ports.OutcomeApproved
		return res
	case responseDeclined:
		res.Outcome = ports.OutcomeDeclined
	default:
		res.Outcome = ports.OutcomeError
	}

	res.Message, res.Curated = CuratedMessage(res.RawText)
	return res
}

// CuratedMessage translates a processor responsetext into a customer-safe
// message. Unknown text passes through with curated=false.
func CuratedMessage(text string) (message string, curated bool) {
	if strings.TrimSpace(text) == "" {
		return MsgGenericFailure, true
	}
	upper := strings.ToUpper(text)
	for _, m := range curatedMessages {
		if strings.Contains(upper, m.fragment) {
			return m.message, true
		}
	}
	return text, false
}

func transportFailure(err error) *ports.ProcessorResult {
	return &ports.ProcessorResult{
		Outcome: ports.OutcomeError,
		Message: MsgTransportFailure,
		RawText: err.Error(),
	}
}
