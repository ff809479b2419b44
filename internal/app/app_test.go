package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"multi-merchant-settlement/config"
	"multi-merchant-settlement/internal/core/domain"
	"multi-merchant-settlement/internal/service"
	"multi-merchant-settlement/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAESKey       = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	testWebhookToken = "whk_abcdefghijklmnopqrstuvwxyz012345"
	testAdminPass    = "correct horse battery staple"
)

// fakeProcessor approves everything except sales for usernames in declines.
type fakeProcessor struct {
	mu       sync.Mutex
	declines map[string]bool
	calls    map[string]int
	next     int
}

func (f *fakeProcessor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	txType := r.PostForm.Get("type")
	f.calls[txType]++

	if txType == "sale" && f.declines[r.PostForm.Get("username")] {
		_, _ = io.WriteString(w, "response=2&responsetext=DECLINE&transactionid=&authcode=")
		return
	}
	f.next++
	_, _ = fmt.Fprintf(w, "response=1&responsetext=SUCCESS&authcode=123456&transactionid=TX%d", f.next)
}

func (f *fakeProcessor) count(txType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[txType]
}

type testApp struct {
	*App
	server    *httptest.Server
	processor *fakeProcessor
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	fake := &fakeProcessor{declines: map[string]bool{}, calls: map[string]int{}}
	procSrv := httptest.NewServer(fake)
	t.Cleanup(procSrv.Close)

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	hash, err := service.NewArgon2HashService().Hash(testAdminPass)
	require.NoError(t, err)

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Server.Mode = "test"
	cfg.Storage.Driver = "memory"
	cfg.Ledger.Dir = t.TempDir()
	cfg.AES.Key = testAESKey
	cfg.Webhook.Token = testWebhookToken
	cfg.Processor.APIURL = procSrv.URL
	cfg.Processor.RatePerSecond = 0
	cfg.Admin.PasswordHash = hash
	cfg.Admin.JWTSecret = "test-jwt-secret-key-32bytes!!"
	require.NoError(t, cfg.Validate())

	log := logger.New("error", false)
	a, err := New(context.Background(), cfg, log, Options{Redis: rdb, Version: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	srv := httptest.NewServer(a.Router)
	t.Cleanup(srv.Close)

	return &testApp{App: a, server: srv, processor: fake}
}

type apiResponse struct {
	status int
	Data   json.RawMessage `json:"data"`
	Code   string          `json:"error_code"`
	Msg    string          `json:"message"`
}

func (a *testApp) do(t *testing.T, method, path, bearer string, body interface{}) apiResponse {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out apiResponse
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	out.status = resp.StatusCode
	return out
}

func (r apiResponse) decode(t *testing.T, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Data, v))
}

func (a *testApp) login(t *testing.T) string {
	t.Helper()
	resp := a.do(t, http.MethodPost, "/api/v1/admin/login", "", map[string]string{
		"username": "admin",
		"password": testAdminPass,
	})
	require.Equal(t, http.StatusOK, resp.status, resp.Msg)

	var body struct {
		Token string `json:"token"`
	}
	resp.decode(t, &body)
	require.NotEmpty(t, body.Token)
	return body.Token
}

// seedMarketplace registers two merchants owning one product each and puts
// an order for both products in the shop.
func (a *testApp) seedMarketplace(t *testing.T, token string) {
	t.Helper()

	for _, m := range []map[string]interface{}{
		{"user_id": 7, "site_id": 3, "username": "merchant_a", "password": "pw-a", "api_key": "sk_a"},
		{"user_id": 8, "site_id": 4, "username": "merchant_b", "password": "pw-b"},
	} {
		resp := a.do(t, http.MethodPut, "/api/v1/admin/credentials", token, m)
		require.Equal(t, http.StatusOK, resp.status, resp.Msg)
	}

	for _, o := range []map[string]interface{}{
		{"product_id": 55, "listing_site_id": 1, "owner_user_id": 7, "owner_site_id": 3, "commission_rate": "10", "product_name": "Mug"},
		{"product_id": 56, "listing_site_id": 1, "owner_user_id": 8, "owner_site_id": 4, "commission_rate": "5"},
	} {
		resp := a.do(t, http.MethodPut, "/api/v1/admin/ownership", token, o)
		require.Equal(t, http.StatusOK, resp.status, resp.Msg)
	}

	a.Shop.PutOrder(domain.Order{
		ID:            1001,
		ListingSiteID: 1,
		CustomerID:    42,
		Currency:      "USD",
		Total:         decimal.RequireFromString("42.00"),
		Billing:       domain.Address{FirstName: "Ada", LastName: "Lovelace", City: "London", Country: "GB"},
		Items: []domain.LineItem{
			{ItemID: 1, ProductID: 55, Name: "Mug", Quantity: 1, Total: decimal.RequireFromString("30.00")},
			{ItemID: 2, ProductID: 56, Name: "Poster", Quantity: 1, Total: decimal.RequireFromString("12.00")},
		},
	})
}

var testCard = map[string]string{
	"card_number": "4111 1111 1111 1111",
	"card_expiry": "12/39",
	"card_cvc":    "123",
}

func TestApp_HealthCheck(t *testing.T) {
	a := newTestApp(t)

	resp, err := http.Get(a.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	deps := body["dependencies"].(map[string]interface{})
	assert.Contains(t, deps, "ledger")
	assert.Contains(t, deps, "redis")
}

func TestApp_SettleSyncAndRefund(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	token := a.login(t)
	a.seedMarketplace(t, token)

	// Cart check before the card is entered
	resp := a.do(t, http.MethodPost, "/api/v1/checkout/validate", "", map[string]interface{}{
		"listing_site_id": 1,
		"items": []map[string]interface{}{
			{"item_id": 1, "product_id": 55, "name": "Mug"},
			{"item_id": 2, "product_id": 56, "name": "Poster"},
		},
	})
	require.Equal(t, http.StatusOK, resp.status)
	var check struct {
		Valid bool `json:"valid"`
	}
	resp.decode(t, &check)
	assert.True(t, check.Valid)

	// Settle: one charge per merchant
	resp = a.do(t, http.MethodPost, "/api/v1/checkout/1001/settle", "", testCard)
	require.Equal(t, http.StatusOK, resp.status, resp.Msg)
	var settled struct {
		Result         string   `json:"result"`
		TransactionIDs []string `json:"transaction_ids"`
		TotalCharged   string   `json:"total_charged"`
		RedirectURL    string   `json:"redirect_url"`
	}
	resp.decode(t, &settled)
	assert.Equal(t, "success", settled.Result)
	assert.Len(t, settled.TransactionIDs, 2)
	assert.Equal(t, "42.00", settled.TotalCharged)
	assert.Equal(t, "/checkout/order-received/1001", settled.RedirectURL)
	assert.Equal(t, 2, a.processor.count("sale"))

	paidWith, ok := a.Shop.PaidWith(1001)
	require.True(t, ok)
	assert.Contains(t, paidWith, settled.TransactionIDs[0])

	// Completed sales were replicated into each merchant's ledger, whose
	// catalogue received the product at assignment time
	for ref, productID := range map[domain.MerchantRef]int64{{UserID: 7, SiteID: 3}: 55, {UserID: 8, SiteID: 4}: 56} {
		ledger, err := a.Ledgers.Ledger(ctx, ref)
		require.NoError(t, err)
		n, err := ledger.CountOrders(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "ledger %s", ref)
		has, err := ledger.HasProduct(ctx, productID)
		require.NoError(t, err)
		assert.True(t, has, "ledger %s", ref)
	}

	// A resubmitted checkout never charges twice
	resp = a.do(t, http.MethodPost, "/api/v1/checkout/1001/settle", "", testCard)
	assert.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, 2, a.processor.count("sale"))

	// Status readback sees both sales synced
	resp = a.do(t, http.MethodGet, "/webhook/status", testWebhookToken, nil)
	require.Equal(t, http.StatusOK, resp.status)
	var status struct {
		Status         string  `json:"status"`
		SyncPercentage float64 `json:"sync_percentage"`
		Stats          struct {
			CompletedSales int64 `json:"completed_sales"`
			SyncedSales    int64 `json:"synced_sales"`
		} `json:"stats"`
	}
	resp.decode(t, &status)
	assert.Equal(t, "active", status.Status)
	assert.Equal(t, int64(2), status.Stats.CompletedSales)
	assert.Equal(t, int64(2), status.Stats.SyncedSales)
	assert.InDelta(t, 100.0, status.SyncPercentage, 0.001)

	// Partial refund split across both merchants
	resp = a.do(t, http.MethodPost, "/api/v1/admin/orders/1001/refund", token, map[string]string{
		"amount": "21.00",
		"reason": "damaged",
	})
	require.Equal(t, http.StatusOK, resp.status, resp.Msg)
	var refunded struct {
		Refunded decimal.Decimal `json:"refunded"`
		Refunds  []struct {
			Amount decimal.Decimal `json:"amount"`
		} `json:"refunds"`
	}
	resp.decode(t, &refunded)
	assert.True(t, refunded.Refunded.Equal(decimal.RequireFromString("21")), refunded.Refunded.String())
	require.Len(t, refunded.Refunds, 2)
	assert.Equal(t, 2, a.processor.count("refund"))
}

func TestApp_DeclineVoidsEarlierCharges(t *testing.T) {
	a := newTestApp(t)
	token := a.login(t)
	a.seedMarketplace(t, token)
	a.processor.declines["merchant_b"] = true

	resp := a.do(t, http.MethodPost, "/api/v1/checkout/1001/settle", "", testCard)

	assert.Equal(t, http.StatusPaymentRequired, resp.status)
	assert.Equal(t, "SET_001", resp.Code)
	assert.Equal(t, 1, a.processor.count("void"))

	_, paid := a.Shop.PaidWith(1001)
	assert.False(t, paid)

	stats, err := a.Recon.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.CompletedSales)
}

func TestApp_UnownedProductRejectedBeforeCharging(t *testing.T) {
	a := newTestApp(t)
	token := a.login(t)
	a.seedMarketplace(t, token)

	a.Shop.PutOrder(domain.Order{
		ID:            1002,
		ListingSiteID: 1,
		Items: []domain.LineItem{
			{ItemID: 1, ProductID: 99, Name: "Orphan", Quantity: 1, Total: decimal.RequireFromString("5.00")},
		},
	})

	resp := a.do(t, http.MethodPost, "/api/v1/checkout/1002/settle", "", testCard)

	assert.Equal(t, http.StatusUnprocessableEntity, resp.status)
	assert.Equal(t, "CFG_001", resp.Code)
	assert.Contains(t, resp.Msg, "Orphan")
	assert.Equal(t, 0, a.processor.count("sale"))
}

func TestApp_ExternalSaleWebhook(t *testing.T) {
	a := newTestApp(t)
	token := a.login(t)
	a.seedMarketplace(t, token)

	sale := map[string]interface{}{
		"order_id":         1001,
		"transaction_id":   "EXT-1",
		"amount":           "30.00",
		"merchant_user_id": 7,
		"merchant_site_id": 3,
		"product_id":       55,
	}

	resp := a.do(t, http.MethodPost, "/webhook/sale", testWebhookToken, sale)
	require.Equal(t, http.StatusCreated, resp.status, resp.Msg)

	// Replays are absorbed
	resp = a.do(t, http.MethodPost, "/webhook/sale", testWebhookToken, sale)
	assert.Equal(t, http.StatusOK, resp.status)

	ledger, err := a.Ledgers.Ledger(context.Background(), domain.MerchantRef{UserID: 7, SiteID: 3})
	require.NoError(t, err)
	n, err := ledger.CountOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Wrong token
	resp = a.do(t, http.MethodPost, "/webhook/sale", "whk_wrong", sale)
	assert.Equal(t, http.StatusUnauthorized, resp.status)
	assert.Equal(t, "AUTH_002", resp.Code)
}

func TestApp_LegacyWebhookQueryKey(t *testing.T) {
	a := newTestApp(t)

	form := url.Values{"order_id": {"1001"}, "refund_amount": {"5.00"}}
	resp, err := http.PostForm(a.server.URL+"/webhook/legacy?type=refund&key="+testWebhookToken, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// The query key is only honoured on the legacy route
	r := a.do(t, http.MethodGet, "/webhook/status?key="+testWebhookToken, "", nil)
	assert.Equal(t, http.StatusUnauthorized, r.status)
}

func TestApp_AdminRoutesRequireToken(t *testing.T) {
	a := newTestApp(t)

	resp := a.do(t, http.MethodGet, "/api/v1/admin/credentials", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.status)
	assert.Equal(t, "AUTH_003", resp.Code)

	resp = a.do(t, http.MethodGet, "/api/v1/admin/stats", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.status)

	resp = a.do(t, http.MethodPost, "/api/v1/admin/login", "", map[string]string{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.status)
	assert.Equal(t, "AUTH_001", resp.Code)
}

func TestApp_CredentialsNeverLeakSecrets(t *testing.T) {
	a := newTestApp(t)
	token := a.login(t)
	a.seedMarketplace(t, token)

	resp := a.do(t, http.MethodGet, "/api/v1/admin/credentials", token, nil)
	require.Equal(t, http.StatusOK, resp.status)

	var creds []map[string]interface{}
	resp.decode(t, &creds)
	require.Len(t, creds, 2)
	for _, c := range creds {
		assert.NotContains(t, c, "password")
		assert.NotContains(t, c, "api_key")
	}
	assert.NotContains(t, string(resp.Data), "pw-a")
	assert.NotContains(t, string(resp.Data), "sk_a")
}
