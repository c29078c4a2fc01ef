package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "kudi/internal/errors"
	"kudi/internal/middleware"
	"kudi/internal/models"
	"kudi/internal/services/analytics"
	"kudi/internal/services/orchestrator"
	"kudi/internal/services/revenue"
	"kudi/internal/services/webhook"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-secret"

type testEnv struct {
	app      *fiber.App
	engine   *MockEngine
	wallets  *MockWallets
	admin    *MockAdmin
	webhooks *MockWebhooks
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		app:      fiber.New(),
		engine:   new(MockEngine),
		wallets:  new(MockWallets),
		admin:    new(MockAdmin),
		webhooks: new(MockWebhooks),
	}

	auth := middleware.NewAuthMiddleware(testSecret, nil)
	transfers := NewTransferHandler(env.engine, nil)
	purchases := NewPurchaseHandler(env.engine, nil)
	wallets := NewWalletHandler(env.wallets, env.engine, nil)
	hooks := NewWebhookHandler(env.webhooks, nil)
	admin := NewAdminHandler(env.admin, env.admin, env.wallets, env.admin, time.UTC, nil)

	env.app.Post("/webhooks/:provider", hooks.Receive)
	api := env.app.Group("/api", auth.Handler)
	api.Get("/wallet", wallets.GetWallet)
	api.Post("/virtual-account", wallets.IssueVirtualAccount)
	api.Get("/transfers/quote", transfers.Quote)
	api.Post("/transfers", transfers.Transfer)
	api.Get("/accounts/resolve", transfers.ResolveAccount)
	api.Get("/purchases/quote", purchases.Quote)
	api.Post("/purchases/airtime", purchases.Airtime)
	api.Post("/purchases/bill", purchases.Bill)

	adm := api.Group("/admin", middleware.AdminOnly)
	adm.Get("/revenue/summary", admin.RevenueSummary)
	adm.Post("/revenue/collect", admin.CollectRevenue)
	adm.Get("/revenue/collections", admin.Collections)
	adm.Get("/loyalty", admin.LoyaltyAnalytics)
	adm.Get("/wallets/:userID/reconcile", admin.ReconcileWallet)
	adm.Patch("/wallets/:userID/status", admin.SetWalletStatus)
	adm.Post("/webhooks/replay", admin.ReplayWebhooks)
	return env
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func (e *testEnv) call(t *testing.T, method, path, body, role string, headers ...string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		token, err := middleware.IssueToken(testSecret, "user-1", role, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := e.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestTransfer(t *testing.T) {
	env := newTestEnv(t)
	env.engine.On("Transfer", mock.Anything, mock.MatchedBy(func(req orchestrator.TransferRequest) bool {
		return req.UserID == "user-1" &&
			req.AccountNumber == "0123456789" &&
			req.BankCode == "058" &&
			req.Amount.Equal(decimal.NewFromInt(2000))
	})).Return(&orchestrator.TransferResult{
		Reference: "TRF-01",
		Amount:    decimal.NewFromInt(2000),
		Fee:       decimal.NewFromInt(50),
		Total:     decimal.NewFromInt(2050),
		Status:    models.StatusCompleted,
	}, nil).Once()

	status, body := env.call(t, http.MethodPost, "/api/transfers",
		`{"accountNumber":"0123456789","bankCode":"058","amount":2000,"narration":"rent"}`, models.RoleUser)
	require.Equal(t, fiber.StatusOK, status)
	assert.True(t, body.Success)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Equal(t, "TRF-01", data["reference"])
	assert.Equal(t, "50", data["fee"])
	env.engine.AssertExpectations(t)
}

func TestTransferRejectsInvalidBody(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.call(t, http.MethodPost, "/api/transfers",
		`{"accountNumber":"123","bankCode":"058","amount":2000}`, models.RoleUser)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.False(t, body.Success)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Contains(t, body.Message, "accountNumber must be a 10-digit account number")

	status, _ = env.call(t, http.MethodPost, "/api/transfers", `{not json`, models.RoleUser)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = env.call(t, http.MethodPost, "/api/transfers", `{}`, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	env.engine.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything)
}

func TestTransferErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{name: "insufficient balance", err: apperrors.ErrInsufficientBalance.WithMessage("insufficient balance: 2050.00 required"), wantStatus: http.StatusPaymentRequired, wantMsg: "2050.00 required"},
		{name: "verification failed", err: apperrors.ErrVerificationFailed.WithMessage("account not found"), wantStatus: http.StatusBadGateway, wantMsg: "account not found"},
		{name: "out of range", err: apperrors.ErrOutOfRange, wantStatus: http.StatusBadRequest},
		{name: "unexpected error hides detail", err: errors.New("pq: connection reset"), wantStatus: http.StatusInternalServerError, wantMsg: apperrors.ErrInternal.Message},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.engine.On("Transfer", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			status, body := env.call(t, http.MethodPost, "/api/transfers",
				`{"accountNumber":"0123456789","bankCode":"058","amount":"2000.00"}`, models.RoleUser)
			assert.Equal(t, tt.wantStatus, status)
			assert.False(t, body.Success)
			if tt.wantMsg != "" {
				assert.Contains(t, body.Message, tt.wantMsg)
			}
			assert.NotContains(t, body.Message, "pq:")
		})
	}
}

func TestPurchaseAirtimePending(t *testing.T) {
	env := newTestEnv(t)
	env.engine.On("Purchase", mock.Anything, mock.MatchedBy(func(req orchestrator.PurchaseRequest) bool {
		return req.UserID == "user-1" && req.Service == models.ServiceAirtime && req.Network == "mtn"
	})).Return(&orchestrator.PurchaseResult{
		Reference:             "AIR-01",
		Service:               models.ServiceAirtime,
		Status:                models.StatusPending,
		DailyPurchaseCount:    3,
		IsEligibleForCashback: true,
		CashbackAmount:        decimal.NewFromInt(20),
	}, nil).Once()

	status, body := env.call(t, http.MethodPost, "/api/purchases/airtime",
		`{"phone":"08031234567","network":"mtn","amount":1000}`, models.RoleUser)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "airtime purchase is processing", body.Message)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Equal(t, true, data["isEligibleForCashback"])
	assert.Equal(t, "20", data["cashbackAmount"])
	assert.EqualValues(t, 3, data["dailyPurchaseCount"])
}

func TestPurchaseQuote(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.call(t, http.MethodGet, "/api/purchases/quote?service=cable&amount=100", "", models.RoleUser)
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, _ = env.call(t, http.MethodGet, "/api/purchases/quote?service=bill&amount=abc", "", models.RoleUser)
	assert.Equal(t, fiber.StatusBadRequest, status)

	env.engine.On("QuotePurchase", mock.Anything, "user-1", models.ServiceBill, mock.MatchedBy(func(a decimal.Decimal) bool {
		return a.Equal(decimal.NewFromInt(5000))
	})).Return(&orchestrator.PurchaseQuote{Service: models.ServiceBill, Fee: decimal.NewFromInt(100)}, nil).Once()
	status, body := env.call(t, http.MethodGet, "/api/purchases/quote?service=bill&amount=5000", "", models.RoleUser)
	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, body.Success)
}

func TestGetWalletCreatesOnFirstAccess(t *testing.T) {
	env := newTestEnv(t)
	env.wallets.On("GetWallet", mock.Anything, "user-1").Return(nil, apperrors.ErrWalletNotFound).Once()
	env.wallets.On("CreateWallet", mock.Anything, "user-1").
		Return(&models.Wallet{UserID: "user-1", Currency: "NGN", IsActive: true}, nil).Once()

	status, body := env.call(t, http.MethodGet, "/api/wallet", "", models.RoleUser)
	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, body.Success)
	env.wallets.AssertExpectations(t)
}

func TestWebhookReceive(t *testing.T) {
	payload := `{"eventType":"transfer_settled","eventData":{"reference":"TRF-1","status":"successful"}}`
	tests := []struct {
		name       string
		provider   string
		ingestErr  error
		wantStatus int
		wantOK     bool
	}{
		{name: "accepted", provider: "disbursement", wantStatus: fiber.StatusOK, wantOK: true},
		{name: "unknown provider", provider: "stripe", wantStatus: fiber.StatusNotFound},
		{name: "bad signature", provider: "disbursement", ingestErr: webhook.ErrInvalidSignature, wantStatus: fiber.StatusUnauthorized},
		{name: "malformed is acknowledged", provider: "disbursement", ingestErr: webhook.ErrMalformedPayload, wantStatus: fiber.StatusOK},
		{name: "storage failure asks for redelivery", provider: "disbursement", ingestErr: errors.New("db down"), wantStatus: fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			if tt.provider == "disbursement" {
				var res *webhook.IngestResult
				if tt.ingestErr == nil {
					res = &webhook.IngestResult{EventID: "evt-1", EventType: "transfer_settled", Status: models.WebhookProcessed}
				}
				env.webhooks.On("Ingest", mock.Anything, "disbursement", "sig-123", []byte(payload)).
					Return(res, tt.ingestErr).Once()
			}

			status, body := env.call(t, http.MethodPost, "/webhooks/"+tt.provider, payload, "", "verif-hash", "sig-123")
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantOK, body.Success)
			env.webhooks.AssertExpectations(t)
		})
	}
}

func TestAdminRequiresAdminRole(t *testing.T) {
	env := newTestEnv(t)
	status, _ := env.call(t, http.MethodGet, "/api/admin/revenue/summary", "", models.RoleUser)
	assert.Equal(t, fiber.StatusForbidden, status)
	env.admin.AssertNotCalled(t, "Summary", mock.Anything)
}

func TestCollectRevenue(t *testing.T) {
	env := newTestEnv(t)
	result := &revenue.Collection{Reference: "COL-1", CollectedAmount: decimal.NewFromInt(500)}

	env.admin.On("Collect", mock.Anything, mock.MatchedBy(func(a *decimal.Decimal) bool { return a == nil })).
		Return(result, nil).Once()
	status, body := env.call(t, http.MethodPost, "/api/admin/revenue/collect", "", models.RoleAdmin)
	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, body.Success)

	env.admin.On("Collect", mock.Anything, mock.MatchedBy(func(a *decimal.Decimal) bool {
		return a != nil && a.Equal(decimal.NewFromInt(300))
	})).Return(nil, apperrors.ErrNothingToCollect).Once()
	status, body = env.call(t, http.MethodPost, "/api/admin/revenue/collect", `{"amount":300}`, models.RoleAdmin)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "NOTHING_TO_COLLECT", body.Code)

	status, _ = env.call(t, http.MethodPost, "/api/admin/revenue/collect", `{"amount":-1}`, models.RoleAdmin)
	assert.Equal(t, fiber.StatusBadRequest, status)

	env.admin.AssertExpectations(t)
}

func TestLoyaltyAnalyticsDates(t *testing.T) {
	env := newTestEnv(t)
	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	env.admin.On("LoyaltyAnalytics", mock.Anything, from, to).
		Return(&analytics.LoyaltyReport{From: from, To: to}, nil).Once()

	status, _ := env.call(t, http.MethodGet, "/api/admin/loyalty?from=2026-05-01&to=2026-05-03", "", models.RoleAdmin)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = env.call(t, http.MethodGet, "/api/admin/loyalty?from=May", "", models.RoleAdmin)
	assert.Equal(t, fiber.StatusBadRequest, status)
	env.admin.AssertExpectations(t)
}

func TestReplayWebhooks(t *testing.T) {
	env := newTestEnv(t)
	env.admin.On("ReplayPending", mock.Anything).Return(4, nil).Once()

	status, body := env.call(t, http.MethodPost, "/api/admin/webhooks/replay", "", models.RoleAdmin)
	require.Equal(t, fiber.StatusOK, status)
	var data map[string]int
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Equal(t, 4, data["replayed"])
}

func TestSetWalletStatus(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		active     bool
		err        error
		wantStatus int
		wantMsg    string
	}{
		{name: "freeze", body: `{"active":false}`, active: false, wantStatus: fiber.StatusOK, wantMsg: "wallet frozen"},
		{name: "reopen", body: `{"active":true}`, active: true, wantStatus: fiber.StatusOK, wantMsg: "wallet reopened"},
		{name: "unknown wallet", body: `{"active":false}`, active: false, err: apperrors.ErrWalletNotFound, wantStatus: fiber.StatusNotFound},
		{name: "missing flag", body: `{}`, wantStatus: fiber.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			if tt.body != `{}` {
				var w *models.Wallet
				if tt.err == nil {
					w = &models.Wallet{UserID: "u9", IsActive: tt.active}
				}
				env.wallets.On("SetActive", mock.Anything, "u9", tt.active).Return(w, tt.err).Once()
			}

			status, body := env.call(t, http.MethodPatch, "/api/admin/wallets/u9/status", tt.body, models.RoleAdmin)
			assert.Equal(t, tt.wantStatus, status)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, body.Message)
			}
			env.wallets.AssertExpectations(t)
		})
	}
}
