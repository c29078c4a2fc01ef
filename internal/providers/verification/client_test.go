package verification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kudi/internal/providers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(providers.NewClient("verifier", srv.URL, "sk_test", 2*time.Second))
}

func TestVerifyAccount(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bank/resolve", r.URL.Path)
		assert.Equal(t, "0123456789", r.URL.Query().Get("account_number"))
		assert.Equal(t, "058", r.URL.Query().Get("bank_code"))
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"status":true,"message":"Account number resolved","data":{"account_number":"0123456789","account_name":" ADA OBI "}}`))
	})

	got, err := client.VerifyAccount(context.Background(), "0123456789", "058")
	require.NoError(t, err)
	assert.Equal(t, "ADA OBI", got.AccountName)
	assert.Equal(t, "058", got.BankCode)
}

func TestVerifyAccountErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		message   string
		transient bool
	}{
		{name: "rejected by provider", status: http.StatusUnprocessableEntity, body: `{"status":false,"message":"Could not resolve account name"}`, message: "Could not resolve account name"},
		{name: "provider down", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, message: "unexpected status 502", transient: true},
		{name: "empty name", status: http.StatusOK, body: `{"status":true,"data":{"account_name":""}}`, message: "could not verify account"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.VerifyAccount(context.Background(), "0123456789", "058")
			var pe *providers.ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.message, pe.Message)
			assert.Equal(t, tt.transient, pe.Transient)
		})
	}
}

func TestIssueVirtualAccount(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/dedicated_account", r.URL.Path)

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "user-1", body["customer"])
		assert.Equal(t, "ada@example.com", body["email"])

		_, _ = w.Write([]byte(`{"status":true,"data":{"id":4431,"account_number":"9930000001","account_name":"KUDI/ADA OBI","bank":{"name":"Wema Bank"}}}`))
	})

	got, err := client.IssueVirtualAccount(context.Background(), providers.Identity{
		UserID: "user-1", FirstName: "Ada", LastName: "Obi", Email: "ada@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "9930000001", got.AccountNumber)
	assert.Equal(t, "Wema Bank", got.BankName)
	assert.Equal(t, "4431", got.ProviderReference)
}
