package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWebhookSchemes(t *testing.T) {
	tests := []struct {
		name    string
		scheme  string
		wantErr string
	}{
		{name: "provider default", scheme: ""},
		{name: "shared secret", scheme: "shared-secret"},
		{name: "hmac", scheme: "hmac-sha512"},
		{name: "unknown", scheme: "md5", wantErr: "DISBURSEMENT_WEBHOOK_SCHEME"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENV", "test")
			t.Setenv("DISBURSEMENT_WEBHOOK_SCHEME", tt.scheme)

			cfg, err := Load()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.scheme, cfg.Webhooks.DisbursementScheme)
		})
	}
}

func TestLoadLookupTimeout(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("PROVIDER_LOOKUP_TIMEOUT", "4s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "4s", cfg.Providers.LookupTimeout.String())
	assert.Equal(t, "30s", cfg.Providers.RetryMaxWait.String())
}
