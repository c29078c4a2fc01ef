package webhook

import (
	"crypto/hmac"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// SignatureScheme names how a provider proves a notification came from it.
type SignatureScheme string

const (
	// SchemeHMACSHA512 carries the hex HMAC-SHA512 of the raw body.
	SchemeHMACSHA512 SignatureScheme = "hmac-sha512"
	// SchemeSharedSecret carries the configured secret itself.
	SchemeSharedSecret SignatureScheme = "shared-secret"
)

// DefaultSchemes is what each provider sends out of the box.
var DefaultSchemes = map[string]SignatureScheme{
	ProviderVerification: SchemeHMACSHA512,
	ProviderDisbursement: SchemeSharedSecret,
}

// Sign returns the hex HMAC-SHA512 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s SignatureScheme) verify(secret string, body []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	switch s {
	case SchemeSharedSecret:
		return signature != "" && subtle.ConstantTimeCompare([]byte(signature), []byte(secret)) == 1
	case SchemeHMACSHA512:
		got, err := hex.DecodeString(signature)
		if err != nil {
			return false
		}
		mac := hmac.New(sha512.New, []byte(secret))
		mac.Write(body)
		return hmac.Equal(got, mac.Sum(nil))
	}
	return false
}
