package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const signaturePrefix = "sha256="

// SignPayload returns the hex HMAC-SHA256 of payload, the form the webhook
// signature header carries.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature compares the header against the HMAC of the raw
// body in constant time. Hex case and a "sha256=" marker are ignored; an
// empty header or secret never verifies.
func VerifyWebhookSignature(payload []byte, signatureHeader, webhookSecret string) bool {
	secret := strings.TrimSpace(webhookSecret)
	got := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(signatureHeader)), signaturePrefix)
	if got == "" || secret == "" {
		return false
	}
	gotRaw, err := hex.DecodeString(got)
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(SignPayload(payload, secret))
	return hmac.Equal(gotRaw, want)
}
