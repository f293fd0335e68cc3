package billing

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyWebhookSignature(t *testing.T) {
	payload := []byte(`{"event":{"type":"INITIAL_PURCHASE","app_user_id":"twai_1"}}`)
	secret := "top-secret"
	valid := SignPayload(payload, secret)

	md5mac := hmac.New(md5.New, []byte(secret))
	md5mac.Write(payload)

	tests := []struct {
		name    string
		payload []byte
		header  string
		secret  string
		want    bool
	}{
		{"valid", payload, valid, secret, true},
		{"prefixed", payload, "sha256=" + valid, secret, true},
		{"upper case hex", payload, strings.ToUpper(valid), secret, true},
		{"padded header", payload, "  " + valid + "\n", secret, true},
		{"wrong digest", payload, "deadbeef", secret, false},
		{"not hex", payload, "not-hex", secret, false},
		{"empty header", payload, "", secret, false},
		{"missing secret", payload, valid, "", false},
		{"modified body", append(append([]byte{}, payload...), ' '), valid, secret, false},
		{"md5 digest", payload, hex.EncodeToString(md5mac.Sum(nil)), secret, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifyWebhookSignature(tt.payload, tt.header, tt.secret))
		})
	}
}
