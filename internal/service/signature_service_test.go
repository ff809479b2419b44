package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHMACSignatureService_SignAndVerify(t *testing.T) {
	svc := NewHMACSignatureService()
	payload := `{"event":"sale.synced","order_id":1001}`

	signature := svc.Sign("notify-secret", payload)

	assert.Regexp(t, `^sha256=[0-9a-f]{64}$`, signature)
	assert.True(t, svc.Verify("notify-secret", payload, signature))
	assert.True(t, svc.Verify("notify-secret", payload, "sha256="+strings.ToUpper(strings.TrimPrefix(signature, "sha256="))))
}

func TestHMACSignatureService_VerifyFailures(t *testing.T) {
	svc := NewHMACSignatureService()
	signature := svc.Sign("correct-key", "original payload")

	tests := []struct {
		name      string
		secret    string
		payload   string
		signature string
	}{
		{"wrong key", "wrong-key", "original payload", signature},
		{"tampered payload", "correct-key", "tampered payload", signature},
		{"not hex", "correct-key", "original payload", "sha256=invalidsignature"},
		{"missing scheme", "correct-key", "original payload", strings.TrimPrefix(signature, "sha256=")},
		{"other scheme", "correct-key", "original payload", "sha1=" + strings.TrimPrefix(signature, "sha256=")},
		{"truncated digest", "correct-key", "original payload", signature[:len(signature)-2]},
		{"empty", "correct-key", "original payload", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, svc.Verify(tt.secret, tt.payload, tt.signature))
		})
	}
}

func TestHMACSignatureService_DeterministicSign(t *testing.T) {
	svc := NewHMACSignatureService()
	assert.Equal(t, svc.Sign("key", "data"), svc.Sign("key", "data"))
	assert.NotEqual(t, svc.Sign("key", "data"), svc.Sign("other", "data"))
}
