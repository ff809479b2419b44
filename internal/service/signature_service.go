package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureHeader carries the signature of an outbound notification body,
// formatted as "sha256=<hex digest>".
const SignatureHeader = "X-MMS-Signature"

const signatureScheme = "sha256="

// HMACSignatureService signs notification bodies for the relay.
type HMACSignatureService struct{}

func NewHMACSignatureService() *HMACSignatureService {
	return &HMACSignatureService{}
}

// Sign returns the header value for payload under secret.
func (s *HMACSignatureService) Sign(secret string, payload string) string {
	return signatureScheme + hex.EncodeToString(digest(secret, payload))
}

// Verify accepts a header value produced by Sign. The scheme prefix is
// required; hex case is not significant.
func (s *HMACSignatureService) Verify(secret string, payload string, signature string) bool {
	encoded, ok := strings.CutPrefix(signature, signatureScheme)
	if !ok {
		return false
	}
	presented, err := hex.DecodeString(encoded)
	if err != nil {
		return false
	}
	return hmac.Equal(digest(secret, payload), presented)
}

func digest(secret, payload string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}
