package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const signaturePrefix = "v1="

// VerifySignature reports whether any comma-separated v1 candidate in the
// signature header matches the HMAC-SHA256 of the raw request body under the
// given secret. Verification must run against the untouched raw bytes; any
// re-serialization upstream invalidates the signature. Fails closed on an
// absent header or empty secret.
func VerifySignature(rawBody []byte, header, secret string) bool {
	if header == "" || secret == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	expected := signaturePrefix + hex.EncodeToString(mac.Sum(nil))

	for _, candidate := range strings.Split(header, ",") {
		if strings.TrimSpace(candidate) == expected {
			return true
		}
	}
	return false
}
