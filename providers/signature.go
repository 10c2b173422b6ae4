package providers

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// verifyHMACSHA256 recomputes the hex HMAC-SHA256 digest of the raw body
// and compares it to the presented signature in constant time.
func verifyHMACSHA256(rawBody []byte, signatureHex, secret string) bool {
	if signatureHex == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signatureHex)) == 1
}

// tokenEquals compares a shared webhook token in constant time.
func tokenEquals(presented, expected string) bool {
	if presented == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) == 1
}
