package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// verifySignature checks the HMAC-SHA256 hex digest of a string message.
// The checkout callback signs "orderID|paymentID" with the key secret.
func verifySignature(secret, message, signature string) bool {
	return verifyRawSignature(secret, []byte(message), signature)
}

// verifyRawSignature compares in constant time so the check leaks no timing
// information about the expected digest.
func verifyRawSignature(secret string, payload []byte, signature string) bool {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	expected := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
