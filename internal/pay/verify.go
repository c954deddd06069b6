package pay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"packbot/internal/domain"
)

// Signature computes the expected callback signature: HMAC-SHA256 over
// "<entityRef>|<paymentID>" with the shared secret, hex encoded.
func Signature(secret, entityRef, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(entityRef + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature server-side and compares in constant
// time. A mismatch returns ErrPaymentVerification and the caller must not
// mutate any state.
func Verify(secret, entityRef, paymentID, signature string) error {
	if secret == "" {
		return fmt.Errorf("%w: no payment secret configured", domain.ErrPaymentVerification)
	}
	expected := Signature(secret, entityRef, paymentID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("%w: ref %s", domain.ErrPaymentVerification, entityRef)
	}
	return nil
}
