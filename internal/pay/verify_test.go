package pay

import (
	"errors"
	"testing"

	"packbot/internal/domain"
)

func TestVerifyAcceptsValidSignature(t *testing.T) {
	sig := Signature("secret", "ORD-123", "pay_456")
	if err := Verify("secret", "ORD-123", "pay_456", sig); err != nil {
		t.Fatalf("expected valid signature to verify: %v", err)
	}
}

func TestVerifyRejectsTamperedRef(t *testing.T) {
	sig := Signature("secret", "ORD-123", "pay_456")
	err := Verify("secret", "ORD-999", "pay_456", sig)
	if !errors.Is(err, domain.ErrPaymentVerification) {
		t.Fatalf("expected ErrPaymentVerification, got %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	sig := Signature("other", "ORD-123", "pay_456")
	if err := Verify("secret", "ORD-123", "pay_456", sig); err == nil {
		t.Fatal("expected rejection with wrong secret")
	}
}

func TestVerifyRejectsEmptySecret(t *testing.T) {
	if err := Verify("", "ORD-123", "pay_456", ""); err == nil {
		t.Fatal("expected rejection with no configured secret")
	}
}
