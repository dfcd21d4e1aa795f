package gateways

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"
)

const testKeySecret = "test_key_secret"

func signRazorpay(t *testing.T, orderID, paymentID string) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(testKeySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func razorpayPayload(t *testing.T, orderID, paymentID, bookingID, errorCode string) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]string{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
		"booking_id":          bookingID,
		"error_code":          errorCode,
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return payload
}

func TestVerifyCallbackValidSignature(t *testing.T) {
	gw := NewRazorpayGateway("test_key_id", testKeySecret)

	payload := razorpayPayload(t, "order_ABC123", "pay_XYZ789", "booking-1", "")
	sig := signRazorpay(t, "order_ABC123", "pay_XYZ789")

	result, err := gw.VerifyCallback(payload, sig)
	if err != nil {
		t.Fatalf("VerifyCallback failed: %v", err)
	}
	if result.GatewayOrderRef != "order_ABC123" {
		t.Errorf("order ref = %s, want order_ABC123", result.GatewayOrderRef)
	}
	if result.PaymentRef != "pay_XYZ789" {
		t.Errorf("payment ref = %s, want pay_XYZ789", result.PaymentRef)
	}
	if result.BookingID != "booking-1" {
		t.Errorf("booking id = %s, want booking-1", result.BookingID)
	}
	if result.Outcome != OutcomeSuccess {
		t.Errorf("outcome = %s, want %s", result.Outcome, OutcomeSuccess)
	}
}

func TestVerifyCallbackFailureOutcome(t *testing.T) {
	gw := NewRazorpayGateway("test_key_id", testKeySecret)

	payload := razorpayPayload(t, "order_ABC123", "pay_XYZ789", "booking-1", "PAYMENT_DECLINED")
	sig := signRazorpay(t, "order_ABC123", "pay_XYZ789")

	result, err := gw.VerifyCallback(payload, sig)
	if err != nil {
		t.Fatalf("VerifyCallback failed: %v", err)
	}
	if result.Outcome != OutcomeFailure {
		t.Errorf("outcome = %s, want %s", result.Outcome, OutcomeFailure)
	}
}

func TestVerifyCallbackTamperedSignature(t *testing.T) {
	gw := NewRazorpayGateway("test_key_id", testKeySecret)

	tests := []struct {
		name      string
		payload   []byte
		signature string
	}{
		{
			"garbage signature",
			razorpayPayload(t, "order_ABC123", "pay_XYZ789", "booking-1", ""),
			"deadbeef",
		},
		{
			"signature for a different order",
			razorpayPayload(t, "order_ABC123", "pay_XYZ789", "booking-1", ""),
			signRazorpay(t, "order_OTHER", "pay_XYZ789"),
		},
		{
			"payment id swapped after signing",
			razorpayPayload(t, "order_ABC123", "pay_ATTACKER", "booking-1", ""),
			signRazorpay(t, "order_ABC123", "pay_XYZ789"),
		},
		{
			"empty signature",
			razorpayPayload(t, "order_ABC123", "pay_XYZ789", "booking-1", ""),
			"",
		},
		{
			"malformed payload",
			[]byte("{not json"),
			signRazorpay(t, "order_ABC123", "pay_XYZ789"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := gw.VerifyCallback(tt.payload, tt.signature)
			if !errors.Is(err, ErrInvalidSignature) {
				t.Errorf("err = %v, want ErrInvalidSignature", err)
			}
			if result != nil {
				t.Errorf("result = %+v, want nil on rejected payload", result)
			}
		})
	}
}

func TestRegistryLookup(t *testing.T) {
	gw := NewRazorpayGateway("test_key_id", testKeySecret)
	registry := NewRegistry(gw)

	got, err := registry.Get("razorpay")
	if err != nil {
		t.Fatalf("Get(razorpay) failed: %v", err)
	}
	if got.Name() != "razorpay" {
		t.Errorf("gateway name = %s, want razorpay", got.Name())
	}

	if _, err := registry.Get("paytm"); !errors.Is(err, ErrUnknownGateway) {
		t.Errorf("Get(paytm) err = %v, want ErrUnknownGateway", err)
	}
}
