package orders

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// PaymentProof is the processor's order/payment/signature triple as sent by the client.
type PaymentProof struct {
	GatewayOrderID string `json:"gateway_order_id"`
	PaymentID      string `json:"payment_id"`
	Signature      string `json:"signature"`
}

// PaymentVerifier checks processor signatures locally. It never calls the processor.
type PaymentVerifier struct {
	secret []byte
}

func NewPaymentVerifier(secret string) (*PaymentVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("payment verifier: secret is required")
	}
	return &PaymentVerifier{secret: []byte(secret)}, nil
}

// Sign returns the hex HMAC-SHA256 of "gatewayOrderID|paymentID".
func (v *PaymentVerifier) Sign(gatewayOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Check resolves the payment status an order may be committed with.
// COD is always PENDING; anything else needs a valid signature triple.
func (v *PaymentVerifier) Check(method PaymentMethod, proof *PaymentProof) (PaymentStatus, error) {
	switch method {
	case PaymentCOD:
		return PaymentPending, nil
	case PaymentOnline:
	default:
		return "", reject(ErrPayment, CodePaymentMethod, "Unsupported payment method", string(method))
	}

	if proof == nil || proof.GatewayOrderID == "" || proof.PaymentID == "" || proof.Signature == "" {
		return "", reject(ErrPayment, CodePaymentInvalid, "Payment details are missing", "")
	}
	if v == nil {
		return "", reject(ErrPayment, CodePaymentInvalid, "Online payments are not accepted right now", "")
	}
	got, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(proof.Signature)))
	if err != nil {
		return "", reject(ErrPayment, CodePaymentInvalid, "Payment verification failed", proof.PaymentID)
	}
	want, _ := hex.DecodeString(v.Sign(proof.GatewayOrderID, proof.PaymentID))
	if !hmac.Equal(got, want) {
		return "", reject(ErrPayment, CodePaymentInvalid, "Payment verification failed", proof.PaymentID)
	}
	return PaymentPaid, nil
}
