package orders

import (
	"errors"
	"fmt"
)

// Rejection classes. Every *Rejection unwraps to exactly one of these.
var (
	ErrEligibility = errors.New("order not eligible")
	ErrCatalog     = errors.New("catalog rejection")
	ErrCoupon      = errors.New("coupon rejection")
	ErrPayment     = errors.New("payment rejection")
	ErrOutOfStock  = errors.New("out of stock")
	ErrTransition  = errors.New("invalid status transition")
	ErrNotFound    = errors.New("not found")
	ErrInvalid     = errors.New("invalid request")
)

const (
	CodeStorePaused       = "STORE_PAUSED"
	CodeStoreClosed       = "STORE_CLOSED"
	CodeCutoffPassed      = "CUTOFF_PASSED"
	CodeZoneUnserviceable = "ZONE_UNSERVICEABLE"
	CodeScheduleTooSoon   = "SCHEDULE_TOO_SOON"
	CodeScheduleRequired  = "SCHEDULE_REQUIRED"
	CodeAddressNotFound   = "ADDRESS_NOT_FOUND"

	CodeItemNotFound      = "ITEM_NOT_FOUND"
	CodeItemUnavailable   = "ITEM_UNAVAILABLE"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeInvalidQuantity   = "INVALID_QUANTITY"
	CodeEmptyCart         = "EMPTY_CART"

	CodeCouponNotFound  = "COUPON_NOT_FOUND"
	CodeCouponInactive  = "COUPON_INACTIVE"
	CodeCouponExpired   = "COUPON_EXPIRED"
	CodeCouponLimit     = "COUPON_LIMIT_REACHED"
	CodeCouponMinOrder  = "COUPON_MIN_ORDER"
	CodeCouponExhausted = "COUPON_EXHAUSTED"

	CodePaymentInvalid = "PAYMENT_INVALID"
	CodePaymentMethod  = "PAYMENT_METHOD_UNSUPPORTED"

	CodeOutOfStock = "OUT_OF_STOCK"

	CodeTransitionDenied = "TRANSITION_DENIED"
	CodePartnerRequired  = "PARTNER_REQUIRED"
	CodePartnerBusy      = "PARTNER_UNAVAILABLE"
	CodeStatusConflict   = "STATUS_CONFLICT"

	CodeOrderNotFound   = "ORDER_NOT_FOUND"
	CodePartnerNotFound = "PARTNER_NOT_FOUND"
)

// Rejection is a customer-facing refusal. Subject carries the offending
// identifier (item id, pincode, coupon code) when there is one.
type Rejection struct {
	Kind    error  `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Subject string `json:"subject,omitempty"`
}

func (r *Rejection) Error() string {
	if r.Subject != "" {
		return fmt.Sprintf("%s: %s (%s)", r.Code, r.Message, r.Subject)
	}
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

func (r *Rejection) Unwrap() error { return r.Kind }

func reject(kind error, code, msg, subject string) *Rejection {
	return &Rejection{Kind: kind, Code: code, Message: msg, Subject: subject}
}

// AsRejection extracts a *Rejection from an error chain.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
