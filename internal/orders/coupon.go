package orders

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EvaluateCoupon validates c against now and subtotal and returns the discount.
// A nil coupon means the code was looked up and not found.
func EvaluateCoupon(c *Coupon, code string, subtotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if c == nil {
		return decimal.Zero, reject(ErrCoupon, CodeCouponNotFound, "Invalid coupon code", code)
	}
	if !c.Active {
		return decimal.Zero, reject(ErrCoupon, CodeCouponInactive, "This coupon is no longer active", c.Code)
	}
	if c.ExpiresAt != nil && !now.Before(*c.ExpiresAt) {
		return decimal.Zero, reject(ErrCoupon, CodeCouponExpired, "This coupon has expired", c.Code)
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return decimal.Zero, reject(ErrCoupon, CodeCouponLimit, "This coupon has reached its usage limit", c.Code)
	}
	if c.MinOrder.IsPositive() && subtotal.LessThan(c.MinOrder) {
		return decimal.Zero, reject(ErrCoupon, CodeCouponMinOrder,
			fmt.Sprintf("Minimum order of %s required for this coupon", c.MinOrder.StringFixed(2)), c.Code)
	}

	var discount decimal.Decimal
	switch c.Type {
	case CouponPercentage:
		discount = subtotal.Mul(c.Value).Div(hundred).Round(2)
	case CouponFlat:
		discount = c.Value.Round(2)
	default:
		return decimal.Zero, reject(ErrCoupon, CodeCouponInactive, "Unsupported coupon type", c.Code)
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	return discount, nil
}
