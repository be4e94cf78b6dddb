package orders

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeTax_FlatCouponExample(t *testing.T) {
	tax := ComputeTax(d("400"), d("100"), d("5"))

	assert.True(t, tax.Taxable.Equal(d("300")))
	assert.True(t, tax.CGST.Equal(d("7.50")))
	assert.True(t, tax.SGST.Equal(d("7.50")))
	assert.True(t, tax.TaxTotal.Equal(d("15.00")))
	assert.True(t, tax.Total.Equal(d("315.00")))
}

func TestComputeTax_HalvesRoundedIndependently(t *testing.T) {
	// 5% of 99.99 = 4.9995 -> halves of 2.49975 round to 2.50 each
	tax := ComputeTax(d("99.99"), decimal.Zero, d("5"))

	assert.True(t, tax.CGST.Equal(d("2.50")), tax.CGST.String())
	assert.True(t, tax.TaxTotal.Equal(tax.CGST.Add(tax.SGST)))
	assert.True(t, tax.Total.Equal(d("99.99").Add(tax.TaxTotal)))
}

func TestComputeTax_TotalIdentity(t *testing.T) {
	cases := []struct{ subtotal, discount string }{
		{"0", "0"}, {"10.01", "0"}, {"123.45", "23.45"}, {"999.99", "999.99"}, {"57.30", "5.73"},
	}
	for _, c := range cases {
		tax := ComputeTax(d(c.subtotal), d(c.discount), DefaultGSTRate)
		want := d(c.subtotal).Sub(d(c.discount)).Add(tax.TaxTotal)
		assert.True(t, tax.Total.Equal(want), "%s-%s: %s != %s", c.subtotal, c.discount, tax.Total, want)
	}
}

func TestEvaluateCoupon(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	one := 1

	t.Run("flat", func(t *testing.T) {
		got, err := EvaluateCoupon(&Coupon{Code: "FLAT100", Type: CouponFlat, Value: d("100"), Active: true}, "FLAT100", d("400"), now)
		require.NoError(t, err)
		assert.True(t, got.Equal(d("100")))
	})

	t.Run("percentage rounds to paise", func(t *testing.T) {
		got, err := EvaluateCoupon(&Coupon{Code: "P15", Type: CouponPercentage, Value: d("15"), Active: true}, "P15", d("333.33"), now)
		require.NoError(t, err)
		assert.True(t, got.Equal(d("50.00")), got.String())
	})

	t.Run("capped at subtotal", func(t *testing.T) {
		got, err := EvaluateCoupon(&Coupon{Code: "BIG", Type: CouponFlat, Value: d("500"), Active: true}, "BIG", d("120"), now)
		require.NoError(t, err)
		assert.True(t, got.Equal(d("120")))
		assert.True(t, ComputeTax(d("120"), got, DefaultGSTRate).Total.IsZero())
	})

	rejections := []struct {
		name string
		c    *Coupon
		code string
	}{
		{"missing", nil, CodeCouponNotFound},
		{"inactive", &Coupon{Code: "X", Type: CouponFlat, Value: d("10")}, CodeCouponInactive},
		{"expired", &Coupon{Code: "X", Type: CouponFlat, Value: d("10"), Active: true, ExpiresAt: &past}, CodeCouponExpired},
		{"expires exactly now", &Coupon{Code: "X", Type: CouponFlat, Value: d("10"), Active: true, ExpiresAt: &now}, CodeCouponExpired},
		{"limit reached", &Coupon{Code: "X", Type: CouponFlat, Value: d("10"), Active: true, UsageLimit: &one, UsedCount: 1}, CodeCouponLimit},
		{"below minimum", &Coupon{Code: "X", Type: CouponFlat, Value: d("10"), Active: true, MinOrder: d("500")}, CodeCouponMinOrder},
	}
	for _, tc := range rejections {
		t.Run(tc.name, func(t *testing.T) {
			_, err := EvaluateCoupon(tc.c, "X", d("400"), now)
			require.ErrorIs(t, err, ErrCoupon)
			rej, ok := AsRejection(err)
			require.True(t, ok)
			assert.Equal(t, tc.code, rej.Code)
		})
	}
}

func TestInvoiceNumber(t *testing.T) {
	at := time.Date(2026, 3, 9, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "INV-202603-000042", InvoiceNumber(at, 42))
	assert.Equal(t, "INV-202603-1234567", InvoiceNumber(at, 1234567))
}
