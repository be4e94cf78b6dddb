package orders

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pizza() CatalogItem {
	return CatalogItem{
		ID: "pizza", Name: "Farmhouse", BasePrice: d("250"), Available: true,
		Variants: []Variant{
			{ID: "small", Name: "Small", Price: decimal.Zero, Available: true},
			{ID: "large", Name: "Large", Price: d("420"), Available: true},
			{ID: "xl", Name: "XL", Price: d("520"), Available: false},
		},
		Addons: []Addon{
			{ID: "cheese", Name: "Cheese", Price: d("50"), Available: true},
			{ID: "olives", Name: "Olives", Price: d("30"), Available: false},
		},
	}
}

func TestPriceLines_UsesCatalogPriceNotClientPrice(t *testing.T) {
	cheap := d("1")
	items := map[string]CatalogItem{"pizza": pizza()}

	q, err := PriceLines(items, []LineRequest{{ItemID: "pizza", Quantity: 2, ClientPrice: &cheap}})
	require.NoError(t, err)
	assert.True(t, q.Subtotal.Equal(d("500")))
	assert.True(t, q.Lines[0].UnitPrice.Equal(d("250")))
}

func TestPriceLines_PricedVariantReplacesBase(t *testing.T) {
	items := map[string]CatalogItem{"pizza": pizza()}

	q, err := PriceLines(items, []LineRequest{{ItemID: "pizza", Quantity: 1, VariantIDs: []string{"large"}, AddonIDs: []string{"cheese"}}})
	require.NoError(t, err)
	assert.True(t, q.Lines[0].UnitPrice.Equal(d("470")), q.Lines[0].UnitPrice.String())
	require.Len(t, q.Lines[0].Variants, 1)
	require.Len(t, q.Lines[0].Addons, 1)
}

func TestPriceLines_ZeroPriceVariantKeepsBase(t *testing.T) {
	items := map[string]CatalogItem{"pizza": pizza()}

	q, err := PriceLines(items, []LineRequest{{ItemID: "pizza", Quantity: 1, VariantIDs: []string{"small"}}})
	require.NoError(t, err)
	assert.True(t, q.Lines[0].UnitPrice.Equal(d("250")))
}

func TestPriceLines_UnknownOptionsIgnored(t *testing.T) {
	items := map[string]CatalogItem{"pizza": pizza()}

	q, err := PriceLines(items, []LineRequest{{ItemID: "pizza", Quantity: 1, VariantIDs: []string{"nope"}, AddonIDs: []string{"ghost"}}})
	require.NoError(t, err)
	assert.True(t, q.Subtotal.Equal(d("250")))
	assert.Empty(t, q.Lines[0].Variants)
	assert.Empty(t, q.Lines[0].Addons)
}

func TestPriceLines_Rejections(t *testing.T) {
	off := pizza()
	off.ID, off.Available = "off", false
	stocked := CatalogItem{ID: "bread", Name: "Garlic bread", BasePrice: d("149"), Available: true, ManagedStock: true, Stock: 3}
	items := map[string]CatalogItem{"pizza": pizza(), "off": off, "bread": stocked}

	cases := []struct {
		name  string
		lines []LineRequest
		code  string
	}{
		{"empty cart", nil, CodeEmptyCart},
		{"zero quantity", []LineRequest{{ItemID: "pizza", Quantity: 0}}, CodeInvalidQuantity},
		{"missing item", []LineRequest{{ItemID: "ghost", Quantity: 1}}, CodeItemNotFound},
		{"unavailable item", []LineRequest{{ItemID: "off", Quantity: 1}}, CodeItemUnavailable},
		{"unavailable variant", []LineRequest{{ItemID: "pizza", Quantity: 1, VariantIDs: []string{"xl"}}}, CodeItemUnavailable},
		{"unavailable addon", []LineRequest{{ItemID: "pizza", Quantity: 1, AddonIDs: []string{"olives"}}}, CodeItemUnavailable},
		{"stock aggregated across lines", []LineRequest{{ItemID: "bread", Quantity: 2}, {ItemID: "bread", Quantity: 2}}, CodeInsufficientStock},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := PriceLines(items, tc.lines)
			require.ErrorIs(t, err, ErrCatalog)
			rej, _ := AsRejection(err)
			assert.Equal(t, tc.code, rej.Code)
		})
	}
}

func TestItemIDs_SortedDistinct(t *testing.T) {
	ids := ItemIDs([]LineRequest{{ItemID: "b"}, {ItemID: "a"}, {ItemID: "b"}, {ItemID: "c"}})
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}
