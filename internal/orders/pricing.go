package orders

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LineRequest struct {
	ItemID     string   `json:"item_id"`
	Quantity   int      `json:"quantity"`
	VariantIDs []string `json:"variant_ids,omitempty"`
	AddonIDs   []string `json:"addon_ids,omitempty"`
	// ClientPrice is accepted on the wire for compatibility and never read.
	ClientPrice *decimal.Decimal `json:"price,omitempty"`
}

type Quote struct {
	Lines    []OrderLine
	Subtotal decimal.Decimal
}

// ItemIDs returns the distinct item ids referenced by lines, sorted.
func ItemIDs(lines []LineRequest) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.ItemID]; ok {
			continue
		}
		seen[l.ItemID] = struct{}{}
		out = append(out, l.ItemID)
	}
	sort.Strings(out)
	return out
}

// quantities sums requested quantity per item across lines.
func quantities(lines []LineRequest) map[string]int {
	q := make(map[string]int, len(lines))
	for _, l := range lines {
		q[l.ItemID] += l.Quantity
	}
	return q
}

// PriceLines recomputes every line from the catalog snapshot. The stock check
// here is a preflight against a possibly stale snapshot; the commit rechecks.
func PriceLines(items map[string]CatalogItem, lines []LineRequest) (Quote, error) {
	if len(lines) == 0 {
		return Quote{}, reject(ErrCatalog, CodeEmptyCart, "Your cart is empty", "")
	}

	q := Quote{Lines: make([]OrderLine, 0, len(lines)), Subtotal: decimal.Zero}
	for _, l := range lines {
		if l.Quantity <= 0 {
			return Quote{}, reject(ErrCatalog, CodeInvalidQuantity, "Quantity must be at least 1", l.ItemID)
		}
		item, ok := items[l.ItemID]
		if !ok {
			return Quote{}, reject(ErrCatalog, CodeItemNotFound, "Item no longer exists", l.ItemID)
		}
		if !item.Available {
			return Quote{}, reject(ErrCatalog, CodeItemUnavailable, fmt.Sprintf("%s is currently unavailable", item.Name), item.ID)
		}

		line, err := priceLine(item, l)
		if err != nil {
			return Quote{}, err
		}
		q.Lines = append(q.Lines, line)
		q.Subtotal = q.Subtotal.Add(line.LineTotal)
	}

	for id, want := range quantities(lines) {
		item := items[id]
		if item.ManagedStock && want > item.Stock {
			return Quote{}, reject(ErrCatalog, CodeInsufficientStock,
				fmt.Sprintf("Only %d of %s left", max(item.Stock, 0), item.Name), item.ID)
		}
	}
	return q, nil
}

func priceLine(item CatalogItem, l LineRequest) (OrderLine, error) {
	variants := make([]LineOption, 0, len(l.VariantIDs))
	variantSum := decimal.Zero
	pricedVariant := false
	for _, id := range l.VariantIDs {
		v, ok := findVariant(item, id)
		if !ok {
			continue
		}
		if !v.Available {
			return OrderLine{}, reject(ErrCatalog, CodeItemUnavailable,
				fmt.Sprintf("%s (%s) is currently unavailable", item.Name, v.Name), item.ID)
		}
		if !v.Price.IsZero() {
			pricedVariant = true
		}
		variantSum = variantSum.Add(v.Price)
		variants = append(variants, LineOption{ID: v.ID, Name: v.Name, Price: v.Price})
	}

	unit := item.BasePrice
	if pricedVariant {
		unit = variantSum
	}

	addons := make([]LineOption, 0, len(l.AddonIDs))
	for _, id := range l.AddonIDs {
		a, ok := findAddon(item, id)
		if !ok {
			continue
		}
		if !a.Available {
			return OrderLine{}, reject(ErrCatalog, CodeItemUnavailable,
				fmt.Sprintf("%s add-on %s is currently unavailable", item.Name, a.Name), item.ID)
		}
		unit = unit.Add(a.Price)
		addons = append(addons, LineOption{ID: a.ID, Name: a.Name, Price: a.Price})
	}

	return OrderLine{
		ID:        uuid.NewString(),
		ItemID:    item.ID,
		Name:      item.Name,
		UnitPrice: unit,
		Quantity:  l.Quantity,
		LineTotal: unit.Mul(decimal.NewFromInt(int64(l.Quantity))),
		Variants:  variants,
		Addons:    addons,
	}, nil
}

func findVariant(item CatalogItem, id string) (Variant, bool) {
	for _, v := range item.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

func findAddon(item CatalogItem, id string) (Addon, bool) {
	for _, a := range item.Addons {
		if a.ID == id {
			return a, true
		}
	}
	return Addon{}, false
}
