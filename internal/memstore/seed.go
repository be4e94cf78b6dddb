package memstore

import (
	"github.com/shopspring/decimal"

	"github.com/pizzabox/order-core/internal/orders"
)

// SeedDemo loads a small menu so the API can be tried without Postgres.
func SeedDemo(s *Store) {
	s.PutItem(orders.CatalogItem{
		ID: "margherita", Name: "Margherita", BasePrice: decimal.NewFromInt(299), Available: true,
		Variants: []orders.Variant{
			{ID: "m-regular", Name: "Regular", Price: decimal.Zero, Available: true},
			{ID: "m-large", Name: "Large", Price: decimal.NewFromInt(449), Available: true},
		},
		Addons: []orders.Addon{
			{ID: "extra-cheese", Name: "Extra cheese", Price: decimal.NewFromInt(60), Available: true},
		},
	})
	s.PutItem(orders.CatalogItem{
		ID: "garlic-bread", Name: "Garlic bread", BasePrice: decimal.NewFromInt(149), Available: true,
		ManagedStock: true, Stock: 20,
	})
	limit := 100
	s.PutCoupon(orders.Coupon{Code: "FLAT100", Type: orders.CouponFlat, Value: decimal.NewFromInt(100), Active: true, UsageLimit: &limit})
	s.PutZone(orders.DeliveryZone{Pincode: "560001", Active: true})
	s.PutPartner(orders.DeliveryPartner{ID: "rider-1", Name: "Ravi", Phone: "9000000001", Status: orders.PartnerAvailable})
}
