package orders

import (
	"context"
	"time"
)

// CatalogReader returns the authoritative current price and availability of items.
// Missing ids are simply absent from the result.
type CatalogReader interface {
	CatalogItems(ctx context.Context, ids []string) (map[string]CatalogItem, error)
}

type CouponReader interface {
	// Coupon returns nil when no coupon has the code.
	Coupon(ctx context.Context, code string) (*Coupon, error)
}

// Store is the storage contract of the order core. Reads outside InTx are
// advisory snapshots; only reads made through Tx are authoritative.
type Store interface {
	CatalogReader
	CouponReader
	SettingsProvider
	ZoneProvider
	AddressBook

	Order(ctx context.Context, id string) (*Order, error)
	// DueScheduled lists SCHEDULED orders whose scheduled time is at or before until.
	DueScheduled(ctx context.Context, until time.Time, limit int) ([]string, error)

	// InTx runs fn in one transaction with read-committed or stronger isolation.
	// A non-nil error from fn rolls everything back.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type Tx interface {
	// LockStock locks the item row for the rest of the transaction and re-reads its stock.
	LockStock(ctx context.Context, itemID string) (managed bool, stock int, found bool, err error)
	DecrementStock(ctx context.Context, itemID string, qty int) error
	NextOrderNumber(ctx context.Context) (int64, error)
	// InsertOrder persists the order with its lines.
	InsertOrder(ctx context.Context, o *Order) error
	// RedeemCoupon increments usage unless the limit is already reached.
	RedeemCoupon(ctx context.Context, code string) (bool, error)
	// SetInvoiceNumber writes the invoice number only if none is set yet.
	SetInvoiceNumber(ctx context.Context, orderID, invoice string) (bool, error)

	// LockOrder returns nil when the order does not exist.
	LockOrder(ctx context.Context, id string) (*Order, error)
	// CompareAndSetStatus moves the order from → to, optionally setting the partner.
	// It reports false when the stored status is no longer from.
	CompareAndSetStatus(ctx context.Context, id string, from, to Status, partnerID *string, at time.Time) (bool, error)
	// LockPartner returns nil when the partner does not exist.
	LockPartner(ctx context.Context, id string) (*DeliveryPartner, error)
	SetPartnerStatus(ctx context.Context, id string, st PartnerStatus) error
}
