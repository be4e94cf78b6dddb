package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindInstant   Kind = "INSTANT"
	KindScheduled Kind = "SCHEDULED"
)

type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "COD"
	PaymentOnline PaymentMethod = "ONLINE"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
)

type CouponType string

const (
	CouponPercentage CouponType = "PERCENTAGE"
	CouponFlat       CouponType = "FLAT"
)

type PartnerStatus string

const (
	PartnerAvailable PartnerStatus = "AVAILABLE"
	PartnerBusy      PartnerStatus = "BUSY"
)

type Order struct {
	ID            string          `json:"id"`
	Number        int64           `json:"number"`
	CustomerID    *string         `json:"customer_id,omitempty"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	Address       Address         `json:"address"`
	Status        Status          `json:"status"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	CGST          decimal.Decimal `json:"cgst"`
	SGST          decimal.Decimal `json:"sgst"`
	TaxTotal      decimal.Decimal `json:"tax_total"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	PaymentRef    *string         `json:"payment_ref,omitempty"`
	CouponCode    *string         `json:"coupon_code,omitempty"`
	Kind          Kind            `json:"kind"`
	ScheduledFor  *time.Time      `json:"scheduled_for,omitempty"`
	PartnerID     *string         `json:"partner_id,omitempty"`
	InvoiceNumber *string         `json:"invoice_number,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Lines         []OrderLine     `json:"lines"`
}

// OrderLine snapshots name and prices at commit time; never updated afterwards.
type OrderLine struct {
	ID        string          `json:"id"`
	ItemID    string          `json:"item_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
	Variants  []LineOption    `json:"variants,omitempty"`
	Addons    []LineOption    `json:"addons,omitempty"`
}

type LineOption struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type CatalogItem struct {
	ID           string
	Name         string
	BasePrice    decimal.Decimal
	Available    bool
	ManagedStock bool
	Stock        int
	Variants     []Variant
	Addons       []Addon
}

type Variant struct {
	ID        string
	Name      string
	Price     decimal.Decimal
	Available bool
}

type Addon struct {
	ID        string
	Name      string
	Price     decimal.Decimal
	Available bool
}

type Coupon struct {
	Code       string
	Type       CouponType
	Value      decimal.Decimal
	ExpiresAt  *time.Time
	UsageLimit *int
	UsedCount  int
	Active     bool
	// MinOrder is compared against the subtotal before discount.
	MinOrder decimal.Decimal
}

type DeliveryZone struct {
	Pincode string
	Active  bool
}

type Address struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Line1   string `json:"line1"`
	City    string `json:"city"`
	Pincode string `json:"pincode"`
}

type DeliveryPartner struct {
	ID     string
	Name   string
	Phone  string
	Status PartnerStatus
}
