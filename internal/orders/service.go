package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var DefaultGSTRate = decimal.NewFromInt(5)

type ServiceDeps struct {
	Store    Store
	Payments *PaymentVerifier
	Notifier Notifier
	// Cache receives a fresh copy of the order after every committed change.
	Cache  OrderCache
	Logger *zap.Logger
	// GSTRate is the combined percentage; nil means DefaultGSTRate.
	GSTRate        *decimal.Decimal
	Location       *time.Location
	ActivationLead time.Duration
	Now            func() time.Time
}

type Service struct {
	store    Store
	gate     *Gate
	payments *PaymentVerifier
	notifier Notifier
	cache    OrderCache
	log      *zap.Logger
	gstRate  decimal.Decimal
	loc      *time.Location
	lead     time.Duration
	now      func() time.Time
}

func NewService(deps ServiceDeps) (*Service, error) {
	if deps.Store == nil {
		return nil, errors.New("order service: store is required")
	}
	if deps.Notifier == nil {
		deps.Notifier = NopNotifier{}
	}
	if deps.Cache == nil {
		deps.Cache = NopOrderCache{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	rate := DefaultGSTRate
	if deps.GSTRate != nil {
		if deps.GSTRate.IsNegative() {
			return nil, errors.New("order service: gst rate must not be negative")
		}
		rate = *deps.GSTRate
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	gate := NewGate(deps.Store, deps.Store, deps.Store, deps.Location)
	gate.now = deps.Now

	return &Service{
		store:    deps.Store,
		gate:     gate,
		payments: deps.Payments,
		notifier: deps.Notifier,
		cache:    deps.Cache,
		log:      deps.Logger,
		gstRate:  rate,
		loc:      deps.Location,
		lead:     deps.ActivationLead,
		now:      deps.Now,
	}, nil
}

type SubmitRequest struct {
	CustomerID    *string       `json:"customer_id,omitempty"`
	AddressID     string        `json:"address_id,omitempty"`
	GuestAddress  *Address      `json:"guest_address,omitempty"`
	Lines         []LineRequest `json:"lines"`
	CouponCode    string        `json:"coupon_code,omitempty"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Payment       *PaymentProof `json:"payment,omitempty"`
	Kind          Kind          `json:"kind"`
	ScheduledFor  *time.Time    `json:"scheduled_for,omitempty"`
}

// Submit turns a cart into a committed order. Everything except the stock
// recheck and the coupon redemption is validated before the transaction opens.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Order, error) {
	if req.Kind == "" {
		req.Kind = KindInstant
	}
	addr, err := s.gate.Check(ctx, Intent{
		Kind:         req.Kind,
		ScheduledFor: req.ScheduledFor,
		CustomerID:   req.CustomerID,
		AddressID:    req.AddressID,
		GuestAddress: req.GuestAddress,
	})
	if err != nil {
		return nil, err
	}

	items, err := s.store.CatalogItems(ctx, ItemIDs(req.Lines))
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	quote, err := PriceLines(items, req.Lines)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	discount := decimal.Zero
	var couponCode *string
	if code := strings.ToUpper(strings.TrimSpace(req.CouponCode)); code != "" {
		c, err := s.store.Coupon(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("read coupon %s: %w", code, err)
		}
		if discount, err = EvaluateCoupon(c, code, quote.Subtotal, now); err != nil {
			return nil, err
		}
		couponCode = &code
	}

	tax := ComputeTax(quote.Subtotal, discount, s.gstRate)

	paymentStatus, err := s.payments.Check(req.PaymentMethod, req.Payment)
	if err != nil {
		return nil, err
	}

	status := StatusPending
	var scheduledFor *time.Time
	if req.Kind == KindScheduled {
		status = StatusScheduled
		at := req.ScheduledFor.UTC()
		scheduledFor = &at
	}

	order := &Order{
		ID:            uuid.NewString(),
		CustomerID:    req.CustomerID,
		CustomerName:  addr.Name,
		CustomerPhone: addr.Phone,
		Address:       addr,
		Status:        status,
		Subtotal:      quote.Subtotal,
		Discount:      discount,
		CGST:          tax.CGST,
		SGST:          tax.SGST,
		TaxTotal:      tax.TaxTotal,
		Total:         tax.Total,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: paymentStatus,
		CouponCode:    couponCode,
		Kind:          req.Kind,
		ScheduledFor:  scheduledFor,
		CreatedAt:     now,
		UpdatedAt:     now,
		Lines:         quote.Lines,
	}
	if paymentStatus == PaymentPaid {
		ref := req.Payment.PaymentID
		order.PaymentRef = &ref
	}

	if err := s.commit(ctx, order, items, req.Lines); err != nil {
		return nil, err
	}

	s.log.Info("order committed",
		zap.String("order_id", order.ID),
		zap.Int64("number", order.Number),
		zap.String("total", order.Total.StringFixed(2)),
		zap.String("status", string(order.Status)),
	)
	s.refreshCache(ctx, order)

	event := EventOrderPlaced
	if order.Status == StatusScheduled {
		event = EventOrderScheduled
	}
	s.notify(ctx, event, order)
	return order, nil
}

// commit is the only path that mutates stock.
func (s *Service) commit(ctx context.Context, o *Order, items map[string]CatalogItem, lines []LineRequest) error {
	need := quantities(lines)
	ids := ItemIDs(lines) // sorted, so concurrent commits lock rows in the same order

	return s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		for _, id := range ids {
			managed, stock, found, err := tx.LockStock(ctx, id)
			if err != nil {
				return fmt.Errorf("lock stock %s: %w", id, err)
			}
			name := items[id].Name
			if !found {
				return reject(ErrOutOfStock, CodeOutOfStock,
					fmt.Sprintf("%s was just removed from the menu, please review your cart", name), id)
			}
			if !managed {
				continue
			}
			if stock < need[id] {
				return reject(ErrOutOfStock, CodeOutOfStock,
					fmt.Sprintf("%s just sold out while you were checking out, please review your cart", name), id)
			}
			if err := tx.DecrementStock(ctx, id, need[id]); err != nil {
				return fmt.Errorf("decrement stock %s: %w", id, err)
			}
		}

		n, err := tx.NextOrderNumber(ctx)
		if err != nil {
			return fmt.Errorf("next order number: %w", err)
		}
		o.Number = n

		if err := tx.InsertOrder(ctx, o); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		if o.CouponCode != nil {
			ok, err := tx.RedeemCoupon(ctx, *o.CouponCode)
			if err != nil {
				return fmt.Errorf("redeem coupon %s: %w", *o.CouponCode, err)
			}
			if !ok {
				return reject(ErrCoupon, CodeCouponExhausted, "This coupon was just used up, please remove it and try again", *o.CouponCode)
			}
		}

		inv := InvoiceNumber(o.CreatedAt.In(s.loc), n)
		if _, err := tx.SetInvoiceNumber(ctx, o.ID, inv); err != nil {
			return fmt.Errorf("set invoice number: %w", err)
		}
		o.InvoiceNumber = &inv
		return nil
	})
}

func (s *Service) Order(ctx context.Context, id string) (*Order, error) {
	o, err := s.store.Order(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("read order %s: %w", id, err)
	}
	if o == nil {
		return nil, reject(ErrNotFound, CodeOrderNotFound, "Order not found", id)
	}
	return o, nil
}

func (s *Service) notify(ctx context.Context, event string, o *Order) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("notifier panicked", zap.String("order_id", o.ID), zap.String("event", event), zap.Any("panic", r))
		}
	}()
	s.notifier.Notify(ctx, notificationFor(event, o))
}

func (s *Service) refreshCache(ctx context.Context, o *Order) {
	b, err := json.Marshal(o)
	if err == nil {
		err = s.cache.Put(ctx, o.ID, o.CacheVersion(), b)
	}
	if err != nil {
		s.log.Warn("refresh cached order", zap.String("order_id", o.ID), zap.Error(err))
	}
}
