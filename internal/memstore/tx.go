package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/pizzabox/order-core/internal/orders"
)

// memTx runs while Store.mu is held, so it touches st without locking.
type memTx struct {
	store *Store
	st    *state
}

func (t *memTx) LockStock(_ context.Context, itemID string) (bool, int, bool, error) {
	it, ok := t.st.items[itemID]
	if !ok {
		return false, 0, false, nil
	}
	return it.ManagedStock, it.Stock, true, nil
}

func (t *memTx) DecrementStock(_ context.Context, itemID string, qty int) error {
	it, ok := t.st.items[itemID]
	if !ok || it.Stock < qty {
		return fmt.Errorf("stock of %s changed under lock", itemID)
	}
	it.Stock -= qty
	t.st.items[itemID] = it
	return nil
}

func (t *memTx) NextOrderNumber(context.Context) (int64, error) {
	t.store.seq++
	return t.store.seq, nil
}

func (t *memTx) InsertOrder(_ context.Context, o *orders.Order) error {
	if _, exists := t.st.orders[o.ID]; exists {
		return fmt.Errorf("order %s already exists", o.ID)
	}
	t.st.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (t *memTx) RedeemCoupon(_ context.Context, code string) (bool, error) {
	c, ok := t.st.coupons[code]
	if !ok || !c.Active {
		return false, nil
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return false, nil
	}
	c.UsedCount++
	t.st.coupons[code] = c
	return true, nil
}

func (t *memTx) SetInvoiceNumber(_ context.Context, orderID, invoice string) (bool, error) {
	o, ok := t.st.orders[orderID]
	if !ok || o.InvoiceNumber != nil {
		return false, nil
	}
	o.InvoiceNumber = &invoice
	t.st.orders[orderID] = o
	return true, nil
}

func (t *memTx) LockOrder(_ context.Context, id string) (*orders.Order, error) {
	o, ok := t.st.orders[id]
	if !ok {
		return nil, nil
	}
	c := cloneOrder(o)
	return &c, nil
}

func (t *memTx) CompareAndSetStatus(_ context.Context, id string, from, to orders.Status, partnerID *string, at time.Time) (bool, error) {
	o, ok := t.st.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	if partnerID != nil {
		p := *partnerID
		o.PartnerID = &p
	}
	o.UpdatedAt = at
	t.st.orders[id] = o
	return true, nil
}

func (t *memTx) LockPartner(_ context.Context, id string) (*orders.DeliveryPartner, error) {
	p, ok := t.st.partners[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (t *memTx) SetPartnerStatus(_ context.Context, id string, st orders.PartnerStatus) error {
	p, ok := t.st.partners[id]
	if !ok {
		return fmt.Errorf("partner %s not found", id)
	}
	p.Status = st
	t.st.partners[id] = p
	return nil
}
