// Package memstore is an in-process orders.Store for local runs and tests.
// Transactions are fully serialized and work on a copy of the state that is
// swapped in on commit.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/pizzabox/order-core/internal/orders"
)

type state struct {
	items     map[string]orders.CatalogItem
	coupons   map[string]orders.Coupon
	zones     map[string]orders.DeliveryZone
	addresses map[string]addressRow
	partners  map[string]orders.DeliveryPartner
	orders    map[string]orders.Order
	settings  orders.OptionalSettings
}

type addressRow struct {
	customerID string
	addr       orders.Address
}

func (s *state) clone() *state {
	return &state{
		items:     maps.Clone(s.items),
		coupons:   maps.Clone(s.coupons),
		zones:     maps.Clone(s.zones),
		addresses: maps.Clone(s.addresses),
		partners:  maps.Clone(s.partners),
		orders:    maps.Clone(s.orders),
		settings:  s.settings,
	}
}

type Store struct {
	mu  sync.Mutex
	st  *state
	seq int64 // like a database sequence, never rolled back
}

var _ orders.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		st: &state{
			items:     map[string]orders.CatalogItem{},
			coupons:   map[string]orders.Coupon{},
			zones:     map[string]orders.DeliveryZone{},
			addresses: map[string]addressRow{},
			partners:  map[string]orders.DeliveryPartner{},
			orders:    map[string]orders.Order{},
			settings:  orders.NoSettings(),
		},
		seq: 1000,
	}
}

func (s *Store) PutItem(it orders.CatalogItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.items[it.ID] = it
}

func (s *Store) PutCoupon(c orders.Coupon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.coupons[c.Code] = c
}

func (s *Store) PutZone(z orders.DeliveryZone) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.zones[z.Pincode] = z
}

func (s *Store) PutAddress(customerID string, a orders.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.addresses[a.ID] = addressRow{customerID: customerID, addr: a}
}

func (s *Store) PutPartner(p orders.DeliveryPartner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.partners[p.ID] = p
}

// PutOrder stores o as is; it bypasses every check.
func (s *Store) PutOrder(o orders.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.orders[o.ID] = cloneOrder(o)
}

func (s *Store) SetSettings(opt orders.OptionalSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.settings = opt
}

func (s *Store) Partner(id string) (orders.DeliveryPartner, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.st.partners[id]
	return p, ok
}

func (s *Store) CouponUsage(code string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.coupons[code].UsedCount
}

func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.orders)
}

func (s *Store) CatalogItems(_ context.Context, ids []string) (map[string]orders.CatalogItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]orders.CatalogItem, len(ids))
	for _, id := range ids {
		if it, ok := s.st.items[id]; ok {
			out[id] = it
		}
	}
	return out, nil
}

func (s *Store) Coupon(_ context.Context, code string) (*orders.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.st.coupons[code]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *Store) StoreSettings(context.Context) (orders.OptionalSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.settings, nil
}

func (s *Store) Zone(_ context.Context, pincode string) (*orders.DeliveryZone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.st.zones[pincode]
	if !ok {
		return nil, nil
	}
	return &z, nil
}

func (s *Store) Address(_ context.Context, customerID, addressID string) (*orders.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.st.addresses[addressID]
	if !ok || row.customerID != customerID {
		return nil, nil
	}
	a := row.addr
	return &a, nil
}

func (s *Store) Order(_ context.Context, id string) (*orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.st.orders[id]
	if !ok {
		return nil, nil
	}
	c := cloneOrder(o)
	return &c, nil
}

func (s *Store) DueScheduled(_ context.Context, until time.Time, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	type due struct {
		id string
		at time.Time
	}
	var all []due
	for _, o := range s.st.orders {
		if o.Status == orders.StatusScheduled && o.ScheduledFor != nil && !o.ScheduledFor.After(until) {
			all = append(all, due{id: o.ID, at: *o.ScheduledFor})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].at.Before(all[j].at) })
	ids := make([]string, 0, len(all))
	for i, d := range all {
		if limit > 0 && i == limit {
			break
		}
		ids = append(ids, d.id)
	}
	return ids, nil
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.clone()
	if err := fn(ctx, &memTx{store: s, st: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = work
	return nil
}

func cloneOrder(o orders.Order) orders.Order {
	o.Lines = slices.Clone(o.Lines)
	return o
}
