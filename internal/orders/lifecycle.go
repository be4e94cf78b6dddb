package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultActivationBatch bounds how many scheduled orders one ActivateDue pass moves.
const DefaultActivationBatch = 100

func checkTransition(from, to Status, actor Actor) (Rule, error) {
	rule, ok := Lookup(from, to)
	if !ok {
		return Rule{}, reject(ErrTransition, CodeTransitionDenied,
			fmt.Sprintf("Cannot move an order from %s to %s", from, to), "")
	}
	if !rule.Permits(actor) {
		return Rule{}, reject(ErrTransition, CodeTransitionDenied,
			fmt.Sprintf("%s may not move an order from %s to %s", actor, from, to), "")
	}
	return rule, nil
}

// UpdateStatus applies one transition from the table. The status write is a
// compare-and-set on the status read under lock, so two racing updates
// cannot both succeed from the same state.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, to Status, actor Actor) (*Order, error) {
	var (
		from    Status
		updated *Order
	)
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("lock order %s: %w", orderID, err)
		}
		if o == nil {
			return reject(ErrNotFound, CodeOrderNotFound, "Order not found", orderID)
		}
		rule, err := checkTransition(o.Status, to, actor)
		if err != nil {
			return err
		}
		if rule.Effect == EffectRequirePartner && o.PartnerID == nil {
			return reject(ErrTransition, CodePartnerRequired, "Assign a delivery partner before dispatching the order", o.ID)
		}

		at := stamp(s.now(), o.UpdatedAt)
		ok, err := tx.CompareAndSetStatus(ctx, o.ID, o.Status, to, nil, at)
		if err != nil {
			return fmt.Errorf("update status %s: %w", o.ID, err)
		}
		if !ok {
			return reject(ErrTransition, CodeStatusConflict, "The order was updated by someone else, reload and try again", o.ID)
		}
		if rule.Effect == EffectReleasePartner && o.PartnerID != nil {
			if err := tx.SetPartnerStatus(ctx, *o.PartnerID, PartnerAvailable); err != nil {
				return fmt.Errorf("release partner %s: %w", *o.PartnerID, err)
			}
		}

		from = o.Status
		o.Status = to
		o.UpdatedAt = at
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order status changed",
		zap.String("order_id", updated.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor", string(actor)),
	)
	s.refreshCache(ctx, updated)
	if ev, ok := EventFor(from, to); ok {
		s.notify(ctx, ev, updated)
	}
	return updated, nil
}

// AssignPartner dispatches the order: the partner becomes BUSY and the order
// moves to OUT_FOR_DELIVERY in the same transaction.
func (s *Service) AssignPartner(ctx context.Context, orderID, partnerID string, actor Actor) (*Order, error) {
	var (
		from    Status
		updated *Order
	)
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("lock order %s: %w", orderID, err)
		}
		if o == nil {
			return reject(ErrNotFound, CodeOrderNotFound, "Order not found", orderID)
		}
		if _, err := checkTransition(o.Status, StatusOutForDelivery, actor); err != nil {
			return err
		}

		p, err := tx.LockPartner(ctx, partnerID)
		if err != nil {
			return fmt.Errorf("lock partner %s: %w", partnerID, err)
		}
		if p == nil {
			return reject(ErrNotFound, CodePartnerNotFound, "Delivery partner not found", partnerID)
		}
		if p.Status != PartnerAvailable {
			return reject(ErrTransition, CodePartnerBusy, fmt.Sprintf("%s is already out on a delivery", p.Name), p.ID)
		}

		at := stamp(s.now(), o.UpdatedAt)
		ok, err := tx.CompareAndSetStatus(ctx, o.ID, o.Status, StatusOutForDelivery, &p.ID, at)
		if err != nil {
			return fmt.Errorf("update status %s: %w", o.ID, err)
		}
		if !ok {
			return reject(ErrTransition, CodeStatusConflict, "The order was updated by someone else, reload and try again", o.ID)
		}
		if err := tx.SetPartnerStatus(ctx, p.ID, PartnerBusy); err != nil {
			return fmt.Errorf("mark partner %s busy: %w", p.ID, err)
		}

		from = o.Status
		o.Status = StatusOutForDelivery
		o.PartnerID = &p.ID
		o.UpdatedAt = at
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order dispatched",
		zap.String("order_id", updated.ID),
		zap.String("partner_id", partnerID),
		zap.String("from", string(from)),
	)
	s.refreshCache(ctx, updated)
	if ev, ok := EventFor(from, StatusOutForDelivery); ok {
		s.notify(ctx, ev, updated)
	}
	return updated, nil
}

// Activate moves a SCHEDULED order into the live PENDING queue.
func (s *Service) Activate(ctx context.Context, orderID string, actor Actor) (*Order, error) {
	return s.UpdateStatus(ctx, orderID, StatusPending, actor)
}

// ActivateDue activates scheduled orders due within the configured lead of now.
// Orders another worker activated first are skipped.
func (s *Service) ActivateDue(ctx context.Context) (int, error) {
	until := s.now().Add(s.lead)
	ids, err := s.store.DueScheduled(ctx, until, DefaultActivationBatch)
	if err != nil {
		return 0, fmt.Errorf("list due scheduled orders: %w", err)
	}

	activated := 0
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return activated, err
		}
		_, err := s.Activate(ctx, id, ActorScheduler)
		switch {
		case err == nil:
			activated++
		case errors.Is(err, ErrTransition), errors.Is(err, ErrNotFound):
			s.log.Debug("skip scheduled order", zap.String("order_id", id), zap.Error(err))
		default:
			errs = append(errs, err)
		}
	}
	return activated, errors.Join(errs...)
}

// EnsureInvoiceNumber backfills the invoice number of orders committed
// without one. Existing numbers are returned unchanged.
func (s *Service) EnsureInvoiceNumber(ctx context.Context, orderID string) (*Order, error) {
	var (
		out        *Order
		backfilled bool
	)
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("lock order %s: %w", orderID, err)
		}
		if o == nil {
			return reject(ErrNotFound, CodeOrderNotFound, "Order not found", orderID)
		}
		if o.InvoiceNumber == nil {
			inv := InvoiceNumber(o.CreatedAt.In(s.loc), o.Number)
			if _, err := tx.SetInvoiceNumber(ctx, o.ID, inv); err != nil {
				return fmt.Errorf("set invoice number: %w", err)
			}
			o.InvoiceNumber = &inv
			backfilled = true
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	if backfilled {
		s.refreshCache(ctx, out)
	}
	return out, nil
}

// RunActivator calls ActivateDue every interval until ctx is done.
func (s *Service) RunActivator(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		n, err := s.ActivateDue(ctx)
		if err != nil && ctx.Err() == nil {
			s.log.Error("activate scheduled orders", zap.Error(err))
		} else if n > 0 {
			s.log.Info("activated scheduled orders", zap.Int("count", n))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}
