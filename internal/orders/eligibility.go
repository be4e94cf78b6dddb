package orders

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MinScheduleLead is how far ahead a scheduled order must be placed.
const MinScheduleLead = 30 * time.Minute

type StoreSettings struct {
	Open          bool
	Paused        bool
	ClosedMessage string
	// LastOrderCutoff is "HH:MM" in the store's time zone; empty means none.
	LastOrderCutoff string
}

// OptionalSettings is either no settings at all (no restrictions) or a settings record.
type OptionalSettings struct {
	settings StoreSettings
	present  bool
}

func NoSettings() OptionalSettings { return OptionalSettings{} }

func SettingsOf(s StoreSettings) OptionalSettings {
	return OptionalSettings{settings: s, present: true}
}

func (o OptionalSettings) Get() (StoreSettings, bool) { return o.settings, o.present }

type SettingsProvider interface {
	StoreSettings(ctx context.Context) (OptionalSettings, error)
}

type ZoneProvider interface {
	// Zone returns nil when no zone exists for the pincode.
	Zone(ctx context.Context, pincode string) (*DeliveryZone, error)
}

type AddressBook interface {
	// Address returns nil when the customer has no such address.
	Address(ctx context.Context, customerID, addressID string) (*Address, error)
}

// Intent is what the gate needs to know about an order before any pricing.
type Intent struct {
	Kind         Kind
	ScheduledFor *time.Time
	CustomerID   *string
	AddressID    string
	GuestAddress *Address
}

type Gate struct {
	settings  SettingsProvider
	zones     ZoneProvider
	addresses AddressBook
	loc       *time.Location
	now       func() time.Time
}

func NewGate(settings SettingsProvider, zones ZoneProvider, addresses AddressBook, loc *time.Location) *Gate {
	if loc == nil {
		loc = time.UTC
	}
	return &Gate{settings: settings, zones: zones, addresses: addresses, loc: loc, now: time.Now}
}

// Check runs the eligibility rules in order and stops at the first failure.
// On success it returns the resolved delivery address.
func (g *Gate) Check(ctx context.Context, in Intent) (Address, error) {
	now := g.now().In(g.loc)

	if in.Kind != KindInstant && in.Kind != KindScheduled {
		return Address{}, reject(ErrInvalid, "INVALID_KIND", "Order type must be INSTANT or SCHEDULED", string(in.Kind))
	}

	opt, err := g.settings.StoreSettings(ctx)
	if err != nil {
		return Address{}, fmt.Errorf("load store settings: %w", err)
	}
	if s, ok := opt.Get(); ok {
		if err := checkStoreHours(s, in.Kind, now); err != nil {
			return Address{}, err
		}
	}

	addr, err := g.resolveAddress(ctx, in)
	if err != nil {
		return Address{}, err
	}
	zone, err := g.zones.Zone(ctx, addr.Pincode)
	if err != nil {
		return Address{}, fmt.Errorf("load delivery zone %s: %w", addr.Pincode, err)
	}
	if zone == nil || !zone.Active {
		return Address{}, reject(ErrEligibility, CodeZoneUnserviceable,
			fmt.Sprintf("Sorry, we don't deliver to pincode %s yet", addr.Pincode), addr.Pincode)
	}

	if in.Kind == KindScheduled {
		if in.ScheduledFor == nil {
			return Address{}, reject(ErrInvalid, CodeScheduleRequired, "Scheduled orders need a delivery time", "")
		}
		if in.ScheduledFor.Before(now.Add(MinScheduleLead)) {
			return Address{}, reject(ErrEligibility, CodeScheduleTooSoon,
				"Scheduled orders must be placed at least 30 minutes in advance", "")
		}
	}
	return addr, nil
}

func checkStoreHours(s StoreSettings, kind Kind, now time.Time) error {
	if s.Paused {
		return reject(ErrEligibility, CodeStorePaused, "We are not accepting orders right now", "")
	}
	if kind != KindInstant {
		return nil
	}
	if !s.Open {
		msg := s.ClosedMessage
		if msg == "" {
			msg = "The store is currently closed"
		}
		return reject(ErrEligibility, CodeStoreClosed, msg, "")
	}
	// Same-day comparison only: a cutoff after midnight (e.g. 01:30) is
	// evaluated against today's 01:30 and rejects the whole evening.
	if cutoff, ok := cutoffOn(now, s.LastOrderCutoff); ok && now.After(cutoff) {
		return reject(ErrEligibility, CodeCutoffPassed,
			fmt.Sprintf("We stopped taking orders at %s today", s.LastOrderCutoff), "")
	}
	return nil
}

func cutoffOn(day time.Time, hhmm string) (time.Time, bool) {
	hhmm = strings.TrimSpace(hhmm)
	if hhmm == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), true
}

func (g *Gate) resolveAddress(ctx context.Context, in Intent) (Address, error) {
	if in.GuestAddress != nil {
		a := *in.GuestAddress
		a.Pincode = strings.TrimSpace(a.Pincode)
		if a.Pincode == "" || a.Name == "" || a.Phone == "" {
			return Address{}, reject(ErrInvalid, CodeAddressNotFound, "Guest orders need a name, phone and pincode", "")
		}
		return a, nil
	}
	if in.CustomerID == nil || in.AddressID == "" {
		return Address{}, reject(ErrInvalid, CodeAddressNotFound, "A delivery address is required", "")
	}
	a, err := g.addresses.Address(ctx, *in.CustomerID, in.AddressID)
	if err != nil {
		return Address{}, fmt.Errorf("load address %s: %w", in.AddressID, err)
	}
	if a == nil {
		return Address{}, reject(ErrEligibility, CodeAddressNotFound, "Delivery address not found", in.AddressID)
	}
	addr := *a
	addr.Pincode = strings.TrimSpace(addr.Pincode)
	return addr, nil
}
