package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PGStore is the Postgres Store. Money is stored as integer paise.
type PGStore struct{ DB *pgxpool.Pool }

func NewPGStore(db *pgxpool.Pool) *PGStore { return &PGStore{DB: db} }

func toPaise(d decimal.Decimal) int64 { return d.Shift(2).Round(0).IntPart() }

func fromPaise(p int64) decimal.Decimal { return decimal.New(p, -2) }

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PGStore) CatalogItems(ctx context.Context, ids []string) (map[string]CatalogItem, error) {
	out := make(map[string]CatalogItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.DB.Query(ctx, `
		SELECT id, name, base_price_paise, available, managed_stock, stock
		FROM catalog_items WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			it    CatalogItem
			price int64
		)
		if err := rows.Scan(&it.ID, &it.Name, &price, &it.Available, &it.ManagedStock, &it.Stock); err != nil {
			rows.Close()
			return nil, err
		}
		it.BasePrice = fromPaise(price)
		out[it.ID] = it
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.DB.Query(ctx, `
		SELECT item_id, id, name, price_paise, available FROM item_variants
		WHERE item_id = ANY($1) ORDER BY item_id, position, id`, ids)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			itemID string
			v      Variant
			price  int64
		)
		if err := rows.Scan(&itemID, &v.ID, &v.Name, &price, &v.Available); err != nil {
			rows.Close()
			return nil, err
		}
		v.Price = fromPaise(price)
		if it, ok := out[itemID]; ok {
			it.Variants = append(it.Variants, v)
			out[itemID] = it
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.DB.Query(ctx, `
		SELECT item_id, id, name, price_paise, available FROM item_addons
		WHERE item_id = ANY($1) ORDER BY item_id, position, id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			itemID string
			a      Addon
			price  int64
		)
		if err := rows.Scan(&itemID, &a.ID, &a.Name, &price, &a.Available); err != nil {
			return nil, err
		}
		a.Price = fromPaise(price)
		if it, ok := out[itemID]; ok {
			it.Addons = append(it.Addons, a)
			out[itemID] = it
		}
	}
	return out, rows.Err()
}

func (s *PGStore) Coupon(ctx context.Context, code string) (*Coupon, error) {
	var (
		c        Coupon
		typ      string
		value    string
		minOrder int64
	)
	err := s.DB.QueryRow(ctx, `
		SELECT code, type, value::text, expires_at, usage_limit, used_count, active, min_order_paise
		FROM coupons WHERE code = $1`, code).
		Scan(&c.Code, &typ, &value, &c.ExpiresAt, &c.UsageLimit, &c.UsedCount, &c.Active, &minOrder)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.Type = CouponType(typ)
	if c.Value, err = decimal.NewFromString(value); err != nil {
		return nil, fmt.Errorf("coupon %s value %q: %w", code, value, err)
	}
	c.MinOrder = fromPaise(minOrder)
	return &c, nil
}

func (s *PGStore) StoreSettings(ctx context.Context) (OptionalSettings, error) {
	var st StoreSettings
	err := s.DB.QueryRow(ctx, `
		SELECT is_open, is_paused, closed_message, last_order_cutoff
		FROM store_settings WHERE id = 1`).
		Scan(&st.Open, &st.Paused, &st.ClosedMessage, &st.LastOrderCutoff)
	if errors.Is(err, pgx.ErrNoRows) {
		return NoSettings(), nil
	}
	if err != nil {
		return NoSettings(), err
	}
	return SettingsOf(st), nil
}

func (s *PGStore) Zone(ctx context.Context, pincode string) (*DeliveryZone, error) {
	var z DeliveryZone
	err := s.DB.QueryRow(ctx, `SELECT pincode, active FROM delivery_zones WHERE pincode = $1`, pincode).
		Scan(&z.Pincode, &z.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &z, nil
}

func (s *PGStore) Address(ctx context.Context, customerID, addressID string) (*Address, error) {
	var a Address
	err := s.DB.QueryRow(ctx, `
		SELECT id, name, phone, line1, city, pincode FROM customer_addresses
		WHERE id = $1 AND customer_id = $2`, addressID, customerID).
		Scan(&a.ID, &a.Name, &a.Phone, &a.Line1, &a.City, &a.Pincode)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PGStore) Order(ctx context.Context, id string) (*Order, error) {
	return readOrder(ctx, s.DB, id, false)
}

func (s *PGStore) DueScheduled(ctx context.Context, until time.Time, limit int) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id FROM orders
		WHERE status = $1 AND scheduled_for <= $2
		ORDER BY scheduled_for LIMIT $3`, string(StatusScheduled), until, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *PGStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const orderColumns = `
	id, number, customer_id, customer_name, customer_phone, address, status,
	subtotal_paise, discount_paise, cgst_paise, sgst_paise, tax_paise, total_paise,
	payment_method, payment_status, payment_ref, coupon_code, kind, scheduled_for,
	partner_id, invoice_number, created_at, updated_at`

func readOrder(ctx context.Context, q querier, id string, lock bool) (*Order, error) {
	sql := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if lock {
		sql += ` FOR UPDATE`
	}
	var (
		o                                          Order
		status, method, payStatus, kind            string
		subtotal, discount, cgst, sgst, tax, total int64
	)
	err := q.QueryRow(ctx, sql, id).Scan(
		&o.ID, &o.Number, &o.CustomerID, &o.CustomerName, &o.CustomerPhone, &o.Address, &status,
		&subtotal, &discount, &cgst, &sgst, &tax, &total,
		&method, &payStatus, &o.PaymentRef, &o.CouponCode, &kind, &o.ScheduledFor,
		&o.PartnerID, &o.InvoiceNumber, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	o.Status = Status(status)
	o.PaymentMethod = PaymentMethod(method)
	o.PaymentStatus = PaymentStatus(payStatus)
	o.Kind = Kind(kind)
	o.Subtotal = fromPaise(subtotal)
	o.Discount = fromPaise(discount)
	o.CGST = fromPaise(cgst)
	o.SGST = fromPaise(sgst)
	o.TaxTotal = fromPaise(tax)
	o.Total = fromPaise(total)

	rows, err := q.Query(ctx, `
		SELECT id, item_id, name, unit_price_paise, quantity, line_total_paise, variants, addons
		FROM order_lines WHERE order_id = $1 ORDER BY position`, o.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			l               OrderLine
			unit, lineTotal int64
		)
		if err := rows.Scan(&l.ID, &l.ItemID, &l.Name, &unit, &l.Quantity, &lineTotal, &l.Variants, &l.Addons); err != nil {
			return nil, err
		}
		l.UnitPrice = fromPaise(unit)
		l.LineTotal = fromPaise(lineTotal)
		o.Lines = append(o.Lines, l)
	}
	return &o, rows.Err()
}

type pgTx struct{ tx pgx.Tx }

func (t pgTx) LockStock(ctx context.Context, itemID string) (bool, int, bool, error) {
	var (
		managed bool
		stock   int
	)
	err := t.tx.QueryRow(ctx, `SELECT managed_stock, stock FROM catalog_items WHERE id = $1 FOR UPDATE`, itemID).
		Scan(&managed, &stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, 0, false, nil
	}
	if err != nil {
		return false, 0, false, err
	}
	return managed, stock, true, nil
}

func (t pgTx) DecrementStock(ctx context.Context, itemID string, qty int) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE catalog_items SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2`, itemID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("stock of %s changed under lock", itemID)
	}
	return nil
}

func (t pgTx) NextOrderNumber(ctx context.Context) (int64, error) {
	var n int64
	err := t.tx.QueryRow(ctx, `SELECT nextval('order_number_seq')`).Scan(&n)
	return n, err
}

func (t pgTx) InsertOrder(ctx context.Context, o *Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders (
			id, number, customer_id, customer_name, customer_phone, address, status,
			subtotal_paise, discount_paise, cgst_paise, sgst_paise, tax_paise, total_paise,
			payment_method, payment_status, payment_ref, coupon_code, kind, scheduled_for,
			partner_id, invoice_number, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)`,
		o.ID, o.Number, o.CustomerID, o.CustomerName, o.CustomerPhone, o.Address, string(o.Status),
		toPaise(o.Subtotal), toPaise(o.Discount), toPaise(o.CGST), toPaise(o.SGST), toPaise(o.TaxTotal), toPaise(o.Total),
		string(o.PaymentMethod), string(o.PaymentStatus), o.PaymentRef, o.CouponCode, string(o.Kind), o.ScheduledFor,
		o.PartnerID, o.InvoiceNumber, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for i, l := range o.Lines {
		variants, addons := l.Variants, l.Addons
		if variants == nil {
			variants = []LineOption{}
		}
		if addons == nil {
			addons = []LineOption{}
		}
		batch.Queue(`
			INSERT INTO order_lines (id, order_id, position, item_id, name, unit_price_paise, quantity, line_total_paise, variants, addons)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			l.ID, o.ID, i, l.ItemID, l.Name, toPaise(l.UnitPrice), l.Quantity, toPaise(l.LineTotal), variants, addons)
	}
	return t.tx.SendBatch(ctx, batch).Close()
}

func (t pgTx) RedeemCoupon(ctx context.Context, code string) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE coupons SET used_count = used_count + 1
		WHERE code = $1 AND active AND (usage_limit IS NULL OR used_count < usage_limit)`, code)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t pgTx) SetInvoiceNumber(ctx context.Context, orderID, invoice string) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE orders SET invoice_number = $2
		WHERE id = $1 AND invoice_number IS NULL`, orderID, invoice)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t pgTx) LockOrder(ctx context.Context, id string) (*Order, error) {
	return readOrder(ctx, t.tx, id, true)
}

func (t pgTx) CompareAndSetStatus(ctx context.Context, id string, from, to Status, partnerID *string, at time.Time) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE orders SET status = $3, partner_id = COALESCE($4, partner_id), updated_at = $5
		WHERE id = $1 AND status = $2`, id, string(from), string(to), partnerID, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t pgTx) LockPartner(ctx context.Context, id string) (*DeliveryPartner, error) {
	var (
		p      DeliveryPartner
		status string
	)
	err := t.tx.QueryRow(ctx, `SELECT id, name, phone, status FROM delivery_partners WHERE id = $1 FOR UPDATE`, id).
		Scan(&p.ID, &p.Name, &p.Phone, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Status = PartnerStatus(status)
	return &p, nil
}

func (t pgTx) SetPartnerStatus(ctx context.Context, id string, st PartnerStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE delivery_partners SET status = $2 WHERE id = $1`, id, string(st))
	return err
}
