package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

var ErrNotFound = errors.New("order not found")

// LoadAggregate fetches the order plus customer, items with products
// and the optional scheduling preferences in one consistent read.
func (r *Repo) LoadAggregate(ctx context.Context, orderID string) (*Aggregate, error) {
	var (
		agg    Aggregate
		status string
	)
	err := r.DB.QueryRow(ctx, `
		SELECT o.id, o.reference, o.customer_id, o.total_amount, o.payment_method, o.status, o.created_at,
		       c.id, c.first_name, c.last_name, c.email
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		WHERE o.id = $1`, orderID).Scan(
		&agg.Order.ID, &agg.Order.Reference, &agg.Order.CustomerID, &agg.Order.TotalAmount,
		&agg.Order.PaymentMethod, &status, &agg.Order.CreatedAt,
		&agg.Customer.ID, &agg.Customer.FirstName, &agg.Customer.LastName, &agg.Customer.Email,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	agg.Order.Status = Status(status)

	rows, err := r.DB.Query(ctx, `
		SELECT i.id, i.product_id, i.qty, i.unit_price, p.name, p.artist_id
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.order_id = $1
		ORDER BY i.id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		it := OrderItem{OrderID: orderID}
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.Product.Name, &it.Product.ArtistID); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		it.Product.ID = it.ProductID
		agg.Items = append(agg.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}

	prefs, err := r.loadPreferences(ctx, orderID)
	if err != nil {
		return nil, err
	}
	agg.Preferences = prefs
	return &agg, nil
}

func (r *Repo) loadPreferences(ctx context.Context, orderID string) (*SchedulingPreferences, error) {
	var (
		p          SchedulingPreferences
		d1, d2, d3 *time.Time
		notes      *string
	)
	err := r.DB.QueryRow(ctx, `
		SELECT order_id, preferred_date_1, preferred_date_2, preferred_date_3, notes
		FROM scheduling_preferences
		WHERE order_id = $1`, orderID).Scan(&p.OrderID, &d1, &d2, &d3, &notes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load scheduling preferences: %w", err)
	}
	for _, d := range []*time.Time{d1, d2, d3} {
		if d != nil {
			p.PreferredDates = append(p.PreferredDates, *d)
		}
	}
	if notes != nil {
		p.Notes = *notes
	}
	return &p, nil
}

// UpdateStatus applies from->to only while the row is still in from,
// so a concurrent run cannot rewind or double-apply a transition.
func (r *Repo) UpdateStatus(ctx context.Context, orderID string, from, to Status) (bool, error) {
	if !CanTransition(from, to) {
		return false, fmt.Errorf("invalid status transition %s -> %s", from, to)
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`, orderID, string(from), string(to))
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repo) GetStatus(ctx context.Context, orderID string) (Status, error) {
	var s string
	err := r.DB.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, orderID).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return Status(s), nil
}
