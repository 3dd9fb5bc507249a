package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var ErrItemNotFound = errors.New("inventory item not found")

type PgStore struct{ DB *pgxpool.Pool }

func (s *PgStore) RequirementsForProducts(ctx context.Context, productIDs []string) ([]MaterialRequirement, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	rows, err := s.DB.Query(ctx, `
		SELECT product_id, inventory_item_id, quantity_per_unit
		FROM material_requirements
		WHERE product_id = ANY($1)
		ORDER BY inventory_item_id`, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MaterialRequirement
	for rows.Next() {
		var r MaterialRequirement
		if err := rows.Scan(&r.ProductID, &r.InventoryItemID, &r.QuantityPerUnit); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DecrementStock is a single conditional update guarded on available
// quantity, so two concurrent runs can never drive stock negative.
func (s *PgStore) DecrementStock(ctx context.Context, itemID string, needed decimal.Decimal) (string, decimal.Decimal, bool, error) {
	var (
		name      string
		remaining decimal.Decimal
	)
	err := s.DB.QueryRow(ctx, `
		UPDATE inventory_items
		SET quantity = quantity - $2, updated_at = now()
		WHERE id = $1 AND quantity >= $2
		RETURNING name, quantity`, itemID, needed).Scan(&name, &remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", decimal.Decimal{}, false, nil
	}
	if err != nil {
		return "", decimal.Decimal{}, false, err
	}
	return name, remaining, true, nil
}

func (s *PgStore) ItemStock(ctx context.Context, itemID string) (string, decimal.Decimal, error) {
	var (
		name string
		qty  decimal.Decimal
	)
	err := s.DB.QueryRow(ctx,
		`SELECT name, quantity FROM inventory_items WHERE id = $1`, itemID).Scan(&name, &qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", decimal.Decimal{}, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	if err != nil {
		return "", decimal.Decimal{}, err
	}
	return name, qty, nil
}
