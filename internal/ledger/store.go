package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct{ DB *pgxpool.Pool }

// InsertEntry is insert-once per reference number. On conflict the
// existing entry id is returned so a retry replays instead of
// duplicating the revenue row.
func (s *PgStore) InsertEntry(ctx context.Context, e Entry) (string, bool, error) {
	ct, err := s.DB.Exec(ctx, `
		INSERT INTO ledger_entries(id, type, amount, date, description, category, payment_method, reference_number, reconciled, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (reference_number) DO NOTHING`,
		e.ID, e.Type, e.Amount, e.Date, e.Description, e.Category, e.PaymentMethod, e.ReferenceNumber, e.Reconciled, e.Tags,
	)
	if err != nil {
		return "", false, err
	}
	if ct.RowsAffected() == 1 {
		return e.ID, true, nil
	}
	var id string
	if err := s.DB.QueryRow(ctx,
		`SELECT id FROM ledger_entries WHERE reference_number = $1`, e.ReferenceNumber).Scan(&id); err != nil {
		return "", false, fmt.Errorf("lookup existing entry: %w", err)
	}
	return id, false, nil
}
