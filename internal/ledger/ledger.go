package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/inkforge/studio-fulfillment/internal/orders"
)

const (
	TypeRevenue        = "revenue"
	CategoryOnlineSale = "online_sale"
)

// Entry is one financial transaction row. Created exactly once per
// order reference; never updated afterwards.
type Entry struct {
	ID              string
	Type            string
	Amount          decimal.Decimal
	Date            time.Time
	Description     string
	Category        string
	PaymentMethod   string
	ReferenceNumber string
	Reconciled      bool
	Tags            []string
}

type Store interface {
	// InsertEntry writes the entry, or returns the id of the entry
	// already recorded under the same reference number.
	InsertEntry(ctx context.Context, e Entry) (id string, created bool, err error)
}

type Result struct {
	EntryID  string
	Replayed bool // an entry for this reference already existed
}

// Creator converts a loaded order aggregate into a revenue entry.
type Creator struct {
	Store Store
	Clock func() time.Time
	NewID func() string
}

func (c *Creator) Record(ctx context.Context, agg *orders.Aggregate) (Result, error) {
	e := Entry{
		ID:              c.newID(),
		Type:            TypeRevenue,
		Amount:          agg.Order.TotalAmount,
		Date:            c.now(),
		Description:     fmt.Sprintf("Venta online %s - %s", agg.Order.Reference, agg.Customer.DisplayName()),
		Category:        CategoryOnlineSale,
		PaymentMethod:   agg.Order.PaymentMethod,
		ReferenceNumber: agg.Order.Reference,
		Reconciled:      false,
		Tags:            []string{"venta", "online"},
	}
	id, created, err := c.Store.InsertEntry(ctx, e)
	if err != nil {
		return Result{}, fmt.Errorf("insert ledger entry: %w", err)
	}
	return Result{EntryID: id, Replayed: !created}, nil
}

func (c *Creator) now() time.Time {
	if c.Clock != nil {
		return c.Clock().UTC()
	}
	return time.Now().UTC()
}

func (c *Creator) newID() string {
	if c.NewID != nil {
		return c.NewID()
	}
	return uuid.NewString()
}
