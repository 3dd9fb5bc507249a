package orders

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Customer struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
}

// DisplayName joins the name parts, falling back to the generic
// customer label when both are blank.
func (c Customer) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
	if name == "" {
		return "Cliente"
	}
	return name
}

// Product is a read-only input. ArtistID is nil for non-tattoo goods.
type Product struct {
	ID       string
	Name     string
	ArtistID *string
}

type Order struct {
	ID            string
	Reference     string
	CustomerID    string
	TotalAmount   decimal.Decimal
	PaymentMethod string
	Status        Status
	CreatedAt     time.Time
}

type OrderItem struct {
	ID        string
	OrderID   string
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
	Product   Product
}

// SchedulingPreferences holds up to three ranked preferred slots.
// Zero or one per order; orders without tattoo items carry none.
type SchedulingPreferences struct {
	OrderID        string
	PreferredDates []time.Time
	Notes          string
}

// Aggregate is the full unit of work for one fulfillment run, loaded
// as a single consistent read and immutable afterwards.
type Aggregate struct {
	Order       Order
	Customer    Customer
	Items       []OrderItem
	Preferences *SchedulingPreferences
}

// TattooItems returns the items whose product carries an artist.
func (a *Aggregate) TattooItems() []OrderItem {
	var out []OrderItem
	for _, it := range a.Items {
		if it.Product.ArtistID != nil && *it.Product.ArtistID != "" {
			out = append(out, it)
		}
	}
	return out
}

// ProductIDs lists the distinct product ids across the order items.
func (a *Aggregate) ProductIDs() []string {
	seen := make(map[string]bool, len(a.Items))
	out := make([]string, 0, len(a.Items))
	for _, it := range a.Items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			out = append(out, it.ProductID)
		}
	}
	return out
}
