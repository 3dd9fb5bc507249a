package fulfillment

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/inkforge/studio-fulfillment/internal/orders"
)

// Per-section outcome markers. NothingToDo is a success variant, not
// an error: the producer simply had no applicable work.
const (
	OutcomeCreated           = "created"
	OutcomeReserved          = "reserved"
	OutcomeNothingToDo       = "nothing_to_do"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomeFailed            = "failed"
)

// Report is the full per-producer result of one fulfillment run. The
// caller always gets it back once the aggregate loaded, whatever the
// individual producers did.
type Report struct {
	OrderID       string        `json:"order_id"`
	Reference     string        `json:"reference"`
	OrderStatus   orders.Status `json:"order_status"`
	StatusUpdated bool          `json:"status_updated"`
	Replayed      bool          `json:"replayed,omitempty"`

	Ledger      LedgerSection      `json:"financialTransaction"`
	Appointment AppointmentSection `json:"appointment"`
	Inventory   InventorySection   `json:"inventoryReservation"`
}

type LedgerSection struct {
	Status   string `json:"status"`
	EntryID  string `json:"id,omitempty"`
	Replayed bool   `json:"replayed,omitempty"`
	Error    string `json:"error,omitempty"`
}

type AppointmentSection struct {
	Status          string     `json:"status"`
	AppointmentID   string     `json:"id,omitempty"`
	ArtistID        string     `json:"artist_id,omitempty"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationMinutes int        `json:"duration_minutes,omitempty"`
	Replayed        bool       `json:"replayed,omitempty"`
	Error           string     `json:"error,omitempty"`
}

type InventorySection struct {
	Status string       `json:"status"`
	Items  []ItemReport `json:"items,omitempty"`
	Error  string       `json:"error,omitempty"`
}

func (s InventorySection) shortItems() []ItemReport {
	var out []ItemReport
	for _, it := range s.Items {
		if it.Status == OutcomeInsufficientStock {
			out = append(out, it)
		}
	}
	return out
}

type ItemReport struct {
	InventoryItemID string           `json:"inventory_item_id"`
	Name            string           `json:"name,omitempty"`
	Status          string           `json:"status"`
	Requested       decimal.Decimal  `json:"requested"`
	Available       *decimal.Decimal `json:"available,omitempty"`
	Remaining       *decimal.Decimal `json:"remaining,omitempty"`
	Error           string           `json:"error,omitempty"`
}

func (r *Report) ledgerOK() bool {
	return r.Ledger.Status == OutcomeCreated
}

func (r *Report) appointmentOK() bool {
	return r.Appointment.Status == OutcomeCreated || r.Appointment.Status == OutcomeNothingToDo
}

func (r *Report) inventoryOK() bool {
	return r.Inventory.Status == OutcomeReserved || r.Inventory.Status == OutcomeNothingToDo
}
