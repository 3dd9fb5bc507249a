package appointments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/inkforge/studio-fulfillment/internal/orders"
)

const (
	StatusScheduled = "scheduled"

	// Placeholder slot when the order carries no scheduling preference.
	DefaultLeadTime = 7 * 24 * time.Hour

	// Each purchased tattoo unit books one hour of studio time.
	MinutesPerUnit = 60
)

type Appointment struct {
	ID              string
	ClientID        string
	ArtistID        string
	StartTime       time.Time
	EndTime         time.Time
	Price           decimal.Decimal
	Status          string
	Description     string
	DurationMinutes int
	OrderRef        string
}

type Store interface {
	// InsertAppointment writes the appointment, or returns the one
	// already booked for the same order reference.
	InsertAppointment(ctx context.Context, a Appointment) (stored Appointment, created bool, err error)
	// LinkProject writes the appointment-project join row. projectID
	// stays nil here: this core never creates projects.
	LinkProject(ctx context.Context, appointmentID string, projectID *string) error
}

type Result struct {
	NothingToDo     bool // no tattoo-bearing items; nothing persisted
	AppointmentID   string
	ArtistID        string
	StartTime       time.Time
	EndTime         time.Time
	DurationMinutes int
	Replayed        bool
}

// Scheduler derives a concrete appointment window from the order's
// scheduling preferences and persists it.
type Scheduler struct {
	Store Store
	Clock func() time.Time
	NewID func() string
}

// Schedule books one appointment per order using the first tattoo
// item's artist. Orders without tattoo items succeed with nothing to do.
func (s *Scheduler) Schedule(ctx context.Context, agg *orders.Aggregate) (Result, error) {
	tattoo := agg.TattooItems()
	if len(tattoo) == 0 {
		return Result{NothingToDo: true}, nil
	}

	first := tattoo[0]
	start := s.startTime(agg.Preferences)
	minutes := 0
	for _, it := range tattoo {
		minutes += it.Quantity * MinutesPerUnit
	}
	end := start.Add(time.Duration(minutes) * time.Minute)

	a := Appointment{
		ID:              s.newID(),
		ClientID:        agg.Customer.ID,
		ArtistID:        *first.Product.ArtistID,
		StartTime:       start,
		EndTime:         end,
		Price:           agg.Order.TotalAmount,
		Status:          StatusScheduled,
		Description:     fmt.Sprintf("Tatuaje: %s - Pedido %s", first.Product.Name, agg.Order.Reference),
		DurationMinutes: minutes,
		OrderRef:        agg.Order.Reference,
	}
	stored, created, err := s.Store.InsertAppointment(ctx, a)
	if err != nil {
		return Result{}, fmt.Errorf("insert appointment: %w", err)
	}
	// Link on replay too: a run that booked the appointment but died
	// before the join row leaves it for the retry to backfill.
	if err := s.Store.LinkProject(ctx, stored.ID, nil); err != nil {
		return Result{}, fmt.Errorf("link appointment project: %w", err)
	}
	return Result{
		AppointmentID:   stored.ID,
		ArtistID:        stored.ArtistID,
		StartTime:       stored.StartTime,
		EndTime:         stored.EndTime,
		DurationMinutes: stored.DurationMinutes,
		Replayed:        !created,
	}, nil
}

func (s *Scheduler) startTime(p *orders.SchedulingPreferences) time.Time {
	if p != nil && len(p.PreferredDates) > 0 {
		return p.PreferredDates[0]
	}
	return s.now().Add(DefaultLeadTime)
}

func (s *Scheduler) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

func (s *Scheduler) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}
