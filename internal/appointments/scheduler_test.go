package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/inkforge/studio-fulfillment/internal/orders"
)

type stubStore struct {
	got        Appointment
	existing   *Appointment
	insertErr  error
	linkErr    error
	inserted   int
	linkedTo   []string
	linkedProj []*string
}

func (s *stubStore) InsertAppointment(_ context.Context, a Appointment) (Appointment, bool, error) {
	s.inserted++
	s.got = a
	if s.insertErr != nil {
		return Appointment{}, false, s.insertErr
	}
	if s.existing != nil {
		return *s.existing, false, nil
	}
	return a, true, nil
}

func (s *stubStore) LinkProject(_ context.Context, appointmentID string, projectID *string) error {
	s.linkedTo = append(s.linkedTo, appointmentID)
	s.linkedProj = append(s.linkedProj, projectID)
	return s.linkErr
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func tattooAggregate(qty int) *orders.Aggregate {
	artist := "artist-1"
	return &orders.Aggregate{
		Order: orders.Order{
			ID:          "ord-1",
			Reference:   "ABC123",
			TotalAmount: decimal.RequireFromString("450.00"),
			Status:      orders.StatusPending,
		},
		Customer: orders.Customer{ID: "cus-1", FirstName: "Ana"},
		Items: []orders.OrderItem{{
			ID: "item-1", OrderID: "ord-1", ProductID: "prod-1", Quantity: qty,
			Product: orders.Product{ID: "prod-1", Name: "Blackwork brazo", ArtistID: &artist},
		}},
	}
}

func TestScheduleNothingToDoWithoutTattooItems(t *testing.T) {
	store := &stubStore{}
	s := &Scheduler{Store: store}

	agg := tattooAggregate(1)
	agg.Items[0].Product.ArtistID = nil

	res, err := s.Schedule(context.Background(), agg)
	require.NoError(t, err)
	require.True(t, res.NothingToDo)
	require.Zero(t, store.inserted, "nothing must be persisted")
	require.Empty(t, store.linkedTo)
}

func TestScheduleDefaultsToSevenDayLeadTime(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &stubStore{}
	s := &Scheduler{Store: store, Clock: fixedClock(now), NewID: func() string { return "apt-1" }}

	res, err := s.Schedule(context.Background(), tattooAggregate(1))
	require.NoError(t, err)
	require.False(t, res.NothingToDo)
	require.Equal(t, "apt-1", res.AppointmentID)
	require.Equal(t, now.Add(7*24*time.Hour), res.StartTime)
	require.Equal(t, 60, res.DurationMinutes)
	require.Equal(t, res.StartTime.Add(60*time.Minute), res.EndTime)

	a := store.got
	require.Equal(t, "cus-1", a.ClientID)
	require.Equal(t, "artist-1", a.ArtistID)
	require.Equal(t, StatusScheduled, a.Status)
	require.True(t, a.Price.Equal(decimal.RequireFromString("450.00")))
	require.Equal(t, "Tatuaje: Blackwork brazo - Pedido ABC123", a.Description)
	require.Equal(t, "ABC123", a.OrderRef)
}

func TestScheduleUsesFirstRankedPreference(t *testing.T) {
	preferred := time.Date(2025, 7, 10, 15, 0, 0, 0, time.UTC)
	store := &stubStore{}
	s := &Scheduler{Store: store, Clock: fixedClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))}

	agg := tattooAggregate(1)
	agg.Preferences = &orders.SchedulingPreferences{
		OrderID:        "ord-1",
		PreferredDates: []time.Time{preferred, preferred.Add(24 * time.Hour)},
	}

	res, err := s.Schedule(context.Background(), agg)
	require.NoError(t, err)
	require.Equal(t, preferred, res.StartTime)
}

func TestScheduleSumsDurationAcrossTattooItems(t *testing.T) {
	store := &stubStore{}
	s := &Scheduler{Store: store}

	artist2 := "artist-2"
	agg := tattooAggregate(2)
	agg.Items = append(agg.Items, orders.OrderItem{
		ID: "item-2", OrderID: "ord-1", ProductID: "prod-2", Quantity: 1,
		Product: orders.Product{ID: "prod-2", Name: "Fineline", ArtistID: &artist2},
	})

	res, err := s.Schedule(context.Background(), agg)
	require.NoError(t, err)
	require.Equal(t, 180, res.DurationMinutes)
	require.Equal(t, res.StartTime.Add(180*time.Minute), res.EndTime)
	// first tattoo item's artist wins
	require.Equal(t, "artist-1", res.ArtistID)
}

func TestScheduleLinksProjectWithNullReference(t *testing.T) {
	store := &stubStore{}
	s := &Scheduler{Store: store, NewID: func() string { return "apt-1" }}

	_, err := s.Schedule(context.Background(), tattooAggregate(1))
	require.NoError(t, err)
	require.Equal(t, []string{"apt-1"}, store.linkedTo)
	require.Len(t, store.linkedProj, 1)
	require.Nil(t, store.linkedProj[0])
}

func TestScheduleReplaysExistingAppointment(t *testing.T) {
	prev := Appointment{
		ID:              "apt-prev",
		ArtistID:        "artist-1",
		StartTime:       time.Date(2025, 6, 8, 12, 0, 0, 0, time.UTC),
		EndTime:         time.Date(2025, 6, 8, 13, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
		OrderRef:        "ABC123",
	}
	store := &stubStore{existing: &prev}
	s := &Scheduler{Store: store}

	res, err := s.Schedule(context.Background(), tattooAggregate(1))
	require.NoError(t, err)
	require.True(t, res.Replayed)
	require.Equal(t, "apt-prev", res.AppointmentID)
	require.Equal(t, prev.StartTime, res.StartTime)
	// the link upsert runs again; it is a no-op when the row exists
	require.Equal(t, []string{"apt-prev"}, store.linkedTo)
}

func TestScheduleRetryBackfillsProjectLink(t *testing.T) {
	store := &stubStore{linkErr: errors.New("connection reset"), existing: nil}
	s := &Scheduler{Store: store, NewID: func() string { return "apt-1" }}

	// First run books the appointment but dies on the join row.
	_, err := s.Schedule(context.Background(), tattooAggregate(1))
	require.Error(t, err)
	require.Contains(t, err.Error(), "link appointment project")

	// The retry lands on the replay path and must write the join row.
	store.linkErr = nil
	booked := store.got
	store.existing = &booked
	res, err := s.Schedule(context.Background(), tattooAggregate(1))
	require.NoError(t, err)
	require.True(t, res.Replayed)
	require.Equal(t, []string{"apt-1", "apt-1"}, store.linkedTo)
}

func TestScheduleSurfacesPersistenceError(t *testing.T) {
	store := &stubStore{insertErr: errors.New("deadlock detected")}
	s := &Scheduler{Store: store}

	_, err := s.Schedule(context.Background(), tattooAggregate(1))
	require.Error(t, err)
	require.Contains(t, err.Error(), "insert appointment")
}
