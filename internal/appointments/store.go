package appointments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct{ DB *pgxpool.Pool }

// InsertAppointment is insert-once per order reference. A retry gets
// the appointment booked by the first run back instead of a duplicate.
func (s *PgStore) InsertAppointment(ctx context.Context, a Appointment) (Appointment, bool, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
		INSERT INTO appointments(id, client_id, artist_id, start_time, end_time, price, status, description, duration_minutes, order_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (order_ref) DO NOTHING
		RETURNING id`,
		a.ID, a.ClientID, a.ArtistID, a.StartTime, a.EndTime, a.Price, a.Status, a.Description, a.DurationMinutes, a.OrderRef,
	).Scan(&id)
	if err == nil {
		return a, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Appointment{}, false, err
	}

	var existing Appointment
	err = s.DB.QueryRow(ctx, `
		SELECT id, client_id, artist_id, start_time, end_time, price, status, description, duration_minutes, order_ref
		FROM appointments
		WHERE order_ref = $1`, a.OrderRef).Scan(
		&existing.ID, &existing.ClientID, &existing.ArtistID, &existing.StartTime, &existing.EndTime,
		&existing.Price, &existing.Status, &existing.Description, &existing.DurationMinutes, &existing.OrderRef,
	)
	if err != nil {
		return Appointment{}, false, fmt.Errorf("lookup existing appointment: %w", err)
	}
	return existing, false, nil
}

func (s *PgStore) LinkProject(ctx context.Context, appointmentID string, projectID *string) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO appointment_projects(appointment_id, project_id)
		VALUES ($1, $2)
		ON CONFLICT (appointment_id) DO NOTHING`, appointmentID, projectID)
	return err
}
