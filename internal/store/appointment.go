package store

import (
	"context"
	"time"

	"reminder-engine/internal/model"
)

// PendingReminders returns every appointment that asked for a reminder
// and has not been marked sent yet.
func (s *Store) PendingReminders(ctx context.Context) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, to_char(date, 'YYYY-MM-DD'),
		        COALESCE(to_char(time, 'HH24:MI:SS'), ''), type,
		        COALESCE(doctor, ''), COALESCE(location, ''),
		        reminder_minutes_before, reminder_sent_at, created_at
		 FROM appointments
		 WHERE reminder_sent_at IS NULL
		   AND reminder_minutes_before IS NOT NULL`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		var a model.Appointment
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.Date, &a.Time, &a.Type, &a.Doctor, &a.Location,
			&a.ReminderMinutesBefore, &a.ReminderSentAt, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MarkReminderSent is a no-op for appointments that already carry a marker.
func (s *Store) MarkReminderSent(ctx context.Context, appointmentID string, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE appointments SET reminder_sent_at = $1, updated_at = NOW()
		 WHERE id = $2 AND reminder_sent_at IS NULL`, at, appointmentID,
	)
	return err
}

// CreateAppointment is used by fixtures and local tooling; the CRUD UI
// owns appointments in production.
func (s *Store) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	return s.pool.QueryRow(ctx,
		`INSERT INTO appointments (user_id, date, time, type, doctor, location, reminder_minutes_before)
		 VALUES ($1, ($2::text)::date, NULLIF($3::text, '')::time, $4, NULLIF($5, ''), NULLIF($6, ''), $7)
		 RETURNING id, created_at`,
		a.UserID, a.Date, a.Time, a.Type, a.Doctor, a.Location, a.ReminderMinutesBefore,
	).Scan(&a.ID, &a.CreatedAt)
}
