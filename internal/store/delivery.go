package store

import (
	"context"

	"reminder-engine/internal/model"
)

func (s *Store) LogDelivery(ctx context.Context, d model.Delivery) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO reminder_deliveries (id, user_id, appointment_ids, endpoint, outcome, status_code, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		d.ID, d.UserID, d.AppointmentIDs, d.Endpoint, d.Outcome, d.StatusCode, d.CreatedAt,
	)
	return err
}

// DeliveriesForAppointment lists the attempts that carried an appointment, oldest first.
func (s *Store) DeliveriesForAppointment(ctx context.Context, appointmentID string) ([]model.Delivery, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, appointment_ids, endpoint, outcome, status_code, created_at
		 FROM reminder_deliveries
		 WHERE $1 = ANY(appointment_ids)
		 ORDER BY created_at`, appointmentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Delivery
	for rows.Next() {
		var d model.Delivery
		if err := rows.Scan(&d.ID, &d.UserID, &d.AppointmentIDs, &d.Endpoint, &d.Outcome, &d.StatusCode, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
