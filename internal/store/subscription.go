package store

import (
	"context"

	"reminder-engine/internal/model"
)

func (s *Store) SubscriptionsForUsers(ctx context.Context, userIDs []string) ([]model.PushSubscription, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT endpoint, user_id, p256dh_key, auth_key, created_at
		 FROM push_subscriptions
		 WHERE user_id = ANY($1::uuid[])`, userIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PushSubscription
	for rows.Next() {
		var p model.PushSubscription
		if err := rows.Scan(&p.Endpoint, &p.UserID, &p.P256dhKey, &p.AuthKey, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpsertSubscription keys on endpoint; a browser re-registering under a
// different account moves the row to that account.
func (s *Store) UpsertSubscription(ctx context.Context, p *model.PushSubscription) error {
	return s.pool.QueryRow(ctx,
		`INSERT INTO push_subscriptions (endpoint, user_id, p256dh_key, auth_key)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (endpoint) DO UPDATE
		 SET user_id = EXCLUDED.user_id,
		     p256dh_key = EXCLUDED.p256dh_key,
		     auth_key = EXCLUDED.auth_key,
		     updated_at = NOW()
		 RETURNING created_at`,
		p.Endpoint, p.UserID, p.P256dhKey, p.AuthKey,
	).Scan(&p.CreatedAt)
}

// DeleteSubscription succeeds whether or not the row existed.
func (s *Store) DeleteSubscription(ctx context.Context, endpoint string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM push_subscriptions WHERE endpoint = $1`, endpoint)
	return err
}

func (s *Store) DeleteUserSubscription(ctx context.Context, userID, endpoint string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM push_subscriptions WHERE endpoint = $1 AND user_id = $2`, endpoint, userID)
	return err
}
