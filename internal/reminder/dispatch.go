package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"reminder-engine/internal/model"
	"reminder-engine/internal/push"
)

// Outcome counts the per-subscription results of one batch.
type Outcome struct {
	Delivered int
	Gone      int
	Failed    int
	// Skipped sends were never attempted because the run deadline passed.
	Skipped int
}

// dispatch sends the batch's notification to each subscription
// independently. Failures are never retried; gone endpoints are pruned.
func (e *Engine) dispatch(ctx context.Context, b Batch) Outcome {
	var out Outcome
	if len(b.Subscriptions) == 0 {
		return out
	}

	payload, err := json.Marshal(b.Notification)
	if err != nil {
		e.log.WithError(err).WithField("user_id", b.UserID).Error("reminders: encoding payload failed")
		return out
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(e.fanoutSize)
	for _, sub := range b.Subscriptions {
		g.Go(func() error {
			if ctx.Err() != nil {
				mu.Lock()
				out.Skipped++
				mu.Unlock()
				return nil
			}
			err := e.sender.Send(ctx, sub, payload)
			outcome := classify(err)

			mu.Lock()
			switch outcome {
			case model.OutcomeDelivered:
				out.Delivered++
			case model.OutcomeGone:
				out.Gone++
			default:
				out.Failed++
			}
			mu.Unlock()

			fields := logrus.Fields{"user_id": b.UserID, "endpoint": sub.Endpoint}
			switch outcome {
			case model.OutcomeGone:
				e.log.WithFields(fields).Info("reminders: endpoint gone, removing subscription")
				e.prune(ctx, sub)
			case model.OutcomeFailed:
				e.log.WithFields(fields).WithError(err).Warn("reminders: push failed")
			}
			e.logDelivery(ctx, b, sub, outcome, push.StatusCode(err))
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func classify(err error) string {
	switch {
	case err == nil:
		return model.OutcomeDelivered
	case errors.Is(err, push.ErrGone):
		return model.OutcomeGone
	default:
		return model.OutcomeFailed
	}
}

func (e *Engine) logDelivery(ctx context.Context, b Batch, sub model.PushSubscription, outcome string, code int) {
	d := model.Delivery{
		ID:             uuid.NewString(),
		UserID:         b.UserID,
		AppointmentIDs: b.AppointmentIDs(),
		Endpoint:       sub.Endpoint,
		Outcome:        outcome,
		StatusCode:     code,
		CreatedAt:      e.now(),
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := e.store.LogDelivery(wctx, d); err != nil {
		e.log.WithError(err).WithField("endpoint", sub.Endpoint).Debug("reminders: delivery log write failed")
	}
}
