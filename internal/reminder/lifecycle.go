package reminder

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"reminder-engine/internal/model"
)

// prune deletes a subscription the push service reported as gone.
// Deleting an endpoint that is already absent is not an error.
func (e *Engine) prune(ctx context.Context, sub model.PushSubscription) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := e.store.DeleteSubscription(dctx, sub.Endpoint); err != nil {
		e.log.WithError(err).WithFields(logrus.Fields{
			"user_id":  sub.UserID,
			"endpoint": sub.Endpoint,
		}).Error("reminders: removing gone subscription failed")
	}
}
