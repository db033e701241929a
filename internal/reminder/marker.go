package reminder

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// markSent stamps every appointment of the batch, whatever the delivery
// outcome was. A failed write leaves the appointment eligible next run.
func (e *Engine) markSent(ctx context.Context, b Batch, now time.Time) int {
	// marks must land even when the run deadline hit during sending
	mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	marked := 0
	for _, r := range b.Reminders {
		if err := e.store.MarkReminderSent(mctx, r.AppointmentID, now); err != nil {
			e.log.WithError(err).WithFields(logrus.Fields{
				"user_id":        b.UserID,
				"appointment_id": r.AppointmentID,
			}).Error("reminders: marking sent failed")
			continue
		}
		marked++
	}
	return marked
}
