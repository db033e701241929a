package reminder

import (
	"strings"

	"reminder-engine/internal/model"
)

const (
	NotificationTitle = "Appointment reminder"
	NotificationTag   = "appointment-reminder"
)

// Batch is everything needed to notify one user in one run.
type Batch struct {
	UserID        string
	Reminders     []model.DueReminder
	Subscriptions []model.PushSubscription
	Notification  model.Notification
}

func (b Batch) AppointmentIDs() []string {
	ids := make([]string, len(b.Reminders))
	for i, r := range b.Reminders {
		ids[i] = r.AppointmentID
	}
	return ids
}

// Group partitions due reminders by owner, in order of first appearance.
// Users without subscriptions still get a batch.
func Group(due []model.DueReminder, subs []model.PushSubscription) []Batch {
	bySubUser := make(map[string][]model.PushSubscription)
	for _, s := range subs {
		bySubUser[s.UserID] = append(bySubUser[s.UserID], s)
	}

	idx := make(map[string]int)
	var out []Batch
	for _, d := range due {
		i, ok := idx[d.UserID]
		if !ok {
			i = len(out)
			idx[d.UserID] = i
			out = append(out, Batch{UserID: d.UserID, Subscriptions: bySubUser[d.UserID]})
		}
		out[i].Reminders = append(out[i].Reminders, d)
	}

	for i := range out {
		texts := make([]string, len(out[i].Reminders))
		for j, r := range out[i].Reminders {
			texts[j] = r.Text
		}
		out[i].Notification = model.Notification{
			Title: NotificationTitle,
			Body:  strings.Join(texts, "; "),
			Tag:   NotificationTag,
		}
	}
	return out
}

// UserIDs lists the distinct owners of the due reminders.
func UserIDs(due []model.DueReminder) []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range due {
		if !seen[d.UserID] {
			seen[d.UserID] = true
			out = append(out, d.UserID)
		}
	}
	return out
}
