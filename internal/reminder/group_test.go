package reminder_test

import (
	"testing"

	"reminder-engine/internal/model"
	"reminder-engine/internal/reminder"
)

func TestGroupMergesPerUser(t *testing.T) {
	due := []model.DueReminder{
		{AppointmentID: "a1", UserID: "u1", Text: "GP 10/05 09:00"},
		{AppointmentID: "b1", UserID: "u2", Text: "Dentist 10/05 10:00"},
		{AppointmentID: "a2", UserID: "u1", Text: "MRI 10/05 11:00"},
	}
	subs := []model.PushSubscription{
		{Endpoint: "https://push.example/1", UserID: "u1"},
		{Endpoint: "https://push.example/2", UserID: "u1"},
		{Endpoint: "https://push.example/3", UserID: "u3"},
	}

	batches := reminder.Group(due, subs)
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}

	u1 := batches[0]
	if u1.UserID != "u1" {
		t.Fatalf("expected first batch for u1, got %s", u1.UserID)
	}
	if u1.Notification.Body != "GP 10/05 09:00; MRI 10/05 11:00" {
		t.Errorf("unexpected body %q", u1.Notification.Body)
	}
	if u1.Notification.Title != reminder.NotificationTitle || u1.Notification.Tag != reminder.NotificationTag {
		t.Errorf("unexpected title/tag %+v", u1.Notification)
	}
	if len(u1.Subscriptions) != 2 {
		t.Errorf("expected 2 subscriptions for u1, got %d", len(u1.Subscriptions))
	}
	ids := u1.AppointmentIDs()
	if len(ids) != 2 || ids[0] != "a1" || ids[1] != "a2" {
		t.Errorf("unexpected appointment ids %v", ids)
	}

	u2 := batches[1]
	if u2.Notification.Body != "Dentist 10/05 10:00" {
		t.Errorf("single reminder should be used verbatim, got %q", u2.Notification.Body)
	}
	if len(u2.Subscriptions) != 0 {
		t.Errorf("expected no subscriptions for u2, got %d", len(u2.Subscriptions))
	}
}

func TestUserIDs(t *testing.T) {
	due := []model.DueReminder{{UserID: "u2"}, {UserID: "u1"}, {UserID: "u2"}}
	got := reminder.UserIDs(due)
	if len(got) != 2 || got[0] != "u2" || got[1] != "u1" {
		t.Fatalf("unexpected ids %v", got)
	}
}
