package reminder_test

import (
	"testing"
	"time"

	"reminder-engine/internal/model"
	"reminder-engine/internal/reminder"
)

func intp(v int) *int { return &v }

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func appt(id, user, typ, date, tod string, before *int) model.Appointment {
	return model.Appointment{
		ID: id, UserID: user, Type: typ, Date: date, Time: tod,
		ReminderMinutesBefore: before,
	}
}

func TestSelectDueWindowBoundary(t *testing.T) {
	a := appt("a1", "u1", "GP", "2025-05-10", "14:00", intp(30))

	due := reminder.SelectDue([]model.Appointment{a}, at("2025-05-10 13:31"), reminder.DefaultWindow, time.UTC)
	if len(due) != 1 {
		t.Fatalf("expected reminder due at 13:31, got %d", len(due))
	}
	if !due[0].DueAt.Equal(at("2025-05-10 13:30")) {
		t.Errorf("expected due at 13:30, got %v", due[0].DueAt)
	}
	if due[0].Text != "GP 10/05 14:00" {
		t.Errorf("unexpected text %q", due[0].Text)
	}

	due = reminder.SelectDue([]model.Appointment{a}, at("2025-05-10 13:50"), reminder.DefaultWindow, time.UTC)
	if len(due) != 0 {
		t.Fatalf("expected nothing due at 13:50, got %d", len(due))
	}
}

func TestSelectDueEdges(t *testing.T) {
	a := appt("a1", "u1", "GP", "2025-05-10", "14:00", intp(30))

	tests := []struct {
		name string
		now  string
		want int
	}{
		{"before due instant", "2025-05-10 13:29", 0},
		{"exactly due", "2025-05-10 13:30", 1},
		{"window end inclusive", "2025-05-10 13:45", 1},
		{"just past window", "2025-05-10 13:46", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reminder.SelectDue([]model.Appointment{a}, at(tt.now), reminder.DefaultWindow, time.UTC)
			if len(got) != tt.want {
				t.Errorf("expected %d due, got %d", tt.want, len(got))
			}
		})
	}
}

func TestSelectDueMissingTimeIsMidnight(t *testing.T) {
	a := appt("a1", "u1", "Blood test", "2025-05-10", "", intp(60))

	due := reminder.SelectDue([]model.Appointment{a}, at("2025-05-09 23:05"), reminder.DefaultWindow, time.UTC)
	if len(due) != 1 {
		t.Fatalf("expected reminder due, got %d", len(due))
	}
	if due[0].Text != "Blood test 10/05" {
		t.Errorf("unexpected text %q", due[0].Text)
	}
}

func TestSelectDueSkipsUnusable(t *testing.T) {
	sent := at("2025-05-10 13:00")
	now := at("2025-05-10 13:31")

	candidates := []model.Appointment{
		appt("bad-date", "u1", "GP", "10/05/2025", "14:00", intp(30)),
		appt("bad-time", "u1", "GP", "2025-05-10", "2pm", intp(30)),
		appt("no-reminder", "u1", "GP", "2025-05-10", "14:00", nil),
		{ID: "already-sent", UserID: "u1", Type: "GP", Date: "2025-05-10", Time: "14:00",
			ReminderMinutesBefore: intp(30), ReminderSentAt: &sent},
		appt("seconds", "u1", "GP", "2025-05-10", "14:00:00", intp(30)),
	}
	due := reminder.SelectDue(candidates, now, reminder.DefaultWindow, time.UTC)
	if len(due) != 1 || due[0].AppointmentID != "seconds" {
		t.Fatalf("expected only the well formed appointment, got %+v", due)
	}
}

func TestSelectDueLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	a := appt("a1", "u1", "GP", "2025-05-10", "14:00", intp(30))

	// 13:30 local is 11:30 UTC
	now := time.Date(2025, 5, 10, 11, 35, 0, 0, time.UTC)
	if got := reminder.SelectDue([]model.Appointment{a}, now, reminder.DefaultWindow, loc); len(got) != 1 {
		t.Fatalf("expected due in UTC+2, got %d", len(got))
	}
	if got := reminder.SelectDue([]model.Appointment{a}, now, reminder.DefaultWindow, time.UTC); len(got) != 0 {
		t.Fatalf("expected not due in UTC, got %d", len(got))
	}
}
