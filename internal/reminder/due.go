package reminder

import (
	"fmt"
	"strings"
	"time"

	"reminder-engine/internal/model"
)

// DefaultWindow is the lookback that catches reminders whose due instant
// fell between two invocations. The trigger interval must not exceed it.
const DefaultWindow = 15 * time.Minute

var timeLayouts = []string{"15:04", "15:04:05", "15:04:05.999999"}

// SelectDue returns the appointments whose reminder instant lies in
// [now-window, now]. Unparseable dates are dropped silently.
func SelectDue(candidates []model.Appointment, now time.Time, window time.Duration, loc *time.Location) []model.DueReminder {
	if loc == nil {
		loc = time.UTC
	}
	start := now.Add(-window)

	var out []model.DueReminder
	for _, a := range candidates {
		if a.ReminderMinutesBefore == nil || a.ReminderSentAt != nil {
			continue
		}
		at, err := AppointmentTime(a, loc)
		if err != nil {
			continue
		}
		dueAt := at.Add(-time.Duration(*a.ReminderMinutesBefore) * time.Minute)
		if dueAt.Before(start) || dueAt.After(now) {
			continue
		}
		out = append(out, model.DueReminder{
			AppointmentID: a.ID,
			UserID:        a.UserID,
			Text:          Render(a, at),
			DueAt:         dueAt,
		})
	}
	return out
}

// AppointmentTime combines the stored date and optional time of day.
// A missing time means midnight.
func AppointmentTime(a model.Appointment, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(a.Date), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("appointment %s: bad date %q: %w", a.ID, a.Date, err)
	}
	tod := strings.TrimSpace(a.Time)
	if tod == "" {
		return day, nil
	}
	for _, layout := range timeLayouts {
		t, err := time.ParseInLocation(layout, tod, loc)
		if err != nil {
			continue
		}
		return time.Date(day.Year(), day.Month(), day.Day(),
			t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc), nil
	}
	return time.Time{}, fmt.Errorf("appointment %s: bad time %q", a.ID, a.Time)
}

// Render formats an appointment as "<type> dd/mm[ HH:MM]".
func Render(a model.Appointment, at time.Time) string {
	s := strings.TrimSpace(a.Type) + " " + at.Format("02/01")
	if strings.TrimSpace(a.Time) != "" {
		s += " " + at.Format("15:04")
	}
	return s
}
