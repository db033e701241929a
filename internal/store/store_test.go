package store_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"reminder-engine/internal/model"
	"reminder-engine/internal/store"
)

func setup(t *testing.T) *store.Store {
	t.Helper()
	_ = godotenv.Load("../../.env")
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := store.Connect(ctx, dbURL, os.Getenv("DATABASE_SERVICE_KEY"))
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(pool.Close)

	migration, err := os.ReadFile("../../db/migrations/001_init.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if _, err := pool.Exec(ctx, string(migration)); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store.New(pool)
}

func intp(v int) *int { return &v }

func createAppointment(t *testing.T, st *store.Store, userID string, before *int) *model.Appointment {
	t.Helper()
	a := &model.Appointment{
		UserID:                userID,
		Date:                  "2025-05-10",
		Time:                  "14:00",
		Type:                  "GP",
		Doctor:                "Dr Rossi",
		ReminderMinutesBefore: before,
	}
	if err := st.CreateAppointment(context.Background(), a); err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	return a
}

func findPending(t *testing.T, st *store.Store, id string) *model.Appointment {
	t.Helper()
	pending, err := st.PendingReminders(context.Background())
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	for i := range pending {
		if pending[i].ID == id {
			return &pending[i]
		}
	}
	return nil
}

func TestPendingAndMark(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	uid := uuid.New().String()

	withReminder := createAppointment(t, st, uid, intp(30))
	without := createAppointment(t, st, uid, nil)

	got := findPending(t, st, withReminder.ID)
	if got == nil {
		t.Fatal("expected appointment with reminder to be pending")
	}
	if got.Date != "2025-05-10" || got.Time != "14:00:00" || got.Doctor != "Dr Rossi" {
		t.Errorf("unexpected scan %+v", got)
	}
	if findPending(t, st, without.ID) != nil {
		t.Error("appointment without reminder must not be pending")
	}

	if err := st.MarkReminderSent(ctx, withReminder.ID, time.Now()); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if findPending(t, st, withReminder.ID) != nil {
		t.Error("marked appointment must not be pending")
	}
}

func TestSubscriptionLifecycle(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	uid := uuid.New().String()
	endpoint := fmt.Sprintf("https://push.example/%s", uuid.New().String())

	p := &model.PushSubscription{Endpoint: endpoint, UserID: uid, P256dhKey: "p", AuthKey: "a"}
	if err := st.UpsertSubscription(ctx, p); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	p.AuthKey = "a2"
	if err := st.UpsertSubscription(ctx, p); err != nil {
		t.Fatalf("upsert again: %v", err)
	}

	subs, err := st.SubscriptionsForUsers(ctx, []string{uid})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 || subs[0].AuthKey != "a2" {
		t.Fatalf("unexpected subscriptions %+v", subs)
	}

	if err := st.DeleteSubscription(ctx, endpoint); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := st.DeleteSubscription(ctx, endpoint); err != nil {
		t.Fatalf("second delete must succeed: %v", err)
	}
	subs, _ = st.SubscriptionsForUsers(ctx, []string{uid})
	if len(subs) != 0 {
		t.Fatalf("expected no subscriptions, got %d", len(subs))
	}
}

func TestLogDelivery(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	uid := uuid.New().String()
	a := createAppointment(t, st, uid, intp(30))

	d := model.Delivery{
		ID:             uuid.New().String(),
		UserID:         uid,
		AppointmentIDs: []string{a.ID},
		Endpoint:       "https://push.example/1",
		Outcome:        model.OutcomeGone,
		StatusCode:     410,
		CreatedAt:      time.Now(),
	}
	if err := st.LogDelivery(ctx, d); err != nil {
		t.Fatalf("log: %v", err)
	}
	got, err := st.DeliveriesForAppointment(ctx, a.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Outcome != model.OutcomeGone || got[0].StatusCode != 410 {
		t.Fatalf("unexpected deliveries %+v", got)
	}
}
