package reminder_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"reminder-engine/internal/model"
	"reminder-engine/internal/push"
	"reminder-engine/internal/reminder"
)

type fakeStore struct {
	mu         sync.Mutex
	appts      []*model.Appointment
	subs       []model.PushSubscription
	deliveries []model.Delivery
	deleted    []string

	pendingErr error
	subsErr    error
	markErr    map[string]error
	reads      int
}

func (f *fakeStore) PendingReminders(ctx context.Context) ([]model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.pendingErr != nil {
		return nil, f.pendingErr
	}
	var out []model.Appointment
	for _, a := range f.appts {
		if a.ReminderSentAt == nil && a.ReminderMinutesBefore != nil {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeStore) SubscriptionsForUsers(ctx context.Context, userIDs []string) ([]model.PushSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.subsErr != nil {
		return nil, f.subsErr
	}
	want := make(map[string]bool)
	for _, id := range userIDs {
		want[id] = true
	}
	var out []model.PushSubscription
	for _, s := range f.subs {
		if want[s.UserID] {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkReminderSent(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.markErr[id]; err != nil {
		return err
	}
	for _, a := range f.appts {
		if a.ID == id && a.ReminderSentAt == nil {
			t := at
			a.ReminderSentAt = &t
		}
	}
	return nil
}

func (f *fakeStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, endpoint)
	kept := f.subs[:0]
	for _, s := range f.subs {
		if s.Endpoint != endpoint {
			kept = append(kept, s)
		}
	}
	f.subs = kept
	return nil
}

func (f *fakeStore) LogDelivery(ctx context.Context, d model.Delivery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliveries = append(f.deliveries, d)
	return nil
}

func (f *fakeStore) appointment(id string) *model.Appointment {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.appts {
		if a.ID == id {
			c := *a
			return &c
		}
	}
	return nil
}

func (f *fakeStore) hasSubscription(endpoint string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subs {
		if s.Endpoint == endpoint {
			return true
		}
	}
	return false
}

type sent struct {
	endpoint string
	payload  string
}

type fakeSender struct {
	mu    sync.Mutex
	errs  map[string]error
	sends []sent
}

func (f *fakeSender) Send(ctx context.Context, sub model.PushSubscription, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, sent{endpoint: sub.Endpoint, payload: string(payload)})
	return f.errs[sub.Endpoint]
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

type fakeRecorder struct {
	mu      sync.Mutex
	results []reminder.Result
}

func (f *fakeRecorder) Record(ctx context.Context, res reminder.Result, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, res)
	return nil
}

var (
	errGone      = &push.StatusError{Code: 410}
	errNotFound  = &push.StatusError{Code: 404}
	errServer    = &push.StatusError{Code: 500}
	errNetwork   = errors.New("dial tcp: connection refused")
	errStoreDown = errors.New("connection reset by peer")
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newEngine(st *fakeStore, snd *fakeSender, now time.Time, opts ...reminder.Option) *reminder.Engine {
	opts = append([]reminder.Option{reminder.WithClock(func() time.Time { return now })}, opts...)
	return reminder.New(st, snd, quietLogger(), opts...)
}

// stallingSender blocks sends to one endpoint until the run context ends.
type stallingSender struct {
	fakeSender
	stall string
}

func (s *stallingSender) Send(ctx context.Context, sub model.PushSubscription, payload []byte) error {
	if sub.Endpoint == s.stall {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.fakeSender.Send(ctx, sub, payload)
}
