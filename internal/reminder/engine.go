package reminder

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"reminder-engine/internal/model"
)

const (
	MsgNoCandidates    = "no due appointment reminders or error"
	MsgNoneInWindow    = "no reminders due in window"
	MsgNoSubscriptions = "no push subscriptions for these users"
)

// Store is the slice of the record store the engine reads and writes.
type Store interface {
	PendingReminders(ctx context.Context) ([]model.Appointment, error)
	SubscriptionsForUsers(ctx context.Context, userIDs []string) ([]model.PushSubscription, error)
	MarkReminderSent(ctx context.Context, appointmentID string, at time.Time) error
	DeleteSubscription(ctx context.Context, endpoint string) error
	LogDelivery(ctx context.Context, d model.Delivery) error
}

type Sender interface {
	Send(ctx context.Context, sub model.PushSubscription, payload []byte) error
}

// Recorder receives the result of every run.
type Recorder interface {
	Record(ctx context.Context, res Result, at time.Time) error
}

type Result struct {
	Sent         int    `json:"sent"`
	Appointments int    `json:"appointments,omitempty"`
	Message      string `json:"message,omitempty"`
}

// Engine holds no state between runs; everything is re-read from the store.
type Engine struct {
	store    Store
	sender   Sender
	log      *logrus.Logger
	recorder Recorder

	window     time.Duration
	loc        *time.Location
	now        func() time.Time
	userLimit  int
	fanoutSize int
}

type Option func(*Engine)

func WithWindow(d time.Duration) Option      { return func(e *Engine) { e.window = d } }
func WithLocation(loc *time.Location) Option { return func(e *Engine) { e.loc = loc } }
func WithClock(now func() time.Time) Option  { return func(e *Engine) { e.now = now } }
func WithRecorder(r Recorder) Option         { return func(e *Engine) { e.recorder = r } }
func WithConcurrency(users, sends int) Option {
	return func(e *Engine) { e.userLimit, e.fanoutSize = users, sends }
}

func New(st Store, snd Sender, log *logrus.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:      st,
		sender:     snd,
		log:        log,
		window:     DefaultWindow,
		loc:        time.UTC,
		now:        time.Now,
		userLimit:  4,
		fanoutSize: 8,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Run performs one pass: select, group, send, prune, mark.
// Storage read failures are reported as "nothing to do".
func (e *Engine) Run(ctx context.Context) Result {
	now := e.now()

	candidates, err := e.store.PendingReminders(ctx)
	if err != nil {
		e.log.WithError(err).Error("reminders: reading candidates failed")
	}
	if len(candidates) == 0 {
		return e.finish(ctx, Result{Message: MsgNoCandidates}, now)
	}

	due := SelectDue(candidates, now, e.window, e.loc)
	if len(due) == 0 {
		e.log.WithField("candidates", len(candidates)).Debug("reminders: nothing in window")
		return e.finish(ctx, Result{Message: MsgNoneInWindow}, now)
	}

	subs, err := e.store.SubscriptionsForUsers(ctx, UserIDs(due))
	if err != nil {
		// nothing is marked so the reminders are retried next run
		e.log.WithError(err).Error("reminders: reading subscriptions failed")
		return e.finish(ctx, Result{Message: MsgNoSubscriptions}, now)
	}

	batches := Group(due, subs)
	if len(subs) == 0 {
		for _, b := range batches {
			e.markSent(ctx, b, now)
		}
		e.log.WithField("appointments", len(due)).Info("reminders: no subscriptions, marked without sending")
		return e.finish(ctx, Result{Message: MsgNoSubscriptions}, now)
	}

	var sent, skipped atomic.Int64
	var g errgroup.Group
	g.SetLimit(e.userLimit)
	for _, b := range batches {
		g.Go(func() error {
			// a user reached after the deadline is left for the next run
			if ctx.Err() != nil {
				skipped.Add(1)
				return nil
			}
			out := e.dispatch(ctx, b)
			sent.Add(int64(out.Delivered))
			if len(b.Subscriptions) > 0 && out.Skipped == len(b.Subscriptions) {
				skipped.Add(1)
				return nil
			}
			e.markSent(ctx, b, now)
			return nil
		})
	}
	_ = g.Wait()
	if n := skipped.Load(); n > 0 {
		e.log.WithError(ctx.Err()).WithField("users", n).Warn("reminders: run deadline reached, users left unmarked")
	}

	res := Result{Sent: int(sent.Load()), Appointments: len(due)}
	e.log.WithFields(logrus.Fields{
		"sent":         res.Sent,
		"appointments": res.Appointments,
		"users":        len(batches),
	}).Info("reminders: run complete")
	return e.finish(ctx, res, now)
}

func (e *Engine) finish(ctx context.Context, res Result, now time.Time) Result {
	if e.recorder != nil {
		if err := e.recorder.Record(context.WithoutCancel(ctx), res, now); err != nil {
			e.log.WithError(err).Warn("reminders: recording run stats failed")
		}
	}
	return res
}
