package push

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"reminder-engine/internal/model"
)

// TTL is how long the push service may hold a message. A reminder that
// arrives late is worthless.
const TTL = 60

// ErrGone marks an endpoint the push service will never accept again.
var ErrGone = errors.New("push: subscription gone")

type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("push: status %d", e.Code)
	}
	return fmt.Sprintf("push: status %d: %s", e.Code, e.Body)
}

// 404 and 410 are permanent, everything else is treated as transient.
func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusGone || e.Code == http.StatusNotFound {
		return ErrGone
	}
	return nil
}

// StatusCode extracts the push service status from an error, 0 if there was none.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

type Options struct {
	Subscriber      string
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	HTTPClient      webpush.HTTPClient
}

// Sender signs and encrypts Web Push messages with the service's VAPID keys.
type Sender struct {
	opts webpush.Options
}

func NewSender(o Options) *Sender {
	client := o.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Sender{opts: webpush.Options{
		HTTPClient:      client,
		Subscriber:      o.Subscriber,
		VAPIDPublicKey:  o.VAPIDPublicKey,
		VAPIDPrivateKey: o.VAPIDPrivateKey,
		TTL:             TTL,
		Urgency:         webpush.UrgencyHigh,
	}}
}

func (s *Sender) Send(ctx context.Context, sub model.PushSubscription, payload []byte) error {
	opts := s.opts
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &opts)
	if err != nil {
		return fmt.Errorf("push send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{Code: resp.StatusCode, Body: string(body)}
}
