package handler

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"reminder-engine/internal/middleware"
	"reminder-engine/internal/model"
	"reminder-engine/internal/reminder"
	"reminder-engine/internal/stats"
)

type Runner interface {
	Run(ctx context.Context) reminder.Result
}

type SubscriptionStore interface {
	UpsertSubscription(ctx context.Context, p *model.PushSubscription) error
	DeleteUserSubscription(ctx context.Context, userID, endpoint string) error
}

type StatsSource interface {
	Summary(ctx context.Context) (*stats.Summary, error)
}

type Handler struct {
	engine         Runner
	subs           SubscriptionStore
	stats          StatsSource
	missing        []string
	vapidPublicKey string
	timeout        time.Duration
	log            *logrus.Logger
}

// Options wires the handler. Engine and Subscriptions stay nil when the
// store or signing configuration is incomplete; Missing then names what
// is absent.
type Options struct {
	Engine         Runner
	Subscriptions  SubscriptionStore
	Stats          StatsSource
	Missing        []string
	VAPIDPublicKey string
	RunTimeout     time.Duration
	Logger         *logrus.Logger
}

func New(o Options) *Handler {
	if o.RunTimeout <= 0 {
		o.RunTimeout = 55 * time.Second
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return &Handler{
		engine:         o.Engine,
		subs:           o.Subscriptions,
		stats:          o.Stats,
		missing:        o.Missing,
		vapidPublicKey: o.VAPIDPublicKey,
		timeout:        o.RunTimeout,
		log:            o.Logger,
	}
}

type RouterConfig struct {
	CronSecret     string
	JWTSecret      string
	AllowedOrigins []string
	Limiter        *middleware.RateLimiter
}

func (h *Handler) Router(rc RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(h.log))

	cc := cors.DefaultConfig()
	if len(rc.AllowedOrigins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = rc.AllowedOrigins
	}
	cc.AllowHeaders = append(cc.AllowHeaders, "Authorization")
	cc.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	r.Use(cors.New(cc))

	r.GET("/health", h.Health)

	limited := r.Group("")
	if rc.Limiter != nil {
		limited.Use(middleware.RateLimitHTTP(rc.Limiter))
	}

	trigger := limited.Group("", middleware.RequireSecret(rc.CronSecret))
	{
		trigger.POST("/functions/send-appointment-reminders", h.RunReminders)
		trigger.POST("/reminders/run", h.RunReminders)
		trigger.GET("/reminders/status", h.Status)
	}

	r.GET("/push/vapid-public-key", h.VAPIDPublicKey)
	user := limited.Group("/push", middleware.RequireUser(rc.JWTSecret))
	{
		user.POST("/subscriptions", h.Subscribe)
		user.DELETE("/subscriptions", h.Unsubscribe)
	}
	return r
}
