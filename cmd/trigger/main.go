// Command trigger invokes the reminder endpoint on a cron schedule. Any
// external scheduler can do the same; this one exists for self-hosting.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"reminder-engine/internal/config"
	"reminder-engine/internal/logger"
	"reminder-engine/internal/reminder"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel)
	log := logger.Get()

	if cfg.CronSecret == "" {
		log.Fatal("CRON_SECRET is required")
	}

	client := &http.Client{Timeout: cfg.RunTimeout + 5*time.Second}
	c := cron.New(
		cron.WithLocation(cfg.Location),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(cfg.TriggerSchedule, func() {
		res, err := invoke(context.Background(), client, cfg.TriggerURL, cfg.CronSecret)
		if err != nil {
			log.WithError(err).Error("trigger: invocation failed")
			return
		}
		log.WithFields(logrus.Fields{
			"sent":         res.Sent,
			"appointments": res.Appointments,
			"message":      res.Message,
		}).Info("trigger: run finished")
	}); err != nil {
		log.WithError(err).Fatalf("trigger: bad schedule %q", cfg.TriggerSchedule)
	}

	c.Start()
	log.WithFields(logrus.Fields{"schedule": cfg.TriggerSchedule, "url": cfg.TriggerURL}).Info("trigger started")

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	<-c.Stop().Done()
	log.Info("trigger stopped")
}

func invoke(ctx context.Context, client *http.Client, url, secret string) (*reminder.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+secret)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}
	var res reminder.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &res, nil
}
