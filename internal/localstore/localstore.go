// Package localstore implements the reminder store on sqlite through gorm,
// for running the engine without Postgres.
package localstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"reminder-engine/internal/model"
)

type appointmentRow struct {
	ID                    string `gorm:"primaryKey"`
	UserID                string `gorm:"index;not null"`
	Date                  string `gorm:"not null"`
	Time                  string
	Type                  string `gorm:"not null"`
	Doctor                string
	Location              string
	ReminderMinutesBefore *int
	ReminderSentAt        *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (appointmentRow) TableName() string { return "appointments" }

type subscriptionRow struct {
	Endpoint  string `gorm:"primaryKey"`
	UserID    string `gorm:"index;not null"`
	P256dhKey string `gorm:"column:p256dh_key;not null"`
	AuthKey   string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (subscriptionRow) TableName() string { return "push_subscriptions" }

type deliveryRow struct {
	ID             string `gorm:"primaryKey"`
	UserID         string `gorm:"index;not null"`
	AppointmentIDs string `gorm:"not null"` // comma separated
	Endpoint       string `gorm:"not null"`
	Outcome        string `gorm:"not null"`
	StatusCode     int
	CreatedAt      time.Time
}

func (deliveryRow) TableName() string { return "reminder_deliveries" }

type Store struct {
	db *gorm.DB
}

// IsDSN reports whether url selects this store rather than Postgres.
func IsDSN(url string) bool {
	return strings.HasPrefix(url, "sqlite://") || strings.HasPrefix(url, "file:")
}

// Open connects to a sqlite database and creates the tables.
// Accepts "sqlite://path" or a raw sqlite DSN.
func Open(dsn string) (*Store, error) {
	dsn = strings.TrimPrefix(dsn, "sqlite://")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	// sqlite allows one writer; the engine writes from several goroutines
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&appointmentRow{}, &subscriptionRow{}, &deliveryRow{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) PendingReminders(ctx context.Context) ([]model.Appointment, error) {
	var rows []appointmentRow
	err := s.db.WithContext(ctx).
		Where("reminder_sent_at IS NULL AND reminder_minutes_before IS NOT NULL").
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]model.Appointment, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (s *Store) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	var r appointmentRow
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, err
	}
	a := r.toModel()
	return &a, nil
}

func (s *Store) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	r := appointmentRow{
		ID:                    a.ID,
		UserID:                a.UserID,
		Date:                  a.Date,
		Time:                  a.Time,
		Type:                  a.Type,
		Doctor:                a.Doctor,
		Location:              a.Location,
		ReminderMinutesBefore: a.ReminderMinutesBefore,
		ReminderSentAt:        a.ReminderSentAt,
	}
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		return err
	}
	a.CreatedAt = r.CreatedAt
	return nil
}

func (s *Store) MarkReminderSent(ctx context.Context, appointmentID string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&appointmentRow{}).
		Where("id = ? AND reminder_sent_at IS NULL", appointmentID).
		Update("reminder_sent_at", at).Error
}

func (s *Store) SubscriptionsForUsers(ctx context.Context, userIDs []string) ([]model.PushSubscription, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var rows []subscriptionRow
	if err := s.db.WithContext(ctx).Where("user_id IN ?", userIDs).Order("created_at").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.PushSubscription, len(rows))
	for i, r := range rows {
		out[i] = model.PushSubscription{
			Endpoint:  r.Endpoint,
			UserID:    r.UserID,
			P256dhKey: r.P256dhKey,
			AuthKey:   r.AuthKey,
			CreatedAt: r.CreatedAt,
		}
	}
	return out, nil
}

func (s *Store) UpsertSubscription(ctx context.Context, p *model.PushSubscription) error {
	r := subscriptionRow{
		Endpoint:  p.Endpoint,
		UserID:    p.UserID,
		P256dhKey: p.P256dhKey,
		AuthKey:   p.AuthKey,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh_key", "auth_key", "updated_at"}),
	}).Create(&r).Error
	if err != nil {
		return err
	}
	p.CreatedAt = r.CreatedAt
	return nil
}

func (s *Store) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Where("endpoint = ?", endpoint).Delete(&subscriptionRow{}).Error
}

func (s *Store) DeleteUserSubscription(ctx context.Context, userID, endpoint string) error {
	return s.db.WithContext(ctx).
		Where("endpoint = ? AND user_id = ?", endpoint, userID).
		Delete(&subscriptionRow{}).Error
}

func (s *Store) LogDelivery(ctx context.Context, d model.Delivery) error {
	return s.db.WithContext(ctx).Create(&deliveryRow{
		ID:             d.ID,
		UserID:         d.UserID,
		AppointmentIDs: strings.Join(d.AppointmentIDs, ","),
		Endpoint:       d.Endpoint,
		Outcome:        d.Outcome,
		StatusCode:     d.StatusCode,
		CreatedAt:      d.CreatedAt,
	}).Error
}

func (s *Store) DeliveriesForUser(ctx context.Context, userID string) ([]model.Delivery, error) {
	var rows []deliveryRow
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.Delivery, len(rows))
	for i, r := range rows {
		out[i] = model.Delivery{
			ID:             r.ID,
			UserID:         r.UserID,
			AppointmentIDs: splitIDs(r.AppointmentIDs),
			Endpoint:       r.Endpoint,
			Outcome:        r.Outcome,
			StatusCode:     r.StatusCode,
			CreatedAt:      r.CreatedAt,
		}
	}
	return out, nil
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func (r appointmentRow) toModel() model.Appointment {
	return model.Appointment{
		ID:                    r.ID,
		UserID:                r.UserID,
		Date:                  r.Date,
		Time:                  r.Time,
		Type:                  r.Type,
		Doctor:                r.Doctor,
		Location:              r.Location,
		ReminderMinutesBefore: r.ReminderMinutesBefore,
		ReminderSentAt:        r.ReminderSentAt,
		CreatedAt:             r.CreatedAt,
	}
}
