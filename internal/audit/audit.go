// Package audit persists security events. The alerting engine records one
// event per security-typed alert; the wider application records directly.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/driveloop/driveloop/internal/alerting"
	"github.com/driveloop/driveloop/internal/logger"
)

// SecurityEvent is a persisted security event row.
type SecurityEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Type      string    `gorm:"size:100;not null;index" json:"type"`
	Severity  string    `gorm:"size:20;not null;index" json:"severity"`
	SourceIP  string    `gorm:"size:45;default:''" json:"source_ip"`
	UserAgent string    `gorm:"size:500;default:''" json:"user_agent"`
	Message   string    `gorm:"size:1000;not null" json:"message"`
	Details   string    `gorm:"default:''" json:"details"` // JSON-encoded
	Action    string    `gorm:"size:100;default:''" json:"action"`
	Blocked   bool      `gorm:"not null;default:false" json:"blocked"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName returns the table name for GORM.
func (SecurityEvent) TableName() string {
	return "security_events"
}

// Recorder is the audit sink, backed by sqlite.
type Recorder struct {
	db  *gorm.DB
	log logger.Logger
}

// Open creates a Recorder on the sqlite database at path (":memory:" for
// tests) and migrates the schema.
func Open(path string, log logger.Logger) (*Recorder, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	if err := db.AutoMigrate(&SecurityEvent{}); err != nil {
		return nil, fmt.Errorf("failed to migrate audit schema: %w", err)
	}
	return &Recorder{db: db, log: log}, nil
}

// RecordSecurityEvent persists one security event. Implements
// alerting.SecurityRecorder.
func (r *Recorder) RecordSecurityEvent(ctx context.Context, rec alerting.SecurityEventRecord) error {
	details := ""
	if len(rec.Details) > 0 {
		encoded, err := json.Marshal(rec.Details)
		if err != nil {
			r.log.Warn("failed to encode security event details", logger.Error(err))
		} else {
			details = string(encoded)
		}
	}
	event := SecurityEvent{
		Type:      rec.Type,
		Severity:  rec.Severity,
		SourceIP:  rec.SourceIP,
		UserAgent: rec.UserAgent,
		Message:   rec.Message,
		Details:   details,
		Action:    rec.Action,
		Blocked:   rec.Blocked,
	}
	if err := r.db.WithContext(ctx).Create(&event).Error; err != nil {
		return fmt.Errorf("failed to record security event: %w", err)
	}
	return nil
}

// Recent returns the most recent security events, newest first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]SecurityEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []SecurityEvent
	if err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list security events: %w", err)
	}
	return events, nil
}

// Close releases the underlying database handle.
func (r *Recorder) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
