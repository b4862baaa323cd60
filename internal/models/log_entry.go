package models

import "time"

// Log entry actions.
const (
	ActionCreated       = "created"
	ActionStatusChanged = "status_changed"
)

// LogEntry is one immutable audit record of a request's creation or a status
// change. Rows are append-only: never updated, never deleted. UserID is nil
// for system actions (e.g. the auto-archive sweep). The log is a derived
// narrative for display; current status always lives on Request.
type LogEntry struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	RequestID  uint   `gorm:"not null;index"`
	UserID     *uint
	Action     string `gorm:"size:32;not null"`
	FromStatus *string `gorm:"size:16"`
	ToStatus   *string `gorm:"size:16"`
	Note       *string
	CreatedAt  time.Time
}
