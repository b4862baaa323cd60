package models

import "time"

// User roles. Role gates which bot commands a user may run; it is not an
// authorization system beyond that.
const (
	RoleBranchUser = "branch_user"
	RoleExecutor   = "executor"
	RoleAdmin      = "admin"
)

// User is anyone who talks to the bot: branch staff placing requests,
// executors fulfilling them, admins watching. PlatformID is the chat
// platform's user identifier (Discord/Slack user ID).
type User struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	PlatformID string `gorm:"size:64;not null;uniqueIndex"`
	Username   string `gorm:"size:64"`
	Role       string `gorm:"size:16;not null;default:branch_user"`
	IsActive   bool   `gorm:"not null;default:true"`
	CreatedAt  time.Time
}
