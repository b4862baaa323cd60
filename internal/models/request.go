package models

import "time"

// Request priorities.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// Request statuses. A request only ever moves along the edges in
// request.ValidTransitions; done and archived are terminal except
// done → archived.
const (
	StatusNew        = "new"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusCancelled  = "cancelled"
	StatusArchived   = "archived"
)

// ValidPriority reports whether p is one of the closed priority set.
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityNormal || p == PriorityHigh
}

// Request is a single intake ticket for one or more cartridge types at one
// branch. Code is assigned at creation and never changes; CompletedAt is set
// exactly when the request enters done.
type Request struct {
	ID                 uint   `gorm:"primaryKey;autoIncrement"`
	Code               string `gorm:"size:32;not null;uniqueIndex"`
	BranchID           uint   `gorm:"not null;index"`
	UserID             uint   `gorm:"not null;index"`
	Priority           string `gorm:"size:16;not null;default:normal"`
	Status             string `gorm:"size:16;not null;default:new;index"`
	Comment            *string
	AssignedExecutorID *uint
	SLANotifiedAt      *time.Time
	CreatedAt          time.Time
	CompletedAt        *time.Time

	Branch Branch        `gorm:"foreignKey:BranchID"`
	User   User          `gorm:"foreignKey:UserID"`
	Items  []RequestItem `gorm:"foreignKey:RequestID"`
	Logs   []LogEntry    `gorm:"foreignKey:RequestID"`
}

// RequestItem is one line item (cartridge type + quantity) within a request.
// Quantity is always positive for committed rows.
type RequestItem struct {
	ID              uint `gorm:"primaryKey;autoIncrement"`
	RequestID       uint `gorm:"not null;index"`
	CartridgeTypeID uint `gorm:"not null"`
	Quantity        int  `gorm:"not null"`

	CartridgeType CartridgeType `gorm:"foreignKey:CartridgeTypeID"`
}
