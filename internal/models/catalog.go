package models

import "time"

// Branch is an organizational location that submits and receives requests.
type Branch struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Code      string `gorm:"size:16;not null;uniqueIndex"`
	Name      string `gorm:"size:128;not null"`
	IsActive  bool   `gorm:"not null;default:true"`
	CreatedAt time.Time
}

// CartridgeType is a catalog entry (SKU + human name) requestable in quantity.
type CartridgeType struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	SKU       string `gorm:"size:32;not null;uniqueIndex"`
	Name      string `gorm:"size:128;not null"`
	CreatedAt time.Time
}
