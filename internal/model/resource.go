package model

import "time"

// Resource mirrors the metadata of an upstream resource.
type Resource struct {
	ID             string    `gorm:"primaryKey;size:36"` // Upstream ID
	Name           string    `gorm:"size:256;not null"`
	Mode           string    `gorm:"size:32;not null"`
	FullyAvailable bool      `gorm:"not null;default:false"`
	LastModified   time.Time `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
