package models

import (
	"time"

	"gorm.io/gorm"
)

// ErrorLog records a failed pipeline step. Stage names the step ("capture",
// "ocr", "judge", ...) and Kind the error category.
type ErrorLog struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Timestamp time.Time      `gorm:"not null;index" json:"timestamp"`
	Stage     string         `gorm:"not null;default:'';index" json:"stage"`
	Kind      string         `gorm:"not null;default:''" json:"kind"`
	ErrorMsg  string         `gorm:"not null" json:"error_msg"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
