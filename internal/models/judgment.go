package models

import (
	"time"

	"gorm.io/gorm"
)

// Judgment is one completed model judgment of a captured chat update
type Judgment struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Timestamp      time.Time      `gorm:"not null;index" json:"timestamp"`
	Source         string         `gorm:"not null;default:'text';index" json:"source"` // "text" or "image"
	ScreenshotPath string         `json:"screenshot_path"`
	JudgmentPath   string         `json:"judgment_path,omitempty"`
	Text           string         `json:"text"`
	Response       string         `json:"response"`
	Positive       bool           `gorm:"not null;default:false;index" json:"positive"`
	Alerted        bool           `gorm:"not null;default:false" json:"alerted"`
	CreatedAt      time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

const (
	SourceText  = "text"
	SourceImage = "image"
)

// JudgmentSummary aggregates judgments over a period
type JudgmentSummary struct {
	Total    int64   `json:"total"`
	Positive int64   `json:"positive"`
	Alerted  int64   `json:"alerted"`
	Rate     float64 `json:"positive_rate"`
}

// ErrorSummary counts failures per pipeline stage
type ErrorSummary struct {
	Stage string `json:"stage"`
	Count int64  `json:"count"`
}

type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"` // "day", "week", "month"
}

type Report struct {
	Period      ReportPeriod    `json:"period"`
	Summary     JudgmentSummary `json:"summary"`
	Errors      []ErrorSummary  `json:"errors"`
	Recent      []*Judgment     `json:"recent"`
	GeneratedAt time.Time       `json:"generated_at"`
}
