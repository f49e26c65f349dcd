package database

import (
	"time"

	"github.com/chatsentry/chatsentry/internal/models"

	"github.com/pkg/errors"

	"gorm.io/gorm"
)

// Repository handles all database operations for judgments and error logs
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// CreateJudgment inserts a new judgment
func (r *Repository) CreateJudgment(j *models.Judgment) error {
	if j.Source == "" {
		j.Source = models.SourceText
	}
	result := r.db.Create(j)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert judgment")
	}
	return nil
}

// GetJudgment retrieves a judgment by its ID
func (r *Repository) GetJudgment(id uint) (*models.Judgment, error) {
	var j models.Judgment
	result := r.db.First(&j, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, errors.Wrap(result.Error, "failed to get judgment")
	}
	return &j, nil
}

// ListJudgments returns judgments since a given time, newest first.
// onlyPositive restricts the result to positive judgments; limit <= 0 means no limit.
func (r *Repository) ListJudgments(since time.Time, onlyPositive bool, limit int) ([]*models.Judgment, error) {
	var judgments []*models.Judgment
	query := r.db.Where("timestamp >= ?", since)
	if onlyPositive {
		query = query.Where("positive = ?", true)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	result := query.Order("timestamp DESC").Find(&judgments)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query judgments")
	}
	return judgments, nil
}

// GetLatestJudgment retrieves the most recent judgment, or nil when there is none
func (r *Repository) GetLatestJudgment() (*models.Judgment, error) {
	var j models.Judgment
	result := r.db.Order("timestamp DESC").First(&j)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get latest judgment")
	}
	return &j, nil
}

// MarkAlerted flags a judgment whose alert was played
func (r *Repository) MarkAlerted(id uint) error {
	result := r.db.Model(&models.Judgment{}).Where("id = ?", id).Update("alerted", true)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to mark judgment alerted")
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetJudgmentSummarySince aggregates judgment counts since a given time
func (r *Repository) GetJudgmentSummarySince(since time.Time) (models.JudgmentSummary, error) {
	var summary models.JudgmentSummary

	result := r.db.Model(&models.Judgment{}).
		Select("COUNT(*) AS total, "+
			"COALESCE(SUM(CASE WHEN positive THEN 1 ELSE 0 END), 0) AS positive, "+
			"COALESCE(SUM(CASE WHEN alerted THEN 1 ELSE 0 END), 0) AS alerted").
		Where("timestamp >= ?", since).
		Scan(&summary)
	if result.Error != nil {
		return summary, errors.Wrap(result.Error, "failed to query judgment summary")
	}

	if summary.Total > 0 {
		summary.Rate = float64(summary.Positive) / float64(summary.Total)
	}
	return summary, nil
}

// DeleteOldJudgments deletes judgments older than a specified date (soft delete)
func (r *Repository) DeleteOldJudgments(before time.Time) (int64, error) {
	result := r.db.Where("timestamp < ?", before).Delete(&models.Judgment{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old judgments")
	}
	return result.RowsAffected, nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// GetErrorSummarySince counts error logs per stage since a given time
func (r *Repository) GetErrorSummarySince(since time.Time) ([]models.ErrorSummary, error) {
	var summaries []models.ErrorSummary

	result := r.db.Model(&models.ErrorLog{}).
		Select("stage, COUNT(*) AS count").
		Where("timestamp >= ?", since).
		Group("stage").
		Order("count DESC").
		Scan(&summaries)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query error summary")
	}
	return summaries, nil
}

// ListErrorLogs returns the most recent error logs, newest first
func (r *Repository) ListErrorLogs(limit int) ([]*models.ErrorLog, error) {
	var logs []*models.ErrorLog
	query := r.db.Order("timestamp DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if result := query.Find(&logs); result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query error logs")
	}
	return logs, nil
}

// Clear removes all judgments and error logs
func (r *Repository) Clear() error {
	if result := r.db.Exec("DELETE FROM judgments"); result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear judgments")
	}
	if result := r.db.Exec("DELETE FROM error_logs"); result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear error logs")
	}
	return nil
}
