package reporter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chatsentry/chatsentry/internal/models"

	"github.com/pkg/errors"
)

const recentLimit = 10

// Source is the read side of the judgment store
type Source interface {
	GetJudgmentSummarySince(since time.Time) (models.JudgmentSummary, error)
	GetErrorSummarySince(since time.Time) ([]models.ErrorSummary, error)
	ListJudgments(since time.Time, onlyPositive bool, limit int) ([]*models.Judgment, error)
}

// Reporter handles report generation
type Reporter struct {
	repo Source
	now  func() time.Time
}

// New creates a new reporter
func New(repo Source) *Reporter {
	return &Reporter{
		repo: repo,
		now:  time.Now,
	}
}

// GenerateReport generates a report for the specified period
func (r *Reporter) GenerateReport(periodType string) (*models.Report, error) {
	period, err := GetPeriod(periodType, r.now())
	if err != nil {
		return nil, err
	}

	summary, err := r.repo.GetJudgmentSummarySince(period.Start)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get judgment summary")
	}

	errs, err := r.repo.GetErrorSummarySince(period.Start)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get error summary")
	}

	recent, err := r.repo.ListJudgments(period.Start, true, recentLimit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list recent judgments")
	}

	return &models.Report{
		Period:      *period,
		Summary:     summary,
		Errors:      errs,
		Recent:      recent,
		GeneratedAt: r.now(),
	}, nil
}

// GetPeriod calculates the time range for a report period ending around now
func GetPeriod(periodType string, now time.Time) (*models.ReportPeriod, error) {
	var start, end time.Time

	switch periodType {
	case "day", "today":
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 0, 1)

	case "week":
		// Start of week (Monday)
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday = 7
		}
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7)

	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, 0)

	default:
		return nil, fmt.Errorf("invalid period type: %s (valid: day, week, month)", periodType)
	}

	return &models.ReportPeriod{
		Start: start,
		End:   end,
		Type:  periodType,
	}, nil
}

// FormatReportText formats the report as human-readable text
func (r *Reporter) FormatReportText(report *models.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Judgment Report - %s\n", report.Period.Type)
	fmt.Fprintf(&b, "Period: %s to %s\n",
		report.Period.Start.Format("2006-01-02 15:04"),
		report.Period.End.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Judgments: %d  Positive: %d (%.1f%%)  Alerts: %d\n\n",
		report.Summary.Total,
		report.Summary.Positive,
		report.Summary.Rate*100,
		report.Summary.Alerted)

	if len(report.Errors) > 0 {
		b.WriteString("Failures by stage:\n")
		for _, e := range report.Errors {
			fmt.Fprintf(&b, "  %-12s %d\n", e.Stage, e.Count)
		}
		b.WriteString("\n")
	}

	if len(report.Recent) == 0 {
		b.WriteString("No positive judgments recorded for this period.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%-20s %-8s %s\n", "Time", "Alerted", "Text")
	b.WriteString(strings.Repeat("-", 80) + "\n")
	for _, j := range report.Recent {
		alerted := "no"
		if j.Alerted {
			alerted = "yes"
		}
		fmt.Fprintf(&b, "%-20s %-8s %s\n",
			j.Timestamp.Format("2006-01-02 15:04:05"),
			alerted,
			truncate(oneLine(j.Text), 50))
	}

	return b.String()
}

// FormatReportJSON formats the report as JSON
func (r *Reporter) FormatReportJSON(report *models.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal JSON")
	}
	return string(data), nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate shortens s to maxLen runes
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
