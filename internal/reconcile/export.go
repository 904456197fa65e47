package reconcile

import (
	"fmt"
	"time"

	"github.com/noah-isme/dismissal-api/internal/models"
)

// ExportRow is one flat row of the range export.
type ExportRow struct {
	Date    string
	Time    string
	Grade   string
	Name    string
	Method  string
	Message string
}

// FilterRange keeps records whose timestamp lies within
// [StartOfDay(start), EndOfDay(end)] inclusive, newest first.
func FilterRange(records []models.DismissalRecord, start, end time.Time) []models.DismissalRecord {
	from := StartOfDay(start).UnixMilli()
	to := EndOfDay(end).UnixMilli()

	filtered := make([]models.DismissalRecord, 0)
	for _, record := range SortNewestFirst(records) {
		if record.Timestamp >= from && record.Timestamp <= to {
			filtered = append(filtered, record)
		}
	}
	return filtered
}

// ExportRows projects records into rows using loc for date and time labels.
func ExportRows(records []models.DismissalRecord, loc *time.Location) []ExportRow {
	rows := make([]ExportRow, 0, len(records))
	for _, record := range records {
		ts := record.Time(loc)
		rows = append(rows, ExportRow{
			Date:    DateLabel(ts),
			Time:    TimeLabel(ts),
			Grade:   GradeLabel(record.Grade),
			Name:    record.StudentName,
			Method:  record.DismissalMethod,
			Message: record.Message,
		})
	}
	return rows
}

// DateLabel renders t as "2025. 12. 22.".
func DateLabel(t time.Time) string {
	return fmt.Sprintf("%d. %d. %d.", t.Year(), int(t.Month()), t.Day())
}

// TimeLabel renders t as "오후 01:30".
func TimeLabel(t time.Time) string {
	period := "오전"
	if t.Hour() >= 12 {
		period = "오후"
	}
	hour := t.Hour() % 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%s %02d:%02d", period, hour, t.Minute())
}

// GradeLabel renders a grade as "3학년".
func GradeLabel(grade int) string {
	return fmt.Sprintf("%d학년", grade)
}
