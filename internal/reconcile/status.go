package reconcile

import (
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/noah-isme/dismissal-api/internal/models"
)

// Status is the reconciled dismissal state of one student on one date.
type Status struct {
	Student models.Student
	// Record is the latest matching record, nil when the student has not left yet.
	Record *models.DismissalRecord
	// Duplicates counts every record that matched, including Record.
	Duplicates int
}

// Dismissed reports whether a record exists for the student on the date.
func (s Status) Dismissed() bool {
	return s.Record != nil
}

// GradeGroup is a slice of statuses for one grade.
type GradeGroup struct {
	Grade    int
	Statuses []Status
}

// SortRoster orders students by grade, then by name in Korean collation.
func SortRoster(students []models.Student) []models.Student {
	sorted := append([]models.Student(nil), students...)
	col := collate.New(language.Korean)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Grade != sorted[j].Grade {
			return sorted[i].Grade < sorted[j].Grade
		}
		return col.CompareString(sorted[i].Name, sorted[j].Name) < 0
	})
	return sorted
}

// SortNewestFirst orders records by timestamp descending.
func SortNewestFirst(records []models.DismissalRecord) []models.DismissalRecord {
	sorted := append([]models.DismissalRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp > sorted[j].Timestamp
	})
	return sorted
}

// Matches reports whether record belongs to student. Records carrying a
// student id join on it; legacy records without one join on name and grade.
func Matches(student models.Student, record models.DismissalRecord) bool {
	if record.StudentID != nil && *record.StudentID != "" {
		return *record.StudentID == student.ID
	}
	return record.StudentName == student.Name && record.Grade == student.Grade
}

// DailyStatus joins the roster against records for day's calendar date
// (in day's location). The result has exactly one entry per student.
func DailyStatus(roster []models.Student, records []models.DismissalRecord, day time.Time) []Status {
	from := StartOfDay(day).UnixMilli()
	to := EndOfDay(day).UnixMilli()

	sameDay := make([]models.DismissalRecord, 0)
	for _, record := range SortNewestFirst(records) {
		if record.Timestamp >= from && record.Timestamp <= to {
			sameDay = append(sameDay, record)
		}
	}

	students := SortRoster(roster)
	statuses := make([]Status, 0, len(students))
	for _, student := range students {
		status := Status{Student: student}
		for i := range sameDay {
			if !Matches(student, sameDay[i]) {
				continue
			}
			if status.Record == nil {
				record := sameDay[i]
				status.Record = &record
			}
			status.Duplicates++
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// GroupByGrade splits statuses into grades 1..6, keeping empty grades.
func GroupByGrade(statuses []Status) []GradeGroup {
	groups := make([]GradeGroup, 0, models.MaxGrade)
	for grade := models.MinGrade; grade <= models.MaxGrade; grade++ {
		group := GradeGroup{Grade: grade, Statuses: []Status{}}
		for _, status := range statuses {
			if status.Student.Grade == grade {
				group.Statuses = append(group.Statuses, status)
			}
		}
		groups = append(groups, group)
	}
	return groups
}

// Completed counts dismissed students.
func Completed(statuses []Status) int {
	done := 0
	for _, status := range statuses {
		if status.Dismissed() {
			done++
		}
	}
	return done
}
