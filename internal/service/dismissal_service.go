package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/dismissal-api/internal/dto"
	"github.com/noah-isme/dismissal-api/internal/models"
	"github.com/noah-isme/dismissal-api/internal/observability"
	"github.com/noah-isme/dismissal-api/internal/reconcile"
	"github.com/noah-isme/dismissal-api/internal/repository"
	"github.com/noah-isme/dismissal-api/pkg/ai"
)

var (
	// ErrRecordNotFound indicates the log has no record with the given id.
	ErrRecordNotFound = errors.New("dismissal record not found")
	// ErrInvalidRange indicates an export range whose start is after its end.
	ErrInvalidRange = errors.New("start date is after end date")
)

// DismissalService records and reconciles dismissal events.
type DismissalService interface {
	Submit(ctx context.Context, req dto.SubmitDismissalRequest) (models.DismissalRecord, error)
	Edit(ctx context.Context, id string, req dto.EditDismissalRequest) (models.DismissalRecord, error)
	Get(ctx context.Context, id string) (models.DismissalRecord, error)
	Remove(ctx context.Context, id string) (bool, error)
	ListForDate(ctx context.Context, day time.Time) ([]models.DismissalRecord, error)
	DailyStatus(ctx context.Context, day time.Time) ([]reconcile.Status, error)
	Range(ctx context.Context, start, end time.Time) ([]models.DismissalRecord, error)
	Today() time.Time
	Location() *time.Location
}

type dismissalService struct {
	records   repository.DismissalRepository
	students  repository.StudentRepository
	writer    ai.GoodbyeWriter
	publisher LivePublisher
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	location  *time.Location
	now       func() time.Time
	logger    zerolog.Logger
}

// NewDismissalService constructs the dismissal service. Submission dates are
// taken from the wall clock in loc.
func NewDismissalService(records repository.DismissalRepository, students repository.StudentRepository, writer ai.GoodbyeWriter, publisher LivePublisher, validate *validator.Validate, loc *time.Location, logger zerolog.Logger) DismissalService {
	if writer == nil {
		writer = ai.StaticGoodbye{}
	}
	if validate == nil {
		validate = dto.NewValidator()
	}
	if loc == nil {
		loc = time.Local
	}
	return &dismissalService{
		records:   records,
		students:  students,
		writer:    writer,
		publisher: publisher,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		location:  loc,
		now:       time.Now,
		logger:    logger.With().Str("component", "dismissal_service").Logger(),
	}
}

func (s *dismissalService) Today() time.Time {
	return reconcile.StartOfDay(s.now().In(s.location))
}

func (s *dismissalService) Location() *time.Location {
	return s.location
}

func (s *dismissalService) Submit(ctx context.Context, req dto.SubmitDismissalRequest) (models.DismissalRecord, error) {
	req.StudentID = strings.TrimSpace(req.StudentID)
	req.StudentName = strings.TrimSpace(s.sanitizer.Sanitize(req.StudentName))
	if err := s.validator.Struct(req); err != nil {
		observability.DismissalEvents().WithLabelValues("submit", "invalid").Inc()
		return models.DismissalRecord{}, err
	}

	student, err := s.resolveStudent(ctx, req)
	if err != nil {
		observability.DismissalEvents().WithLabelValues("submit", "rejected").Inc()
		return models.DismissalRecord{}, err
	}

	ts := reconcile.AfternoonTime(s.now().In(s.location), req.Hour, *req.Minute)
	record := models.DismissalRecord{
		StudentName:     student.Name,
		Grade:           student.Grade,
		DismissalMethod: req.DismissalMethod,
		Timestamp:       ts.UnixMilli(),
		Message:         s.writer.Goodbye(ctx, student.Name, student.Grade),
	}
	if student.ID != "" {
		id := student.ID
		record.StudentID = &id
	}

	if err := s.records.Append(ctx, &record); err != nil {
		observability.DismissalEvents().WithLabelValues("submit", "error").Inc()
		s.logger.Error().Err(err).Str("student", record.StudentName).Msg("failed to append dismissal")
		return models.DismissalRecord{}, fmt.Errorf("%w: %v", ErrTransientWrite, err)
	}

	observability.DismissalEvents().WithLabelValues("submit", "success").Inc()
	s.logger.Info().
		Str("record_id", record.ID).
		Int("grade", record.Grade).
		Str("method", record.DismissalMethod).
		Msg("dismissal recorded")
	s.notify(ctx)
	return record, nil
}

// resolveStudent prefers the roster id. A name and grade submission is
// attached to the roster entry with the same name and grade when one exists.
func (s *dismissalService) resolveStudent(ctx context.Context, req dto.SubmitDismissalRequest) (models.Student, error) {
	if req.StudentID != "" {
		student, err := s.students.GetByID(ctx, req.StudentID)
		if err != nil {
			if repository.IsNotFound(err) {
				return models.Student{}, ErrStudentNotFound
			}
			return models.Student{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return student, nil
	}

	roster, err := s.students.List(ctx)
	if err != nil {
		return models.Student{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	for _, student := range roster {
		if student.Name == req.StudentName && student.Grade == req.Grade {
			return student, nil
		}
	}
	return models.Student{Name: req.StudentName, Grade: req.Grade}, nil
}

func (s *dismissalService) Edit(ctx context.Context, id string, req dto.EditDismissalRequest) (models.DismissalRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		observability.DismissalEvents().WithLabelValues("edit", "invalid").Inc()
		return models.DismissalRecord{}, err
	}

	record, err := s.Get(ctx, id)
	if err != nil {
		observability.DismissalEvents().WithLabelValues("edit", "rejected").Inc()
		return models.DismissalRecord{}, err
	}

	update := repository.DismissalUpdate{
		DismissalMethod: req.DismissalMethod,
		Timestamp:       reconcile.Reschedule(record.Timestamp, s.location, req.Hour, *req.Minute),
	}
	updated, err := s.records.Update(ctx, record.ID, update)
	if err != nil {
		observability.DismissalEvents().WithLabelValues("edit", "error").Inc()
		return models.DismissalRecord{}, fmt.Errorf("%w: %v", ErrTransientWrite, err)
	}
	if !updated {
		observability.DismissalEvents().WithLabelValues("edit", "rejected").Inc()
		return models.DismissalRecord{}, ErrRecordNotFound
	}

	record.DismissalMethod = update.DismissalMethod
	record.Timestamp = update.Timestamp

	observability.DismissalEvents().WithLabelValues("edit", "success").Inc()
	s.logger.Info().Str("record_id", record.ID).Str("method", record.DismissalMethod).Msg("dismissal edited")
	s.notify(ctx)
	return record, nil
}

func (s *dismissalService) Get(ctx context.Context, id string) (models.DismissalRecord, error) {
	record, err := s.records.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if repository.IsNotFound(err) {
			return models.DismissalRecord{}, ErrRecordNotFound
		}
		return models.DismissalRecord{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return record, nil
}

// Remove deletes a record. Removing an unknown id succeeds and reports false.
func (s *dismissalService) Remove(ctx context.Context, id string) (bool, error) {
	removed, err := s.records.Delete(ctx, strings.TrimSpace(id))
	if err != nil {
		observability.DismissalEvents().WithLabelValues("delete", "error").Inc()
		return false, fmt.Errorf("%w: %v", ErrTransientWrite, err)
	}
	observability.DismissalEvents().WithLabelValues("delete", "success").Inc()
	if removed {
		s.logger.Info().Str("record_id", id).Msg("dismissal removed")
		s.notify(ctx)
	}
	return removed, nil
}

func (s *dismissalService) ListForDate(ctx context.Context, day time.Time) ([]models.DismissalRecord, error) {
	return s.Range(ctx, day, day)
}

func (s *dismissalService) DailyStatus(ctx context.Context, day time.Time) ([]reconcile.Status, error) {
	day = day.In(s.location)
	roster, err := s.students.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	records, err := s.ListForDate(ctx, day)
	if err != nil {
		return nil, err
	}
	return reconcile.DailyStatus(roster, records, day), nil
}

func (s *dismissalService) Range(ctx context.Context, start, end time.Time) ([]models.DismissalRecord, error) {
	start = start.In(s.location)
	end = end.In(s.location)
	if reconcile.StartOfDay(start).After(reconcile.StartOfDay(end)) {
		return nil, ErrInvalidRange
	}

	from := reconcile.StartOfDay(start).UnixMilli()
	to := reconcile.EndOfDay(end).UnixMilli()
	records, err := s.records.List(ctx, repository.DismissalFilter{From: &from, To: &to})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return reconcile.FilterRange(records, start, end), nil
}

func (s *dismissalService) notify(ctx context.Context) {
	if s.publisher != nil {
		s.publisher.Publish(ctx, CollectionDismissals)
	}
}
