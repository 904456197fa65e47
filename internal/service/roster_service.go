package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/dismissal-api/internal/dto"
	"github.com/noah-isme/dismissal-api/internal/models"
	"github.com/noah-isme/dismissal-api/internal/reconcile"
	"github.com/noah-isme/dismissal-api/internal/repository"
)

var (
	// ErrStudentNotFound indicates the roster has no student with the given id.
	ErrStudentNotFound = errors.New("student not found")
	// ErrInvalidStudentName indicates the name was empty after sanitising.
	ErrInvalidStudentName = errors.New("student name is empty")
)

// DefaultRoster is seeded into an empty roster on first start.
func DefaultRoster() []models.Student {
	entries := []struct {
		grade int
		names []string
	}{
		{1, []string{"김건우", "김하설", "서아인"}},
		{2, []string{"김태준", "윤재성", "윤지수", "양혜린"}},
		{3, []string{"김온유", "박소윤", "서유인"}},
		{4, []string{"강태양", "김다은", "박가은", "심은정", "엄승환", "최은율", "박초연"}},
		{5, []string{"서상준", "전지후", "차승환", "임지효"}},
		{6, []string{"강려울", "강지온", "박민혁", "박수정", "박시은", "차은애"}},
	}

	roster := make([]models.Student, 0, 27)
	for _, entry := range entries {
		for _, name := range entry.names {
			roster = append(roster, models.Student{Name: name, Grade: entry.grade})
		}
	}
	return roster
}

// RosterService manages the student roster.
type RosterService interface {
	List(ctx context.Context) ([]models.Student, error)
	Get(ctx context.Context, id string) (models.Student, error)
	Add(ctx context.Context, req dto.CreateStudentRequest) (models.Student, error)
	Remove(ctx context.Context, id string) (bool, error)
	SeedIfEmpty(ctx context.Context) (int, error)
}

type rosterService struct {
	repo      repository.StudentRepository
	publisher LivePublisher
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	defaults  []models.Student
	logger    zerolog.Logger
}

// NewRosterService constructs the roster service. defaults are used by SeedIfEmpty.
func NewRosterService(repo repository.StudentRepository, publisher LivePublisher, validate *validator.Validate, defaults []models.Student, logger zerolog.Logger) RosterService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	return &rosterService{
		repo:      repo,
		publisher: publisher,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		defaults:  defaults,
		logger:    logger.With().Str("component", "roster_service").Logger(),
	}
}

func (s *rosterService) List(ctx context.Context) ([]models.Student, error) {
	students, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return reconcile.SortRoster(students), nil
}

func (s *rosterService) Get(ctx context.Context, id string) (models.Student, error) {
	student, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if repository.IsNotFound(err) {
			return models.Student{}, ErrStudentNotFound
		}
		return models.Student{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return student, nil
}

func (s *rosterService) Add(ctx context.Context, req dto.CreateStudentRequest) (models.Student, error) {
	req.Name = strings.TrimSpace(s.sanitizer.Sanitize(req.Name))
	if err := s.validator.Struct(req); err != nil {
		return models.Student{}, err
	}
	if req.Name == "" {
		return models.Student{}, ErrInvalidStudentName
	}

	student := models.Student{Name: req.Name, Grade: req.Grade}
	if err := s.repo.Create(ctx, &student); err != nil {
		return models.Student{}, fmt.Errorf("%w: %v", ErrTransientWrite, err)
	}

	s.logger.Info().Str("student_id", student.ID).Int("grade", student.Grade).Msg("student added")
	s.notify(ctx)
	return student, nil
}

// Remove deletes a student. Records the student already has stay in the log.
func (s *rosterService) Remove(ctx context.Context, id string) (bool, error) {
	removed, err := s.repo.Delete(ctx, strings.TrimSpace(id))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrTransientWrite, err)
	}
	if removed {
		s.logger.Info().Str("student_id", id).Msg("student removed")
		s.notify(ctx)
	}
	return removed, nil
}

func (s *rosterService) SeedIfEmpty(ctx context.Context) (int, error) {
	inserted, err := s.repo.SeedIfEmpty(ctx, s.defaults)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTransientWrite, err)
	}
	if inserted > 0 {
		s.logger.Info().Int("inserted", inserted).Msg("default roster seeded")
		s.notify(ctx)
	}
	return inserted, nil
}

func (s *rosterService) notify(ctx context.Context) {
	if s.publisher != nil {
		s.publisher.Publish(ctx, CollectionStudents)
	}
}
