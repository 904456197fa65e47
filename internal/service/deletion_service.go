package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/dismissal-api/internal/dto"
	"github.com/noah-isme/dismissal-api/internal/reconcile"
)

// ErrConfirmationNotFound indicates the deletion token is unknown, used or expired.
var ErrConfirmationNotFound = errors.New("deletion confirmation not found or expired")

// DeletionService implements two-step deletion: a request issues a
// short-lived token, and only confirming the token removes the entity.
type DeletionService interface {
	Request(ctx context.Context, req dto.DeletionRequest) (dto.DeletionTicketResponse, error)
	Confirm(ctx context.Context, token string) (dto.DeletionResultResponse, error)
}

type deletionTicket struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

type pendingDeletion struct {
	ticket    deletionTicket
	expiresAt time.Time
}

type deletionService struct {
	dismissals DismissalService
	roster     RosterService
	redis      *redis.Client
	keyPrefix  string
	ttl        time.Duration
	validator  *validator.Validate
	now        func() time.Time

	mu      sync.Mutex
	pending map[string]pendingDeletion

	logger zerolog.Logger
}

// NewDeletionService stores tickets in Redis when redisClient is set and in
// process memory otherwise.
func NewDeletionService(dismissals DismissalService, roster RosterService, redisClient *redis.Client, keyPrefix string, ttl time.Duration, validate *validator.Validate, logger zerolog.Logger) DeletionService {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if keyPrefix == "" {
		keyPrefix = "dismissal"
	}
	if validate == nil {
		validate = dto.NewValidator()
	}
	return &deletionService{
		dismissals: dismissals,
		roster:     roster,
		redis:      redisClient,
		keyPrefix:  keyPrefix + ":deletion:",
		ttl:        ttl,
		validator:  validate,
		now:        time.Now,
		pending:    make(map[string]pendingDeletion),
		logger:     logger.With().Str("component", "deletion_service").Logger(),
	}
}

func (s *deletionService) Request(ctx context.Context, req dto.DeletionRequest) (dto.DeletionTicketResponse, error) {
	req.ID = strings.TrimSpace(req.ID)
	if err := s.validator.Struct(req); err != nil {
		return dto.DeletionTicketResponse{}, err
	}

	var name, prompt string
	switch req.Kind {
	case dto.DeletionKindRecord:
		record, err := s.dismissals.Get(ctx, req.ID)
		if err != nil {
			return dto.DeletionTicketResponse{}, err
		}
		name = record.StudentName
		prompt = fmt.Sprintf("%s %s 학생의 하교 기록을 삭제하시겠습니까?", reconcile.GradeLabel(record.Grade), record.StudentName)
	case dto.DeletionKindStudent:
		student, err := s.roster.Get(ctx, req.ID)
		if err != nil {
			return dto.DeletionTicketResponse{}, err
		}
		name = student.Name
		prompt = fmt.Sprintf("%s %s 학생을 명단에서 삭제하시겠습니까?", reconcile.GradeLabel(student.Grade), student.Name)
	}

	token := uuid.NewString()
	ticket := deletionTicket{Kind: req.Kind, ID: req.ID}
	if err := s.store(ctx, token, ticket); err != nil {
		return dto.DeletionTicketResponse{}, fmt.Errorf("%w: %v", ErrTransientWrite, err)
	}

	s.logger.Info().Str("kind", req.Kind).Str("id", req.ID).Msg("deletion requested")
	return dto.DeletionTicketResponse{
		Token:     token,
		Kind:      req.Kind,
		ID:        req.ID,
		Name:      name,
		Prompt:    prompt,
		ExpiresAt: s.now().Add(s.ttl).UTC(),
	}, nil
}

func (s *deletionService) Confirm(ctx context.Context, token string) (dto.DeletionResultResponse, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return dto.DeletionResultResponse{}, ErrConfirmationNotFound
	}

	ticket, err := s.take(ctx, token)
	if err != nil {
		return dto.DeletionResultResponse{}, err
	}

	var removed bool
	switch ticket.Kind {
	case dto.DeletionKindRecord:
		removed, err = s.dismissals.Remove(ctx, ticket.ID)
	case dto.DeletionKindStudent:
		removed, err = s.roster.Remove(ctx, ticket.ID)
	default:
		return dto.DeletionResultResponse{}, ErrConfirmationNotFound
	}
	if err != nil {
		return dto.DeletionResultResponse{}, err
	}

	s.logger.Info().Str("kind", ticket.Kind).Str("id", ticket.ID).Bool("removed", removed).Msg("deletion confirmed")
	return dto.DeletionResultResponse{Kind: ticket.Kind, ID: ticket.ID, Removed: removed}, nil
}

func (s *deletionService) store(ctx context.Context, token string, ticket deletionTicket) error {
	if s.redis != nil {
		payload, err := json.Marshal(ticket)
		if err != nil {
			return err
		}
		return s.redis.Set(ctx, s.keyPrefix+token, payload, s.ttl).Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for key, pending := range s.pending {
		if !now.Before(pending.expiresAt) {
			delete(s.pending, key)
		}
	}
	s.pending[token] = pendingDeletion{ticket: ticket, expiresAt: now.Add(s.ttl)}
	return nil
}

// take removes and returns the ticket so a token confirms at most once.
func (s *deletionService) take(ctx context.Context, token string) (deletionTicket, error) {
	if s.redis != nil {
		payload, err := s.redis.GetDel(ctx, s.keyPrefix+token).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return deletionTicket{}, ErrConfirmationNotFound
			}
			return deletionTicket{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		var ticket deletionTicket
		if err := json.Unmarshal(payload, &ticket); err != nil {
			return deletionTicket{}, ErrConfirmationNotFound
		}
		return ticket, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	pending, ok := s.pending[token]
	if !ok {
		return deletionTicket{}, ErrConfirmationNotFound
	}
	delete(s.pending, token)
	if !s.now().Before(pending.expiresAt) {
		return deletionTicket{}, ErrConfirmationNotFound
	}
	return pending.ticket, nil
}
