package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/dismissal-api/internal/dto"
	"github.com/noah-isme/dismissal-api/internal/lunch"
	"github.com/noah-isme/dismissal-api/internal/models"
	"github.com/noah-isme/dismissal-api/internal/reconcile"
)

// LunchService answers menu lookups for a date.
type LunchService interface {
	Menu(ctx context.Context, day time.Time, refresh bool) dto.LunchResponse
}

type lunchService struct {
	chain  *lunch.Chain
	logger zerolog.Logger
}

// NewLunchService wraps a resolver chain.
func NewLunchService(chain *lunch.Chain, logger zerolog.Logger) LunchService {
	return &lunchService{
		chain:  chain,
		logger: logger.With().Str("component", "lunch_service").Logger(),
	}
}

// Menu never fails; a failed lookup yields the placeholder text.
func (s *lunchService) Menu(ctx context.Context, day time.Time, refresh bool) dto.LunchResponse {
	dateKey := reconcile.DateKey(day)
	result, err := s.chain.Resolve(ctx, lunch.NewRequest(day, refresh))
	if err != nil {
		if !errors.Is(err, lunch.ErrLookupFailed) {
			s.logger.Error().Err(err).Str("date", dateKey).Msg("unexpected lunch lookup error")
		}
		return dto.LunchResponse{
			Date:     dateKey,
			MenuText: dto.LunchFallbackText,
			Sources:  []models.Source{},
			Fallback: true,
		}
	}

	sources := result.Data.Sources
	if sources == nil {
		sources = []models.Source{}
	}
	return dto.LunchResponse{
		Date:     dateKey,
		MenuText: result.Data.MenuText,
		Sources:  sources,
		Tier:     string(result.Tier),
	}
}
