package lunch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/dismissal-api/internal/models"
	"github.com/noah-isme/dismissal-api/internal/observability"
	"github.com/noah-isme/dismissal-api/internal/reconcile"
)

// NotFoundMarker appears in generated text when no menu could be found.
const NotFoundMarker = "없습니다"

// ErrLookupFailed indicates the live generation tier failed. Nothing is cached.
var ErrLookupFailed = errors.New("lunch lookup failed")

// Tier names where a result came from.
type Tier string

// Tiers in resolution order.
const (
	TierVerified  Tier = "verified"
	TierMemory    Tier = "memory"
	TierPersisted Tier = "persisted"
	TierGenerated Tier = "generated"
)

// Kind controls how the chain treats a step.
type Kind int

const (
	// Authoritative steps are always consulted and never written to.
	Authoritative Kind = iota
	// Cache steps are skipped on forced refresh and receive write-backs.
	Cache
	// Origin steps produce fresh data; their errors end the lookup.
	Origin
)

// Request identifies the date being resolved.
type Request struct {
	Date         time.Time
	Key          string
	ForceRefresh bool
}

// NewRequest builds a request for day's calendar date.
func NewRequest(day time.Time, force bool) Request {
	return Request{Date: day, Key: reconcile.DateKey(day), ForceRefresh: force}
}

// Resolver is one source of menu data.
type Resolver interface {
	Tier() Tier
	Lookup(ctx context.Context, req Request) (models.LunchData, bool, error)
}

// Store is a Resolver that can also accept write-backs.
type Store interface {
	Resolver
	Store(ctx context.Context, key string, data models.LunchData) error
}

// Step binds a resolver to its role in the chain.
type Step struct {
	Resolver Resolver
	Kind     Kind
}

// Result is a resolved menu and the tier that produced it.
type Result struct {
	Data models.LunchData
	Tier Tier
}

// Cacheable reports whether data is a positive result worth writing back.
func Cacheable(data models.LunchData) bool {
	return strings.TrimSpace(data.MenuText) != "" && !strings.Contains(data.MenuText, NotFoundMarker)
}

// Chain resolves a date through its steps in order, short-circuiting on the first hit.
type Chain struct {
	steps     []Step
	cacheable func(models.LunchData) bool
	logger    zerolog.Logger
}

// NewChain builds a chain over steps.
func NewChain(logger zerolog.Logger, steps ...Step) *Chain {
	return &Chain{
		steps:     steps,
		cacheable: Cacheable,
		logger:    logger.With().Str("component", "lunch_chain").Logger(),
	}
}

// Resolve walks the chain. A cache hit is promoted into the cache steps
// before it; an origin result is written to every cache step when Cacheable.
func (c *Chain) Resolve(ctx context.Context, req Request) (Result, error) {
	for i, step := range c.steps {
		if step.Kind == Cache && req.ForceRefresh {
			continue
		}

		data, found, err := step.Resolver.Lookup(ctx, req)
		if err != nil {
			if step.Kind == Origin {
				observability.LunchResolutions().WithLabelValues(string(step.Resolver.Tier()), "error").Inc()
				return Result{}, fmt.Errorf("%w: %v", ErrLookupFailed, err)
			}
			c.logger.Warn().Err(err).Str("tier", string(step.Resolver.Tier())).Str("date", req.Key).Msg("lunch tier lookup failed")
			continue
		}
		if !found {
			continue
		}

		switch step.Kind {
		case Cache:
			c.writeBack(ctx, req.Key, data, c.steps[:i])
		case Origin:
			if c.cacheable(data) {
				c.writeBack(ctx, req.Key, data, c.steps[:i])
			} else {
				c.logger.Debug().Str("date", req.Key).Msg("negative lunch result not cached")
			}
		}

		observability.LunchResolutions().WithLabelValues(string(step.Resolver.Tier()), "hit").Inc()
		return Result{Data: data, Tier: step.Resolver.Tier()}, nil
	}

	return Result{}, fmt.Errorf("%w: no tier produced a menu for %s", ErrLookupFailed, req.Key)
}

func (c *Chain) writeBack(ctx context.Context, key string, data models.LunchData, steps []Step) {
	for i := len(steps) - 1; i >= 0; i-- {
		if steps[i].Kind != Cache {
			continue
		}
		store, ok := steps[i].Resolver.(Store)
		if !ok {
			continue
		}
		if err := store.Store(ctx, key, data); err != nil {
			c.logger.Warn().Err(err).Str("tier", string(store.Tier())).Str("date", key).Msg("lunch write-back failed")
		}
	}
}
