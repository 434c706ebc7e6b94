package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"carmonitor/internal/domain"
	"carmonitor/internal/redis"
	"carmonitor/internal/repository"
)

// seedCostStep is the price of one waypoint hop in the default cost table.
var seedCostStep = decimal.NewFromInt(50)

// TripCostService manages the route price table.
type TripCostService struct {
	repo  repository.TripCostRepository
	cache redis.TripCostCacheInterface
	now   func() time.Time
}

// NewTripCostService creates a new TripCostService. cache may be nil.
func NewTripCostService(repo repository.TripCostRepository, cache redis.TripCostCacheInterface) *TripCostService {
	return &TripCostService{
		repo:  repo,
		cache: cache,
		now:   time.Now,
	}
}

// Lookup returns the active base cost for the ordered pair (start, end).
// found is false when the pair has no active cost.
func (s *TripCostService) Lookup(ctx context.Context, start, end string) (cost decimal.Decimal, found bool, err error) {
	if s.cache != nil {
		cached, err := s.cache.GetTripCost(ctx, start, end)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"start": start,
				"end":   end,
			}).Warn("Trip cost cache read failed")
		} else if cached != nil {
			return cached.BaseCost, true, nil
		}
	}

	tc, err := s.repo.FindActive(ctx, start, end)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("find trip cost: %w", err)
	}
	if tc == nil {
		return decimal.Zero, false, nil
	}

	if s.cache != nil {
		if err := s.cache.SetTripCost(ctx, &redis.CachedTripCost{
			ID:            tc.ID,
			StartLocation: tc.StartLocation,
			EndLocation:   tc.EndLocation,
			BaseCost:      tc.BaseCost,
		}); err != nil {
			log.WithError(err).Warn("Trip cost cache write failed")
		}
	}

	return tc.BaseCost, true, nil
}

// ListActive returns every active route price.
func (s *TripCostService) ListActive(ctx context.Context) ([]*domain.TripCost, error) {
	costs, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if costs == nil {
		costs = []*domain.TripCost{}
	}
	return costs, nil
}

// CreateTripCost adds a price for a route that has none.
func (s *TripCostService) CreateTripCost(ctx context.Context, start, end string, cost decimal.Decimal) (*domain.TripCost, error) {
	start = strings.TrimSpace(start)
	end = strings.TrimSpace(end)
	if start == "" || end == "" {
		return nil, ErrInvalidLocation
	}
	if !cost.IsPositive() {
		return nil, ErrInvalidCost
	}

	existing, err := s.repo.FindActive(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("find trip cost: %w", err)
	}
	if existing != nil {
		return nil, ErrTripCostExists
	}

	now := s.now()
	tc := &domain.TripCost{
		ID:            uuid.NewString(),
		StartLocation: start,
		EndLocation:   end,
		BaseCost:      cost,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	inserted, err := s.repo.Save(ctx, tc)
	if err != nil {
		return nil, fmt.Errorf("save trip cost: %w", err)
	}
	if !inserted {
		return nil, ErrTripCostExists
	}

	if s.cache != nil {
		if err := s.cache.InvalidateTripCost(ctx, start, end); err != nil {
			log.WithError(err).Warn("Trip cost cache invalidation failed")
		}
	}

	return tc, nil
}

// Seed inserts the default price for every ordered pair of distinct waypoints
// that has no price yet and returns the number of rows written. Running it
// again writes nothing.
func (s *TripCostService) Seed(ctx context.Context) (int, error) {
	inserted := 0
	now := s.now()

	for i, start := range domain.Waypoints {
		for j, end := range domain.Waypoints {
			if i == j {
				continue
			}

			existing, err := s.repo.FindActive(ctx, start, end)
			if err != nil {
				return inserted, fmt.Errorf("find trip cost %s -> %s: %w", start, end, err)
			}
			if existing != nil {
				continue
			}

			ok, err := s.repo.Save(ctx, &domain.TripCost{
				ID:            uuid.NewString(),
				StartLocation: start,
				EndLocation:   end,
				BaseCost:      SeedCost(i, j),
				IsActive:      true,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
			if err != nil {
				return inserted, fmt.Errorf("save trip cost %s -> %s: %w", start, end, err)
			}
			if ok {
				inserted++
			}
		}
	}

	log.WithFields(log.Fields{
		"inserted":  inserted,
		"waypoints": len(domain.Waypoints),
	}).Info("Trip cost table seeded")

	return inserted, nil
}

// SeedCost is the default price between waypoints i and j.
func SeedCost(i, j int) decimal.Decimal {
	hops := i - j
	if hops < 0 {
		hops = -hops
	}
	return seedCostStep.Mul(decimal.NewFromInt(int64(hops + 1)))
}
