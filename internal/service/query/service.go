// Package query serves read-only catalog lookups. Occurrence reads go
// through a redis cache with a short TTL; writes that change seat counts
// invalidate the same keys, so stale availability lives at most one TTL.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DenisFeoktistov/LesJoursBackend/internal/domain"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/repository"
	redisrepo "github.com/DenisFeoktistov/LesJoursBackend/internal/repository/redis"
)

type Config struct {
	SummaryTTL      time.Duration
	AvailabilityTTL time.Duration
}

// Availability is the live seat picture of one occurrence.
type Availability struct {
	OccurrenceID int64 `json:"occurrence_id"`
	Capacity     int   `json:"capacity"`
	Occupied     int   `json:"occupied"`
	Remaining    int   `json:"remaining"`
}

type Service struct {
	catalog repository.Catalog
	cache   *redisrepo.Cache
	cfg     Config
}

func New(catalog repository.Catalog, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.SummaryTTL <= 0 {
		cfg.SummaryTTL = 30 * time.Second
	}

	if cfg.AvailabilityTTL <= 0 {
		cfg.AvailabilityTTL = 3 * time.Second
	}

	return &Service{
		catalog: catalog,
		cache:   cache,
		cfg:     cfg,
	}
}

// MasterClass returns one master class by id.
func (s *Service) MasterClass(ctx context.Context, id int64) (*domain.MasterClass, error) {
	const op = "service.query.MasterClass"

	mc, err := s.catalog.MasterClass(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrMasterClassNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return mc, nil
}

// Occurrence returns one occurrence joined with its master class, served
// from the cache when warm.
func (s *Service) Occurrence(ctx context.Context, id int64) (*domain.OccurrenceDetail, error) {
	const op = "service.query.Occurrence"

	if s.cache == nil {
		return s.loadOccurrence(ctx, op, id)
	}

	detail, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyOccurrenceSummary(id),
		s.cfg.SummaryTTL,
		func(ctx context.Context) (*domain.OccurrenceDetail, error) {
			return s.loadOccurrence(ctx, op, id)
		},
	)
	if err != nil {
		return nil, err
	}

	return detail, nil
}

// Availability returns the seat counts of an occurrence, cached under a
// deliberately short TTL.
func (s *Service) Availability(ctx context.Context, id int64) (*Availability, error) {
	const op = "service.query.Availability"

	load := func(ctx context.Context) (*Availability, error) {
		occ, err := s.loadOccurrence(ctx, op, id)
		if err != nil {
			return nil, err
		}

		return &Availability{
			OccurrenceID: occ.Occurrence.ID,
			Capacity:     occ.Occurrence.Capacity,
			Occupied:     occ.Occurrence.Occupied,
			Remaining:    occ.Occurrence.Remaining(),
		}, nil
	}

	if s.cache == nil {
		return load(ctx)
	}

	av, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyOccurrenceAvailability(id),
		s.cfg.AvailabilityTTL,
		load,
	)
	if err != nil {
		return nil, err
	}

	return av, nil
}

func (s *Service) loadOccurrence(ctx context.Context, op string, id int64) (*domain.OccurrenceDetail, error) {
	occ, err := s.catalog.Occurrence(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrEventNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return occ, nil
}
