// Package admin creates catalog content: master classes and their
// scheduled occurrences.
package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DenisFeoktistov/LesJoursBackend/internal/domain"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/repository"
	redisrepo "github.com/DenisFeoktistov/LesJoursBackend/internal/repository/redis"
)

// Writer is the slice of the store the admin service mutates.
type Writer interface {
	CreateMasterClass(ctx context.Context, m *domain.MasterClass) (int64, error)
	CreateOccurrence(ctx context.Context, e *domain.EventOccurrence) (int64, error)
}

type Service struct {
	writer  Writer
	catalog repository.Catalog
	cache   *redisrepo.Cache
}

func New(writer Writer, catalog repository.Catalog, cache *redisrepo.Cache) *Service {
	return &Service{
		writer:  writer,
		catalog: catalog,
		cache:   cache,
	}
}

// CreateMasterClass validates and inserts a master class, returning it with
// its assigned id.
func (s *Service) CreateMasterClass(ctx context.Context, m domain.MasterClass) (*domain.MasterClass, error) {
	const op = "service.admin.CreateMasterClass"

	if m.FinalPrice.GreaterThan(m.StartPrice) {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidPrice)
	}

	if m.FinalPrice.IsZero() {
		m.FinalPrice = m.StartPrice
	}

	id, err := s.writer.CreateMasterClass(ctx, &m)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s:%w", op, ErrSlugTaken)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	m.ID = id

	return &m, nil
}

// CreateOccurrence schedules a session of an existing master class. A zero
// EndAt is derived from the master class duration.
func (s *Service) CreateOccurrence(ctx context.Context, e domain.EventOccurrence) (*domain.EventOccurrence, error) {
	const op = "service.admin.CreateOccurrence"

	if e.Capacity <= 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidCapacity)
	}

	mc, err := s.catalog.MasterClass(ctx, e.MasterClassID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrMasterClassNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if e.EndAt.IsZero() {
		e.EndAt = e.StartAt.Add(time.Duration(mc.DurationMin) * time.Minute)
	}

	id, err := s.writer.CreateOccurrence(ctx, &e)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrMasterClassNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	e.ID = id
	e.Occupied = 0

	if s.cache != nil {
		_ = s.cache.InvalidateOccurrence(ctx, id)
	}

	return &e, nil
}
