package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/DenisFeoktistov/LesJoursBackend/internal/domain"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/repository"
)

type CatalogRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *CatalogRepo) With(db DB) *CatalogRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *CatalogRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// MasterClass retrieves a master class by its ID.
//
// Returns repository.ErrNotFound if no such master class exists.
func (r *CatalogRepo) MasterClass(ctx context.Context, id int64) (*domain.MasterClass, error) {
	const op = "postgres.CatalogRepo.MasterClass"

	db := r.handle()

	var (
		m          domain.MasterClass
		startPrice string
		finalPrice string
	)
	err := db.QueryRow(ctx,
		`SELECT id, slug, name, description, start_price::text, final_price::text,
		        parameters, bucket_link, age_restriction, duration_min, created_at
       	 FROM master_classes WHERE id = $1`,
		id,
	).Scan(&m.ID, &m.Slug, &m.Name, &m.Description, &startPrice, &finalPrice,
		&m.Parameters, &m.BucketLink, &m.AgeRestriction, &m.DurationMin, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if m.StartPrice, err = decimal.NewFromString(startPrice); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if m.FinalPrice, err = decimal.NewFromString(finalPrice); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &m, nil
}

// Occurrence retrieves a scheduled occurrence joined with its master class.
//
// Returns repository.ErrNotFound if the occurrence does not exist.
func (r *CatalogRepo) Occurrence(ctx context.Context, id int64) (*domain.OccurrenceDetail, error) {
	const op = "postgres.CatalogRepo.Occurrence"

	db := r.handle()

	var (
		d          domain.OccurrenceDetail
		startPrice string
		finalPrice string
	)
	err := db.QueryRow(ctx,
		`SELECT e.id, e.masterclass_id, e.start_at, e.end_at, e.capacity, e.occupied, e.created_at,
		        m.id, m.slug, m.name, m.description, m.start_price::text, m.final_price::text,
		        m.parameters, m.bucket_link, m.age_restriction, m.duration_min, m.created_at
       	 FROM events e
       	 JOIN master_classes m ON m.id = e.masterclass_id
      	 WHERE e.id = $1`,
		id,
	).Scan(
		&d.Occurrence.ID, &d.Occurrence.MasterClassID, &d.Occurrence.StartAt, &d.Occurrence.EndAt,
		&d.Occurrence.Capacity, &d.Occurrence.Occupied, &d.Occurrence.CreatedAt,
		&d.MasterClass.ID, &d.MasterClass.Slug, &d.MasterClass.Name, &d.MasterClass.Description,
		&startPrice, &finalPrice, &d.MasterClass.Parameters, &d.MasterClass.BucketLink,
		&d.MasterClass.AgeRestriction, &d.MasterClass.DurationMin, &d.MasterClass.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if d.MasterClass.StartPrice, err = decimal.NewFromString(startPrice); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if d.MasterClass.FinalPrice, err = decimal.NewFromString(finalPrice); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &d, nil
}

// ReserveSeats commits quantity seats on an occurrence. The availability
// check and the increment are a single conditional UPDATE, so occupied can
// never pass capacity no matter how many checkouts race.
//
// Returns repository.ErrSeatsUnavailable when remaining capacity is short,
// repository.ErrNotFound when the occurrence does not exist.
func (r *CatalogRepo) ReserveSeats(ctx context.Context, occurrenceID int64, quantity int) error {
	const op = "postgres.CatalogRepo.ReserveSeats"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE events
        	SET occupied = occupied + $2
      	 WHERE id = $1
        	AND occupied + $2 <= capacity`,
		occurrenceID, quantity,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM events WHERE id = $1)`, occurrenceID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		if !exists {
			return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
		}
		return fmt.Errorf("%s:%w", op, repository.ErrSeatsUnavailable)
	}

	return nil
}

// ReleaseSeats returns quantity seats to an occurrence, flooring occupied
// at zero.
func (r *CatalogRepo) ReleaseSeats(ctx context.Context, occurrenceID int64, quantity int) error {
	const op = "postgres.CatalogRepo.ReleaseSeats"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE events
        	SET occupied = GREATEST(occupied - $2, 0)
      	 WHERE id = $1`,
		occurrenceID, quantity,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}
