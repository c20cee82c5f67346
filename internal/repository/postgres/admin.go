package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DenisFeoktistov/LesJoursBackend/internal/domain"
)

type AdminRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *AdminRepo) With(db DB) *AdminRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *AdminRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// CreateMasterClass inserts a master class record and returns its ID.
//
// Returns repository.ErrConflict on a duplicate slug.
func (r *AdminRepo) CreateMasterClass(ctx context.Context, m *domain.MasterClass) (int64, error) {
	const op = "postgres.AdminRepo.CreateMasterClass"

	db := r.handle()

	var id int64
	err := db.QueryRow(ctx,
		`INSERT INTO master_classes(slug, name, description, start_price, final_price,
		                            parameters, bucket_link, age_restriction, duration_min)
       	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
      	 RETURNING id`,
		m.Slug, m.Name, m.Description, m.StartPrice.String(), m.FinalPrice.String(),
		m.Parameters, m.BucketLink, m.AgeRestriction, m.DurationMin,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return id, nil
}

// CreateOccurrence schedules one session of a master class.
//
// Returns repository.ErrNotFound via FK violation translation when the
// master class does not exist.
func (r *AdminRepo) CreateOccurrence(ctx context.Context, e *domain.EventOccurrence) (int64, error) {
	const op = "postgres.AdminRepo.CreateOccurrence"

	db := r.handle()

	var id int64
	err := db.QueryRow(ctx,
		`INSERT INTO events(masterclass_id, start_at, end_at, capacity, occupied)
       	 VALUES ($1, $2, $3, $4, 0)
      	 RETURNING id`,
		e.MasterClassID, e.StartAt, e.EndAt, e.Capacity,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return id, nil
}
