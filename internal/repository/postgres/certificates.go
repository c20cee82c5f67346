package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/DenisFeoktistov/LesJoursBackend/internal/domain"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/repository"
)

type CertificateRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *CertificateRepo) With(db DB) *CertificateRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *CertificateRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// CreateCertificate persists a freshly issued certificate.
//
// Returns repository.ErrConflict when the generated code collides.
func (r *CertificateRepo) CreateCertificate(ctx context.Context, c *domain.Certificate) error {
	const op = "postgres.CertificateRepo.CreateCertificate"

	db := r.handle()

	err := db.QueryRow(ctx,
		`INSERT INTO certificates(id, owner_key, amount, code, is_used)
       	 VALUES ($1, $2, $3, $4, false)
      	 RETURNING purchase_date`,
		c.ID, c.OwnerKey, c.Amount.String(), c.Code,
	).Scan(&c.PurchaseDate)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (r *CertificateRepo) CertificateByCode(ctx context.Context, code string) (*domain.Certificate, error) {
	const op = "postgres.CertificateRepo.CertificateByCode"

	db := r.handle()

	var (
		c      domain.Certificate
		amount string
	)
	err := db.QueryRow(ctx,
		`SELECT id, owner_key, amount::text, code, is_used, purchase_date, used_date
       	 FROM certificates WHERE code = $1`,
		code,
	).Scan(&c.ID, &c.OwnerKey, &amount, &c.Code, &c.IsUsed, &c.PurchaseDate, &c.UsedDate)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if c.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &c, nil
}

// RedeemCertificate spends a certificate. The one-way transition is a
// conditional UPDATE, so for any number of concurrent redemptions exactly
// one observes true.
//
// Returns false (no error) when the certificate was already used,
// repository.ErrNotFound when the code is unknown.
func (r *CertificateRepo) RedeemCertificate(ctx context.Context, code string) (bool, error) {
	const op = "postgres.CertificateRepo.RedeemCertificate"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE certificates
        	SET is_used = true, used_date = now()
      	 WHERE code = $1 AND is_used = false`,
		code,
	)
	if err != nil {
		return false, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM certificates WHERE code = $1)`, code,
		).Scan(&exists); err != nil {
			return false, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		if !exists {
			return false, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
		}
		return false, nil
	}

	return true, nil
}
