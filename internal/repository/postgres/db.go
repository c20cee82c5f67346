package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
	}
}

const maxTxAttempts = 3

// RunTx runs fn inside a transaction, serializable by default. Serialization
// failures and deadlocks are retried up to maxTxAttempts, so fn must be safe
// to call more than once.
func (s *Store) RunTx(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx DB) error,
) error {
	txOpts := pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	}

	if opts != nil {
		txOpts.IsoLevel = opts.IsoLevel
		txOpts.AccessMode = opts.AccessMode
		txOpts.DeferrableMode = opts.DeferrableMode
	}

	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.runTxOnce(ctx, txOpts, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
		}
	}

	return err
}

func (s *Store) runTxOnce(
	ctx context.Context,
	txOpts pgx.TxOptions,
	fn func(ctx context.Context, tx DB) error,
) error {
	tx, err := s.pool.BeginTx(ctx, txOpts)
	if err != nil {
		return err
	}

	defer tx.Rollback(ctx)

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

func (s *Store) Catalog() *CatalogRepo           { return &CatalogRepo{pool: s.pool} }
func (s *Store) Orders() *OrderRepo              { return &OrderRepo{pool: s.pool} }
func (s *Store) Certificates() *CertificateRepo  { return &CertificateRepo{pool: s.pool} }
func (s *Store) Admin() *AdminRepo               { return &AdminRepo{pool: s.pool} }

// Repos bundles every repo bound to one transaction handle. It satisfies
// repository.Tx inside a unit of work.
type Repos struct {
	*CatalogRepo
	*OrderRepo
	*CertificateRepo
}

func (s *Store) Bind(db DB) *Repos {
	return &Repos{
		CatalogRepo:     s.Catalog().With(db),
		OrderRepo:       s.Orders().With(db),
		CertificateRepo: s.Certificates().With(db),
	}
}
