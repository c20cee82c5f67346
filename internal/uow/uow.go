package uow

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/DenisFeoktistov/LesJoursBackend/internal/repository"
	postgres "github.com/DenisFeoktistov/LesJoursBackend/internal/repository/postgres"
)

// UoW is the unit of work over the postgres store. It satisfies
// repository.UnitOfWork, so services see the atomicity contract without
// depending on pgx.
type UoW struct {
	store *postgres.Store
}

func NewUoW(store *postgres.Store) *UoW {
	return &UoW{store: store}
}

// Within runs fn inside one transaction. After a successful commit it
// executes all registered after-commit hooks; on rollback none run.
func (u *UoW) Within(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Tx, after func(repository.AfterCommit)) error,
) error {
	return u.WithinOpts(ctx, nil, fn)
}

// WithinOpts is Within with explicit transaction options.
func (u *UoW) WithinOpts(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx repository.Tx, after func(repository.AfterCommit)) error,
) error {
	var hooks []repository.AfterCommit

	err := u.store.RunTx(ctx, opts, func(ctx context.Context, tx postgres.DB) error {
		// RunTx may retry fn; start each attempt with a clean hook list
		hooks = hooks[:0]
		return fn(ctx, u.store.Bind(tx), func(h repository.AfterCommit) {
			hooks = append(hooks, h)
		})
	})
	if err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}
