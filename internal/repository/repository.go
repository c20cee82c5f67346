// Package repository defines the storage contracts the services are built
// against, plus the sentinel errors the concrete postgres/redis
// implementations translate driver errors into.
package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/DenisFeoktistov/LesJoursBackend/internal/domain"
)

// Carts loads and saves one owner's cart blob. Owner keys are opaque
// ("user:<id>" or "session:<uuid>"); Load returns an empty state, not an
// error, when the owner has no cart yet.
type Carts interface {
	Load(ctx context.Context, ownerKey string) (*domain.CartState, error)
	Save(ctx context.Context, ownerKey string, state *domain.CartState) error
	Delete(ctx context.Context, ownerKey string) error
}

// Catalog reads product data.
type Catalog interface {
	MasterClass(ctx context.Context, id int64) (*domain.MasterClass, error)
	Occurrence(ctx context.Context, id int64) (*domain.OccurrenceDetail, error)
}

// Seats mutates the occupied counter of an occurrence. ReserveSeats is a
// conditional update that fails with ErrSeatsUnavailable instead of ever
// pushing occupied past capacity; both are only called inside a unit of
// work.
type Seats interface {
	ReserveSeats(ctx context.Context, occurrenceID int64, quantity int) error
	ReleaseSeats(ctx context.Context, occurrenceID int64, quantity int) error
}

// Orders persists finalized orders. AddOrderItem keeps the parent order's
// denormalized total in sync. SetOrderStatus applies the transition only
// when the order currently has the expected status and reports whether it
// did.
type Orders interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	AddOrderItem(ctx context.Context, item *domain.OrderItem) error
	SetOrderTotal(ctx context.Context, orderID uuid.UUID, total decimal.Decimal) error
	OrderWithItems(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	OrdersByOwner(ctx context.Context, ownerKey string) ([]domain.Order, error)
	SetOrderStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus) (bool, error)
}

// Certificates persists gift certificates. RedeemCertificate is the
// one-shot use: it returns false when the certificate was already spent.
type Certificates interface {
	CreateCertificate(ctx context.Context, cert *domain.Certificate) error
	CertificateByCode(ctx context.Context, code string) (*domain.Certificate, error)
	RedeemCertificate(ctx context.Context, code string) (bool, error)
}

// Tx is the slice of the store visible inside a unit of work; every call
// runs on the same database transaction.
type Tx interface {
	Catalog
	Seats
	Orders
	Certificates
}

// AfterCommit is a hook that runs only once the transaction committed.
type AfterCommit func(ctx context.Context)

// UnitOfWork runs fn atomically: either every store mutation made through
// tx commits, or none do. Registered after-commit hooks run post-commit
// and never on rollback, which is where non-transactional side effects
// (cart clearing, cache invalidation, notifications) belong.
type UnitOfWork interface {
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx, after func(AfterCommit)) error) error
}
