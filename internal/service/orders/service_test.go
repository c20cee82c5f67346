package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/DenisFeoktistov/LesJoursBackend/internal/domain"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/repository"
)

type memOrders struct {
	orders   map[uuid.UUID]*domain.Order
	occupied map[int64]int
}

func newMemOrders() *memOrders {
	return &memOrders{
		orders:   map[uuid.UUID]*domain.Order{},
		occupied: map[int64]int{},
	}
}

func (m *memOrders) CreateOrder(_ context.Context, order *domain.Order) error {
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *memOrders) AddOrderItem(_ context.Context, item *domain.OrderItem) error {
	o, ok := m.orders[item.OrderID]
	if !ok {
		return repository.ErrNotFound
	}
	o.Items = append(o.Items, *item)
	return nil
}

func (m *memOrders) SetOrderTotal(_ context.Context, orderID uuid.UUID, total decimal.Decimal) error {
	o, ok := m.orders[orderID]
	if !ok {
		return repository.ErrNotFound
	}
	o.TotalPrice = total
	return nil
}

func (m *memOrders) OrderWithItems(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *o
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	return &cp, nil
}

func (m *memOrders) OrdersByOwner(_ context.Context, ownerKey string) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range m.orders {
		if o.OwnerKey == ownerKey {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memOrders) SetOrderStatus(_ context.Context, id uuid.UUID, from, to domain.OrderStatus) (bool, error) {
	o, ok := m.orders[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

// memTx widens memOrders to repository.Tx for the unit of work.
type memTx struct {
	*memOrders
}

func (m memTx) MasterClass(context.Context, int64) (*domain.MasterClass, error) {
	return nil, repository.ErrNotFound
}

func (m memTx) Occurrence(context.Context, int64) (*domain.OccurrenceDetail, error) {
	return nil, repository.ErrNotFound
}

func (m memTx) ReserveSeats(_ context.Context, occurrenceID int64, quantity int) error {
	m.occupied[occurrenceID] += quantity
	return nil
}

func (m memTx) ReleaseSeats(_ context.Context, occurrenceID int64, quantity int) error {
	m.occupied[occurrenceID] -= quantity
	if m.occupied[occurrenceID] < 0 {
		m.occupied[occurrenceID] = 0
	}
	return nil
}

func (m memTx) CreateCertificate(context.Context, *domain.Certificate) error {
	return nil
}

func (m memTx) CertificateByCode(context.Context, string) (*domain.Certificate, error) {
	return nil, repository.ErrNotFound
}

func (m memTx) RedeemCertificate(context.Context, string) (bool, error) {
	return false, repository.ErrNotFound
}

type memUoW struct {
	store *memOrders
}

func (u *memUoW) Within(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Tx, after func(repository.AfterCommit)) error,
) error {
	var hooks []repository.AfterCommit
	if err := fn(ctx, memTx{u.store}, func(h repository.AfterCommit) {
		hooks = append(hooks, h)
	}); err != nil {
		return err
	}
	for _, h := range hooks {
		h(ctx)
	}
	return nil
}

const owner = "user:7"

func seedOrder(store *memOrders, ownerKey string, status domain.OrderStatus, occurrenceID int64, qty int) uuid.UUID {
	id := uuid.New()
	occID := occurrenceID
	store.orders[id] = &domain.Order{
		ID:       id,
		Number:   "ABCD1234",
		OwnerKey: ownerKey,
		Status:   status,
		Items: []domain.OrderItem{
			{OrderID: id, OccurrenceID: &occID, Quantity: qty, Price: decimal.NewFromInt(90)},
		},
	}
	store.occupied[occurrenceID] += qty
	return id
}

func newService(store *memOrders) *Service {
	return New(store, &memUoW{store: store}, nil, nil)
}

func TestGetScopedToOwner(t *testing.T) {
	store := newMemOrders()
	id := seedOrder(store, owner, domain.OrderCreated, 5, 2)
	svc := newService(store)

	o, err := svc.Get(context.Background(), owner, id)
	require.NoError(t, err)
	require.Equal(t, id, o.ID)

	_, err = svc.Get(context.Background(), "user:other", id)
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestGetUnknownOrder(t *testing.T) {
	svc := newService(newMemOrders())

	_, err := svc.Get(context.Background(), owner, uuid.New())
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestMarkAsPaid(t *testing.T) {
	store := newMemOrders()
	id := seedOrder(store, owner, domain.OrderCreated, 5, 2)
	svc := newService(store)

	o, err := svc.MarkAsPaid(context.Background(), owner, id)
	require.NoError(t, err)
	require.Equal(t, domain.OrderPaid, o.Status)

	// paying twice is rejected
	_, err = svc.MarkAsPaid(context.Background(), owner, id)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelReleasesSeats(t *testing.T) {
	store := newMemOrders()
	id := seedOrder(store, owner, domain.OrderCreated, 5, 2)
	svc := newService(store)

	require.Equal(t, 2, store.occupied[5])

	o, err := svc.Cancel(context.Background(), owner, id)
	require.NoError(t, err)
	require.Equal(t, domain.OrderCancelled, o.Status)
	require.Equal(t, 0, store.occupied[5])
}

func TestCancelPaidOrderRejected(t *testing.T) {
	store := newMemOrders()
	id := seedOrder(store, owner, domain.OrderPaid, 5, 2)
	svc := newService(store)

	_, err := svc.Cancel(context.Background(), owner, id)
	require.ErrorIs(t, err, ErrInvalidTransition)

	// seats stay reserved for the paid order
	require.Equal(t, 2, store.occupied[5])
}

func TestListReturnsOnlyOwn(t *testing.T) {
	store := newMemOrders()
	seedOrder(store, owner, domain.OrderCreated, 5, 1)
	seedOrder(store, owner, domain.OrderPaid, 6, 1)
	seedOrder(store, "user:other", domain.OrderCreated, 7, 1)
	svc := newService(store)

	list, err := svc.List(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, list, 2)
}
