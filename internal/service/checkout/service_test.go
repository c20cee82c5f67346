package checkout

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/DenisFeoktistov/LesJoursBackend/internal/domain"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/pricing"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/repository"
)

// memStore is an in-memory repository.Tx; memUoW snapshots it before fn and
// restores the snapshot on error, mimicking a rolled-back transaction.
type memStore struct {
	occs   map[int64]*domain.OccurrenceDetail
	orders map[uuid.UUID]*domain.Order
	certs  map[string]*domain.Certificate
}

func newMemStore() *memStore {
	return &memStore{
		occs:   map[int64]*domain.OccurrenceDetail{},
		orders: map[uuid.UUID]*domain.Order{},
		certs:  map[string]*domain.Certificate{},
	}
}

func (m *memStore) snapshot() *memStore {
	cp := newMemStore()
	for id, occ := range m.occs {
		c := *occ
		cp.occs[id] = &c
	}
	for id, o := range m.orders {
		c := *o
		c.Items = append([]domain.OrderItem(nil), o.Items...)
		cp.orders[id] = &c
	}
	for code, cert := range m.certs {
		c := *cert
		cp.certs[code] = &c
	}
	return cp
}

func (m *memStore) restore(from *memStore) {
	m.occs = from.occs
	m.orders = from.orders
	m.certs = from.certs
}

func (m *memStore) MasterClass(_ context.Context, id int64) (*domain.MasterClass, error) {
	for _, occ := range m.occs {
		if occ.MasterClass.ID == id {
			mc := occ.MasterClass
			return &mc, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) Occurrence(_ context.Context, id int64) (*domain.OccurrenceDetail, error) {
	occ, ok := m.occs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *occ
	return &cp, nil
}

func (m *memStore) ReserveSeats(_ context.Context, occurrenceID int64, quantity int) error {
	occ, ok := m.occs[occurrenceID]
	if !ok {
		return repository.ErrNotFound
	}
	if occ.Occurrence.Occupied+quantity > occ.Occurrence.Capacity {
		return repository.ErrSeatsUnavailable
	}
	occ.Occurrence.Occupied += quantity
	return nil
}

func (m *memStore) ReleaseSeats(_ context.Context, occurrenceID int64, quantity int) error {
	occ, ok := m.occs[occurrenceID]
	if !ok {
		return repository.ErrNotFound
	}
	occ.Occurrence.Occupied -= quantity
	if occ.Occurrence.Occupied < 0 {
		occ.Occurrence.Occupied = 0
	}
	return nil
}

func (m *memStore) CreateOrder(_ context.Context, order *domain.Order) error {
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *memStore) AddOrderItem(_ context.Context, item *domain.OrderItem) error {
	o, ok := m.orders[item.OrderID]
	if !ok {
		return repository.ErrNotFound
	}
	o.Items = append(o.Items, *item)
	o.TotalPrice = o.GrossItems()
	return nil
}

func (m *memStore) SetOrderTotal(_ context.Context, orderID uuid.UUID, total decimal.Decimal) error {
	o, ok := m.orders[orderID]
	if !ok {
		return repository.ErrNotFound
	}
	o.TotalPrice = total
	return nil
}

func (m *memStore) OrderWithItems(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *o
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	return &cp, nil
}

func (m *memStore) OrdersByOwner(_ context.Context, ownerKey string) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range m.orders {
		if o.OwnerKey == ownerKey {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memStore) SetOrderStatus(_ context.Context, id uuid.UUID, from, to domain.OrderStatus) (bool, error) {
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

func (m *memStore) CreateCertificate(_ context.Context, cert *domain.Certificate) error {
	if _, exists := m.certs[cert.Code]; exists {
		return repository.ErrConflict
	}
	cp := *cert
	m.certs[cert.Code] = &cp
	return nil
}

func (m *memStore) CertificateByCode(_ context.Context, code string) (*domain.Certificate, error) {
	c, ok := m.certs[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) RedeemCertificate(_ context.Context, code string) (bool, error) {
	c, ok := m.certs[code]
	if !ok {
		return false, repository.ErrNotFound
	}
	if c.IsUsed {
		return false, nil
	}
	c.IsUsed = true
	return true, nil
}

type memUoW struct {
	store *memStore
}

func (u *memUoW) Within(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Tx, after func(repository.AfterCommit)) error,
) error {
	backup := u.store.snapshot()

	var hooks []repository.AfterCommit
	err := fn(ctx, u.store, func(h repository.AfterCommit) {
		hooks = append(hooks, h)
	})
	if err != nil {
		u.store.restore(backup)
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}
	return nil
}

type fakeCarts struct {
	states map[string]*domain.CartState
}

func newFakeCarts() *fakeCarts {
	return &fakeCarts{states: map[string]*domain.CartState{}}
}

func (f *fakeCarts) Load(_ context.Context, ownerKey string) (*domain.CartState, error) {
	if s, ok := f.states[ownerKey]; ok {
		return s, nil
	}
	return domain.NewCartState(), nil
}

func (f *fakeCarts) Save(_ context.Context, ownerKey string, state *domain.CartState) error {
	f.states[ownerKey] = state
	return nil
}

func (f *fakeCarts) Delete(_ context.Context, ownerKey string) error {
	delete(f.states, ownerKey)
	return nil
}

func addOccurrence(store *memStore, id, mcID int64, name string, capacity, occupied int, start, final string) {
	sp, _ := decimal.NewFromString(start)
	fp, _ := decimal.NewFromString(final)
	store.occs[id] = &domain.OccurrenceDetail{
		Occurrence: domain.EventOccurrence{
			ID:            id,
			MasterClassID: mcID,
			Capacity:      capacity,
			Occupied:      occupied,
		},
		MasterClass: domain.MasterClass{
			ID:         mcID,
			Name:       name,
			StartPrice: sp,
			FinalPrice: fp,
		},
	}
}

const owner = "user:7"

var contact = ContactInfo{
	Email: "jane@example.com",
	Phone: "+33123456789",
	Name:  "Jane",
}

func newCheckout(store *memStore, carts *fakeCarts) *Service {
	return New(
		carts,
		&memUoW{store: store},
		pricing.NewCalculator(pricing.DefaultResolver()),
		nil,
		nil,
	)
}

func TestCheckoutEmptyCart(t *testing.T) {
	svc := newCheckout(newMemStore(), newFakeCarts())

	_, err := svc.Checkout(context.Background(), owner, contact)
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckoutCreatesOrderAndReservesSeats(t *testing.T) {
	store := newMemStore()
	addOccurrence(store, 5, 1, "Croissant 101", 10, 3, "100", "90")

	carts := newFakeCarts()
	state := domain.NewCartState()
	state.PromoCode = "TEST10"
	state.Put(domain.CartLine{Kind: domain.LineEvent, OccurrenceID: 5, MasterClassID: 1, Quantity: 2})
	carts.states[owner] = state

	svc := newCheckout(store, carts)

	res, err := svc.Checkout(context.Background(), owner, contact)
	require.NoError(t, err)

	require.Equal(t, domain.OrderCreated, res.Order.Status)
	require.NotEmpty(t, res.Order.Number)
	require.Len(t, res.Order.Items, 1)
	require.True(t, decimal.NewFromInt(90).Equal(res.Order.Items[0].Price))
	require.True(t, decimal.NewFromInt(162).Equal(res.Order.TotalPrice))

	require.Equal(t, 5, store.occs[5].Occurrence.Occupied)

	// the after-commit hook clears the cart
	_, exists := carts.states[owner]
	require.False(t, exists)

	persisted, err := store.OrderWithItems(context.Background(), res.Order.ID)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(162).Equal(persisted.TotalPrice))
}

func TestCheckoutMintsCertificates(t *testing.T) {
	store := newMemStore()
	carts := newFakeCarts()
	state := domain.NewCartState()
	state.Put(domain.CartLine{Kind: domain.LineCertificate, Amount: decimal.NewFromInt(1000), Quantity: 2})
	carts.states[owner] = state

	svc := newCheckout(store, carts)

	res, err := svc.Checkout(context.Background(), owner, contact)
	require.NoError(t, err)

	require.Len(t, res.Certificates, 2)
	for _, c := range res.Certificates {
		require.True(t, strings.HasPrefix(c.Code, "GIFT-"))
		require.True(t, decimal.NewFromInt(1000).Equal(c.Amount))
		require.Equal(t, owner, c.OwnerKey)

		_, err := store.CertificateByCode(context.Background(), c.Code)
		require.NoError(t, err)
	}

	require.True(t, decimal.NewFromInt(2000).Equal(res.Order.TotalPrice))
}

func TestCheckoutAvailabilityFailureRollsBack(t *testing.T) {
	store := newMemStore()
	addOccurrence(store, 5, 1, "Croissant 101", 10, 0, "100", "90")
	addOccurrence(store, 6, 2, "Macaron Basics", 2, 2, "80", "80")

	carts := newFakeCarts()
	state := domain.NewCartState()
	state.Put(domain.CartLine{Kind: domain.LineEvent, OccurrenceID: 5, MasterClassID: 1, Quantity: 2})
	state.Put(domain.CartLine{Kind: domain.LineEvent, OccurrenceID: 6, MasterClassID: 2, Quantity: 1})
	carts.states[owner] = state

	svc := newCheckout(store, carts)

	_, err := svc.Checkout(context.Background(), owner, contact)

	var avErr AvailabilityError
	require.ErrorAs(t, err, &avErr)
	require.Equal(t, "Macaron Basics", avErr.MasterClassName)

	// nothing committed: seats, orders and the cart are untouched
	require.Equal(t, 0, store.occs[5].Occurrence.Occupied)
	require.Equal(t, 2, store.occs[6].Occurrence.Occupied)
	require.Empty(t, store.orders)
	require.NotNil(t, carts.states[owner])
	require.Len(t, carts.states[owner].Lines, 2)
}

func TestCheckoutVanishedOccurrence(t *testing.T) {
	store := newMemStore()

	carts := newFakeCarts()
	state := domain.NewCartState()
	state.Put(domain.CartLine{Kind: domain.LineEvent, OccurrenceID: 99, MasterClassID: 9, Quantity: 1})
	carts.states[owner] = state

	svc := newCheckout(store, carts)

	_, err := svc.Checkout(context.Background(), owner, contact)
	require.ErrorIs(t, err, ErrEventNotFound)
	require.NotNil(t, carts.states[owner])
}

func TestCheckoutSeatConservation(t *testing.T) {
	store := newMemStore()
	addOccurrence(store, 5, 1, "Croissant 101", 3, 0, "100", "100")

	carts := newFakeCarts()
	svc := newCheckout(store, carts)

	// three buyers of one seat each fit, the fourth must fail
	for i := 0; i < 3; i++ {
		state := domain.NewCartState()
		state.Put(domain.CartLine{Kind: domain.LineEvent, OccurrenceID: 5, MasterClassID: 1, Quantity: 1})
		carts.states[owner] = state

		_, err := svc.Checkout(context.Background(), owner, contact)
		require.NoError(t, err)
	}

	state := domain.NewCartState()
	state.Put(domain.CartLine{Kind: domain.LineEvent, OccurrenceID: 5, MasterClassID: 1, Quantity: 1})
	carts.states[owner] = state

	_, err := svc.Checkout(context.Background(), owner, contact)
	var avErr AvailabilityError
	require.ErrorAs(t, err, &avErr)

	require.Equal(t, 3, store.occs[5].Occurrence.Occupied)
}

func TestOrderNumberShape(t *testing.T) {
	id := uuid.New()
	n := orderNumber(id)
	require.Len(t, n, 8)
	require.Equal(t, strings.ToUpper(n), n)
}
