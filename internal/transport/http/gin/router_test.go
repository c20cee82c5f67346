package httpgin

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/DenisFeoktistov/LesJoursBackend/internal/domain"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/pricing"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/repository"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/service"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/service/cart"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/service/certificates"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/service/checkout"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/service/orders"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/service/query"
)

type fakeCarts struct {
	states map[string]*domain.CartState
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

type fakeStore struct {
	occs map[int64]*domain.OccurrenceDetail
}

func (f *fakeStore) MasterClass(_ context.Context, id int64) (*domain.MasterClass, error) {
	for _, occ := range f.occs {
		if occ.MasterClass.ID == id {
			mc := occ.MasterClass
			return &mc, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) Occurrence(_ context.Context, id int64) (*domain.OccurrenceDetail, error) {
	occ, ok := f.occs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *occ
	return &cp, nil
}

func (f *fakeStore) ReserveSeats(_ context.Context, occurrenceID int64, quantity int) error {
	occ, ok := f.occs[occurrenceID]
	if !ok {
		return repository.ErrNotFound
	}
	if occ.Occurrence.Occupied+quantity > occ.Occurrence.Capacity {
		return repository.ErrSeatsUnavailable
	}
	occ.Occurrence.Occupied += quantity
	return nil
}

func (f *fakeStore) ReleaseSeats(_ context.Context, occurrenceID int64, quantity int) error {
	if occ, ok := f.occs[occurrenceID]; ok {
		occ.Occurrence.Occupied -= quantity
	}
	return nil
}

func (f *fakeStore) CreateOrder(_ context.Context, _ *domain.Order) error      { return nil }
func (f *fakeStore) AddOrderItem(_ context.Context, _ *domain.OrderItem) error { return nil }

func (f *fakeStore) SetOrderTotal(_ context.Context, _ uuid.UUID, _ decimal.Decimal) error {
	return nil
}

func (f *fakeStore) OrderWithItems(_ context.Context, _ uuid.UUID) (*domain.Order, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeStore) OrdersByOwner(_ context.Context, _ string) ([]domain.Order, error) {
	return nil, nil
}

func (f *fakeStore) SetOrderStatus(_ context.Context, _ uuid.UUID, _, _ domain.OrderStatus) (bool, error) {
	return false, repository.ErrNotFound
}

func (f *fakeStore) CreateCertificate(_ context.Context, _ *domain.Certificate) error { return nil }

func (f *fakeStore) CertificateByCode(_ context.Context, _ string) (*domain.Certificate, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeStore) RedeemCertificate(_ context.Context, _ string) (bool, error) {
	return false, repository.ErrNotFound
}

type fakeUoW struct {
	store *fakeStore
}

func (u *fakeUoW) Within(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Tx, after func(repository.AfterCommit)) error,
) error {
	var hooks []repository.AfterCommit
	if err := fn(ctx, u.store, func(h repository.AfterCommit) {
		hooks = append(hooks, h)
	}); err != nil {
		return err
	}
	for _, h := range hooks {
		h(ctx)
	}
	return nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *fakeStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sp := decimal.NewFromInt(100)
	fp := decimal.NewFromInt(90)
	store := &fakeStore{occs: map[int64]*domain.OccurrenceDetail{
		5: {
			Occurrence: domain.EventOccurrence{
				ID: 5, MasterClassID: 1, Capacity: 10, Occupied: 0,
			},
			MasterClass: domain.MasterClass{
				ID: 1, Slug: "croissant-101", Name: "Croissant 101",
				StartPrice: sp, FinalPrice: fp,
			},
		},
	}}

	carts := &fakeCarts{states: map[string]*domain.CartState{}}
	calc := pricing.NewCalculator(pricing.DefaultResolver())

	svcs := &service.Services{
		Cart:         cart.New(carts, store, calc),
		Checkout:     checkout.New(carts, &fakeUoW{store: store}, calc, nil, nil),
		Orders:       orders.New(store, &fakeUoW{store: store}, nil, nil),
		Certificates: certificates.New(store),
		Query:        query.New(store, nil, query.Config{}),
		Admin:        nil,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(svcs, nil, nil, nil, logger), store
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "7")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestGetCartMintsSessionCookie(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var sawCookie bool
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName && c.Value != "" {
			sawCookie = true
		}
	}
	require.True(t, sawCookie)
}

func TestAddCartItemValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/cart/items", gin.H{"quantity": 1})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Type and id are required", errBody(t, w))

	w = doJSON(t, r, http.MethodPost, "/cart/items", gin.H{"type": "gizmo", "id": 5})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Invalid item type", errBody(t, w))
}

func TestAddCartItemAndTotals(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/cart/items", gin.H{
		"type": "master_class", "id": 5, "quantity": 2,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var view CartView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	require.Len(t, view.LineItems, 1)
	require.Equal(t, "master_class", view.LineItems[0].Type)
	require.Equal(t, "Croissant 101", view.LineItems[0].Name)
	require.True(t, view.LineItems[0].Availability)
	require.Equal(t, "200", view.GrossAmount)
	require.Equal(t, "180", view.NetAmount)
}

func TestUpdateCartItemZeroQuantityRemoves(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/cart/items", gin.H{
		"type": "master_class", "id": 5, "quantity": 2,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPut, "/cart", gin.H{"id": "event_5", "quantity": 0})
	require.Equal(t, http.StatusOK, w.Code)

	var view CartView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	require.Empty(t, view.LineItems)
	require.Equal(t, "0", view.NetAmount)
}

func TestCartViewAvailabilityFalseWhenSeatsShort(t *testing.T) {
	r, store := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/cart/items", gin.H{
		"type": "master_class", "id": 5, "quantity": 2,
	})
	require.Equal(t, http.StatusOK, w.Code)

	// seats vanish after the add
	store.occs[5].Occurrence.Occupied = 9

	w = doJSON(t, r, http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var view CartView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	require.Len(t, view.LineItems, 1)
	require.False(t, view.LineItems[0].Availability)
}

func TestAddCartItemUnknownEvent(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/cart/items", gin.H{
		"type": "master_class", "id": 404,
	})
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "Event not found", errBody(t, w))
}

func TestCheckoutEmptyCart(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/checkout", gin.H{
		"email": "jane@example.com", "phone": "+3312345", "name": "Jane",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Cart is empty", errBody(t, w))
}

func TestCheckoutSeatsGone(t *testing.T) {
	r, store := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/cart/items", gin.H{
		"type": "master_class", "id": 5, "quantity": 2,
	})
	require.Equal(t, http.StatusOK, w.Code)

	// seats vanish between add and checkout
	store.occs[5].Occurrence.Occupied = 9

	w = doJSON(t, r, http.MethodPost, "/checkout", gin.H{
		"email": "jane@example.com", "phone": "+3312345", "name": "Jane",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Not enough seats available for Croissant 101", errBody(t, w))
}

func TestGetUnknownOrder(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/orders/7b7e3a9e-0000-0000-0000-000000000000", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "Order not found", errBody(t, w))
}

func TestAvailabilityETag(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/occurrences/5/availability", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req = httptest.NewRequest(http.MethodGet, "/occurrences/5/availability", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotModified, w.Code)
}
