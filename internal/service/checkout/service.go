// Package checkout turns a cart into a persisted order inside a single
// database transaction: seats are reserved, certificate rows are minted and
// the order with its items is written atomically. The cart itself lives in
// redis, so it is cleared in an after-commit hook; a failed checkout leaves
// both the cart and the seat counters untouched.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/DenisFeoktistov/LesJoursBackend/internal/domain"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/pricing"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/repository"
	redisrepo "github.com/DenisFeoktistov/LesJoursBackend/internal/repository/redis"
)

// ContactInfo is the buyer data collected by the checkout form.
type ContactInfo struct {
	Email      string
	Phone      string
	Surname    string
	Name       string
	Patronymic string
	Comment    string
	Telegram   string
}

// Result is what a successful checkout produced: the committed order with
// its items and any gift certificates minted from certificate lines.
type Result struct {
	Order        *domain.Order
	Certificates []domain.Certificate
	Totals       pricing.Totals
}

type Service struct {
	carts  repository.Carts
	uow    repository.UnitOfWork
	calc   *pricing.Calculator
	cache  *redisrepo.Cache
	pubsub *redisrepo.OccurrencesPubSub
}

func New(
	carts repository.Carts,
	uow repository.UnitOfWork,
	calc *pricing.Calculator,
	cache *redisrepo.Cache,
	pubsub *redisrepo.OccurrencesPubSub,
) *Service {
	return &Service{
		carts:  carts,
		uow:    uow,
		calc:   calc,
		cache:  cache,
		pubsub: pubsub,
	}
}

// Checkout converts the owner's cart into an order.
//
// Every seat reservation, certificate row and order row commits together or
// not at all. Prices are re-read inside the transaction, so the charged
// total reflects the catalog at commit time, not at add-to-cart time.
//
// Returns:
//   - checkout.ErrEmptyCart when there is nothing to check out.
//   - checkout.AvailabilityError when a line no longer has enough seats.
//   - checkout.ErrEventNotFound when a line's occurrence disappeared.
func (s *Service) Checkout(ctx context.Context, ownerKey string, contact ContactInfo) (*Result, error) {
	const op = "service.checkout.Checkout"

	state, err := s.carts.Load(ctx, ownerKey)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if state.IsEmpty() {
		return nil, fmt.Errorf("%s:%w", op, ErrEmptyCart)
	}

	var result *Result

	err = s.uow.Within(ctx, func(ctx context.Context, tx repository.Tx, after func(repository.AfterCommit)) error {
		res, touched, err := s.checkoutTx(ctx, tx, ownerKey, state, contact)
		if err != nil {
			return err
		}

		result = res

		after(func(ctx context.Context) {
			_ = s.carts.Delete(ctx, ownerKey)
			for _, occID := range touched {
				if s.cache != nil {
					_ = s.cache.InvalidateOccurrence(ctx, occID)
				}
				if s.pubsub != nil {
					_ = s.pubsub.PublishOccurrenceChanged(ctx, occID)
				}
			}
		})

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrEmptyCart) || errors.Is(err, ErrEventNotFound) {
			return nil, err
		}

		var avErr AvailabilityError
		if errors.As(err, &avErr) {
			return nil, err
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return result, nil
}

func (s *Service) checkoutTx(
	ctx context.Context,
	tx repository.Tx,
	ownerKey string,
	state *domain.CartState,
	contact ContactInfo,
) (*Result, []int64, error) {
	order := &domain.Order{
		ID:         uuid.New(),
		OwnerKey:   ownerKey,
		Status:     domain.OrderCreated,
		Email:      contact.Email,
		Phone:      contact.Phone,
		Surname:    contact.Surname,
		Name:       contact.Name,
		Patronymic: contact.Patronymic,
		Comment:    contact.Comment,
		Telegram:   contact.Telegram,
	}
	order.Number = orderNumber(order.ID)

	if err := tx.CreateOrder(ctx, order); err != nil {
		return nil, nil, err
	}

	var (
		priced  []pricing.PricedLine
		touched []int64
		certs   []domain.Certificate
	)

	for _, line := range sortedLines(state) {
		switch line.Kind {
		case domain.LineEvent:
			occ, err := tx.Occurrence(ctx, line.OccurrenceID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return nil, nil, ErrEventNotFound
				}

				return nil, nil, err
			}

			if err := tx.ReserveSeats(ctx, line.OccurrenceID, line.Quantity); err != nil {
				if errors.Is(err, repository.ErrSeatsUnavailable) {
					return nil, nil, AvailabilityError{MasterClassName: occ.MasterClass.Name}
				}

				if errors.Is(err, repository.ErrNotFound) {
					return nil, nil, ErrEventNotFound
				}

				return nil, nil, err
			}

			item := domain.OrderItem{
				OrderID:       order.ID,
				MasterClassID: &occ.MasterClass.ID,
				OccurrenceID:  &occ.Occurrence.ID,
				Quantity:      line.Quantity,
				Price:         occ.MasterClass.FinalPrice,
			}
			if err := tx.AddOrderItem(ctx, &item); err != nil {
				return nil, nil, err
			}

			order.Items = append(order.Items, item)
			touched = append(touched, line.OccurrenceID)
			priced = append(priced, pricing.PricedLine{
				Kind:       domain.LineEvent,
				Quantity:   line.Quantity,
				StartPrice: occ.MasterClass.StartPrice,
				FinalPrice: occ.MasterClass.FinalPrice,
			})
		case domain.LineCertificate:
			for i := 0; i < line.Quantity; i++ {
				cert := domain.Certificate{
					ID:       uuid.New(),
					OwnerKey: ownerKey,
					Amount:   line.Amount,
					Code:     domain.NewCertificateCode(),
				}
				if err := tx.CreateCertificate(ctx, &cert); err != nil {
					return nil, nil, err
				}
				certs = append(certs, cert)
			}

			item := domain.OrderItem{
				OrderID:  order.ID,
				Quantity: line.Quantity,
				Price:    line.Amount,
			}
			if err := tx.AddOrderItem(ctx, &item); err != nil {
				return nil, nil, err
			}

			order.Items = append(order.Items, item)
			priced = append(priced, pricing.PricedLine{
				Kind:     domain.LineCertificate,
				Quantity: line.Quantity,
				Amount:   line.Amount,
			})
		}
	}

	totals := s.calc.Totals(priced, state.PromoCode)

	// AddOrderItem keeps total_price at the gross item sum; the promo and
	// sale discounts are applied here as the final write of the
	// transaction.
	if err := tx.SetOrderTotal(ctx, order.ID, totals.Net); err != nil {
		return nil, nil, err
	}
	order.TotalPrice = totals.Net

	return &Result{Order: order, Certificates: certs, Totals: totals}, touched, nil
}

func sortedLines(state *domain.CartState) []domain.CartLine {
	keys := make([]string, 0, len(state.Lines))
	for k := range state.Lines {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]domain.CartLine, 0, len(keys))
	for _, k := range keys {
		out = append(out, state.Lines[k])
	}

	return out
}

// orderNumber derives the short human-facing code from the order id.
func orderNumber(id uuid.UUID) string {
	return strings.ToUpper(strings.SplitN(id.String(), "-", 2)[0])
}
