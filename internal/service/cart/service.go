// Package cart implements the pre-checkout basket: line management, promo
// codes and the priced view the storefront renders. Carts live in redis as
// one blob per owner key; nothing here touches postgres except catalog
// reads needed to resolve and price the lines.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/DenisFeoktistov/LesJoursBackend/internal/domain"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/pricing"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/repository"
)

// ResolvedLine is a cart line joined with the catalog data needed to render
// and price it. Occurrence is nil for certificate lines.
type ResolvedLine struct {
	Line       domain.CartLine
	Occurrence *domain.OccurrenceDetail
	Available  int
}

// Detail is the full cart view: resolved lines in stable key order, the
// promo state and the computed totals.
type Detail struct {
	PromoCode    string
	PromoApplied bool
	Lines        []ResolvedLine
	Totals       pricing.Totals
}

type Service struct {
	carts   repository.Carts
	catalog repository.Catalog
	calc    *pricing.Calculator
}

func New(carts repository.Carts, catalog repository.Catalog, calc *pricing.Calculator) *Service {
	return &Service{
		carts:   carts,
		catalog: catalog,
		calc:    calc,
	}
}

// Get returns the priced cart view. Lines whose occurrence no longer exists
// are dropped and the pruned cart is saved back.
func (s *Service) Get(ctx context.Context, ownerKey string) (*Detail, error) {
	const op = "service.cart.Get"

	state, err := s.carts.Load(ctx, ownerKey)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	detail, pruned, err := s.resolve(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if pruned {
		if err := s.carts.Save(ctx, ownerKey, state); err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
	}

	return detail, nil
}

// AddEvent puts an occurrence into the cart with the given quantity,
// replacing any other occurrence of the same master class. Availability is
// checked against the live seat counter; the seats themselves are only
// reserved at checkout.
//
// Returns:
//   - cart.ErrEventNotFound if the occurrence does not exist.
//   - cart.ErrSeatsUnavailable if fewer than quantity seats remain.
func (s *Service) AddEvent(ctx context.Context, ownerKey string, occurrenceID int64, quantity int) (*Detail, error) {
	const op = "service.cart.AddEvent"

	if quantity <= 0 {
		quantity = 1
	}

	occ, err := s.catalog.Occurrence(ctx, occurrenceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrEventNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if occ.Occurrence.Remaining() < quantity {
		return nil, fmt.Errorf("%s:%w", op, ErrSeatsUnavailable)
	}

	return s.mutate(ctx, op, ownerKey, func(state *domain.CartState) error {
		state.Put(domain.CartLine{
			Kind:          domain.LineEvent,
			OccurrenceID:  occ.Occurrence.ID,
			MasterClassID: occ.MasterClass.ID,
			Quantity:      quantity,
		})
		return nil
	})
}

// AddCertificate puts a gift certificate line into the cart. The amount
// must be one of the fixed denominations; adding the same denomination
// again merges into the existing line's quantity.
func (s *Service) AddCertificate(ctx context.Context, ownerKey string, amount decimal.Decimal, quantity int) (*Detail, error) {
	const op = "service.cart.AddCertificate"

	if quantity <= 0 {
		quantity = 1
	}

	if !domain.IsCertificateDenomination(amount) {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidAmount)
	}

	return s.mutate(ctx, op, ownerKey, func(state *domain.CartState) error {
		if existing, ok := state.Get(domain.CertificateLineKey(amount)); ok {
			quantity += existing.Quantity
		}
		state.Put(domain.CartLine{
			Kind:     domain.LineCertificate,
			Amount:   amount,
			Quantity: quantity,
		})
		return nil
	})
}

// UpdateQuantity sets the quantity of the line under key. A non-positive
// quantity removes the line. Raising an event line's quantity re-checks
// availability.
func (s *Service) UpdateQuantity(ctx context.Context, ownerKey, key string, quantity int) (*Detail, error) {
	const op = "service.cart.UpdateQuantity"

	if quantity <= 0 {
		return s.Remove(ctx, ownerKey, key)
	}

	state, err := s.carts.Load(ctx, ownerKey)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	line, ok := state.Get(key)
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, ErrLineNotFound)
	}

	if line.Kind == domain.LineEvent {
		occ, err := s.catalog.Occurrence(ctx, line.OccurrenceID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%s:%w", op, ErrEventNotFound)
			}

			return nil, fmt.Errorf("%s:%w", op, err)
		}

		if occ.Occurrence.Remaining() < quantity {
			return nil, fmt.Errorf("%s:%w", op, ErrSeatsUnavailable)
		}
	}

	line.Quantity = quantity
	state.Put(line)

	return s.saveAndResolve(ctx, op, ownerKey, state)
}

// Remove deletes the line under key. Removing an absent key is not an
// error; the cart simply stays as it was.
func (s *Service) Remove(ctx context.Context, ownerKey, key string) (*Detail, error) {
	const op = "service.cart.Remove"

	return s.mutate(ctx, op, ownerKey, func(state *domain.CartState) error {
		state.Remove(key)
		return nil
	})
}

// Clear drops every line and the promo code.
func (s *Service) Clear(ctx context.Context, ownerKey string) (*Detail, error) {
	const op = "service.cart.Clear"

	return s.mutate(ctx, op, ownerKey, func(state *domain.CartState) error {
		state.Clear()
		return nil
	})
}

// SetPromoCode attaches a promo code to the cart. Unknown codes are kept
// but contribute no discount; the view exposes that through PromoApplied.
func (s *Service) SetPromoCode(ctx context.Context, ownerKey, code string) (*Detail, error) {
	const op = "service.cart.SetPromoCode"

	return s.mutate(ctx, op, ownerKey, func(state *domain.CartState) error {
		state.PromoCode = code
		return nil
	})
}

func (s *Service) mutate(
	ctx context.Context,
	op, ownerKey string,
	fn func(state *domain.CartState) error,
) (*Detail, error) {
	state, err := s.carts.Load(ctx, ownerKey)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if err := fn(state); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return s.saveAndResolve(ctx, op, ownerKey, state)
}

func (s *Service) saveAndResolve(
	ctx context.Context,
	op, ownerKey string,
	state *domain.CartState,
) (*Detail, error) {
	detail, _, err := s.resolve(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if err := s.carts.Save(ctx, ownerKey, state); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return detail, nil
}

// resolve joins every line with the catalog and computes totals. Event
// lines whose occurrence vanished are pruned from state; the second return
// reports whether that happened.
func (s *Service) resolve(ctx context.Context, state *domain.CartState) (*Detail, bool, error) {
	keys := make([]string, 0, len(state.Lines))
	for k := range state.Lines {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		resolved []ResolvedLine
		priced   []pricing.PricedLine
		pruned   bool
	)

	for _, key := range keys {
		line := state.Lines[key]

		switch line.Kind {
		case domain.LineEvent:
			occ, err := s.catalog.Occurrence(ctx, line.OccurrenceID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					state.Remove(key)
					pruned = true
					continue
				}

				return nil, false, err
			}

			resolved = append(resolved, ResolvedLine{
				Line:       line,
				Occurrence: occ,
				Available:  occ.Occurrence.Remaining(),
			})
			priced = append(priced, pricing.PricedLine{
				Kind:       domain.LineEvent,
				Quantity:   line.Quantity,
				StartPrice: occ.MasterClass.StartPrice,
				FinalPrice: occ.MasterClass.FinalPrice,
			})
		case domain.LineCertificate:
			resolved = append(resolved, ResolvedLine{Line: line})
			priced = append(priced, pricing.PricedLine{
				Kind:     domain.LineCertificate,
				Quantity: line.Quantity,
				Amount:   line.Amount,
			})
		}
	}

	_, applied := s.calc.Resolve(state.PromoCode)

	return &Detail{
		PromoCode:    state.PromoCode,
		PromoApplied: applied,
		Lines:        resolved,
		Totals:       s.calc.Totals(priced, state.PromoCode),
	}, pruned, nil
}
