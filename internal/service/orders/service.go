// Package orders covers the post-checkout lifecycle: reading an owner's
// orders and the one-way created -> paid / created -> cancelled
// transitions. Cancellation releases the reserved seats in the same
// transaction that flips the status.
package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/DenisFeoktistov/LesJoursBackend/internal/domain"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/repository"
	redisrepo "github.com/DenisFeoktistov/LesJoursBackend/internal/repository/redis"
)

type Service struct {
	orders repository.Orders
	uow    repository.UnitOfWork
	cache  *redisrepo.Cache
	pubsub *redisrepo.OccurrencesPubSub
}

func New(
	orders repository.Orders,
	uow repository.UnitOfWork,
	cache *redisrepo.Cache,
	pubsub *redisrepo.OccurrencesPubSub,
) *Service {
	return &Service{
		orders: orders,
		uow:    uow,
		cache:  cache,
		pubsub: pubsub,
	}
}

// Get returns the order with its items, scoped to the owner: an order that
// exists but belongs to someone else reads as not found.
func (s *Service) Get(ctx context.Context, ownerKey string, id uuid.UUID) (*domain.Order, error) {
	const op = "service.orders.Get"

	order, err := s.orders.OrderWithItems(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrOrderNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if order.OwnerKey != ownerKey {
		return nil, fmt.Errorf("%s:%w", op, ErrOrderNotFound)
	}

	return order, nil
}

// List returns the owner's orders, newest first.
func (s *Service) List(ctx context.Context, ownerKey string) ([]domain.Order, error) {
	const op = "service.orders.List"

	list, err := s.orders.OrdersByOwner(ctx, ownerKey)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return list, nil
}

// MarkAsPaid transitions the order created -> paid. The guard is enforced
// by a conditional status update, so a concurrent cancel and pay cannot
// both win.
//
// Returns:
//   - orders.ErrOrderNotFound when the order does not exist or belongs to
//     another owner.
//   - orders.ErrInvalidTransition when the order already left the created
//     state.
func (s *Service) MarkAsPaid(ctx context.Context, ownerKey string, id uuid.UUID) (*domain.Order, error) {
	const op = "service.orders.MarkAsPaid"

	if _, err := s.Get(ctx, ownerKey, id); err != nil {
		return nil, err
	}

	ok, err := s.orders.SetOrderStatus(ctx, id, domain.OrderCreated, domain.OrderPaid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrOrderNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if !ok {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidTransition)
	}

	return s.Get(ctx, ownerKey, id)
}

// Cancel transitions the order created -> cancelled and gives the reserved
// seats back, all in one transaction.
func (s *Service) Cancel(ctx context.Context, ownerKey string, id uuid.UUID) (*domain.Order, error) {
	const op = "service.orders.Cancel"

	order, err := s.Get(ctx, ownerKey, id)
	if err != nil {
		return nil, err
	}

	err = s.uow.Within(ctx, func(ctx context.Context, tx repository.Tx, after func(repository.AfterCommit)) error {
		ok, err := tx.SetOrderStatus(ctx, id, domain.OrderCreated, domain.OrderCancelled)
		if err != nil {
			return err
		}

		if !ok {
			return ErrInvalidTransition
		}

		var touched []int64
		for _, item := range order.Items {
			if item.OccurrenceID == nil {
				continue
			}

			occID := *item.OccurrenceID
			if err := tx.ReleaseSeats(ctx, occID, item.Quantity); err != nil {
				return err
			}
			touched = append(touched, occID)
		}

		after(func(ctx context.Context) {
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
		if errors.Is(err, ErrInvalidTransition) {
			return nil, fmt.Errorf("%s:%w", op, ErrInvalidTransition)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return s.Get(ctx, ownerKey, id)
}
