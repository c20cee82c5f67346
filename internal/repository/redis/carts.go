package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DenisFeoktistov/LesJoursBackend/internal/domain"
)

// CartStore keeps one JSON blob per owner key, the moral equivalent of a
// session- or profile-attached cart field. Blobs expire after TTL of
// inactivity; every save refreshes the clock.
type CartStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCartStore(rdb *redis.Client, ttl time.Duration) *CartStore {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &CartStore{rdb: rdb, ttl: ttl}
}

// Load returns the owner's cart, or a fresh empty state when none is
// stored. Lines that fail the tagged-union validation are dropped here, at
// the repository boundary, so services only ever see well-formed lines.
func (s *CartStore) Load(ctx context.Context, ownerKey string) (*domain.CartState, error) {
	const op = "redis.CartStore.Load"

	raw, err := s.rdb.Get(ctx, KeyCart(ownerKey)).Result()
	if err == redis.Nil {
		return domain.NewCartState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var state domain.CartState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if state.Lines == nil {
		state.Lines = map[string]domain.CartLine{}
	}

	for key, line := range state.Lines {
		if !line.Valid() || line.Key() != key {
			delete(state.Lines, key)
		}
	}

	return &state, nil
}

func (s *CartStore) Save(ctx context.Context, ownerKey string, state *domain.CartState) error {
	const op = "redis.CartStore.Save"

	b, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := s.rdb.Set(ctx, KeyCart(ownerKey), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (s *CartStore) Delete(ctx context.Context, ownerKey string) error {
	const op = "redis.CartStore.Delete"

	if err := s.rdb.Del(ctx, KeyCart(ownerKey)).Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}
