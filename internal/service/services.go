package service

import (
	"time"

	"github.com/DenisFeoktistov/LesJoursBackend/internal/pricing"
	postgres "github.com/DenisFeoktistov/LesJoursBackend/internal/repository/postgres"
	redisrepo "github.com/DenisFeoktistov/LesJoursBackend/internal/repository/redis"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/service/admin"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/service/cart"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/service/certificates"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/service/checkout"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/service/orders"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/service/query"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/uow"
)

type Services struct {
	Cart         *cart.Service
	Checkout     *checkout.Service
	Orders       *orders.Service
	Certificates *certificates.Service
	Query        *query.Service
	Admin        *admin.Service
}

type Config struct {
	Query   query.Config
	CartTTL time.Duration
}

func NewServices(
	store *postgres.Store,
	carts *redisrepo.CartStore,
	cache *redisrepo.Cache,
	pubsub *redisrepo.OccurrencesPubSub,
	cfg Config,
) *Services {
	calc := pricing.NewCalculator(pricing.DefaultResolver())
	unit := uow.NewUoW(store)

	return &Services{
		Cart:         cart.New(carts, store.Catalog(), calc),
		Checkout:     checkout.New(carts, unit, calc, cache, pubsub),
		Orders:       orders.New(store.Orders(), unit, cache, pubsub),
		Certificates: certificates.New(store.Certificates()),
		Query:        query.New(store.Catalog(), cache, cfg.Query),
		Admin:        admin.New(store.Admin(), store.Catalog(), cache),
	}
}
