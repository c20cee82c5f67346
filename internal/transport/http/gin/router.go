package httpgin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/DenisFeoktistov/LesJoursBackend/internal/domain"
	redisrepo "github.com/DenisFeoktistov/LesJoursBackend/internal/repository/redis"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/service"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/service/admin"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/service/cart"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/service/certificates"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/service/checkout"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/service/orders"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/service/query"
)

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	limiter *redisrepo.SlidingWindowLimiter,
	allowedOrigins []string,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(
		gin.Recovery(),
		LoggingMiddleware(logger),
		RequestIDMiddleware(),
		CORS(allowedOrigins),
		OwnerMiddleware(),
	)
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Catalog
	r.GET("/masterclasses/:id", handleGetMasterClass(svcs))
	r.GET("/occurrences/:id", handleGetOccurrence(svcs))
	r.GET("/occurrences/:id/availability", handleGetAvailability(svcs))

	// Cart
	r.GET("/cart", handleGetCart(svcs))
	r.POST("/cart/items", handleAddCartItem(svcs))
	r.PUT("/cart", handleUpdateCartItem(svcs))
	r.DELETE("/cart/items", handleRemoveCartItem(svcs))
	r.POST("/cart/clear", handleClearCart(svcs))
	r.POST("/cart/promo", handleSetPromoCode(svcs))

	// Checkout + orders
	r.POST("/checkout", handleCheckout(svcs, idem, limiter))
	r.GET("/orders", handleListOrders(svcs))
	r.GET("/orders/:id", handleGetOrder(svcs))
	r.POST("/orders/:id/pay", handlePayOrder(svcs))
	r.POST("/orders/:id/cancel", handleCancelOrder(svcs))

	// Certificates
	r.POST("/certificates", handlePurchaseCertificate(svcs))
	r.GET("/certificates/:code", handleGetCertificate(svcs))
	r.POST("/certificates/:code/redeem", handleRedeemCertificate(svcs))

	// Admin-API
	// TODO: add admin middleware
	adm := r.Group("/admin")
	{
		adm.POST("/masterclasses", handleCreateMasterClass(svcs))
		adm.POST("/events", handleCreateOccurrence(svcs))
	}

	return r
}

// --- Catalog handlers ---

// @Summary  Get master class
// @Param    id  path  int  true  "Master class ID"
// @Success  200  {object}  MasterClassView
// @Failure  404  {object}  ErrorResponse
// @Router   /masterclasses/{id} [get]
func handleGetMasterClass(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		mc, err := svcs.Query.MasterClass(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		// ETag + Cache-Control 60s
		writeJSONWithCache(c, http.StatusOK, masterClassView(mc), "public, max-age=60", true)
	}
}

// @Summary  Get occurrence with master class
// @Param    id  path  int  true  "Occurrence ID"
// @Success  200  {object}  OccurrenceView
// @Failure  404  {object}  ErrorResponse
// @Router   /occurrences/{id} [get]
func handleGetOccurrence(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		occ, err := svcs.Query.Occurrence(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, occurrenceView(occ), "public, max-age=30", true)
	}
}

// @Summary  Get seat availability
// @Param    id  path  int  true  "Occurrence ID"
// @Success  200  {object}  query.Availability
// @Router   /occurrences/{id}/availability [get]
func handleGetAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		av, err := svcs.Query.Availability(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		// ETag + Cache-Control 5s, availability goes stale fast
		writeJSONWithCache(c, http.StatusOK, av, "public, max-age=5", true)
	}
}

// --- Cart handlers ---

// @Summary  Get cart
// @Success  200  {object}  CartView
// @Router   /cart [get]
func handleGetCart(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := svcs.Cart.Get(c.Request.Context(), ownerKey(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, cartView(d))
	}
}

// @Summary  Add item to cart
// @Param    req body  AddCartItemRequest true "payload"
// @Success  200 {object} CartView
// @Failure  400 {object} ErrorResponse "validation / not enough seats"
// @Router   /cart/items [post]
func handleAddCartItem(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AddCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		if req.Type == "" || req.ID == 0 {
			badRequest(c, "Type and id are required")
			return
		}

		var (
			d   *cart.Detail
			err error
		)
		switch req.Type {
		case "master_class", "event":
			d, err = svcs.Cart.AddEvent(c.Request.Context(), ownerKey(c), req.ID, req.Quantity)
		case "certificate":
			d, err = svcs.Cart.AddCertificate(
				c.Request.Context(),
				ownerKey(c),
				decimal.NewFromInt(req.ID),
				req.Quantity,
			)
		default:
			badRequest(c, "Invalid item type")
			return
		}
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, cartView(d))
	}
}

// @Summary  Update item quantity
// @Param    req body  UpdateCartItemRequest true "payload"
// @Success  200 {object} CartView
// @Router   /cart [put]
func handleUpdateCartItem(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		d, err := svcs.Cart.UpdateQuantity(c.Request.Context(), ownerKey(c), req.ID, req.Quantity)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, cartView(d))
	}
}

// @Summary  Remove item from cart
// @Param    req body  RemoveCartItemRequest true "payload"
// @Success  200 {object} CartView
// @Router   /cart/items [delete]
func handleRemoveCartItem(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RemoveCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		d, err := svcs.Cart.Remove(c.Request.Context(), ownerKey(c), req.ID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, cartView(d))
	}
}

// @Summary  Clear cart
// @Success  200 {object} CartView
// @Router   /cart/clear [post]
func handleClearCart(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := svcs.Cart.Clear(c.Request.Context(), ownerKey(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, cartView(d))
	}
}

// @Summary  Apply promo code
// @Param    req body  SetPromoCodeRequest true "payload"
// @Success  200 {object} CartView
// @Router   /cart/promo [post]
func handleSetPromoCode(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SetPromoCodeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		d, err := svcs.Cart.SetPromoCode(
			c.Request.Context(),
			ownerKey(c),
			strings.TrimSpace(req.PromoCode),
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, cartView(d))
	}
}

// --- Checkout and order handlers ---

// @Summary  Checkout cart (idempotent)
// @Param    req body  CheckoutRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} CheckoutView
// @Failure  400 {object} ErrorResponse "empty cart / validation / seats gone"
// @Failure  409 {object} ErrorResponse "idem in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /checkout [post]
func handleCheckout(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	limiter *redisrepo.SlidingWindowLimiter,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		owner := ownerKey(c)

		if limiter != nil {
			ok, _, retry, err := limiter.Allow(c.Request.Context(), owner)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !ok {
				c.Header("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
				c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "Too many requests"})
				return
			}
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemCheckout(owner, idemKey)

			if payload, ok, _ := idem.GetResult(c.Request.Context(), idemStorageKey); ok {
				c.Header("Idempotency-Key", idemKey)
				c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
				return
			}

			locked, err := idem.AcquireLock(c.Request.Context(), idemStorageKey)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(c.Request.Context(), idemStorageKey); ok {
					c.Header("Idempotency-Key", idemKey)
					c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "Idempotency key in progress"})
				return
			}
		}

		res, err := svcs.Checkout.Checkout(c.Request.Context(), owner, checkout.ContactInfo{
			Email:      req.Email,
			Phone:      req.Phone,
			Surname:    req.Surname,
			Name:       req.Name,
			Patronymic: req.Patronymic,
			Comment:    req.Comment,
			Telegram:   req.Telegram,
		})
		if err != nil {
			if idemStorageKey != "" && idem != nil {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		resp := checkoutView(res)

		if idemStorageKey != "" && idem != nil {
			b, _ := json.Marshal(resp)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(b))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// @Summary  List own orders
// @Success  200 {array} OrderView
// @Router   /orders [get]
func handleListOrders(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svcs.Orders.List(c.Request.Context(), ownerKey(c))
		if err != nil {
			respondErr(c, err)
			return
		}

		views := make([]OrderView, 0, len(list))
		for i := range list {
			views = append(views, orderView(&list[i]))
		}
		c.JSON(http.StatusOK, views)
	}
}

// @Summary  Get order
// @Param    id  path  string  true  "Order ID (uuid)"
// @Success  200 {object} OrderView
// @Router   /orders/{id} [get]
func handleGetOrder(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		o, err := svcs.Orders.Get(c.Request.Context(), ownerKey(c), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, orderView(o))
	}
}

// @Summary  Mark order as paid
// @Param    id  path  string  true  "Order ID (uuid)"
// @Success  200 {object} OrderView
// @Failure  409 {object} ErrorResponse
// @Router   /orders/{id}/pay [post]
func handlePayOrder(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		o, err := svcs.Orders.MarkAsPaid(c.Request.Context(), ownerKey(c), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, orderView(o))
	}
}

// @Summary  Cancel order and release seats
// @Param    id  path  string  true  "Order ID (uuid)"
// @Success  200 {object} OrderView
// @Failure  409 {object} ErrorResponse
// @Router   /orders/{id}/cancel [post]
func handleCancelOrder(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		o, err := svcs.Orders.Cancel(c.Request.Context(), ownerKey(c), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, orderView(o))
	}
}

// --- Certificate handlers ---

// @Summary  Purchase gift certificate
// @Param    req body  PurchaseCertificateRequest true "payload"
// @Success  201 {object} CertificateView
// @Failure  400 {object} ErrorResponse
// @Router   /certificates [post]
func handlePurchaseCertificate(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PurchaseCertificateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			badRequest(c, "Invalid certificate amount")
			return
		}
		cert, err := svcs.Certificates.Purchase(c.Request.Context(), ownerKey(c), amount)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, certificateView(cert))
	}
}

// @Summary  Get certificate by code
// @Param    code  path  string  true  "Certificate code"
// @Success  200 {object} CertificateView
// @Router   /certificates/{code} [get]
func handleGetCertificate(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		cert, err := svcs.Certificates.Get(c.Request.Context(), c.Param("code"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, certificateView(cert))
	}
}

// @Summary  Redeem certificate (one-shot)
// @Param    code  path  string  true  "Certificate code"
// @Success  200 {object} CertificateView
// @Failure  409 {object} ErrorResponse "already used"
// @Router   /certificates/{code}/redeem [post]
func handleRedeemCertificate(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		cert, err := svcs.Certificates.Redeem(c.Request.Context(), c.Param("code"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, certificateView(cert))
	}
}

// --- Admin handlers ---

// @Summary  Create master class
// @Param    req body  CreateMasterClassRequest true "payload"
// @Success  201 {object} CreateMasterClassResponse
// @Router   /admin/masterclasses [post]
func handleCreateMasterClass(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateMasterClassRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		startPrice, err := decimal.NewFromString(req.StartPrice)
		if err != nil {
			badRequest(c, "invalid start_price")
			return
		}

		finalPrice := startPrice
		if req.FinalPrice != "" {
			finalPrice, err = decimal.NewFromString(req.FinalPrice)
			if err != nil {
				badRequest(c, "invalid final_price")
				return
			}
		}

		mc, err := svcs.Admin.CreateMasterClass(c.Request.Context(), domain.MasterClass{
			Slug:           req.Slug,
			Name:           req.Name,
			Description:    req.Description,
			StartPrice:     startPrice,
			FinalPrice:     finalPrice,
			Parameters:     req.Parameters,
			BucketLink:     req.BucketLink,
			AgeRestriction: req.AgeRestriction,
			DurationMin:    req.DurationMin,
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, CreateMasterClassResponse{ID: mc.ID, Slug: mc.Slug})
	}
}

// @Summary  Schedule master class occurrence
// @Param    req body  CreateOccurrenceRequest true "payload"
// @Success  201 {object} CreateOccurrenceResponse
// @Router   /admin/events [post]
func handleCreateOccurrence(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateOccurrenceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		startAt, err := parseRFC3339(req.StartAt)
		if err != nil {
			badRequest(c, "invalid start_at (RFC3339)")
			return
		}

		var endAt time.Time
		if req.EndAt != "" {
			endAt, err = parseRFC3339(req.EndAt)
			if err != nil {
				badRequest(c, "invalid end_at (RFC3339)")
				return
			}
		}

		occ, err := svcs.Admin.CreateOccurrence(c.Request.Context(), domain.EventOccurrence{
			MasterClassID: req.MasterClassID,
			StartAt:       startAt,
			EndAt:         endAt,
			Capacity:      req.Capacity,
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, CreateOccurrenceResponse{ID: occ.ID})
	}
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var avErr checkout.AvailabilityError
	if errors.As(err, &avErr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Not enough seats available for " + avErr.MasterClassName,
		})
		return
	}

	switch {
	// cart service
	case errors.Is(err, cart.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Event not found"})
	case errors.Is(err, cart.ErrSeatsUnavailable):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Not enough seats available"})
	case errors.Is(err, cart.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid certificate amount"})
	case errors.Is(err, cart.ErrLineNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Cart item not found"})
	// checkout service
	case errors.Is(err, checkout.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Cart is empty"})
	case errors.Is(err, checkout.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Event not found"})
	// orders service
	case errors.Is(err, orders.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Order not found"})
	case errors.Is(err, orders.ErrInvalidTransition):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "Order is not in created state"})
	// certificates service
	case errors.Is(err, certificates.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Certificate not found"})
	case errors.Is(err, certificates.ErrAlreadyUsed):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "Certificate already used"})
	case errors.Is(err, certificates.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid certificate amount"})
	// query service
	case errors.Is(err, query.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Event not found"})
	case errors.Is(err, query.ErrMasterClassNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Master class not found"})
	// admin service
	case errors.Is(err, admin.ErrSlugTaken):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "Slug already taken"})
	case errors.Is(err, admin.ErrMasterClassNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Master class not found"})
	case errors.Is(err, admin.ErrInvalidCapacity), errors.Is(err, admin.ErrInvalidPrice):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
	}
}
