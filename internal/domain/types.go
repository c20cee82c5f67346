package domain

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderCreated   OrderStatus = "created"
	OrderPaid      OrderStatus = "paid"
	OrderCancelled OrderStatus = "cancelled"
)

// CertificateDenominations is the fixed set of amounts a gift certificate
// can be issued for.
var CertificateDenominations = []decimal.Decimal{
	decimal.NewFromInt(500),
	decimal.NewFromInt(1000),
	decimal.NewFromInt(5000),
}

func IsCertificateDenomination(amount decimal.Decimal) bool {
	for _, d := range CertificateDenominations {
		if d.Equal(amount) {
			return true
		}
	}
	return false
}

type MasterClass struct {
	ID             int64
	Slug           string
	Name           string
	Description    string
	StartPrice     decimal.Decimal
	FinalPrice     decimal.Decimal
	Parameters     map[string][]string
	BucketLink     []string
	AgeRestriction int
	DurationMin    int
	CreatedAt      time.Time
}

// Param returns the first value stored under key in the free-form
// parameters map ("address", "contacts", ...).
func (m *MasterClass) Param(key string) string {
	if vs, ok := m.Parameters[key]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}

type EventOccurrence struct {
	ID            int64
	MasterClassID int64
	StartAt       time.Time
	EndAt         time.Time
	Capacity      int
	Occupied      int
	CreatedAt     time.Time
}

func (e *EventOccurrence) Remaining() int {
	return e.Capacity - e.Occupied
}

// OccurrenceDetail is an occurrence joined with its master class, the unit
// the cart and checkout operate on.
type OccurrenceDetail struct {
	Occurrence  EventOccurrence
	MasterClass MasterClass
}

// certCodeAlphabet omits 0/O/1/I so codes survive being read out loud.
const certCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewCertificateCode mints a gift certificate code like GIFT-7KQ2M9XD.
func NewCertificateCode() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = certCodeAlphabet[int(b[i])%len(certCodeAlphabet)]
	}
	return "GIFT-" + string(b)
}

type Certificate struct {
	ID           uuid.UUID
	OwnerKey     string
	Amount       decimal.Decimal
	Code         string
	IsUsed       bool
	PurchaseDate time.Time
	UsedDate     *time.Time
}

// Use marks the certificate as spent. The transition is one-way: the first
// call returns true, every later call returns false and leaves UsedDate
// untouched.
func (c *Certificate) Use(now time.Time) bool {
	if c.IsUsed {
		return false
	}
	c.IsUsed = true
	c.UsedDate = &now
	return true
}

type Order struct {
	ID         uuid.UUID
	Number     string
	OwnerKey   string
	Status     OrderStatus
	TotalPrice decimal.Decimal
	Email      string
	Phone      string
	Surname    string
	Name       string
	Patronymic string
	Comment    string
	Telegram   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Items      []OrderItem
}

// MarkAsPaid transitions created -> paid. Returns false without touching
// the order when it is not in the created state.
func (o *Order) MarkAsPaid() bool {
	if o.Status != OrderCreated {
		return false
	}
	o.Status = OrderPaid
	return true
}

// Cancel transitions created -> cancelled, same guard as MarkAsPaid.
func (o *Order) Cancel() bool {
	if o.Status != OrderCreated {
		return false
	}
	o.Status = OrderCancelled
	return true
}

// GrossItems is the denormalized sum of item price x quantity, the value
// the order row keeps in sync on every item insert.
func (o *Order) GrossItems() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

type OrderItem struct {
	ID            int64
	OrderID       uuid.UUID
	MasterClassID *int64 // nil for certificate items
	OccurrenceID  *int64 // kept so cancellation can release seats
	Quantity      int
	Price         decimal.Decimal
}
