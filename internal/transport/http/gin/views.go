package httpgin

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/DenisFeoktistov/LesJoursBackend/internal/domain"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/service/cart"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/service/checkout"
)

// The view layer shapes responses for the storefront: decimals render as
// strings so the frontend never rounds money, dates render both as RFC3339
// and in the DD.MM.YYYY form the order history page shows.

type CartView struct {
	PromoCode           string     `json:"promo_code"`
	PromoApplied        bool       `json:"promo_applied"`
	LineItems           []LineView `json:"line_items"`
	GrossAmount         string     `json:"gross_amount"`
	MasterClassDiscount string     `json:"masterclass_discount"`
	PromoDiscount       string     `json:"promo_discount"`
	TotalDiscount       string     `json:"total_discount"`
	NetAmount           string     `json:"net_amount"`
}

type LineView struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Quantity     int       `json:"quantity"`
	Name         string    `json:"name,omitempty"`
	Availability bool      `json:"availability"`
	GuestsAmount int       `json:"guestsAmount,omitempty"`
	TotalPrice   string    `json:"totalPrice,omitempty"`
	Date         *DateView `json:"date,omitempty"`
	Address      string    `json:"address,omitempty"`
	Contacts     string    `json:"contacts,omitempty"`
	Amount       string    `json:"amount,omitempty"`
}

type DateView struct {
	StartDatetime string `json:"start_datetime"`
	EndDatetime   string `json:"end_datetime"`
}

func cartView(d *cart.Detail) CartView {
	items := make([]LineView, 0, len(d.Lines))
	for _, rl := range d.Lines {
		items = append(items, lineView(rl))
	}

	return CartView{
		PromoCode:           d.PromoCode,
		PromoApplied:        d.PromoApplied,
		LineItems:           items,
		GrossAmount:         d.Totals.Gross.String(),
		MasterClassDiscount: d.Totals.MasterClassDiscount.String(),
		PromoDiscount:       d.Totals.PromoDiscount.String(),
		TotalDiscount:       d.Totals.TotalDiscount.String(),
		NetAmount:           d.Totals.Net.String(),
	}
}

func lineView(rl cart.ResolvedLine) LineView {
	if rl.Line.Kind == domain.LineCertificate {
		return LineView{
			ID:           rl.Line.Key(),
			Type:         "certificate",
			Quantity:     rl.Line.Quantity,
			Availability: true,
			Amount:       rl.Line.Amount.String(),
		}
	}

	mc := rl.Occurrence.MasterClass
	occ := rl.Occurrence.Occurrence
	qty := int64(rl.Line.Quantity)

	return LineView{
		ID:           rl.Line.Key(),
		Type:         "master_class",
		Quantity:     rl.Line.Quantity,
		Name:         mc.Name,
		Availability: rl.Available >= rl.Line.Quantity,
		GuestsAmount: rl.Line.Quantity,
		TotalPrice:   mc.FinalPrice.Mul(decimal.NewFromInt(qty)).String(),
		Date: &DateView{
			StartDatetime: occ.StartAt.Format(time.RFC3339),
			EndDatetime:   occ.EndAt.Format(time.RFC3339),
		},
		Address:  mc.Param("address"),
		Contacts: mc.Param("contacts"),
	}
}

type OrderView struct {
	ID            string          `json:"id"`
	Number        string          `json:"number"`
	FormattedDate string          `json:"formatted_date"`
	OrderUnits    []OrderUnitView `json:"order_units"`
	TotalAmount   string          `json:"total_amount"`
	FinalAmount   string          `json:"final_amount"`
	TotalSale     string          `json:"total_sale"`
	Status        string          `json:"status"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	Surname       string          `json:"surname"`
	Name          string          `json:"name"`
	Patronymic    string          `json:"patronymic"`
	Comment       string          `json:"comment"`
	Telegram      string          `json:"telegram"`
}

type OrderUnitView struct {
	MasterClassID *int64 `json:"masterclass_id,omitempty"`
	OccurrenceID  *int64 `json:"occurrence_id,omitempty"`
	Quantity      int    `json:"quantity"`
	Price         string `json:"price"`
}

func orderView(o *domain.Order) OrderView {
	units := make([]OrderUnitView, 0, len(o.Items))
	for _, it := range o.Items {
		units = append(units, OrderUnitView{
			MasterClassID: it.MasterClassID,
			OccurrenceID:  it.OccurrenceID,
			Quantity:      it.Quantity,
			Price:         it.Price.String(),
		})
	}

	gross := o.GrossItems()

	return OrderView{
		ID:            o.ID.String(),
		Number:        o.Number,
		FormattedDate: o.CreatedAt.Format("02.01.2006"),
		OrderUnits:    units,
		TotalAmount:   gross.String(),
		FinalAmount:   o.TotalPrice.String(),
		TotalSale:     gross.Sub(o.TotalPrice).String(),
		Status:        string(o.Status),
		Email:         o.Email,
		Phone:         o.Phone,
		Surname:       o.Surname,
		Name:          o.Name,
		Patronymic:    o.Patronymic,
		Comment:       o.Comment,
		Telegram:      o.Telegram,
	}
}

type CertificateView struct {
	ID           string  `json:"id"`
	Code         string  `json:"code"`
	Amount       string  `json:"amount"`
	IsUsed       bool    `json:"is_used"`
	PurchaseDate string  `json:"purchase_date"`
	UsedDate     *string `json:"used_date,omitempty"`
}

func certificateView(c *domain.Certificate) CertificateView {
	v := CertificateView{
		ID:           c.ID.String(),
		Code:         c.Code,
		Amount:       c.Amount.String(),
		IsUsed:       c.IsUsed,
		PurchaseDate: c.PurchaseDate.Format(time.RFC3339),
	}

	if c.UsedDate != nil {
		used := c.UsedDate.Format(time.RFC3339)
		v.UsedDate = &used
	}

	return v
}

type CheckoutView struct {
	Order        OrderView         `json:"order"`
	Certificates []CertificateView `json:"certificates,omitempty"`
}

func checkoutView(res *checkout.Result) CheckoutView {
	v := CheckoutView{Order: orderView(res.Order)}
	for i := range res.Certificates {
		v.Certificates = append(v.Certificates, certificateView(&res.Certificates[i]))
	}
	return v
}

type MasterClassView struct {
	ID             int64               `json:"id"`
	Slug           string              `json:"slug"`
	Name           string              `json:"name"`
	Description    string              `json:"description"`
	StartPrice     string              `json:"start_price"`
	FinalPrice     string              `json:"final_price"`
	Parameters     map[string][]string `json:"parameters"`
	BucketLink     []string            `json:"bucket_link"`
	AgeRestriction int                 `json:"age_restriction"`
	DurationMin    int                 `json:"duration_min"`
}

func masterClassView(m *domain.MasterClass) MasterClassView {
	return MasterClassView{
		ID:             m.ID,
		Slug:           m.Slug,
		Name:           m.Name,
		Description:    m.Description,
		StartPrice:     m.StartPrice.String(),
		FinalPrice:     m.FinalPrice.String(),
		Parameters:     m.Parameters,
		BucketLink:     m.BucketLink,
		AgeRestriction: m.AgeRestriction,
		DurationMin:    m.DurationMin,
	}
}

type OccurrenceView struct {
	ID          int64           `json:"id"`
	MasterClass MasterClassView `json:"master_class"`
	Date        DateView        `json:"date"`
	Capacity    int             `json:"capacity"`
	Remaining   int             `json:"remaining"`
}

func occurrenceView(d *domain.OccurrenceDetail) OccurrenceView {
	return OccurrenceView{
		ID:          d.Occurrence.ID,
		MasterClass: masterClassView(&d.MasterClass),
		Date: DateView{
			StartDatetime: d.Occurrence.StartAt.Format(time.RFC3339),
			EndDatetime:   d.Occurrence.EndAt.Format(time.RFC3339),
		},
		Capacity:  d.Occurrence.Capacity,
		Remaining: d.Occurrence.Remaining(),
	}
}
