package httpgin

import "time"

type AddCartItemRequest struct {
	Type     string `json:"type"`
	ID       int64  `json:"id"`
	Quantity int    `json:"quantity"`
}

// Quantity carries no "required" tag: zero is a meaningful value, it
// deletes the line.
type UpdateCartItemRequest struct {
	ID       string `json:"id" binding:"required"`
	Quantity int    `json:"quantity"`
}

type RemoveCartItemRequest struct {
	ID string `json:"id" binding:"required"`
}

type SetPromoCodeRequest struct {
	PromoCode string `json:"promo_code"`
}

type CheckoutRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Phone      string `json:"phone" binding:"required"`
	Surname    string `json:"surname"`
	Name       string `json:"name" binding:"required"`
	Patronymic string `json:"patronymic"`
	Comment    string `json:"comment"`
	Telegram   string `json:"telegram"`
}

type PurchaseCertificateRequest struct {
	Amount string `json:"amount" binding:"required"`
}

type CreateMasterClassRequest struct {
	Slug           string              `json:"slug" binding:"required"`
	Name           string              `json:"name" binding:"required"`
	Description    string              `json:"description"`
	StartPrice     string              `json:"start_price" binding:"required"`
	FinalPrice     string              `json:"final_price"`
	Parameters     map[string][]string `json:"parameters"`
	BucketLink     []string            `json:"bucket_link"`
	AgeRestriction int                 `json:"age_restriction"`
	DurationMin    int                 `json:"duration_min"`
}

type CreateOccurrenceRequest struct {
	MasterClassID int64  `json:"masterclass_id" binding:"required"`
	StartAt       string `json:"start_at" binding:"required"`
	EndAt         string `json:"end_at"`
	Capacity      int    `json:"capacity" binding:"required,gt=0"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type CreateMasterClassResponse struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug"`
}

type CreateOccurrenceResponse struct {
	ID int64 `json:"id"`
}

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
