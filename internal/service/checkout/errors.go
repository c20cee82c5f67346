package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart     = errors.New("cart is empty")
	ErrEventNotFound = errors.New("event not found")
)

// AvailabilityError reports which master class ran out of seats between the
// add-to-cart check and the checkout reservation.
type AvailabilityError struct {
	MasterClassName string
}

func (e AvailabilityError) Error() string {
	return fmt.Sprintf("not enough seats available for %s", e.MasterClassName)
}
