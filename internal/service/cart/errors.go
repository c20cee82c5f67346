package cart

import "errors"

var (
	ErrEventNotFound    = errors.New("event not found")
	ErrSeatsUnavailable = errors.New("not enough seats available")
	ErrInvalidAmount    = errors.New("invalid certificate amount")
	ErrLineNotFound     = errors.New("cart item not found")
)
