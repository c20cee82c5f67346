package certificates

import "errors"

var (
	ErrNotFound      = errors.New("certificate not found")
	ErrAlreadyUsed   = errors.New("certificate already used")
	ErrInvalidAmount = errors.New("invalid certificate amount")
)
