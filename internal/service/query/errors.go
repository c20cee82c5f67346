package query

import "errors"

var (
	ErrMasterClassNotFound = errors.New("master class not found")
	ErrEventNotFound       = errors.New("event not found")
)
