package admin

import "errors"

var (
	ErrSlugTaken           = errors.New("slug already taken")
	ErrMasterClassNotFound = errors.New("master class not found")
	ErrInvalidCapacity     = errors.New("capacity must be positive")
	ErrInvalidPrice        = errors.New("final price cannot exceed start price")
)
