package slots

import "errors"

var (
	ErrInvalidInput = errors.New("location, service and client ids are required")
	ErrNoCapacity   = errors.New("no slots available for this service at this location")
	ErrNotFound     = errors.New("slot not found")
)
