package domain

import "errors"

// ErrInvalidStateTransition is returned when a trip operation is attempted from a
// terminal or incompatible status.
var ErrInvalidStateTransition = errors.New("invalid trip state transition")
