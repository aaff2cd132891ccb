package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrDuplicate        = errors.New("duplicate entry")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// Translation errors. An unrecognized fact shape cannot be defaulted.
var (
	ErrUnknownType      = errors.New("unknown type")
	ErrUnknownPredicate = errors.New("unknown predicate")
	ErrMultiValued      = errors.New("multiple values for single-valued predicate")
	ErrUnknownLandmark  = errors.New("unknown landmark")
)

// Engine errors
var (
	ErrInconsistent    = errors.New("internal consistency violation")
	ErrStaleHandle     = errors.New("stale fact handle")
	ErrIdentityChanged = errors.New("modify changed fact identity")
	ErrFiringLimit     = errors.New("firing limit reached")
)
