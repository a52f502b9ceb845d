package moderation

import (
	"errors"

	"github.com/C4T-BuT-S4D/predlozhka/internal/storage"
)

// The store taxonomy is re-exported so callers only depend on this package.
var (
	ErrNotFound          = storage.ErrNotFound
	ErrInvalidTransition = storage.ErrInvalidTransition
	ErrValidation        = storage.ErrValidation
	ErrStoreUnavailable  = storage.ErrStoreUnavailable

	ErrBlocked   = errors.New("user is blocked")
	ErrForbidden = errors.New("forbidden")
)
