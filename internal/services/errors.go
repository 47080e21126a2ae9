// internal/services/errors.go
package services

import (
	"errors"
	"fmt"

	"github.com/farmahub/farmahub-backend/internal/models"
)

var (
	// ErrUnauthorized covers missing, malformed and unknown API keys alike.
	ErrUnauthorized     = errors.New("unauthorized")
	ErrPharmacyNotFound = errors.New("pharmacy not found")
	ErrSyncModeConflict = errors.New("sync mode conflict")
	ErrInvalidBatch     = errors.New("invalid stock batch")
	ErrTooManyItems     = errors.New("too many items in batch")
)

// ModeConflictError reports the mode a pharmacy is pinned to.
type ModeConflictError struct {
	Pinned    models.SyncMode
	Requested models.SyncMode
}

func (e *ModeConflictError) Error() string {
	return fmt.Sprintf("pharmacy syncs in %s mode, %s requested", e.Pinned, e.Requested)
}

func (e *ModeConflictError) Unwrap() error {
	return ErrSyncModeConflict
}

// SkippedItem is the diagnostic for an inbound row that was not written.
type SkippedItem struct {
	Index  int    `json:"index"`
	EAN    string `json:"ean,omitempty"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}
