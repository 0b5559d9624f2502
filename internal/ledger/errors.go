package ledger

import (
	"errors"
	"fmt"

	"github.com/crucial707/asset-custody/internal/models"
)

// ErrAssetNotFound is returned when the movement targets an unknown asset.
var ErrAssetNotFound = errors.New("asset not found")

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CollaboratorNotFoundError reports a reference that did not resolve to exactly
// one collaborator. Ambiguous is set when several candidates matched.
type CollaboratorNotFoundError struct {
	Ref       string
	Ambiguous bool
}

func (e *CollaboratorNotFoundError) Error() string {
	if e.Ambiguous {
		return fmt.Sprintf("collaborator %q is ambiguous", e.Ref)
	}
	return fmt.Sprintf("collaborator %q not found", e.Ref)
}

// ConflictError reports a custody rule violation. Retrying makes sense once the
// asset state has changed.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Reason
}

// PendingAssetsError blocks deactivation of a collaborator who still holds assets.
type PendingAssetsError struct {
	CollaboratorID int
	Assets         []models.PendingAsset
}

func (e *PendingAssetsError) Error() string {
	return fmt.Sprintf("collaborator %d holds %d asset(s) pending return", e.CollaboratorID, len(e.Assets))
}

// StorageError wraps a database or transaction failure. Nothing was committed
// when it is returned, so the whole call may be retried unchanged.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
