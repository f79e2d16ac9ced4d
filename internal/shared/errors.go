package shared

import "errors"

// Error taxonomy shared by the store, the reconciliation path and the
// collaborators. Wrap with fmt.Errorf("...: %w: %w", ErrX, cause).
var (
	// ErrStorage means the underlying persistence is unavailable or failed.
	ErrStorage = errors.New("storage error")
	// ErrNotFound means an operation referenced a nonexistent identifier.
	ErrNotFound = errors.New("not found")
	// ErrParse means a backup, import or collaborator payload was malformed.
	ErrParse = errors.New("parse error")
	// ErrNetwork means a collaborator was unreachable or answered with a non-success status.
	ErrNetwork = errors.New("network error")
	// ErrValidation means the caller supplied invalid input.
	ErrValidation = errors.New("validation error")
)
