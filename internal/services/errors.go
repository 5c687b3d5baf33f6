package services

import (
	"github.com/abrezinsky/voterreg/internal/errors"
)

// Service errors
var (
	ErrRecoveryInProgress = errors.Conflict("recovery already in progress")
	ErrNotLoggedIn        = errors.Unauthorized("not logged in")
	ErrInvalidCredentials = errors.Unauthorized("invalid email or password")
	ErrNoArchive          = errors.Validation("export archiving is not configured")
)

// SavedLocallyMessage is shown when a registration could not be delivered
// but is safe in the local backup ledger
const SavedLocallyMessage = "saved locally, will retry automatically"

// SubmissionError reports a registration that exhausted every delivery
// attempt and now lives only in the backup ledger.
type SubmissionError struct {
	// BackupID is the ledger entry holding the registration
	BackupID string
	Attempts int
	Err      error
}

func (e *SubmissionError) Error() string {
	return SavedLocallyMessage
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
