package repository

import (
	stderrors "errors"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/abrezinsky/voterreg/internal/errors"
)

// ErrNotFound is returned when a requested record is not found in the repository.
// This abstracts away the underlying storage implementation from the API layer.
var ErrNotFound = errors.NotFound("record not found")

// ErrLastAdmin is returned when a delete would leave the admins table empty
var ErrLastAdmin = errors.Conflict("cannot delete the last admin")

// ErrInvalidCredentials is returned by AdminLogin for any email/password mismatch
var ErrInvalidCredentials = errors.Unauthorized("invalid email or password")

// pqUniqueViolation is the SQLSTATE for unique_violation
const pqUniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique or primary key
// constraint failure from either supported driver.
func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if stderrors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pe *pq.Error
	if stderrors.As(err, &pe) {
		return pe.Code == pqUniqueViolation
	}
	return false
}
