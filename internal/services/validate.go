package services

import (
	"net/mail"
	"strings"
	"time"

	"github.com/abrezinsky/voterreg/internal/errors"
	"github.com/abrezinsky/voterreg/internal/models"
)

// Rules bounds what a registration may contain
type Rules struct {
	DOBMinYear int
	DOBMaxYear int
}

// DefaultRules accepts dates of birth from 1920 to 2008
func DefaultRules() Rules {
	return Rules{DOBMinYear: 1920, DOBMaxYear: 2008}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Validate checks a normalized registration. Date of birth is checked
// first; the first failing rule is returned as a Validation error.
func (r Rules) Validate(v *models.Voter) error {
	if v.DateOfBirth == "" {
		return errors.Validation("date of birth is required")
	}
	dob, err := time.Parse(models.DateLayout, v.DateOfBirth)
	if err != nil {
		return errors.Validation("date of birth must be YYYY-MM-DD")
	}
	if dob.Year() < r.DOBMinYear || dob.Year() > r.DOBMaxYear {
		return errors.Validationf("year of birth must be between %d and %d", r.DOBMinYear, r.DOBMaxYear)
	}

	if v.FullName == "" {
		return errors.Validation("full name is required")
	}
	if v.Email == "" {
		return errors.Validation("email is required")
	}
	if addr, err := mail.ParseAddress(v.Email); err != nil || addr.Address != v.Email || !strings.Contains(v.Email, ".") {
		return errors.Validationf("email %q is not valid", v.Email)
	}
	if !v.Gender.Valid() {
		return errors.Validation("gender must be male or female")
	}
	if !models.IsRegion(v.Region) {
		return errors.Validationf("unknown region %q", v.Region)
	}
	if !models.InRegion(v.Region, v.Constituency) {
		return errors.Validationf("constituency %q is not in %s", v.Constituency, v.Region)
	}
	if !v.IDType.Valid() {
		return errors.Validationf("unknown id type %q", v.IDType)
	}
	if !isDigits(v.IDNumber) {
		return errors.Validation("id number must contain digits only")
	}
	if !v.AgreedToTerms {
		return errors.Validation("terms must be accepted")
	}
	return nil
}
