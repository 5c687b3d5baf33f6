// Package filter narrows, orders and pages the voter table.
package filter

import (
	"sort"
	"strings"

	"github.com/abrezinsky/voterreg/internal/models"
)

// Field names, in the order predicates are applied
const (
	FieldName         = "name"
	FieldOrganization = "organization"
	FieldDateOfBirth  = "date_of_birth"
	FieldGender       = "gender"
	FieldRegion       = "region"
	FieldConstituency = "constituency"
	FieldIDType       = "id_type"
	FieldIDNumber     = "id_number"
)

// Fields lists every filterable field in application order
var Fields = []string{
	FieldName,
	FieldOrganization,
	FieldDateOfBirth,
	FieldGender,
	FieldRegion,
	FieldConstituency,
	FieldIDType,
	FieldIDNumber,
}

// State holds one optional constraint per field. Empty means no constraint.
type State struct {
	Name         string `json:"name,omitempty"`
	Organization string `json:"organization,omitempty"`
	DateOfBirth  string `json:"date_of_birth,omitempty"`
	Gender       string `json:"gender,omitempty"`
	Region       string `json:"region,omitempty"`
	Constituency string `json:"constituency,omitempty"`
	IDType       string `json:"id_type,omitempty"`
	IDNumber     string `json:"id_number,omitempty"`
}

// Get returns the constraint for field
func (s State) Get(field string) string {
	switch field {
	case FieldName:
		return s.Name
	case FieldOrganization:
		return s.Organization
	case FieldDateOfBirth:
		return s.DateOfBirth
	case FieldGender:
		return s.Gender
	case FieldRegion:
		return s.Region
	case FieldConstituency:
		return s.Constituency
	case FieldIDType:
		return s.IDType
	case FieldIDNumber:
		return s.IDNumber
	}
	return ""
}

// Set updates the constraint for field. It reports false for unknown fields.
func (s *State) Set(field, value string) bool {
	switch field {
	case FieldName:
		s.Name = value
	case FieldOrganization:
		s.Organization = value
	case FieldDateOfBirth:
		s.DateOfBirth = value
	case FieldGender:
		s.Gender = value
	case FieldRegion:
		s.Region = value
	case FieldConstituency:
		s.Constituency = value
	case FieldIDType:
		s.IDType = value
	case FieldIDNumber:
		s.IDNumber = value
	default:
		return false
	}
	return true
}

// IsEmpty reports whether no field is constrained
func (s State) IsEmpty() bool {
	for _, f := range Fields {
		if strings.TrimSpace(s.Get(f)) != "" {
			return false
		}
	}
	return true
}

// Tracer observes each predicate as it is evaluated
type Tracer func(field string, remaining int)

func value(v models.Voter, field string) string {
	switch field {
	case FieldName:
		return v.FullName
	case FieldOrganization:
		return v.Organization
	case FieldDateOfBirth:
		return v.DateOfBirth
	case FieldGender:
		return string(v.Gender)
	case FieldRegion:
		return v.Region
	case FieldConstituency:
		return v.Constituency
	case FieldIDType:
		return string(v.IDType)
	case FieldIDNumber:
		return v.IDNumber
	}
	return ""
}

func matches(v models.Voter, field, want string) bool {
	got := value(v, field)
	if field == FieldGender {
		return strings.EqualFold(got, want)
	}
	return strings.Contains(strings.ToLower(got), strings.ToLower(want))
}

// Apply returns the voters matching every non-empty constraint, in input
// order. The input slice is not modified.
func Apply(voters []models.Voter, s State) []models.Voter {
	return ApplyTraced(voters, s, nil)
}

// ApplyTraced is Apply with a hook called after each predicate. Evaluation
// stops as soon as the intermediate result is empty.
func ApplyTraced(voters []models.Voter, s State, trace Tracer) []models.Voter {
	result := make([]models.Voter, len(voters))
	copy(result, voters)

	for _, field := range Fields {
		if len(result) == 0 {
			break
		}
		want := strings.TrimSpace(s.Get(field))
		if want == "" {
			continue
		}

		kept := result[:0]
		for _, v := range result {
			if matches(v, field, want) {
				kept = append(kept, v)
			}
		}
		result = kept

		if trace != nil {
			trace(field, len(result))
		}
	}
	return result
}

// SortFCFS orders voters by created_at ascending, first come first served.
// Ties keep their input order.
func SortFCFS(voters []models.Voter) {
	sort.SliceStable(voters, func(i, j int) bool {
		return voters[i].CreatedAt.Before(voters[j].CreatedAt)
	})
}

// Page is one slice of a filtered result
type Page struct {
	Items      []models.Voter `json:"items"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	Total      int            `json:"total"`
	TotalPages int            `json:"total_pages"`
}

// DefaultPageSize is used when a caller asks for a non-positive size
const DefaultPageSize = 10

// MaxPageSize bounds page_size on the admin API
const MaxPageSize = 1000

// Paginate returns the 1-based page of items. Pages past the end are empty.
func Paginate(items []models.Voter, page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}

	total := len(items)
	pages := total / size
	if total%size != 0 {
		pages++
	}
	p := Page{
		Items:      []models.Voter{},
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: pages,
	}

	// page-1 < pages keeps (page-1)*size below total, so nothing overflows
	if page-1 >= pages {
		return p
	}
	start := (page - 1) * size
	end := total
	if total-start > size {
		end = start + size
	}
	p.Items = items[start:end]
	return p
}
