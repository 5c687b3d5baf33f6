package filter

import (
	"sync"

	"github.com/abrezinsky/voterreg/internal/models"
)

// TableView is the dashboard's table state: the active filter and page.
// Changing any filter field sends the view back to page 1.
type TableView struct {
	mu       sync.Mutex
	state    State
	page     int
	pageSize int
}

// NewTableView creates a view on page 1
func NewTableView(pageSize int) *TableView {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &TableView{page: 1, pageSize: pageSize}
}

// SetFilter updates one field and resets the page if the value changed
func (v *TableView) SetFilter(field, value string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state.Get(field) == value {
		return true
	}
	if !v.state.Set(field, value) {
		return false
	}
	v.page = 1
	return true
}

// SetState replaces every field and resets the page if anything changed
func (v *TableView) SetState(s State) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if s != v.state {
		v.state = s
		v.page = 1
	}
}

// Reset clears all filters
func (v *TableView) Reset() {
	v.SetState(State{})
}

// SetPage moves to page, clamped to at least 1
func (v *TableView) SetPage(page int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if page < 1 {
		page = 1
	}
	v.page = page
}

// State returns the active filter
func (v *TableView) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Page returns the current page number
func (v *TableView) Page() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page
}

// Render filters, sorts first come first served, and pages voters
func (v *TableView) Render(voters []models.Voter) Page {
	v.mu.Lock()
	state, page, size := v.state, v.page, v.pageSize
	v.mu.Unlock()

	return Query(voters, state, page, size)
}

// Query runs the full table pipeline without view state
func Query(voters []models.Voter, s State, page, size int) Page {
	filtered := Apply(voters, s)
	SortFCFS(filtered)
	return Paginate(filtered, page, size)
}
