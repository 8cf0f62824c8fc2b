// Package table pages through rows and summarises a categorical column.
package table

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// PageSizeOptions are the selectable page sizes. PageSizeAll shows every row.
var PageSizeOptions = []int{50, 100, 200, 500, 1000}

const (
	DefaultPageSize = 200
	PageSizeAll     = -1
)

// State is the explicit view state of a paginated table. It is a value: the
// paging functions never keep it.
type State struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// NewState starts on the first page. Sizes outside PageSizeOptions fall back
// to DefaultPageSize.
func NewState(pageSize int) State {
	if !ValidPageSize(pageSize) {
		pageSize = DefaultPageSize
	}
	return State{PageSize: pageSize}
}

// ValidPageSize reports whether size is an option or PageSizeAll.
func ValidPageSize(size int) bool {
	return size == PageSizeAll || slices.Contains(PageSizeOptions, size)
}

// ParsePageSize reads "all" or a number.
func ParsePageSize(s string) (int, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "all" {
		return PageSizeAll, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// ResolvePageSize turns the PageSizeAll sentinel into rowCount.
func ResolvePageSize(size, rowCount int) int {
	if size == PageSizeAll {
		return rowCount
	}
	return size
}

// TotalPages is max(1, ceil(rowCount/pageSize)).
func TotalPages(rowCount, pageSize int) int {
	if pageSize <= 0 || rowCount <= 0 {
		return 1
	}
	return max(1, (rowCount+pageSize-1)/pageSize)
}

// WithPageSize switches page size and returns to the first page.
func (s State) WithPageSize(size int) State {
	return State{PageSize: size}
}

// Clamp pulls Page back into [0, totalPages).
func (s State) Clamp(rowCount int) State {
	total := TotalPages(rowCount, ResolvePageSize(s.PageSize, rowCount))
	s.Page = min(max(s.Page, 0), total-1)
	return s
}

// First moves to page 0.
func (s State) First() State {
	s.Page = 0
	return s
}

// Prev moves back one page, stopping at 0.
func (s State) Prev() State {
	s.Page = max(0, s.Page-1)
	return s
}

// Next moves forward one page, stopping at the last page.
func (s State) Next(rowCount int) State {
	total := TotalPages(rowCount, ResolvePageSize(s.PageSize, rowCount))
	s.Page = min(total-1, s.Page+1)
	return s
}

// Last moves to the final page.
func (s State) Last(rowCount int) State {
	s.Page = TotalPages(rowCount, ResolvePageSize(s.PageSize, rowCount)) - 1
	return s
}

// Window is the visible slice of a paginated table.
type Window[T any] struct {
	Rows       []T `json:"rows"`
	Start      int `json:"start"` // inclusive
	End        int `json:"end"`   // exclusive
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
	RowCount   int `json:"row_count"`
	// Stale is set when Page lies outside [0, TotalPages). The window is then
	// empty and the page index still needs clamping.
	Stale bool `json:"stale,omitempty"`
}

// Slice returns the rows of the current page. Bounds never leave
// [0, len(rows)].
func Slice[T any](rows []T, s State) Window[T] {
	n := len(rows)
	size := ResolvePageSize(s.PageSize, n)
	total := TotalPages(n, size)

	w := Window[T]{
		Page:       s.Page,
		PageSize:   size,
		TotalPages: total,
		RowCount:   n,
		Stale:      s.Page < 0 || s.Page >= total,
	}
	if w.Stale {
		pos := 0
		if s.Page > 0 {
			pos = n
		}
		w.Start, w.End = pos, pos
		w.Rows = rows[pos:pos]
		return w
	}
	w.Start = min(s.Page*size, n)
	w.End = min(w.Start+size, n)
	w.Rows = rows[w.Start:w.End]
	return w
}

// Label describes the window, e.g. "Showing 1 – 200 of 1234 rows".
func (w Window[T]) Label() string {
	first := 0
	if w.End > w.Start {
		first = w.Start + 1
	}
	return fmt.Sprintf("Showing %d – %d of %d rows", first, w.End, w.RowCount)
}

// Controller owns a table's view state and applies page clamping one render
// late: a render that finds the page out of range returns an empty window and
// schedules the clamp for the next render. It is not safe for concurrent use.
type Controller struct {
	state   State
	pending bool
}

// NewController creates a controller on the first page.
func NewController(pageSize int) *Controller {
	return &Controller{state: NewState(pageSize)}
}

// State returns the current view state.
func (c *Controller) State() State { return c.state }

// SetPageSize changes page size and returns to the first page.
func (c *Controller) SetPageSize(size int) {
	if !ValidPageSize(size) {
		size = DefaultPageSize
	}
	c.state = c.state.WithPageSize(size)
	c.pending = false
}

// SetPage jumps to page without validation; Render reconciles it.
func (c *Controller) SetPage(page int) {
	c.state.Page = page
}

// Navigate applies a state transition such as State.Next.
func (c *Controller) Navigate(fn func(State) State) {
	c.state = fn(c.state)
}

// Pending reports whether a clamp is scheduled.
func (c *Controller) Pending() bool { return c.pending }

// Render computes the visible window for rows.
func Render[T any](c *Controller, rows []T) Window[T] {
	if c.pending {
		c.state = c.state.Clamp(len(rows))
		c.pending = false
	}
	w := Slice(rows, c.state)
	if w.Stale {
		c.pending = true
	}
	return w
}
