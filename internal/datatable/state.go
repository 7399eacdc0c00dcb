// Package datatable models a server-paginated table: view state, its URL
// form, and a controller that keeps fetches in step with state changes.
package datatable

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// PageSizeOptions are the sizes offered by the page-size selector.
var PageSizeOptions = []int{10, 20, 30, 40, 50}

const filterPrefix = "filter_"

// Schema describes which columns the server can sort and filter on.
type Schema struct {
	DefaultPageSize int
	Sortable        []string
	Filterable      []string
}

func (s Schema) pageSize() int {
	if s.DefaultPageSize > 0 {
		return s.DefaultPageSize
	}
	return PageSizeOptions[0]
}

func (s Schema) canSort(column string) bool { return contains(s.Sortable, column) }

func (s Schema) canFilter(column string) bool { return contains(s.Filterable, column) }

// SortState is a single-column sort.
type SortState struct {
	Column string
	Desc   bool
}

// ColumnFilter is one active filter value.
type ColumnFilter struct {
	Column string
	Value  string
}

// State is the full view state. PageIndex is 0-based. Visibility and
// Selection are local only: they never reach the URL or the server.
type State struct {
	PageIndex  int
	PageSize   int
	Sort       *SortState
	Filters    []ColumnFilter
	Visibility map[string]bool
	Selection  map[string]bool
}

// FetchParams is what the server sees. Page is 1-based.
type FetchParams struct {
	Page    int
	Size    int
	Sort    string
	Order   string
	Filters map[string]string
}

// New returns the initial state for schema.
func New(schema Schema) State {
	return State{PageSize: schema.pageSize()}
}

// FromQuery seeds state from URL parameters. page is 1-based; invalid or
// missing values fall back to the first page and the schema's default size.
func FromQuery(q url.Values, schema Schema) State {
	st := New(schema)
	if page, err := strconv.Atoi(q.Get("page")); err == nil && page >= 1 {
		st.PageIndex = page - 1
	}
	if size, err := strconv.Atoi(q.Get("size")); err == nil && size >= 1 {
		st.PageSize = size
	}
	if column := q.Get("sort"); schema.canSort(column) {
		st.Sort = &SortState{Column: column, Desc: strings.EqualFold(q.Get("order"), "desc")}
	}
	for key, values := range q {
		column, ok := strings.CutPrefix(key, filterPrefix)
		if !ok || !schema.canFilter(column) || len(values) == 0 {
			continue
		}
		st.SetFilter(column, values[0])
	}
	// SetFilter resets the page; restore the one from the URL.
	if page, err := strconv.Atoi(q.Get("page")); err == nil && page >= 1 {
		st.PageIndex = page - 1
	}
	return st
}

// Query renders the URL form of the state.
func (s State) Query() url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(s.PageIndex+1))
	q.Set("size", strconv.Itoa(s.PageSize))
	if s.Sort != nil {
		q.Set("sort", s.Sort.Column)
		q.Set("order", s.order())
	}
	for _, f := range s.Filters {
		q.Set(filterPrefix+f.Column, f.Value)
	}
	return q
}

// Params converts the state into server fetch parameters.
func (s State) Params() FetchParams {
	p := FetchParams{Page: s.PageIndex + 1, Size: s.PageSize}
	if s.Sort != nil {
		p.Sort = s.Sort.Column
		p.Order = s.order()
	}
	if len(s.Filters) > 0 {
		p.Filters = make(map[string]string, len(s.Filters))
		for _, f := range s.Filters {
			p.Filters[f.Column] = f.Value
		}
	}
	return p
}

// Equal reports whether two parameter sets would produce the same request.
func (p FetchParams) Equal(o FetchParams) bool {
	if p.Page != o.Page || p.Size != o.Size || p.Sort != o.Sort || p.Order != o.Order || len(p.Filters) != len(o.Filters) {
		return false
	}
	for k, v := range p.Filters {
		if ov, ok := o.Filters[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

func (s State) order() string {
	if s.Sort != nil && s.Sort.Desc {
		return "desc"
	}
	return "asc"
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := s
	if s.Sort != nil {
		sortCopy := *s.Sort
		out.Sort = &sortCopy
	}
	out.Filters = append([]ColumnFilter(nil), s.Filters...)
	out.Visibility = cloneSet(s.Visibility)
	out.Selection = cloneSet(s.Selection)
	return out
}

// WithRemote copies the server-bound parts of other into s, keeping the
// local visibility and selection of s.
func (s State) WithRemote(other State) State {
	out := s.Clone()
	out.PageIndex = other.PageIndex
	out.PageSize = other.PageSize
	out.Sort = nil
	if other.Sort != nil {
		sortCopy := *other.Sort
		out.Sort = &sortCopy
	}
	out.Filters = append([]ColumnFilter(nil), other.Filters...)
	return out
}

// SetPageIndex moves to a 0-based page. Negative values clamp to 0.
func (s *State) SetPageIndex(i int) {
	if i < 0 {
		i = 0
	}
	s.PageIndex = i
}

// NextPage advances when a following page exists.
func (s *State) NextPage(pageCount int) {
	if s.CanNextPage(pageCount) {
		s.PageIndex++
	}
}

// PreviousPage steps back when possible.
func (s *State) PreviousPage() {
	if s.CanPreviousPage() {
		s.PageIndex--
	}
}

// CanPreviousPage reports whether a previous page exists.
func (s State) CanPreviousPage() bool { return s.PageIndex > 0 }

// CanNextPage reports whether a following page exists.
func (s State) CanNextPage(pageCount int) bool { return s.PageIndex+1 < pageCount }

// SetPageSize changes the size and keeps the first visible row on screen.
func (s *State) SetPageSize(size int) {
	if size < 1 {
		return
	}
	top := s.PageIndex * s.PageSize
	s.PageSize = size
	s.PageIndex = top / size
}

// SetSort sets or replaces the sort column.
func (s *State) SetSort(column string, desc bool) {
	s.Sort = &SortState{Column: column, Desc: desc}
}

// ClearSort removes sorting.
func (s *State) ClearSort() {
	s.Sort = nil
}

// ToggleSort cycles a column through ascending, descending and unsorted.
// Switching to another column starts at ascending.
func (s *State) ToggleSort(column string) {
	switch {
	case s.Sort == nil || s.Sort.Column != column:
		s.SetSort(column, false)
	case !s.Sort.Desc:
		s.Sort.Desc = true
	default:
		s.ClearSort()
	}
}

// NextSort returns the state ToggleSort would produce, leaving s untouched.
func (s State) NextSort(column string) State {
	next := s.Clone()
	next.ToggleSort(column)
	return next
}

// SortDirection reports "asc", "desc" or "" for column.
func (s State) SortDirection(column string) string {
	if s.Sort == nil || s.Sort.Column != column {
		return ""
	}
	return s.order()
}

// SetFilter sets a column filter; an empty value removes it. Filtering
// returns to the first page.
func (s *State) SetFilter(column, value string) {
	value = strings.TrimSpace(value)
	out := s.Filters[:0:0]
	for _, f := range s.Filters {
		if f.Column != column {
			out = append(out, f)
		}
	}
	if value != "" {
		out = append(out, ColumnFilter{Column: column, Value: value})
		sort.Slice(out, func(i, j int) bool { return out[i].Column < out[j].Column })
	}
	s.Filters = out
	s.PageIndex = 0
}

// Filter returns the active value for column.
func (s State) Filter(column string) string {
	for _, f := range s.Filters {
		if f.Column == column {
			return f.Value
		}
	}
	return ""
}

// ToggleRow flips the selection of one row.
func (s *State) ToggleRow(id string) {
	if s.Selection == nil {
		s.Selection = make(map[string]bool)
	}
	if s.Selection[id] {
		delete(s.Selection, id)
		return
	}
	s.Selection[id] = true
}

// ToggleAllRows selects every row in ids, or clears them when all already are.
func (s *State) ToggleAllRows(ids []string) {
	if s.AllSelected(ids) {
		for _, id := range ids {
			delete(s.Selection, id)
		}
		return
	}
	if s.Selection == nil {
		s.Selection = make(map[string]bool)
	}
	for _, id := range ids {
		s.Selection[id] = true
	}
}

// IsSelected reports whether row id is selected.
func (s State) IsSelected(id string) bool { return s.Selection[id] }

// AllSelected reports whether every id is selected. An empty page is never
// fully selected.
func (s State) AllSelected(ids []string) bool {
	if len(ids) == 0 {
		return false
	}
	for _, id := range ids {
		if !s.Selection[id] {
			return false
		}
	}
	return true
}

// SelectedCount counts selected rows among ids.
func (s State) SelectedCount(ids []string) int {
	n := 0
	for _, id := range ids {
		if s.Selection[id] {
			n++
		}
	}
	return n
}

// SetColumnVisible shows or hides a column.
func (s *State) SetColumnVisible(column string, visible bool) {
	if s.Visibility == nil {
		s.Visibility = make(map[string]bool)
	}
	if visible {
		delete(s.Visibility, column)
		return
	}
	s.Visibility[column] = false
}

// IsVisible reports whether column is shown. Columns are visible by default.
func (s State) IsVisible(column string) bool {
	v, ok := s.Visibility[column]
	return !ok || v
}

// PageCount never reports fewer than one page.
func PageCount(totalPages int) int {
	if totalPages < 1 {
		return 1
	}
	return totalPages
}

func cloneSet(in map[string]bool) map[string]bool {
	if in == nil {
		return nil
	}
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
