package datatable

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

var productSchema = Schema{
	DefaultPageSize: 10,
	Sortable:        []string{"id", "name", "sku", "cost", "price", "stock"},
	Filterable:      []string{"name", "sku"},
}

func TestFromQueryParsesPageAndSize(t *testing.T) {
	cases := []struct {
		query      string
		wantPage   int
		wantSize   int
		wantParams int
	}{
		{"", 0, 10, 1},
		{"page=1&size=10", 0, 10, 1},
		{"page=3&size=20", 2, 20, 3},
		{"page=0&size=-5", 0, 10, 1},
		{"page=abc&size=xyz", 0, 10, 1},
		{"page=7", 6, 10, 7},
	}
	for _, tc := range cases {
		q, err := url.ParseQuery(tc.query)
		assert.NoError(t, err)
		st := FromQuery(q, productSchema)
		assert.Equal(t, tc.wantPage, st.PageIndex, tc.query)
		assert.Equal(t, tc.wantSize, st.PageSize, tc.query)
		assert.Equal(t, tc.wantParams, st.Params().Page, tc.query)
		assert.Equal(t, st.PageIndex, st.Params().Page-1, tc.query)
	}
}

func TestFromQueryKeepsOnlyKnownSortAndFilters(t *testing.T) {
	q, _ := url.ParseQuery("page=2&sort=category&order=desc&filter_name=kopi&filter_supplier=x")
	st := FromQuery(q, productSchema)
	assert.Nil(t, st.Sort)
	assert.Equal(t, "kopi", st.Filter("name"))
	assert.Equal(t, "", st.Filter("supplier"))
	assert.Equal(t, 1, st.PageIndex)

	q, _ = url.ParseQuery("sort=price&order=DESC")
	st = FromQuery(q, productSchema)
	assert.Equal(t, "desc", st.SortDirection("price"))
}

func TestQueryRoundTripsRemoteStateOnly(t *testing.T) {
	st := New(productSchema)
	st.SetPageSize(20)
	st.SetPageIndex(4)
	st.SetSort("stock", true)
	st.ToggleRow("7")
	st.SetColumnVisible("sku", false)

	q := st.Query()
	assert.Equal(t, "5", q.Get("page"))
	assert.Equal(t, "20", q.Get("size"))
	assert.Equal(t, "stock", q.Get("sort"))
	assert.Equal(t, "desc", q.Get("order"))
	for key := range q {
		assert.NotContains(t, []string{"select", "selection", "visibility", "hidden"}, key)
	}

	back := FromQuery(q, productSchema)
	assert.True(t, back.Params().Equal(st.Params()))
	assert.Nil(t, back.Selection)
	assert.True(t, back.IsVisible("sku"))
}

func TestQueryReflectsLatestPaginationAfterAnySequence(t *testing.T) {
	st := New(productSchema)
	steps := []func(*State){
		func(s *State) { s.ToggleSort("name") },
		func(s *State) { s.SetPageIndex(3) },
		func(s *State) { s.SetFilter("name", "teh") },
		func(s *State) { s.SetPageSize(30) },
		func(s *State) { s.NextPage(10) },
		func(s *State) { s.ToggleSort("name") },
		func(s *State) { s.SetPageSize(50) },
	}
	for _, step := range steps {
		step(&st)
		q := st.Query()
		assert.Equal(t, st.PageIndex+1, atoi(q.Get("page")))
		assert.Equal(t, st.PageSize, atoi(q.Get("size")))
	}
	assert.Equal(t, 50, st.PageSize)
}

func TestToggleSortCycles(t *testing.T) {
	st := New(productSchema)
	st.ToggleSort("name")
	assert.Equal(t, "asc", st.SortDirection("name"))
	st.ToggleSort("name")
	assert.Equal(t, "desc", st.SortDirection("name"))
	st.ToggleSort("name")
	assert.Nil(t, st.Sort)

	st.ToggleSort("name")
	st.ToggleSort("price")
	assert.Equal(t, "", st.SortDirection("name"))
	assert.Equal(t, "asc", st.SortDirection("price"))

	next := st.NextSort("price")
	assert.Equal(t, "desc", next.SortDirection("price"))
	assert.Equal(t, "asc", st.SortDirection("price"))
}

func TestSetFilterResetsPageAndRemovesEmpty(t *testing.T) {
	st := New(productSchema)
	st.SetPageIndex(5)
	st.SetFilter("name", "  kopi ")
	assert.Equal(t, 0, st.PageIndex)
	assert.Equal(t, "kopi", st.Filter("name"))

	st.SetFilter("name", "")
	assert.Empty(t, st.Filters)
	assert.Nil(t, st.Params().Filters)
}

func TestSetPageSizeKeepsTopRow(t *testing.T) {
	st := New(productSchema)
	st.SetPageIndex(4) // rows 40..49
	st.SetPageSize(20)
	assert.Equal(t, 2, st.PageIndex)
	st.SetPageSize(0)
	assert.Equal(t, 20, st.PageSize)
}

func TestPagingBounds(t *testing.T) {
	st := New(productSchema)
	assert.False(t, st.CanPreviousPage())
	st.PreviousPage()
	assert.Equal(t, 0, st.PageIndex)

	st.NextPage(2)
	assert.Equal(t, 1, st.PageIndex)
	st.NextPage(2)
	assert.Equal(t, 1, st.PageIndex)
	assert.False(t, st.CanNextPage(2))

	st.SetPageIndex(-3)
	assert.Equal(t, 0, st.PageIndex)
	assert.Equal(t, 1, PageCount(0))
}

func TestSelectionIsLocal(t *testing.T) {
	st := New(productSchema)
	before := st.Params()
	ids := []string{"1", "2", "3"}

	st.ToggleRow("2")
	assert.True(t, st.IsSelected("2"))
	assert.Equal(t, 1, st.SelectedCount(ids))

	st.ToggleAllRows(ids)
	assert.True(t, st.AllSelected(ids))
	st.ToggleAllRows(ids)
	assert.Equal(t, 0, st.SelectedCount(ids))
	assert.False(t, st.AllSelected(nil))

	st.SetColumnVisible("cost", false)
	assert.False(t, st.IsVisible("cost"))
	st.SetColumnVisible("cost", true)
	assert.True(t, st.IsVisible("cost"))

	assert.True(t, before.Equal(st.Params()))
}

func TestWithRemoteKeepsLocalState(t *testing.T) {
	st := New(productSchema)
	st.ToggleRow("9")
	st.SetColumnVisible("sku", false)

	target := New(productSchema)
	target.SetSort("cost", false)
	target.SetPageIndex(2)

	merged := st.WithRemote(target)
	assert.True(t, merged.IsSelected("9"))
	assert.False(t, merged.IsVisible("sku"))
	assert.Equal(t, 2, merged.PageIndex)
	assert.Equal(t, "asc", merged.SortDirection("cost"))
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
