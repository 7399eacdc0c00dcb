package products

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/inventra/inventra/internal/catalog"
	"github.com/inventra/inventra/internal/datatable"
	"github.com/inventra/inventra/internal/shared"
)

// Table operations that only touch local state.
const (
	opSelect    = "select"
	opSelectAll = "select_all"
	opHide      = "hide"
	opShow      = "show"
	opFilter    = "filter"
)

const tablePath = "/products/table"

type column struct {
	Key      string
	Label    string
	Hideable bool
}

var columns = []column{
	{Key: "id", Label: "ID", Hideable: true},
	{Key: "name", Label: "Nama"},
	{Key: "sku", Label: "SKU", Hideable: true},
	{Key: "cost", Label: "Harga Beli", Hideable: true},
	{Key: "price", Label: "Harga Jual", Hideable: true},
	{Key: "stock", Label: "Stok", Hideable: true},
	{Key: "category", Label: "Kategori", Hideable: true},
	{Key: "supplier", Label: "Pemasok", Hideable: true},
}

func hideable(key string) bool {
	for _, c := range columns {
		if c.Key == key {
			return c.Hideable
		}
	}
	return false
}

type columnView struct {
	Key          string
	Label        string
	Visible      bool
	Hideable     bool
	Sortable     bool
	Direction    string
	SortHref     string
	SortAction   template.JS
	ToggleAction template.JS
}

type rowView struct {
	Product      catalog.Product
	Key          string
	Selected     bool
	SelectAction template.JS
	EditHref     string
	DeleteHref   string
}

type pagerLink struct {
	Href    string
	Action  template.JS
	Enabled bool
}

type sizeOption struct {
	Size     int
	Selected bool
	Href     string
	Action   template.JS
}

type tableView struct {
	Columns         []columnView
	Visible         map[string]bool
	VisibleCount    int
	Rows            []rowView
	Query           string
	PageNumber      int
	PageCount       int
	Total           int
	First           pagerLink
	Prev            pagerLink
	Next            pagerLink
	Last            pagerLink
	Sizes           []sizeOption
	SelectedCount   int
	AllSelected     bool
	SelectAllAction template.JS
	FilterName      string
	FilterAction    template.JS
	Error           string
}

type tableSignals struct {
	FilterName string `json:"filtername"`
}

// table applies one interaction to the session's table and streams the
// re-rendered table back over SSE. The request query carries the state the
// browser is showing; op names an additional local change.
func (h *Handler) table(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target := datatable.FromQuery(q, h.schema)
	op := q.Get("op")

	var signals tableSignals
	if op == opFilter {
		if err := datastar.ReadSignals(r, &signals); err != nil {
			h.logger.Warn("read table signals", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
	}

	ctrl := h.controller(r)
	visibleIDs := rowKeys(ctrl.Snapshot().Result.Rows)
	snap, err := ctrl.Dispatch(r.Context(), h.fetcher(r), func(s *datatable.State) {
		*s = s.WithRemote(target)
		switch op {
		case opSelect:
			s.ToggleRow(q.Get("row"))
		case opSelectAll:
			s.ToggleAllRows(visibleIDs)
		case opHide:
			if hideable(q.Get("col")) {
				s.SetColumnVisible(q.Get("col"), false)
			}
		case opShow:
			s.SetColumnVisible(q.Get("col"), true)
		case opFilter:
			s.SetFilter("name", signals.FilterName)
		}
	})
	if errors.Is(err, datatable.ErrStale) {
		return
	}

	if err != nil && h.expired(w, r, err) {
		return
	}

	sse := datastar.NewSSE(w, r)
	if err != nil {
		h.logger.Error("refresh product table", slog.Any("error", err))
		h.patchToast(sse, &shared.FlashMessage{Kind: shared.FlashError, Message: msgLoadFailed})
		return
	}

	html, err := h.templates.String("partials/product_table", buildTableView(snap, ""))
	if err != nil {
		h.logger.Error("render product table", slog.Any("error", err))
		return
	}
	if err := sse.PatchElements(html); err != nil {
		h.logger.Warn("patch product table", slog.Any("error", err))
		return
	}
	_ = sse.ExecuteScript(replaceURLScript(stateHref(snap.State)))
}

func (h *Handler) patchToast(sse *datastar.ServerSentEventGenerator, flash *shared.FlashMessage) {
	html, err := h.templates.String("partials/flash", flash)
	if err != nil {
		h.logger.Error("render toast", slog.Any("error", err))
		return
	}
	_ = sse.PatchElements(html)
}

func buildTableView(snap datatable.Snapshot[catalog.Product], loadErr string) tableView {
	st := snap.State
	pageCount := datatable.PageCount(snap.Result.TotalPages)
	keys := rowKeys(snap.Result.Rows)

	v := tableView{
		Visible:         make(map[string]bool, len(columns)),
		Query:           st.Query().Encode(),
		PageNumber:      st.PageIndex + 1,
		PageCount:       pageCount,
		Total:           snap.Result.Total,
		SelectedCount:   st.SelectedCount(keys),
		AllSelected:     st.AllSelected(keys),
		SelectAllAction: tableAction(st, opSelectAll, nil),
		FilterName:      st.Filter("name"),
		FilterAction:    tableAction(st, opFilter, nil),
		Error:           loadErr,
	}

	for _, c := range columns {
		cv := columnView{Key: c.Key, Label: c.Label, Visible: st.IsVisible(c.Key), Hideable: c.Hideable}
		if catalog.IsSortable(c.Key) {
			next := st.NextSort(c.Key)
			cv.Sortable = true
			cv.Direction = st.SortDirection(c.Key)
			cv.SortHref = stateHref(next)
			cv.SortAction = tableAction(next, "", nil)
		}
		op := opHide
		if !cv.Visible {
			op = opShow
		}
		cv.ToggleAction = tableAction(st, op, url.Values{"col": {c.Key}})
		v.Visible[c.Key] = cv.Visible
		if cv.Visible {
			v.VisibleCount++
		}
		v.Columns = append(v.Columns, cv)
	}

	for i, p := range snap.Result.Rows {
		v.Rows = append(v.Rows, rowView{
			Product:      p,
			Key:          keys[i],
			Selected:     st.IsSelected(keys[i]),
			SelectAction: tableAction(st, opSelect, url.Values{"row": {keys[i]}}),
			EditHref:     "/products/" + keys[i] + "/edit?" + v.Query,
			DeleteHref:   "/products/" + keys[i] + "/delete?" + v.Query,
		})
	}

	v.First = pageLink(st, 0, st.CanPreviousPage())
	v.Prev = pageLink(st, st.PageIndex-1, st.CanPreviousPage())
	v.Next = pageLink(st, st.PageIndex+1, st.CanNextPage(pageCount))
	v.Last = pageLink(st, pageCount-1, st.CanNextPage(pageCount))

	for _, size := range datatable.PageSizeOptions {
		next := st.Clone()
		next.SetPageSize(size)
		v.Sizes = append(v.Sizes, sizeOption{
			Size:     size,
			Selected: size == st.PageSize,
			Href:     stateHref(next),
			Action:   tableAction(next, "", nil),
		})
	}
	return v
}

func pageLink(st datatable.State, index int, enabled bool) pagerLink {
	next := st.Clone()
	next.SetPageIndex(index)
	return pagerLink{Href: stateHref(next), Action: tableAction(next, "", nil), Enabled: enabled}
}

func stateHref(st datatable.State) string {
	return "/products?" + st.Query().Encode()
}

// tableAction is the datastar expression requesting st from the table
// endpoint. Query encoding leaves no quotes in the URL.
func tableAction(st datatable.State, op string, extra url.Values) template.JS {
	q := st.Query()
	if op != "" {
		q.Set("op", op)
	}
	for k, vs := range extra {
		q[k] = vs
	}
	return template.JS(fmt.Sprintf("@get('%s?%s')", tablePath, q.Encode()))
}

func replaceURLScript(href string) string {
	return fmt.Sprintf("window.history.replaceState(null, '', %q)", href)
}

func rowKeys(rows []catalog.Product) []string {
	keys := make([]string, len(rows))
	for i, p := range rows {
		keys[i] = strconv.FormatInt(p.ID, 10)
	}
	return keys
}
