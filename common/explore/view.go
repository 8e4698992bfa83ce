package explore

import "github.com/lyzr/explorer/common/models"

// Page is one rendered slice of the visible records
type Page struct {
	Records      []models.Record `json:"records"`
	Page         int             `json:"page"`
	PageSize     int             `json:"page_size"`
	TotalPages   int             `json:"total_pages"`
	TotalVisible int             `json:"total_visible"`
	HasPrev      bool            `json:"has_prev"`
	HasNext      bool            `json:"has_next"`
}

// View tracks the search, filter and page state of one table. Changing
// keywords or filters resets the page to 1; page moves are clamped when the
// result is computed.
type View struct {
	keywords KeywordSet
	filters  models.FilterSelection
	page     int
	pageSize int
}

// NewView creates a view on page 1 with no keywords or filters
func NewView(pageSize int) *View {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &View{
		filters:  models.FilterSelection{},
		page:     1,
		pageSize: pageSize,
	}
}

// AddKeyword adds a search keyword
func (v *View) AddKeyword(keyword string) {
	v.keywords = v.keywords.Add(keyword)
	v.page = 1
}

// RemoveKeyword removes a search keyword
func (v *View) RemoveKeyword(keyword string) {
	v.keywords = v.keywords.Remove(keyword)
	v.page = 1
}

// ToggleFilter flips one facet value
func (v *View) ToggleFilter(f models.Facet, value string) {
	v.filters = v.filters.Toggle(f, value)
	v.page = 1
}

// SetFilters replaces the whole filter selection
func (v *View) SetFilters(filters models.FilterSelection) {
	v.filters = filters.Clone()
	v.page = 1
}

// GoTo requests a page; out-of-range values are clamped in Result
func (v *View) GoTo(page int) {
	v.page = page
}

// Next moves one page forward
func (v *View) Next() { v.page++ }

// Prev moves one page back
func (v *View) Prev() { v.page-- }

// Keywords returns the current keyword set
func (v *View) Keywords() KeywordSet { return v.keywords }

// Filters returns a copy of the current filter selection
func (v *View) Filters() models.FilterSelection { return v.filters.Clone() }

// Result runs the pipeline over all and stores the clamped page back
func (v *View) Result(all []models.Record) Page {
	visible := VisibleRecords(all, v.keywords, v.filters)
	return v.paginate(visible)
}

func (v *View) paginate(visible []models.Record) Page {
	total := TotalPages(len(visible), v.pageSize)
	v.page = ClampPage(v.page, total)

	return Page{
		Records:      Paginate(visible, v.page, v.pageSize),
		Page:         v.page,
		PageSize:     v.pageSize,
		TotalPages:   total,
		TotalVisible: len(visible),
		HasPrev:      v.page > 1,
		HasNext:      v.page < total,
	}
}

// PageOf paginates an already filtered slice without touching view state
func PageOf(visible []models.Record, page, pageSize int) Page {
	v := &View{page: page, pageSize: pageSize}
	if v.pageSize <= 0 {
		v.pageSize = DefaultPageSize
	}
	return v.paginate(visible)
}
