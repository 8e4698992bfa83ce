package explore

import "github.com/lyzr/explorer/common/models"

// DefaultPageSize is the number of rows shown per table page
const DefaultPageSize = 50

// TotalPages returns ceil(n/pageSize), never less than 1
func TotalPages(n, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	pages := (n + pageSize - 1) / pageSize
	if pages < 1 {
		return 1
	}
	return pages
}

// ClampPage moves page into [1, totalPages]
func ClampPage(page, totalPages int) int {
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// Paginate returns the 1-indexed page of visible, clamping out-of-range pages
func Paginate(visible []models.Record, page, pageSize int) []models.Record {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	page = ClampPage(page, TotalPages(len(visible), pageSize))

	start := (page - 1) * pageSize
	if start >= len(visible) {
		return []models.Record{}
	}
	end := start + pageSize
	if end > len(visible) {
		end = len(visible)
	}
	return visible[start:end]
}
