package explore

import (
	"fmt"
	"testing"

	"github.com/lyzr/explorer/common/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRecords(n int) []models.Record {
	out := make([]models.Record, n)
	for i := range out {
		out[i] = models.Record{ID: fmt.Sprintf("r%03d", i), CodeDisplay: fmt.Sprintf("Item %d", i), Org: "A"}
	}
	return out
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 1, TotalPages(0, 50))
	assert.Equal(t, 1, TotalPages(50, 50))
	assert.Equal(t, 2, TotalPages(51, 50))
	assert.Equal(t, 3, TotalPages(101, 50))
	assert.Equal(t, 1, TotalPages(3, 0), "non-positive page size falls back to the default")
}

func TestPaginate_Bounds(t *testing.T) {
	records := makeRecords(7)

	assert.Equal(t, []string{"r000", "r001", "r002"}, ids(Paginate(records, 1, 3)))
	assert.Equal(t, []string{"r006"}, ids(Paginate(records, 3, 3)))

	// Out-of-range requests are clamped, never an error
	assert.Equal(t, []string{"r006"}, ids(Paginate(records, 99, 3)))
	assert.Equal(t, []string{"r000", "r001", "r002"}, ids(Paginate(records, -4, 3)))

	assert.Empty(t, Paginate(nil, 1, 3))
}

func TestPaginate_ReconstructsInput(t *testing.T) {
	for _, n := range []int{0, 1, 49, 50, 51, 137} {
		for _, size := range []int{1, 7, 50} {
			records := makeRecords(n)
			var rebuilt []models.Record
			for p := 1; p <= TotalPages(n, size); p++ {
				rebuilt = append(rebuilt, Paginate(records, p, size)...)
			}
			require.Equal(t, ids(records), ids(rebuilt), "n=%d size=%d", n, size)
		}
	}
}

func TestView_ResetsPageOnCriteriaChange(t *testing.T) {
	records := makeRecords(120)
	v := NewView(50)

	v.GoTo(3)
	page := v.Result(records)
	assert.Equal(t, 3, page.Page)
	assert.Len(t, page.Records, 20)
	assert.True(t, page.HasPrev)
	assert.False(t, page.HasNext)

	v.AddKeyword("item")
	assert.Equal(t, 1, v.Result(records).Page)

	v.GoTo(2)
	v.ToggleFilter(models.FacetOrg, "A")
	assert.Equal(t, 1, v.Result(records).Page)

	v.GoTo(2)
	v.RemoveKeyword("item")
	assert.Equal(t, 1, v.Result(records).Page)

	v.GoTo(2)
	v.SetFilters(models.FilterSelection{})
	assert.Equal(t, 1, v.Result(records).Page)
}

func TestView_ClampsNavigation(t *testing.T) {
	records := makeRecords(60)
	v := NewView(50)

	v.Prev()
	page := v.Result(records)
	assert.Equal(t, 1, page.Page)

	v.Next()
	v.Next()
	v.Next()
	page = v.Result(records)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 60, page.TotalVisible)

	// Narrowing the result keeps the page valid
	v.AddKeyword("item 5")
	page = v.Result(records)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, []string{"r005", "r050", "r051", "r052", "r053", "r054", "r055", "r056", "r057", "r058", "r059"}, ids(page.Records))
}

func TestPageOf(t *testing.T) {
	page := PageOf(makeRecords(0), 4, 10)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 1, page.TotalPages)
	assert.Empty(t, page.Records)
	assert.False(t, page.HasNext)
}
