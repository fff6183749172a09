package query

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID   string
	Name string
	Year int
}

func sampleRows() []row {
	return []row{
		{ID: "S001", Name: "dela cruz", Year: 7},
		{ID: "S002", Name: "Santos", Year: 8},
		{ID: "S003", Name: "AQUINO", Year: 7},
		{ID: "S004", Name: "santos", Year: 9},
	}
}

func TestFilterConjunction(t *testing.T) {
	got := Filter(sampleRows(),
		func(r row) bool { return MatchesText("SANTOS", r.Name, r.ID) },
		func(r row) bool { return r.Year == 8 },
		nil,
	)
	require.Len(t, got, 1)
	assert.Equal(t, "S002", got[0].ID)
}

func TestMatchesTextEmptyQuery(t *testing.T) {
	assert.True(t, MatchesText("  ", "anything"))
	assert.True(t, MatchesText("cruz s0", "dela cruz", "s001"))
	assert.False(t, MatchesText("reyes", "dela cruz"))
}

func TestSortIsCaseInsensitiveAndStable(t *testing.T) {
	got := Sort(sampleRows(), func(r row) string { return r.Name }, Asc)
	ids := []string{got[0].ID, got[1].ID, got[2].ID, got[3].ID}
	assert.Equal(t, []string{"S003", "S001", "S002", "S004"}, ids)

	desc := Sort(sampleRows(), func(r row) string { return r.Name }, Desc)
	assert.Equal(t, "S002", desc[0].ID)
	assert.Equal(t, "S004", desc[1].ID)
}

func TestSortDoesNotMutateInput(t *testing.T) {
	in := sampleRows()
	_ = Sort(in, func(r row) string { return r.Name }, Desc)
	assert.Equal(t, "S001", in[0].ID)
}

func TestSortStateToggle(t *testing.T) {
	s := SortState{Key: "lastName", Direction: Asc}
	s = s.Toggle("lastName")
	assert.Equal(t, Desc, s.Direction)
	s = s.Toggle("lastName")
	assert.Equal(t, Asc, s.Direction)
	s = s.Toggle("lrn")
	assert.Equal(t, SortState{Key: "lrn", Direction: Asc}, s)
}

func TestParseDirection(t *testing.T) {
	assert.Equal(t, Desc, ParseDirection("DESC"))
	assert.Equal(t, Asc, ParseDirection(""))
	assert.Equal(t, Asc, ParseDirection("sideways"))
}

func TestPaginatePartitionsList(t *testing.T) {
	items := make([]int, 23)
	for i := range items {
		items[i] = i
	}

	for _, size := range []int{1, 5, 10, 23, 50} {
		t.Run(strconv.Itoa(size), func(t *testing.T) {
			first := Paginate(items, 1, size)
			var seen []int
			for p := 1; p <= first.TotalPages; p++ {
				seen = append(seen, Paginate(items, p, size).Items...)
			}
			assert.Equal(t, items, seen)
		})
	}
}

func TestPaginateBounds(t *testing.T) {
	items := []string{"a", "b", "c"}

	p := Paginate(items, 0, 0)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPageSize, p.PageSize)
	assert.Equal(t, 1, p.TotalPages)
	assert.Equal(t, items, p.Items)

	past := Paginate(items, 5, 2)
	assert.Empty(t, past.Items)
	assert.Equal(t, 3, past.TotalCount)
	assert.Equal(t, 2, past.TotalPages)

	empty := Paginate([]string{}, 1, 10)
	assert.Empty(t, empty.Items)
	assert.Equal(t, 0, empty.TotalPages)

	far := Paginate(items, 1_000_000_000_000_000_000, 10)
	assert.Empty(t, far.Items)
	assert.Equal(t, 1_000_000_000_000_000_000, far.Page)
	assert.Equal(t, 1, far.TotalPages)

	wide := Paginate(items, 2, math.MaxInt)
	assert.Empty(t, wide.Items)
	assert.Equal(t, 1, wide.TotalPages)
	assert.Equal(t, items, Paginate(items, 1, math.MaxInt).Items)
}
