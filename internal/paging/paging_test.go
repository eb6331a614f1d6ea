package paging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkyouma/myanimelist-scraper/internal/model"
)

func TestBounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		r              model.ItemRange
		wantStart      int
		wantEnd        int
		wantFirstSlice PageSlice
	}{
		{"first page exactly", model.ItemRange{Start: 1, End: 50}, 1, 1, PageSlice{Page: 1, Start: 0, End: 50}},
		{"inside second page", model.ItemRange{Start: 51, End: 60}, 2, 2, PageSlice{Page: 2, Start: 0, End: 10}},
		{"straddles pages", model.ItemRange{Start: 45, End: 55}, 1, 2, PageSlice{Page: 1, Start: 44, End: 50}},
		{"single item", model.ItemRange{Start: 7, End: 7}, 1, 1, PageSlice{Page: 1, Start: 6, End: 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			start, end := Bounds(tt.r, 50)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
			assert.Equal(t, tt.wantFirstSlice, Slice(start, tt.r, 50))
		})
	}
}

func TestPlan_StraddlingRange(t *testing.T) {
	t.Parallel()

	plan := Plan(model.ItemRange{Start: 45, End: 55}, 50)
	require.Len(t, plan, 2)
	assert.Equal(t, PageSlice{Page: 1, Start: 44, End: 50}, plan[0])
	assert.Equal(t, PageSlice{Page: 2, Start: 0, End: 5}, plan[1])
}

func TestPlan_CoversEveryIndexExactlyOnce(t *testing.T) {
	t.Parallel()

	for _, perPage := range []int{1, 3, 7, 50} {
		for start := 1; start <= 40; start++ {
			for end := start; end <= start+120; end += 7 {
				r := model.ItemRange{Start: start, End: end}
				startPage, endPage := Bounds(r, perPage)
				require.LessOrEqual(t, startPage, endPage)

				seen := make(map[int]int)
				for _, s := range Plan(r, perPage) {
					for i := s.Start; i < min(s.End, perPage); i++ {
						seen[Offset(s.Page, perPage)+i]++
					}
				}

				require.Len(t, seen, r.Total(), "perPage=%d range=%v", perPage, r)
				for idx := r.Start - 1; idx <= r.End-1; idx++ {
					require.Equal(t, 1, seen[idx], "index %d perPage=%d range=%v", idx, perPage, r)
				}
			}
		}
	}
}

func TestRank(t *testing.T) {
	t.Parallel()

	r := model.ItemRange{Start: 45, End: 55}
	plan := Plan(r, 50)
	assert.Equal(t, 45, Rank(plan[0], 0, 50))
	assert.Equal(t, 50, Rank(plan[0], 5, 50))
	assert.Equal(t, 51, Rank(plan[1], 0, 50))

	inside := Slice(1, model.ItemRange{Start: 2, End: 4}, 50)
	assert.Equal(t, []int{2, 3, 4}, []int{Rank(inside, 0, 50), Rank(inside, 1, 50), Rank(inside, 2, 50)})
}

func TestPageSlice_LenAndEmpty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 6, PageSlice{Page: 1, Start: 44, End: 50}.Len(50))
	assert.Equal(t, 50, PageSlice{Page: 1, Start: 0, End: Unbounded}.Len(50))
	assert.True(t, PageSlice{Page: 1, Start: 3, End: 0}.Empty())
	assert.False(t, PageSlice{Page: 1, Start: 0, End: Unbounded}.Empty())
	assert.True(t, PageSlice{Page: 1, Start: 0, End: -1}.Empty())
	assert.Equal(t, 0, PageSlice{Page: 1, Start: 0, End: -1}.Len(50))
}

func TestOffset(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, Offset(1, 50))
	assert.Equal(t, 100, Offset(3, 50))
}
