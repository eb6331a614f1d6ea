// Package paging maps a 1-based item range onto fixed-size catalog pages.
package paging

import (
	"math"

	"github.com/kkyouma/myanimelist-scraper/internal/model"
)

// Unbounded marks a slice end with no upper limit. It is larger than any
// page, so no computed end can be mistaken for it.
const Unbounded = math.MaxInt

// PageSlice selects part of one listing page. Start is a 0-based offset into
// the page's entries and End is exclusive; End <= 0 means nothing is taken
// from this page and End >= the page size means through the end of the page.
type PageSlice struct {
	Page  int `json:"page"`
	Start int `json:"start"`
	End   int `json:"end"`
}

// Empty reports whether the slice selects no entries.
func (s PageSlice) Empty() bool {
	return s.End <= s.Start
}

// Len returns the number of entries selected, assuming a full page.
func (s PageSlice) Len(perPage int) int {
	end := s.End
	if end > perPage {
		end = perPage
	}
	if end <= s.Start {
		return 0
	}
	return end - s.Start
}

// Bounds returns the first and last page that hold items of r.
func Bounds(r model.ItemRange, perPage int) (startPage, endPage int) {
	return pageOf(r.Start, perPage), pageOf(r.End, perPage)
}

// Slice returns the part of page that falls inside r.
func Slice(page int, r model.ItemRange, perPage int) PageSlice {
	first := (page-1)*perPage + 1
	return PageSlice{
		Page:  page,
		Start: max(0, r.Start-first),
		End:   min(perPage, r.End-first+1),
	}
}

// Plan returns one slice per page touched by r, in page order.
func Plan(r model.ItemRange, perPage int) []PageSlice {
	startPage, endPage := Bounds(r, perPage)
	var slices []PageSlice
	for page := startPage; page <= endPage; page++ {
		slices = append(slices, Slice(page, r, perPage))
	}
	return slices
}

// Offset is the number of catalog items that precede page.
func Offset(page, perPage int) int {
	return (page - 1) * perPage
}

// Rank returns the absolute catalog position of the i-th entry taken from s.
func Rank(s PageSlice, i, perPage int) int {
	return Offset(s.Page, perPage) + s.Start + i + 1
}

func pageOf(item, perPage int) int {
	return (item-1)/perPage + 1
}
