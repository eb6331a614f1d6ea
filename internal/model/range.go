package model

import "fmt"

// ItemRange is an inclusive, 1-based range of catalog positions.
type ItemRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// InvalidRangeError is returned when a range violates Start >= 1 and End >= Start.
type InvalidRangeError struct {
	Start int
	End   int
}

func (e *InvalidRangeError) Error() string {
	if e.Start < 1 {
		return fmt.Sprintf("invalid range: start %d must be >= 1", e.Start)
	}
	return fmt.Sprintf("invalid range: end %d is before start %d", e.End, e.Start)
}

// Validate reports whether the range can be scraped.
func (r ItemRange) Validate() error {
	if r.Start < 1 || r.End < r.Start {
		return &InvalidRangeError{Start: r.Start, End: r.End}
	}
	return nil
}

// Total returns the number of items requested.
func (r ItemRange) Total() int {
	return r.End - r.Start + 1
}
