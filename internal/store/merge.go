package store

import (
	"cmp"
	"slices"

	"github.com/kkyouma/myanimelist-scraper/internal/model"
)

// recordKey identifies a record. Catalog ids are only unique within one
// media type, so anime 1 and manga 1 are different records.
type recordKey struct {
	kind model.MediaType
	id   int64
}

func keyOf(r model.Record) recordKey {
	return recordKey{kind: r.Kind, id: r.ID}
}

// Merge returns the union of existing and incoming keyed by (Kind, ID),
// sorted by ID then Kind. An incoming record replaces a stored one with the
// same key; within incoming, later records win.
func Merge(existing, incoming []model.Record) []model.Record {
	byKey := make(map[recordKey]model.Record, len(existing)+len(incoming))
	for _, r := range existing {
		byKey[keyOf(r)] = r
	}
	for _, r := range incoming {
		byKey[keyOf(r)] = r
	}

	out := make([]model.Record, 0, len(byKey))
	for _, r := range byKey {
		out = append(out, r)
	}
	slices.SortFunc(out, compareRecords)
	return out
}

func compareRecords(a, b model.Record) int {
	return cmp.Or(
		cmp.Compare(a.ID, b.ID),
		cmp.Compare(a.Kind, b.Kind),
	)
}
