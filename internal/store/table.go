package store

import (
	"slices"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/kkyouma/myanimelist-scraper/internal/model"
)

// fixedColumns lead every tabular export. Stat fields follow in name order.
var fixedColumns = []string{"id", "kind", "name", "url", "stats_url", "rank", "scraped_at"}

func isFixedColumn(name string) bool {
	return slices.Contains(fixedColumns, name)
}

// tableColumns returns the header for records: the fixed columns, then the
// sorted union of all field names. A field named like a fixed column is
// shadowed by it.
func tableColumns(records []model.Record) []string {
	seen := map[string]bool{}
	var fields []string
	for _, r := range records {
		for name := range r.Fields {
			if seen[name] || isFixedColumn(name) {
				continue
			}
			seen[name] = true
			fields = append(fields, name)
		}
	}
	slices.Sort(fields)
	return append(slices.Clone(fixedColumns), fields...)
}

// encodeRow renders r as cells aligned with columns. Absent fields are empty.
func encodeRow(r model.Record, columns []string) []string {
	row := make([]string, len(columns))
	for i, col := range columns {
		switch col {
		case "id":
			row[i] = strconv.FormatInt(r.ID, 10)
		case "kind":
			row[i] = string(r.Kind)
		case "name":
			row[i] = r.Name
		case "url":
			row[i] = r.URL
		case "stats_url":
			row[i] = r.StatsURL
		case "rank":
			row[i] = strconv.Itoa(r.Rank)
		case "scraped_at":
			if !r.ScrapedAt.IsZero() {
				row[i] = r.ScrapedAt.UTC().Format(time.RFC3339)
			}
		default:
			if v, ok := r.Fields[col]; ok {
				row[i] = v.String()
			}
		}
	}
	return row
}

// decodeRows parses a header and data rows back into records. Rows may be
// shorter than the header; missing cells are empty.
func decodeRows(header []string, rows [][]string) ([]model.Record, error) {
	if len(header) == 0 {
		return nil, nil
	}
	if !slices.Contains(header, "id") {
		return nil, eris.New("store: table has no id column")
	}

	records := make([]model.Record, 0, len(rows))
	for n, row := range rows {
		if isBlank(row) {
			continue
		}
		r := model.Record{Fields: model.Fields{}}
		for i, col := range header {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			if err := setColumn(&r, col, cell); err != nil {
				return nil, eris.Wrapf(err, "store: row %d", n+1)
			}
		}
		records = append(records, r)
	}
	return records, nil
}

func setColumn(r *model.Record, col, cell string) error {
	switch col {
	case "id":
		id, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return eris.Wrapf(err, "parse id %q", cell)
		}
		r.ID = id
	case "kind":
		r.Kind = model.MediaType(cell)
	case "name":
		r.Name = cell
	case "url":
		r.URL = cell
	case "stats_url":
		r.StatsURL = cell
	case "rank":
		if cell == "" {
			return nil
		}
		rank, err := strconv.Atoi(cell)
		if err != nil {
			return eris.Wrapf(err, "parse rank %q", cell)
		}
		r.Rank = rank
	case "scraped_at":
		if cell == "" {
			return nil
		}
		ts, err := time.Parse(time.RFC3339, cell)
		if err != nil {
			return eris.Wrapf(err, "parse scraped_at %q", cell)
		}
		r.ScrapedAt = ts
	default:
		if v, ok := model.ParseCell(col, cell); ok {
			r.Fields[col] = v
		}
	}
	return nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
