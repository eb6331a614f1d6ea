package store

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/rotisserie/eris"

	"github.com/kkyouma/myanimelist-scraper/internal/model"
)

type csvCodec struct{}

func (csvCodec) read(path string) ([]model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "csv: open")
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		rows = append(rows, row)
	}
	return decodeRows(header, rows)
}

func (csvCodec) write(path string, records []model.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "csv: create")
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	columns := tableColumns(records)
	if err := w.Write(columns); err != nil {
		return eris.Wrap(err, "csv: write header")
	}
	for _, r := range records {
		if err := w.Write(encodeRow(r, columns)); err != nil {
			return eris.Wrap(err, "csv: write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "csv: flush")
	}
	return eris.Wrap(f.Sync(), "csv: sync")
}
