package store

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/kkyouma/myanimelist-scraper/internal/model"
)

// recordsSheet is the sheet written by the XLSX backend. Reading falls back
// to the first sheet for workbooks created elsewhere.
const recordsSheet = "records"

type xlsxCodec struct{}

func (xlsxCodec) read(path string) ([]model.Record, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	sheet, ok := f.Sheet[recordsSheet]
	if !ok {
		if len(f.Sheets) == 0 {
			return nil, nil
		}
		sheet = f.Sheets[0]
	}
	if len(sheet.Rows) == 0 {
		return nil, nil
	}

	header := rowToStrings(sheet.Rows[0])
	rows := make([][]string, 0, len(sheet.Rows)-1)
	for _, row := range sheet.Rows[1:] {
		rows = append(rows, rowToStrings(row))
	}
	return decodeRows(header, rows)
}

func (xlsxCodec) write(path string, records []model.Record) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(recordsSheet)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	columns := tableColumns(records)
	addRow(sheet, columns)
	for _, r := range records {
		addRow(sheet, encodeRow(r, columns))
	}
	return eris.Wrap(f.Save(path), "xlsx: save")
}

func addRow(sheet *xlsx.Sheet, cells []string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().SetString(c)
	}
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
