package store

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/kkyouma/myanimelist-scraper/internal/model"
)

type jsonCodec struct{}

func (jsonCodec) read(path string) ([]model.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "json: read")
	}
	if len(data) == 0 {
		return nil, nil
	}
	var records []model.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, eris.Wrap(err, "json: decode")
	}
	return records, nil
}

func (jsonCodec) write(path string, records []model.Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return eris.Wrap(err, "json: encode")
	}
	return eris.Wrap(os.WriteFile(path, append(data, '\n'), 0o644), "json: write")
}
