package main

import (
	"github.com/kkyouma/myanimelist-scraper/internal/catalog"
	"github.com/kkyouma/myanimelist-scraper/internal/model"
)

// catalogFor returns the catalog settings for a media type, applying the
// overrides file named in the config when there is one.
func catalogFor(media string) (model.MediaType, catalog.Config, error) {
	kind, err := model.ParseMediaType(media)
	if err != nil {
		return "", catalog.Config{}, err
	}

	table := catalog.Default()
	if cfg != nil && cfg.Catalog.Overrides != "" {
		table, err = catalog.LoadOverrides(cfg.Catalog.Overrides, table)
		if err != nil {
			return "", catalog.Config{}, err
		}
	}

	c, err := table.Lookup(kind)
	if err != nil {
		return "", catalog.Config{}, err
	}
	return kind, c, nil
}
