package catalog

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/kkyouma/myanimelist-scraper/internal/model"
)

// LoadOverrides reads a YAML file of the form
//
//	catalogs:
//	  anime:
//	    base_url: https://myanimelist.net/topanime.php
//	    items_per_page: 50
//	    rate_limit_ms: 2000
//
// and returns base with the listed fields replaced. Zero values keep the
// base setting. An empty path returns base unchanged.
func LoadOverrides(path string, base Table) (Table, error) {
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, eris.Wrapf(err, "catalog: read overrides %s", path)
	}

	var wrapper struct {
		Catalogs map[string]Config `yaml:"catalogs"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Table{}, eris.Wrap(err, "catalog: parse overrides")
	}

	merged := make(map[model.MediaType]Config, len(base.configs))
	for k, v := range base.configs {
		merged[k] = v
	}
	for name, o := range wrapper.Catalogs {
		mt, err := model.ParseMediaType(name)
		if err != nil {
			return Table{}, eris.Wrap(err, "catalog: overrides")
		}
		c := merged[mt]
		if o.BaseURL != "" {
			c.BaseURL = o.BaseURL
		}
		if o.ItemsPerPage != 0 {
			c.ItemsPerPage = o.ItemsPerPage
		}
		if o.RateLimitMs != 0 {
			c.RateLimitMs = o.RateLimitMs
		}
		if err := c.validate(mt); err != nil {
			return Table{}, err
		}
		merged[mt] = c
	}
	return newTable(merged), nil
}
