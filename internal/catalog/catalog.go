// Package catalog holds the read-only per-media-type settings of the ranked
// catalog: where listing pages live, how many entries each page holds, and
// how long to wait between requests.
package catalog

import (
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/kkyouma/myanimelist-scraper/internal/model"
	"github.com/kkyouma/myanimelist-scraper/internal/paging"
)

// Config describes one ranked catalog.
type Config struct {
	BaseURL      string `yaml:"base_url"`
	ItemsPerPage int    `yaml:"items_per_page"`
	RateLimitMs  int    `yaml:"rate_limit_ms"`
}

// PageURL returns the listing URL of a 1-based page.
func (c Config) PageURL(page int) string {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return c.BaseURL + "?limit=" + strconv.Itoa(paging.Offset(page, c.ItemsPerPage))
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(paging.Offset(page, c.ItemsPerPage)))
	u.RawQuery = q.Encode()
	return u.String()
}

func (c Config) validate(mt model.MediaType) error {
	if c.BaseURL == "" {
		return eris.Errorf("catalog: %s: base_url is empty", mt)
	}
	if c.ItemsPerPage <= 0 {
		return eris.Errorf("catalog: %s: items_per_page must be positive, got %d", mt, c.ItemsPerPage)
	}
	if c.RateLimitMs < 0 {
		return eris.Errorf("catalog: %s: rate_limit_ms must not be negative", mt)
	}
	return nil
}

// Table is an immutable mapping from media type to catalog settings.
type Table struct {
	configs map[model.MediaType]Config
}

var defaults = map[model.MediaType]Config{
	model.MediaTypeAnime: {BaseURL: "https://myanimelist.net/topanime.php", ItemsPerPage: 50, RateLimitMs: 1000},
	model.MediaTypeManga: {BaseURL: "https://myanimelist.net/topmanga.php", ItemsPerPage: 50, RateLimitMs: 1000},
}

// Default returns the built-in catalog table.
func Default() Table {
	return newTable(defaults)
}

func newTable(src map[model.MediaType]Config) Table {
	configs := make(map[model.MediaType]Config, len(src))
	for k, v := range src {
		configs[k] = v
	}
	return Table{configs: configs}
}

// Lookup returns the settings for a media type.
func (t Table) Lookup(mt model.MediaType) (Config, error) {
	c, ok := t.configs[mt]
	if !ok {
		return Config{}, eris.Errorf("catalog: no configuration for media type %q", mt)
	}
	return c, nil
}
