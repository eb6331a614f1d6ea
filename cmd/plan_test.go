package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkyouma/myanimelist-scraper/internal/catalog"
	"github.com/kkyouma/myanimelist-scraper/internal/config"
	"github.com/kkyouma/myanimelist-scraper/internal/model"
)

func TestFormatPlan_StraddlesPages(t *testing.T) {
	cat := catalog.Config{BaseURL: "https://myanimelist.net/topanime.php", ItemsPerPage: 50}

	var buf bytes.Buffer
	formatPlan(&buf, cat, model.ItemRange{Start: 45, End: 105})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5) // header, rule, three pages
	assert.Contains(t, lines[0], "PAGE")
	assert.Contains(t, lines[0], "URL")

	assert.Equal(t, []string{"1", "0", "44", "50", "6", "https://myanimelist.net/topanime.php?limit=0"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"2", "50", "0", "50", "50", "https://myanimelist.net/topanime.php?limit=50"}, strings.Fields(lines[3]))
	assert.Equal(t, []string{"3", "100", "0", "5", "5", "https://myanimelist.net/topanime.php?limit=100"}, strings.Fields(lines[4]))
}

func TestFormatPlan_SinglePage(t *testing.T) {
	cat := catalog.Config{BaseURL: "https://myanimelist.net/topmanga.php", ItemsPerPage: 50}

	var buf bytes.Buffer
	formatPlan(&buf, cat, model.ItemRange{Start: 2, End: 4})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"1", "0", "1", "4", "3", "https://myanimelist.net/topmanga.php?limit=0"}, strings.Fields(lines[2]))
}

func TestCatalogFor(t *testing.T) {
	prev := cfg
	t.Cleanup(func() { cfg = prev })
	cfg = &config.Config{}

	kind, cat, err := catalogFor("Manga")
	require.NoError(t, err)
	assert.Equal(t, model.MediaTypeManga, kind)
	assert.Equal(t, "https://myanimelist.net/topmanga.php", cat.BaseURL)
	assert.Equal(t, 50, cat.ItemsPerPage)

	_, _, err = catalogFor("novel")
	assert.Error(t, err)
}

func TestCatalogFor_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("catalogs:\n  anime:\n    items_per_page: 25\n    rate_limit_ms: 3000\n"), 0o644))

	prev := cfg
	t.Cleanup(func() { cfg = prev })
	cfg = &config.Config{Catalog: config.CatalogConfig{Overrides: path}}

	_, cat, err := catalogFor("anime")
	require.NoError(t, err)
	assert.Equal(t, 25, cat.ItemsPerPage)
	assert.Equal(t, 3000, cat.RateLimitMs)
	assert.Equal(t, "https://myanimelist.net/topanime.php", cat.BaseURL)
}
