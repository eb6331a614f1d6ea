package store

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Archive writes raw pages under a directory.
type Archive struct {
	dir string
}

// NewArchive creates dir if needed and returns an Archive rooted there.
func NewArchive(dir string) (*Archive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, failure(dir, "create archive", err)
	}
	return &Archive{dir: dir}, nil
}

// Dir returns the archive root.
func (a *Archive) Dir() string {
	return a.dir
}

// SaveHTML writes content to name inside the archive and returns its path.
// The name's stem is slugged; its extension is kept.
func (a *Archive) SaveHTML(name, content string) (string, error) {
	ext := filepath.Ext(name)
	stem := Slug(strings.TrimSuffix(filepath.Base(name), ext))
	if stem == "" {
		return "", failure(a.dir, "archive", eris.Errorf("unusable file name %q", name))
	}
	path := filepath.Join(a.dir, stem+strings.ToLower(ext))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", failure(path, "archive", err)
	}
	return path, nil
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases s, folds diacritics to their base letters, and joins the
// remaining alphanumeric runs with underscores: "Pokémon: Mewtwo!" becomes
// "pokemon_mewtwo".
func Slug(s string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		strings.ToLower(s),
	)
	if err != nil {
		folded = strings.ToLower(s)
	}
	return strings.Trim(nonAlnum.ReplaceAllString(folded, "_"), "_")
}

// DatedPath inserts a slugged stem and the UTC date of t into path, so
// "data/Top Anime.csv" becomes "data/top_anime_2024-05-01.csv".
func DatedPath(path string, t time.Time) string {
	ext := filepath.Ext(path)
	stem := Slug(strings.TrimSuffix(filepath.Base(path), ext))
	if stem == "" {
		stem = "records"
	}
	return filepath.Join(filepath.Dir(path), stem+"_"+t.UTC().Format("2006-01-02")+ext)
}
