package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// MediaType identifies which ranked catalog a record came from.
type MediaType string

const (
	MediaTypeAnime MediaType = "anime"
	MediaTypeManga MediaType = "manga"
)

// AllMediaTypes returns every supported media type.
func AllMediaTypes() []MediaType {
	return []MediaType{MediaTypeAnime, MediaTypeManga}
}

// ParseMediaType converts user input (case-insensitive) into a MediaType.
func ParseMediaType(s string) (MediaType, error) {
	switch MediaType(strings.ToLower(strings.TrimSpace(s))) {
	case MediaTypeAnime:
		return MediaTypeAnime, nil
	case MediaTypeManga:
		return MediaTypeManga, nil
	}
	return "", eris.Errorf("model: unknown media type %q", s)
}
