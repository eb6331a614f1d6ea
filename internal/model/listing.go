package model

import "net/url"

// ListingEntry is a single ranked title link taken from a listing page.
type ListingEntry struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// StatsURL resolves the relative "stats" path against the entry URL, so
// https://myanimelist.net/anime/5114/Title becomes
// https://myanimelist.net/anime/5114/stats.
func (e ListingEntry) StatsURL() string {
	base, err := url.Parse(e.URL)
	if err != nil {
		return e.URL
	}
	return base.ResolveReference(&url.URL{Path: "stats"}).String()
}
