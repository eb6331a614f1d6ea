package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/kkyouma/myanimelist-scraper/internal/model"
)

// listingSelector matches the ranked title link of each listing row.
const listingSelector = "a[class*='fs14 fw-b']"

// Listing returns the ranked title links of a listing page, in document order,
// skipping the first start matches and stopping before index end. An end of
// paging.Unbounded keeps every remaining match; an end <= 0 selects nothing.
func Listing(raw string, start, end int) ([]model.ListingEntry, error) {
	return ListingFrom(raw, nil, start, end)
}

// ListingFrom is Listing with relative hrefs resolved against base.
func ListingFrom(raw string, base *url.URL, start, end int) ([]model.ListingEntry, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, eris.Wrap(err, "extract: parse listing")
	}

	links := doc.Find(listingSelector)
	n := links.Length()
	start = max(start, 0)
	end = min(end, n)
	if start >= end {
		return []model.ListingEntry{}, nil
	}

	entries := make([]model.ListingEntry, 0, end-start)
	links.Slice(start, end).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		entries = append(entries, model.ListingEntry{
			Name: strings.TrimSpace(s.Text()),
			URL:  resolve(base, strings.TrimSpace(href)),
		})
	})
	return entries, nil
}

func resolve(base *url.URL, href string) string {
	if base == nil || href == "" {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
