// Package scrape drives a ranked-catalog scrape: listing pages in order,
// then the stats page of every selected entry.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kkyouma/myanimelist-scraper/internal/catalog"
	"github.com/kkyouma/myanimelist-scraper/internal/extract"
	"github.com/kkyouma/myanimelist-scraper/internal/model"
	"github.com/kkyouma/myanimelist-scraper/internal/paging"
)

// Fetcher returns the body of a page. Implementations retry internally and
// report exhaustion as an error.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Archiver keeps a copy of raw HTML under a file name.
type Archiver interface {
	SaveHTML(name, content string) (string, error)
}

// ProgressFunc is called after each record with the number completed and
// the number requested.
type ProgressFunc func(completed, total int)

// Options tunes a single run.
type Options struct {
	// SaveHTML archives every fetched listing and stats page.
	SaveHTML bool
	Progress ProgressFunc
}

// Scraper scrapes one media type of the catalog.
type Scraper struct {
	fetcher Fetcher
	kind    model.MediaType
	cfg     catalog.Config
	archive Archiver
	now     func() time.Time
}

// New creates a Scraper. archive may be nil when raw pages are never kept.
func New(f Fetcher, kind model.MediaType, cfg catalog.Config, archive Archiver) *Scraper {
	return &Scraper{
		fetcher: f,
		kind:    kind,
		cfg:     cfg,
		archive: archive,
		now:     time.Now,
	}
}

// Scrape collects records for the 1-based inclusive range r. Pages and
// entries that cannot be fetched or parsed are logged and skipped, so fewer
// records than r.Total() may come back. Records keep their absolute catalog
// rank. A listing page with no entries ends the run, so ranges past the end
// of the catalog are not an error. When ctx is cancelled the records gathered
// so far are returned with ctx.Err().
func (s *Scraper) Scrape(ctx context.Context, r model.ItemRange, opts Options) ([]model.Record, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("kind", string(s.kind)))
	perPage := s.cfg.ItemsPerPage
	total := r.Total()
	// The range may run far past the end of the catalog, so nothing is
	// sized from it up front.
	var records []model.Record
	startPage, endPage := paging.Bounds(r, perPage)

	log.Info("scrape: starting",
		zap.Int("start", r.Start),
		zap.Int("end", r.End),
		zap.Int("pages", endPage-startPage+1),
	)

	for page := startPage; page <= endPage; page++ {
		slice := paging.Slice(page, r, perPage)
		if err := ctx.Err(); err != nil {
			return records, err
		}

		pageURL := s.cfg.PageURL(slice.Page)
		raw, err := s.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return records, ctx.Err()
			}
			log.Warn("scrape: skipping listing page",
				zap.Int("page", slice.Page),
				zap.String("url", pageURL),
				zap.Error(err),
			)
			continue
		}
		s.saveHTML(opts, fmt.Sprintf("%s_page_%d.html", s.kind, paging.Offset(slice.Page, perPage)), raw)

		base, _ := url.Parse(pageURL)
		entries, err := extract.ListingFrom(raw, base, slice.Start, slice.End)
		if err != nil {
			log.Warn("scrape: unreadable listing page", zap.Int("page", slice.Page), zap.Error(err))
			continue
		}
		log.Debug("scrape: listing page parsed",
			zap.Int("page", slice.Page),
			zap.Int("entries", len(entries)),
		)
		if len(entries) == 0 && !slice.Empty() {
			// Pages past the end of the catalog list nothing.
			log.Info("scrape: catalog exhausted", zap.Int("page", slice.Page))
			break
		}

		for i, entry := range entries {
			if err := ctx.Err(); err != nil {
				return records, err
			}

			rank := paging.Rank(slice, i, perPage)
			rec, err := s.scrapeEntry(ctx, entry, rank, opts)
			if err != nil {
				if ctx.Err() != nil {
					return records, ctx.Err()
				}
				level := log.Warn
				if errors.Is(err, extract.ErrEmptyStats) {
					level = log.Info
				}
				level("scrape: skipping entry",
					zap.Int("rank", rank),
					zap.String("name", entry.Name),
					zap.String("url", entry.URL),
					zap.Error(err),
				)
				continue
			}

			records = append(records, rec)
			if opts.Progress != nil {
				opts.Progress(len(records), total)
			}
			log.Info("scrape: progress",
				zap.Int("completed", len(records)),
				zap.Int("total", total),
				zap.Int("rank", rank),
				zap.String("name", rec.Name),
			)
		}
	}

	log.Info("scrape: finished", zap.Int("records", len(records)), zap.Int("requested", total))
	return records, nil
}

func (s *Scraper) scrapeEntry(ctx context.Context, entry model.ListingEntry, rank int, opts Options) (model.Record, error) {
	if entry.URL == "" {
		return model.Record{}, eris.New("scrape: entry has no url")
	}

	statsURL := entry.StatsURL()
	raw, err := s.fetcher.Fetch(ctx, statsURL)
	if err != nil {
		return model.Record{}, err
	}

	id := model.IdentityKey(entry.URL)
	s.saveHTML(opts, fmt.Sprintf("%s_stats_%d.html", s.kind, id), raw)

	fields, err := extract.Fields(raw)
	if err != nil {
		return model.Record{}, err
	}
	if len(fields) == 0 {
		return model.Record{}, extract.ErrEmptyStats
	}

	return model.Record{
		ID:        id,
		Kind:      s.kind,
		Name:      entry.Name,
		URL:       entry.URL,
		StatsURL:  statsURL,
		Rank:      rank,
		Fields:    fields,
		ScrapedAt: s.now().UTC(),
	}, nil
}

func (s *Scraper) saveHTML(opts Options, name, content string) {
	if !opts.SaveHTML || s.archive == nil {
		return
	}
	path, err := s.archive.SaveHTML(name, content)
	if err != nil {
		zap.L().Warn("scrape: archive failed", zap.String("file", name), zap.Error(err))
		return
	}
	zap.L().Debug("scrape: archived page", zap.String("path", path))
}
