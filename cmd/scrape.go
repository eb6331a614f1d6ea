package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kkyouma/myanimelist-scraper/internal/catalog"
	"github.com/kkyouma/myanimelist-scraper/internal/fetcher"
	"github.com/kkyouma/myanimelist-scraper/internal/model"
	"github.com/kkyouma/myanimelist-scraper/internal/resilience"
	"github.com/kkyouma/myanimelist-scraper/internal/scrape"
	"github.com/kkyouma/myanimelist-scraper/internal/store"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape a rank range and merge it into the destination",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var p scrapeParams
		p.Media, _ = cmd.Flags().GetString("media")
		p.Range.Start, _ = cmd.Flags().GetInt("start")
		p.Range.End, _ = cmd.Flags().GetInt("end")
		p.Out, _ = cmd.Flags().GetString("out")
		p.SaveHTML, _ = cmd.Flags().GetBool("save-html")
		p.Dated, _ = cmd.Flags().GetBool("dated")
		p.Progress, _ = cmd.Flags().GetBool("progress")

		return runScrape(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), p, httpFetcher)
	},
}

type scrapeParams struct {
	Media    string
	Range    model.ItemRange
	Out      string
	SaveHTML bool
	Dated    bool
	Progress bool
}

// httpFetcher builds the production fetch stack for a catalog.
func httpFetcher(cat catalog.Config) scrape.Fetcher {
	return fetcher.NewRetryingFetcher(
		fetcher.NewHTTPTransport(fetcher.HTTPOptions{
			UserAgent: cfg.Fetch.UserAgent,
			HostRPS:   cfg.Fetch.HostRPS,
		}),
		fetchPolicy(cfg.Fetch.Policy(), cat),
	)
}

// runScrape opens the destination first so a bad destination fails before
// any page is fetched. If the final save fails, the scraped batch is written
// to a JSON file beside the archive directory and its path is reported.
func runScrape(ctx context.Context, out, errOut io.Writer, p scrapeParams, newFetcher func(catalog.Config) scrape.Fetcher) error {
	if err := p.Range.Validate(); err != nil {
		return err
	}

	kind, cat, err := catalogFor(p.Media)
	if err != nil {
		return err
	}

	dest := cfg.Store.Destination
	if p.Out != "" {
		dest = p.Out
	}
	if p.Dated && store.BackendFor(dest) != store.BackendPostgres {
		dest = store.DatedPath(dest, time.Now())
	}

	// Saving must outlive an interrupted scrape.
	saveCtx := context.WithoutCancel(ctx)
	rs, err := store.Open(saveCtx, dest)
	if err != nil {
		return err
	}
	defer rs.Close() //nolint:errcheck

	var archive scrape.Archiver
	if p.SaveHTML {
		a, err := store.NewArchive(cfg.Store.ArchiveDir)
		if err != nil {
			return err
		}
		archive = a
	}

	opts := scrape.Options{SaveHTML: p.SaveHTML}
	if p.Progress {
		opts.Progress = progressPrinter(errOut)
	}

	records, scrapeErr := scrape.New(newFetcher(cat), kind, cat, archive).Scrape(ctx, p.Range, opts)
	if scrapeErr != nil && !errors.Is(scrapeErr, context.Canceled) {
		return scrapeErr
	}
	if scrapeErr != nil {
		zap.L().Warn("scrape: interrupted, saving partial results", zap.Int("records", len(records)))
	}

	total, err := rs.MergeAndSave(saveCtx, records)
	if err != nil {
		return keepUnsaved(saveCtx, kind, records, err)
	}

	formatScrapeSummary(out, scrapeSummary{
		Kind:      kind,
		Range:     p.Range,
		Scraped:   len(records),
		Total:     total,
		Dest:      dest,
		Cancelled: scrapeErr != nil,
	})
	if scrapeErr != nil {
		return eris.Wrap(scrapeErr, "scrape interrupted")
	}
	return nil
}

// keepUnsaved writes records that the destination rejected to a JSON file
// next to the archive directory and returns saveErr annotated with its path.
func keepUnsaved(ctx context.Context, kind model.MediaType, records []model.Record, saveErr error) error {
	if len(records) == 0 {
		return saveErr
	}

	path := filepath.Join(filepath.Dir(filepath.Clean(cfg.Store.ArchiveDir)),
		fmt.Sprintf("unsaved_%s_%s.json", kind, time.Now().UTC().Format("20060102T150405")))
	fallback, err := store.Open(ctx, path)
	if err != nil {
		zap.L().Error("scrape: could not keep unsaved records", zap.Error(err))
		return saveErr
	}
	defer fallback.Close() //nolint:errcheck

	if _, err := fallback.MergeAndSave(ctx, records); err != nil {
		zap.L().Error("scrape: could not keep unsaved records", zap.String("path", path), zap.Error(err))
		return saveErr
	}
	zap.L().Warn("scrape: destination rejected records, kept them elsewhere",
		zap.String("path", path),
		zap.Int("records", len(records)),
	)
	return eris.Wrapf(saveErr, "%d records kept in %s", len(records), path)
}

func init() {
	scrapeCmd.Flags().String("media", string(model.MediaTypeAnime), "catalog to scrape (anime, manga)")
	scrapeCmd.Flags().Int("start", 1, "first rank to scrape (1-based, inclusive)")
	scrapeCmd.Flags().Int("end", 50, "last rank to scrape (inclusive)")
	scrapeCmd.Flags().String("out", "", "destination file or postgres:// URL (default store.destination)")
	scrapeCmd.Flags().Bool("save-html", false, "archive every fetched page under store.archive_dir")
	scrapeCmd.Flags().Bool("dated", false, "append the current date to the destination file name")
	scrapeCmd.Flags().Bool("progress", false, "print a progress line to stderr after each record")
	rootCmd.AddCommand(scrapeCmd)
}

// fetchPolicy never lets the pause before a request drop below the
// catalog's rate limit.
func fetchPolicy(p resilience.Policy, cat catalog.Config) resilience.Policy {
	p.Delay = max(p.Delay, time.Duration(cat.RateLimitMs)*time.Millisecond)
	return p
}

func progressPrinter(w io.Writer) scrape.ProgressFunc {
	return func(completed, total int) {
		_, _ = fmt.Fprintf(w, "[%d/%d]\n", completed, total)
	}
}

type scrapeSummary struct {
	Kind      model.MediaType
	Range     model.ItemRange
	Scraped   int
	Total     int
	Dest      string
	Cancelled bool
}

func formatScrapeSummary(out io.Writer, s scrapeSummary) {
	_, _ = fmt.Fprintf(out, "Scraped %d of %d %s entries (ranks %d-%d)\n",
		s.Scraped, s.Range.Total(), s.Kind, s.Range.Start, s.Range.End)
	if s.Cancelled {
		_, _ = fmt.Fprintln(out, "Run was interrupted; partial results saved")
	}
	_, _ = fmt.Fprintf(out, "Destination %s now holds %d records\n", store.DisplayName(s.Dest), s.Total)
}
