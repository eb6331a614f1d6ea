package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/kkyouma/myanimelist-scraper/internal/model"
	"github.com/kkyouma/myanimelist-scraper/internal/store"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List the records held by a destination",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		out, _ := cmd.Flags().GetString("out")
		format, _ := cmd.Flags().GetString("format")
		limit, _ := cmd.Flags().GetInt("limit")

		dest := cfg.Store.Destination
		if out != "" {
			dest = out
		}

		rs, err := store.Open(ctx, dest)
		if err != nil {
			return err
		}
		defer rs.Close() //nolint:errcheck

		records, err := rs.Load(ctx)
		if err != nil {
			return err
		}
		if limit > 0 && len(records) > limit {
			records = records[:limit]
		}

		switch format {
		case "json":
			return formatRecordsJSON(cmd.OutOrStdout(), records)
		case "table":
			formatRecordsTable(cmd.OutOrStdout(), records)
			return nil
		default:
			return eris.Errorf("unknown format %q (want table or json)", format)
		}
	},
}

func init() {
	recordsCmd.Flags().String("out", "", "destination file or postgres:// URL (default store.destination)")
	recordsCmd.Flags().String("format", "table", "output format (table, json)")
	recordsCmd.Flags().Int("limit", 0, "max number of records to display (0 for all)")
	rootCmd.AddCommand(recordsCmd)
}

func formatRecordsTable(out io.Writer, records []model.Record) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tKIND\tRANK\tNAME\tFIELDS\tSCRAPED")
	_, _ = fmt.Fprintln(w, "--\t----\t----\t----\t------\t-------")

	for _, r := range records {
		name := truncate(r.Name, 40)
		scraped := ""
		if !r.ScrapedAt.IsZero() {
			scraped = r.ScrapedAt.Format("2006-01-02 15:04")
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\n",
			r.ID,
			r.Kind,
			r.Rank,
			name,
			strings.Join(r.Fields.Names(), ","),
			scraped,
		)
	}
	_ = w.Flush()
}

func formatRecordsJSON(out io.Writer, records []model.Record) error {
	if records == nil {
		records = []model.Record{}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
