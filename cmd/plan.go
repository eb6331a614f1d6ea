package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kkyouma/myanimelist-scraper/internal/catalog"
	"github.com/kkyouma/myanimelist-scraper/internal/model"
	"github.com/kkyouma/myanimelist-scraper/internal/paging"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show which listing pages a rank range touches, without fetching",
	RunE: func(cmd *cobra.Command, args []string) error {
		media, _ := cmd.Flags().GetString("media")
		start, _ := cmd.Flags().GetInt("start")
		end, _ := cmd.Flags().GetInt("end")

		r := model.ItemRange{Start: start, End: end}
		if err := r.Validate(); err != nil {
			return err
		}

		_, cat, err := catalogFor(media)
		if err != nil {
			return err
		}

		formatPlan(cmd.OutOrStdout(), cat, r)
		return nil
	},
}

func init() {
	planCmd.Flags().String("media", string(model.MediaTypeAnime), "catalog to plan against (anime, manga)")
	planCmd.Flags().Int("start", 1, "first rank (1-based, inclusive)")
	planCmd.Flags().Int("end", 50, "last rank (inclusive)")
	rootCmd.AddCommand(planCmd)
}

func formatPlan(out io.Writer, cat catalog.Config, r model.ItemRange) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PAGE\tOFFSET\tSTART\tEND\tCOUNT\tURL")
	_, _ = fmt.Fprintln(w, "----\t------\t-----\t---\t-----\t---")

	for _, s := range paging.Plan(r, cat.ItemsPerPage) {
		_, _ = fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%s\n",
			s.Page,
			paging.Offset(s.Page, cat.ItemsPerPage),
			s.Start,
			s.End,
			s.Len(cat.ItemsPerPage),
			cat.PageURL(s.Page),
		)
	}
	_ = w.Flush()
}
