package store

import (
	"fmt"
	"time"

	"github.com/kkyouma/myanimelist-scraper/internal/model"
)

var scrapedAt = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

// rec builds a record whose fields cover every value kind.
func rec(id int64, name string) model.Record {
	return model.Record{
		ID:        id,
		Kind:      model.MediaTypeAnime,
		Name:      name,
		URL:       fmt.Sprintf("https://myanimelist.net/anime/%d/x", id),
		StatsURL:  fmt.Sprintf("https://myanimelist.net/anime/%d/stats", id),
		Rank:      int(id),
		ScrapedAt: scrapedAt,
		Fields: model.Fields{
			"type":    model.StringValue("TV"),
			"members": model.IntValue(id * 100),
			"genres":  model.ListValue([]string{"Action", "Drama"}),
		},
	}
}
