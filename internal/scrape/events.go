package scrape

import (
	"bytes"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	eventsTableSelector = "table.b-statistics__table-events"
	eventsRowSelector   = "tr.b-statistics__table-row"
	eventDateLayout     = "January 2, 2006"
)

// EventRow is one entry on the completed-events listing.
type EventRow struct {
	ExternalID string
	Name       string
	Date       time.Time
	Location   string
}

// ParseEvents extracts every event row from the listing page. Rows missing a
// detail link, a name or a parseable date are skipped; a missing listing
// table is a StructureError.
func ParseEvents(html []byte) ([]EventRow, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	table := doc.Find(eventsTableSelector)
	if table.Length() == 0 {
		return nil, &StructureError{Page: "events listing", Selector: eventsTableSelector}
	}

	var rows []EventRow
	table.Find(eventsRowSelector).Each(func(_ int, tr *goquery.Selection) {
		link := tr.Find("a.b-link").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}

		name := strings.TrimSpace(link.Text())
		if name == "" {
			return
		}

		id, err := ExternalID(href)
		if err != nil {
			return
		}

		date, err := time.Parse(eventDateLayout, strings.TrimSpace(tr.Find("span.b-statistics__date").Text()))
		if err != nil {
			return
		}

		rows = append(rows, EventRow{
			ExternalID: id,
			Name:       name,
			Date:       date,
			Location:   collapse(tr.Find("td").Last().Text()),
		})
	})

	return rows, nil
}
