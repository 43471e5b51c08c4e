package scrape

import (
	"bytes"

	"github.com/PuerkitoBio/goquery"
)

const (
	cardTableSelector = "table.b-fight-details__table"
	cardRowSelector   = "tbody tr.b-fight-details__table-row"
)

// Column positions in the event fight table. The first column is the
// win/loss flag, the second holds both fighter links.
const (
	cardColFighters = 1
	cardColWeight   = 6
	cardColMethod   = 7
	cardColRound    = 8
	cardColTime     = 9
)

// CardRow is one scheduled bout on an event page, in card order: the slice
// index of the returned rows is the bout's position, 0 = main event.
type CardRow struct {
	FightID       string
	RedName       string
	RedFighterID  string
	BlueName      string
	BlueFighterID string
	WeightClass   string
	Method        string
	Round         string
	Time          string

	// Completed is true once the source shows an outcome for the row,
	// which is when the fight detail page is worth scraping.
	Completed bool
}

// ParseCard extracts the fight card from an event detail page. Rows without
// a fight link or both fighter links are skipped; a missing fight table is a
// StructureError.
func ParseCard(html []byte) ([]CardRow, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	table := doc.Find(cardTableSelector)
	if table.Length() == 0 {
		return nil, &StructureError{Page: "event detail", Selector: cardTableSelector}
	}

	var rows []CardRow
	table.Find(cardRowSelector).Each(func(_ int, tr *goquery.Selection) {
		href, ok := tr.Attr("data-link")
		if !ok {
			return
		}
		fightID, err := ExternalID(href)
		if err != nil {
			return
		}

		cols := tr.Find("td")
		fighters := cols.Eq(cardColFighters).Find("a")
		if fighters.Length() < 2 {
			return
		}

		// First link is the red corner, second the blue, by source
		// convention.
		red := fighters.Eq(0)
		blue := fighters.Eq(1)

		redID, err := ExternalID(red.AttrOr("href", ""))
		if err != nil {
			return
		}
		blueID, err := ExternalID(blue.AttrOr("href", ""))
		if err != nil {
			return
		}

		method := collapse(cols.Eq(cardColMethod).Text())

		rows = append(rows, CardRow{
			FightID:       fightID,
			RedName:       collapse(red.Text()),
			RedFighterID:  redID,
			BlueName:      collapse(blue.Text()),
			BlueFighterID: blueID,
			WeightClass:   collapse(cols.Eq(cardColWeight).Text()),
			Method:        method,
			Round:         collapse(cols.Eq(cardColRound).Text()),
			Time:          collapse(cols.Eq(cardColTime).Text()),
			Completed:     method != "",
		})
	})

	return rows, nil
}
