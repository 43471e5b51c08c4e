package scrape

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"fightsync/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

const (
	personSelector       = "div.b-fight-details__person"
	personStatusSelector = "i.b-fight-details__person-status"
	textItemSelector     = "i.b-fight-details__text-item_first, i.b-fight-details__text-item"
	textBlockSelector    = "p.b-fight-details__text"
	labelSelector        = "i.b-fight-details__label"
)

// FightResult is the graded outcome scraped from a fight detail page.
type FightResult struct {
	Winner  domain.Winner
	Method  string
	Round   *int
	Time    *string
	Details string
}

// ParseResult reads the two fighter blocks and the labeled outcome text of a
// fight detail page. The first block is the red corner. Missing fighter
// blocks are a StructureError; an unrecognized status marker is a plain
// error for the caller to tally.
func ParseResult(html []byte) (*FightResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	persons := doc.Find(personSelector)
	if persons.Length() < 2 {
		return nil, &StructureError{Page: "fight detail", Selector: personSelector}
	}

	redStatus := strings.TrimSpace(persons.Eq(0).Find(personStatusSelector).Text())
	blueStatus := strings.TrimSpace(persons.Eq(1).Find(personStatusSelector).Text())

	winner, err := gradeWinner(redStatus, blueStatus)
	if err != nil {
		return nil, err
	}

	result := &FightResult{Winner: winner}

	doc.Find(textItemSelector).Each(func(_ int, item *goquery.Selection) {
		label := strings.TrimSpace(item.Find(labelSelector).First().Text())
		if label == "" {
			return
		}

		value := collapse(strings.TrimPrefix(collapse(item.Text()), label))

		switch label {
		case "Method:":
			if result.Method == "" {
				result.Method = value
			}
		case "Round:":
			if n, err := strconv.Atoi(value); err == nil {
				result.Round = &n
			}
		case "Time:":
			if value != "" {
				result.Time = &value
			}
		case "Details:":
			if result.Details == "" {
				result.Details = value
			}
		}
	})

	// The details label sits directly under its text block rather than
	// inside a text item.
	doc.Find(textBlockSelector).Each(func(_ int, block *goquery.Selection) {
		label := strings.TrimSpace(block.ChildrenFiltered(labelSelector).First().Text())
		if label != "Details:" || result.Details != "" {
			return
		}
		result.Details = collapse(strings.TrimPrefix(collapse(block.Text()), label))
	})

	return result, nil
}

// gradeWinner maps the per-corner status markers to an outcome. Draws and no
// contests are global, not tied to a corner.
func gradeWinner(red, blue string) (domain.Winner, error) {
	switch {
	case red == "W":
		return domain.WinnerRed, nil
	case blue == "W":
		return domain.WinnerBlue, nil
	case red == "D" || blue == "D":
		return domain.WinnerDraw, nil
	case red == "NC" || blue == "NC":
		return domain.WinnerNoContest, nil
	default:
		return "", fmt.Errorf("unrecognized fighter status markers %q/%q", red, blue)
	}
}
