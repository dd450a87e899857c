package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TableToCSV converts the first <table> of an HTML page into comma separated
// lines (header row first) so the regular extractor can read it. Commas
// inside cells are dropped, so "$75,000" stays a single field.
func TableToCSV(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return "", fmt.Errorf("no table found")
	}

	var b strings.Builder
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			text := strings.Join(strings.Fields(cell.Text()), " ")
			cells = append(cells, strings.ReplaceAll(text, ",", ""))
		})
		if len(cells) == 0 {
			return
		}
		b.WriteString(strings.Join(cells, ","))
		b.WriteByte('\n')
	})
	return b.String(), nil
}
