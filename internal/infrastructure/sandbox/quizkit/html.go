package quizkit

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

func Select(html, selector string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	var out []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, normalizeText(s.Text()))
	})
	return out, nil
}

// Tables reads every <table>. Header cells come from thead, or from the
// first row when there is no thead; that row is then not repeated in Rows.
func Tables(html string) ([]*Table, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var tables []*Table
	doc.Find("table").Each(func(_ int, s *goquery.Selection) {
		tables = append(tables, extractTable(s))
	})
	return tables, nil
}

func extractTable(s *goquery.Selection) *Table {
	t := &Table{}

	s.Find("thead tr th").Each(func(_ int, th *goquery.Selection) {
		t.Header = append(t.Header, normalizeText(th.Text()))
	})

	rows := s.Find("tr").Not("thead tr")
	if len(t.Header) == 0 && rows.Length() > 0 {
		first := rows.First()
		first.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			t.Header = append(t.Header, normalizeText(cell.Text()))
		})
		rows = rows.Slice(1, rows.Length())
	}

	rows.Each(func(_ int, tr *goquery.Selection) {
		var row []string
		tr.Find("td,th").Each(func(_ int, cell *goquery.Selection) {
			row = append(row, normalizeText(cell.Text()))
		})
		if len(row) > 0 {
			t.Rows = append(t.Rows, row)
		}
	})
	return t
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
