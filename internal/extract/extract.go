// Package extract turns result rows into course codes.
package extract

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Separator ends the course code within a result row heading.
const Separator = "-"

var nbspReplacer = strings.NewReplacer("\u00a0", " ", "\u202f", " ")

// CourseCode derives the code from one raw row: non-breaking spaces become spaces, the
// text before the first separator is kept and trimmed. Inner whitespace runs collapse
// to one space.
func CourseCode(raw string) string {
	s := nbspReplacer.Replace(raw)
	if i := strings.Index(s, Separator); i >= 0 {
		s = s[:i]
	}
	return strings.Join(strings.Fields(s), " ")
}

// Codes extracts the codes of rows in order. Blank codes are dropped and repeats keep
// their first position.
func Codes(rows []string) []string {
	seen := make(map[string]bool, len(rows))
	codes := make([]string, 0, len(rows))
	for _, row := range rows {
		code := CourseCode(row)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}
	return codes
}

// RowsFromHTML returns the text of every element matching rowSelector in an HTML
// document, for result pages saved to disk.
func RowsFromHTML(r io.Reader, rowSelector string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse result page: %w", err)
	}
	var rows []string
	doc.Find(rowSelector).Each(func(_ int, s *goquery.Selection) {
		rows = append(rows, s.Text())
	})
	return rows, nil
}
