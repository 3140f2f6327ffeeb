package extract

import (
	"strings"

	"golang.org/x/net/html"
)

const (
	tableSplitThreshold = 2000
	tableChunkSize      = 1500
)

// NeedsSplit reports whether an HTML table is large enough to be split into
// row-preserving sub-chunks.
func NeedsSplit(table string) bool {
	return len(table) > tableSplitThreshold && strings.Contains(strings.ToLower(table), "<tr")
}

// SplitTable splits an HTML table into sub-tables of at most maxSize bytes of
// row markup each. The first row is treated as the header and repeated at the
// top of every sub-table. Rows are never broken; a single row larger than
// maxSize becomes its own sub-table. A table without rows is returned as is.
func SplitTable(table string, maxSize int) []string {
	rows := tableRows(table)
	if len(rows) <= 1 {
		return []string{table}
	}

	header := rows[0]
	var chunks []string
	current := header
	for _, row := range rows[1:] {
		if len(current)+len(row) > maxSize && current != header {
			chunks = append(chunks, "<table>"+current+"</table>")
			current = header
		}
		current += row
	}
	return append(chunks, "<table>"+current+"</table>")
}

// tableRows returns the raw markup of each top-level <tr> element, in order.
func tableRows(src string) []string {
	z := html.NewTokenizer(strings.NewReader(src))

	var (
		rows  []string
		cur   strings.Builder
		depth int
	)
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return rows
		}
		// Raw must be copied before TagName, which lower-cases in place.
		raw := string(z.Raw())

		switch tt {
		case html.StartTagToken:
			name, _ := z.TagName()
			if string(name) == "tr" {
				if depth == 0 {
					cur.Reset()
				}
				depth++
			}
			if depth > 0 {
				cur.WriteString(raw)
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if depth > 0 {
				cur.WriteString(raw)
			}
			if string(name) == "tr" && depth > 0 {
				depth--
				if depth == 0 {
					rows = append(rows, cur.String())
				}
			}
		default:
			if depth > 0 {
				cur.WriteString(raw)
			}
		}
	}
}
