package extract

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tableHeader = "<tr><th>Name</th><th>Value</th></tr>"

func buildTable(rows int) string {
	var b strings.Builder
	b.WriteString("<table>")
	b.WriteString(tableHeader)
	for i := 1; i <= rows; i++ {
		fmt.Fprintf(&b, "<tr><td>row-%02d</td><td>%d</td></tr>", i, i*10)
	}
	b.WriteString("</table>")
	return b.String()
}

func TestNeedsSplit(t *testing.T) {
	assert.False(t, NeedsSplit(buildTable(3)))
	assert.True(t, NeedsSplit(buildTable(60)))
	assert.False(t, NeedsSplit(strings.Repeat("x", 3000)), "no rows")
}

func TestSplitTable_PreservesRowsAndHeader(t *testing.T) {
	table := buildTable(60)
	require.Greater(t, len(table), tableSplitThreshold)

	chunks := SplitTable(table, tableChunkSize)
	require.Greater(t, len(chunks), 1)

	seen := 0
	for _, c := range chunks {
		assert.True(t, strings.HasPrefix(c, "<table>"+tableHeader), "each chunk repeats the header")
		assert.True(t, strings.HasSuffix(c, "</table>"))
		assert.LessOrEqual(t, len(c)-len("<table></table>"), tableChunkSize)
		seen += strings.Count(c, "row-")
	}
	assert.Equal(t, 60, seen, "every row appears exactly once")

	for i := 1; i <= 60; i++ {
		row := fmt.Sprintf("<tr><td>row-%02d</td><td>%d</td></tr>", i, i*10)
		found := 0
		for _, c := range chunks {
			found += strings.Count(c, row)
		}
		assert.Equal(t, 1, found, "row %d intact", i)
	}
}

func TestSplitTable_OversizedRowStandsAlone(t *testing.T) {
	big := "<tr><td>" + strings.Repeat("y", 200) + "</td></tr>"
	table := "<table>" + tableHeader + big + "<tr><td>small</td></tr></table>"

	chunks := SplitTable(table, 100)
	require.Len(t, chunks, 2)
	assert.Contains(t, chunks[0], big)
	assert.Contains(t, chunks[1], "small")
}

func TestSplitTable_NoRows(t *testing.T) {
	assert.Equal(t, []string{"<table></table>"}, SplitTable("<table></table>", 100))
}

func TestSplitTable_PreservesCase(t *testing.T) {
	table := "<TABLE><TR><TH>H</TH></TR><TR><TD>a</TD></TR><TR><TD>b</TD></TR></TABLE>"
	chunks := SplitTable(table, 1)
	require.Len(t, chunks, 2)
	assert.Equal(t, "<table><TR><TH>H</TH></TR><TR><TD>a</TD></TR></table>", chunks[0])
}
