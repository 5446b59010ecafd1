package address

import (
	"regexp"
	"strings"
)

var (
	reSoldToLabel = regexp.MustCompile(`(?i)\bsold\s*to\s*:?`)
	reShipToLabel = regexp.MustCompile(`(?i)\bship\s*to\s*:?`)
	reTableStop   = regexp.MustCompile(`(?i)\b(?:ITEM|ORDERED|BUSINESS\s+NO|QTY|UNIT\s+PRICE|AMOUNT|DESCRIPTION)\b`)
)

// FromTables reads the Sold To / Ship To block from native table cells.
// Each table is a list of rows and each row a list of cell texts.
func FromTables(tables [][][]string) ColumnResult {
	for _, table := range tables {
		start := -1
		for i, row := range table {
			if reSoldToLabel.MatchString(strings.Join(row, " ")) {
				start = i
				break
			}
		}
		if start < 0 {
			continue
		}

		var res ColumnResult
		for i := start; i < len(table); i++ {
			row := table[i]
			joined := strings.Join(row, " ")
			if i > start && reTableStop.MatchString(joined) {
				break
			}
			cells := nonEmptyCells(row)
			if len(cells) == 0 {
				continue
			}
			res.SoldToLines = append(res.SoldToLines, cellLines(cells[0])...)
			if len(cells) > 1 {
				res.ShipToLines = append(res.ShipToLines, cellLines(cells[len(cells)-1])...)
			}
		}
		if !res.Empty() {
			return res
		}
	}
	return ColumnResult{}
}

func nonEmptyCells(row []string) []string {
	out := make([]string, 0, len(row))
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out
}

// cellLines strips header labels from a cell and splits it into lines.
func cellLines(cell string) []string {
	cell = reSoldToLabel.ReplaceAllString(cell, "")
	cell = reShipToLabel.ReplaceAllString(cell, "")
	var out []string
	for _, l := range strings.Split(cell, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
