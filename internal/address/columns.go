package address

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// Word is one positioned token of a page. Top grows downwards.
type Word struct {
	Text string
	X0   float64
	Top  float64
}

// ColumnResult holds the two address columns and the side panel values read
// from the Sold To / Ship To region of a page.
type ColumnResult struct {
	SoldToLines []string
	ShipToLines []string
	BatchNumber string
	MONumber    string
}

func (r ColumnResult) Empty() bool {
	return len(r.SoldToLines) == 0 && len(r.ShipToLines) == 0 && r.BatchNumber == "" && r.MONumber == ""
}

const (
	shipHeaderMinGap  = 100.0
	midpointBias      = 50.0
	sidePanelX        = 400.0
	defaultBlockDepth = 150.0
	lineBucket        = 3.0
)

var (
	reBatchCode = regexp.MustCompile(`WH\d+[A-Z]\d+`)
	reMONumber  = regexp.MustCompile(`^\d{4}$`)
	headerLabel = map[string]bool{"SOLD TO:": true, "SHIP TO:": true, "TO:": true, "SOLD TO": true, "SHIP TO": true, "TO": true}
)

// ExtractColumns splits the Sold To / Ship To block of one page into left and
// right line sequences using word positions. Words far to the right feed the
// batch and MO side panel instead.
func ExtractColumns(words []Word) ColumnResult {
	var res ColumnResult
	sold, ship, ok := findHeaders(words)
	if !ok {
		return res
	}
	headerY := sold.Top
	midpoint := (sold.X0+ship.X0)/2 + midpointBias

	endY := math.Inf(1)
	for _, w := range words {
		up := strings.ToUpper(w.Text)
		if w.Top > headerY+lineBucket && w.Top < endY && (strings.HasPrefix(up, "BUSINESS") || strings.HasPrefix(up, "ITEM")) {
			endY = w.Top
		}
	}
	if math.IsInf(endY, 1) {
		endY = headerY + defaultBlockDepth
	}

	left := map[float64][]Word{}
	right := map[float64][]Word{}
	var side []Word
	for _, w := range words {
		if w.Top <= headerY || w.Top >= endY {
			continue
		}
		if w.X0 > sidePanelX {
			side = append(side, w)
			continue
		}
		key := math.Round(w.Top/lineBucket) * lineBucket
		if w.X0 < midpoint {
			left[key] = append(left[key], w)
		} else {
			right[key] = append(right[key], w)
		}
	}

	res.SoldToLines = joinBuckets(left, false)
	res.ShipToLines = joinBuckets(right, true)
	res.BatchNumber, res.MONumber = readSidePanel(side)
	return res
}

func findHeaders(words []Word) (Word, Word, bool) {
	var sold Word
	found := false
	for _, w := range words {
		if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(w.Text)), "SOLD") {
			sold, found = w, true
			break
		}
	}
	if !found {
		return Word{}, Word{}, false
	}

	var ship Word
	shipFound := false
	for _, w := range words {
		if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(w.Text)), "SHIP") || w.X0 < sold.X0+shipHeaderMinGap {
			continue
		}
		sameRow := math.Abs(w.Top-sold.Top) <= lineBucket
		if !shipFound || sameRow {
			ship, shipFound = w, true
		}
		if sameRow {
			break
		}
	}
	return sold, ship, shipFound
}

func joinBuckets(buckets map[float64][]Word, rightColumn bool) []string {
	keys := make([]float64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Float64s(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		ws := buckets[k]
		sort.SliceStable(ws, func(i, j int) bool { return ws[i].X0 < ws[j].X0 })
		parts := make([]string, 0, len(ws))
		for _, w := range ws {
			if t := strings.TrimSpace(w.Text); t != "" {
				parts = append(parts, t)
			}
		}
		line := strings.Join(parts, " ")
		up := strings.ToUpper(line)
		if line == "" || headerLabel[up] {
			continue
		}
		if rightColumn && (strings.HasPrefix(up, "MO ") || strings.Contains(up, "BATCH")) {
			continue
		}
		out = append(out, line)
	}
	return out
}

func readSidePanel(side []Word) (batch, mo string) {
	sort.SliceStable(side, func(i, j int) bool {
		if math.Abs(side[i].Top-side[j].Top) > lineBucket {
			return side[i].Top < side[j].Top
		}
		return side[i].X0 < side[j].X0
	})
	for i, w := range side {
		t := strings.TrimSpace(w.Text)
		if batch == "" {
			if m := reBatchCode.FindString(t); m != "" {
				batch = m
			}
		}
		if mo == "" && i+1 < len(side) {
			label := strings.TrimRight(strings.ToUpper(t), "#:")
			next := strings.Trim(strings.TrimSpace(side[i+1].Text), "#:")
			if label == "MO" && reMONumber.MatchString(next) {
				mo = next
			}
		}
	}
	return batch, mo
}
