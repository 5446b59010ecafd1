package shipment

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"shipdoc/internal"
	"shipdoc/internal/util"
)

const itemLookahead = 3

var (
	// The line suffix only counts when it follows the SO number on the same
	// line with nothing but blanks in between.
	reSORef    = regexp.MustCompile(`(?:(?i:(?:canoil\s+)?sales\s+order)|\b(?i:so))[ \t]*-?[ \t]*(?:#|(?i:no\.?|number))?[ \t]*:?[ \t]*#?[ \t]*(\d+)(?:[ \t]+(?i:lines?)[ \t]+(?i:items?[ \t]+)?#?(\d+(?:(?:[ \t]*,[ \t]*|[ \t]*&[ \t]*|[ \t]+(?i:and)[ \t]+)\d+)*))?`)
	reDigits   = regexp.MustCompile(`\d+`)
	reQtyAhead = regexp.MustCompile(`^[ \t]+(?i:drums?|pails?|gallons?|containers?|cases?|totes?|kegs?|boxes?|units?)\b`)

	reItem       = regexp.MustCompile(`(?i)(?:^|[\s,;:(])(\d{1,3}(?:,\d{3})+|\d+)\s+(drums?|pails?|gallons?|containers?|cases?|totes?|kegs?|boxes?)\s+of\s+(.+)$`)
	reDescCut    = regexp.MustCompile(`(?i),|;|\s+-\s+|\s+\d[\d,.]*\s*kgs?\b|\b(?:total|net|gross)\s+weight\b|\bweight\b|\bbatch\b|\blot\b`)
	reLineMarker = regexp.MustCompile(`(?i)^\s*line\s+\d+\s*:`)

	reBatch      = regexp.MustCompile(`(?i)\b(?:batch|lot)(?:\s*(?:numbers?|nos?\.?|#))?(?:\s+is)?\s*[:#]?\s*([A-Z0-9][A-Z0-9\-]*(?:\s*\(\d+\))?(?:\s*(?:\+|,|&)\s*[A-Z0-9][A-Z0-9\-]*(?:\s*\(\d+\))?)*)`)
	reBatchSplit = regexp.MustCompile(`\s*(?:\+|,|&)\s*`)
	reBatchQty   = regexp.MustCompile(`\s*\(\d+\)`)

	reKg          = regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)\s*kgs?\b`)
	reWeightWord  = regexp.MustCompile(`(?i)\bweight\b`)
	reTotalWeight = regexp.MustCompile(`(?i)\btotal\s+(?:net\s+|gross\s+)?weight\b[^\n\d]*(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)\s*kgs?\b`)

	rePackDims    = regexp.MustCompile(`(?i)\b(\d+)\s*(pallets?|skids?|cases?|boxes?)\b[^\n\d]{0,40}?(\d{2,3}(?:\.\d+)?)\s*(?:"|in(?:ches)?\.?)?\s*[x×]\s*(\d{2,3}(?:\.\d+)?)(?:\s*(?:"|in(?:ches)?\.?)?\s*[x×]\s*(\d{2,3}(?:\.\d+)?))?`)
	reDimsOnly    = regexp.MustCompile(`(?i)\b(\d{2,3})\s*(?:"|in)?\s*[x×]\s*(\d{2,3})(?:\s*(?:"|in)?\s*[x×]\s*(\d{2,3}))?\b`)
	rePalletCount = regexp.MustCompile(`(?i)\b(\d+)\s*(?:pallets?|skids?)\b`)

	rePO = regexp.MustCompile(`(?i)\b(?:P\.?O\.?|purchase\s+order)\s*(?:#|no\.?|number)?\s*:?\s*#?\s*([A-Z0-9\-/]*\d[A-Z0-9\-/]*)`)
)

var unitNames = map[string]string{
	"DRUM": "DRUM", "DRUMS": "DRUM",
	"PAIL": "PAIL", "PAILS": "PAIL",
	"GALLON": "GALLON", "GALLONS": "GALLON",
	"CONTAINER": "CONTAINER", "CONTAINERS": "CONTAINER",
	"CASE": "CASE", "CASES": "CASE",
	"TOTE": "TOTE", "TOTES": "TOTE",
	"KEG": "KEG", "KEGS": "KEG",
	"BOX": "BOX", "BOXES": "BOX",
	"IBC": "IBC", "IBCS": "IBC",
	"LITER": "LITER", "LITERS": "LITER", "LITRE": "LITER", "LITRES": "LITER",
}

var carriers = []struct {
	name string
	re   *regexp.Regexp
}{
	{"Manitoulin", regexp.MustCompile(`(?i)\bmanitoulin\b`)},
	{"Day & Ross", regexp.MustCompile(`(?i)\bday\s*(?:&|and)\s*ross\b`)},
	{"Purolator", regexp.MustCompile(`(?i)\bpurolator\b`)},
	{"FedEx", regexp.MustCompile(`(?i)\bfed\s*ex\b`)},
	{"UPS", regexp.MustCompile(`\bUPS\b`)},
	{"Canpar", regexp.MustCompile(`(?i)\bcanpar\b`)},
	{"Loomis", regexp.MustCompile(`(?i)\bloomis\b`)},
	{"DHL", regexp.MustCompile(`\bDHL\b`)},
	{"Vitran", regexp.MustCompile(`(?i)\bvitran\b`)},
	{"TST Overland", regexp.MustCompile(`\bTST\b|(?i:\btst\s+overland\b)`)},
	{"Polaris", regexp.MustCompile(`(?i)\bpolaris\b`)},
	{"Customer pickup", regexp.MustCompile(`(?i)\bcustomer\s+(?:will\s+)?pick(?:ing)?\s*-?\s*up\b`)},
}

var kgPrinter = message.NewPrinter(language.English)

// ExtractSONumber returns the first sales order number in text and the line
// numbers written directly after it. Line list markers elsewhere in the body
// are never read as line numbers.
func ExtractSONumber(text string) (string, []int) {
	var loc []int
	for _, m := range reSORef.FindAllStringSubmatchIndex(text, -1) {
		if plainWordSO(text, m) {
			continue
		}
		loc = m
		break
	}
	if loc == nil {
		return "", nil
	}
	so := text[loc[2]:loc[3]]
	if loc[4] < 0 {
		return so, nil
	}
	nums := reDigits.FindAllStringIndex(text[loc[4]:loc[5]], -1)
	// "line 1, 3 drums of ..." lists line 1 and then a quantity.
	if len(nums) > 1 && reQtyAhead.MatchString(text[loc[5]:]) {
		nums = nums[:len(nums)-1]
	}
	tokens := make([]string, 0, len(nums))
	for _, n := range nums {
		tokens = append(tokens, text[loc[4]+n[0]:loc[4]+n[1]])
	}
	return so, uniqueInts(tokens)
}

// plainWordSO rejects a match on the English word "so" ("so 12 drums"). Only
// the upper-case abbreviation may carry a short number.
func plainWordSO(text string, loc []int) bool {
	prefix := text[loc[0]:loc[2]]
	if len(prefix) < 2 || !strings.EqualFold(prefix[:2], "so") || prefix[:2] == "SO" {
		return false
	}
	return loc[3]-loc[2] < 4 || reQtyAhead.MatchString(text[loc[3]:])
}

func uniqueInts(tokens []string) []int {
	seen := map[int]bool{}
	var out []int
	for _, t := range tokens {
		n, err := strconv.Atoi(t)
		if err != nil || n <= 0 || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// scanItems reads "<qty> <unit> of <description>" lines. The batch and
// weight of an item come from the rest of its own line or from the next few
// lines before another item starts.
func scanItems(lines []string) []internal.ShipmentItem {
	var items []internal.ShipmentItem
	for i, line := range lines {
		m := reItem.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		qty, ok := util.ParseInt(m[1])
		if !ok || qty <= 0 {
			continue
		}
		desc, tail := splitDescription(m[3])
		if desc == "" {
			continue
		}
		item := internal.ShipmentItem{
			Description: desc,
			Quantity:    qty,
			Unit:        canonicalUnit(m[2]),
			BatchNumber: findBatch(tail),
			WeightKg:    firstKg(tail),
			SourceLine:  i + 1,
		}

		seen := 0
		for j := i + 1; j < len(lines) && seen < itemLookahead; j++ {
			next := strings.TrimSpace(lines[j])
			if next == "" {
				continue
			}
			if reItem.MatchString(next) || reLineMarker.MatchString(next) {
				break
			}
			seen++
			if item.BatchNumber == "" {
				item.BatchNumber = findBatch(next)
			}
			if item.WeightKg.IsZero() && reWeightWord.MatchString(next) {
				item.WeightKg = firstKg(next)
			}
		}
		items = append(items, item)
	}
	return items
}

func splitDescription(rest string) (string, string) {
	desc, tail := rest, ""
	if loc := reDescCut.FindStringIndex(rest); loc != nil {
		desc, tail = rest[:loc[0]], rest[loc[0]:]
	}
	return strings.TrimRight(strings.TrimSpace(desc), ".:-"), tail
}

func canonicalUnit(u string) string {
	key := strings.ToUpper(strings.TrimSpace(u))
	if name, ok := unitNames[key]; ok {
		return name
	}
	return key
}

func findBatch(s string) string {
	m := reBatch.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	raw := strings.TrimSpace(m[1])
	first := reBatchSplit.Split(raw, 2)[0]
	if !strings.ContainsAny(first, "0123456789") {
		return ""
	}
	return raw
}

func firstKg(s string) decimal.Decimal {
	m := reKg.FindStringSubmatch(s)
	if m == nil {
		return decimal.Zero
	}
	d, ok := util.ParseAmount(m[1])
	if !ok {
		return decimal.Zero
	}
	return d
}

// NormalizeBatches joins batch strings into the plain deduplicated code list
// and the original text with quantity annotations kept.
func NormalizeBatches(raws []string) (codes, full string) {
	var fullParts, codeParts []string
	seenFull := map[string]bool{}
	seenCode := map[string]bool{}
	for _, raw := range raws {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !seenFull[raw] {
			seenFull[raw] = true
			fullParts = append(fullParts, raw)
		}
		for _, part := range reBatchSplit.Split(raw, -1) {
			code := strings.TrimSpace(reBatchQty.ReplaceAllString(part, ""))
			if code == "" || seenCode[code] {
				continue
			}
			seenCode[code] = true
			codeParts = append(codeParts, code)
		}
	}
	return strings.Join(codeParts, " + "), strings.Join(fullParts, " + ")
}

// AggregateWeights renders item weights as "a + b = total kg", or just the
// total when one weight contributes.
func AggregateWeights(weights []decimal.Decimal) (string, decimal.Decimal) {
	total := decimal.Zero
	parts := make([]string, 0, len(weights))
	for _, w := range weights {
		if w.Sign() <= 0 {
			continue
		}
		total = total.Add(w)
		parts = append(parts, formatKg(w))
	}
	switch len(parts) {
	case 0:
		return "", decimal.Zero
	case 1:
		return parts[0], total
	}
	return strings.Join(parts, " + ") + " = " + formatKg(total), total
}

func formatKg(d decimal.Decimal) string {
	if d.IsInteger() {
		return kgPrinter.Sprintf("%d kg", d.IntPart())
	}
	f, _ := d.Round(2).Float64()
	return kgPrinter.Sprintf("%.2f kg", f)
}

func totalWeightMention(text string) decimal.Decimal {
	m := reTotalWeight.FindStringSubmatch(text)
	if m == nil {
		return decimal.Zero
	}
	d, _ := util.ParseAmount(m[1])
	return d
}

type packaging struct {
	count int
	dims  string
	kind  internal.PackagingType
}

// detectPackaging reads the pallet or case count and dimensions. The keyword
// next to the dimensions decides the kind; pallet is the default.
func detectPackaging(text string) packaging {
	if m := rePackDims.FindStringSubmatch(text); m != nil {
		p := packaging{kind: internal.PackagingPallet, dims: joinDims(m[3], m[4], m[5])}
		p.count, _ = strconv.Atoi(m[1])
		if kw := strings.ToLower(m[2]); strings.HasPrefix(kw, "case") || strings.HasPrefix(kw, "box") {
			p.kind = internal.PackagingCase
		}
		return p
	}
	p := packaging{kind: internal.PackagingPallet}
	if m := rePalletCount.FindStringSubmatch(text); m != nil {
		p.count, _ = strconv.Atoi(m[1])
	}
	if m := reDimsOnly.FindStringSubmatch(text); m != nil {
		p.dims = joinDims(m[1], m[2], m[3])
	}
	return p
}

func joinDims(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "x")
}

// skidInfo renders e.g. "2 pallets 48x40 each". Cases are shown as boxes.
func (p packaging) skidInfo() string {
	if p.count == 0 && p.dims == "" {
		return ""
	}
	noun := "pallet"
	if p.kind == internal.PackagingCase {
		noun = "box"
	}
	var s string
	switch {
	case p.count == 0:
		s = noun
	case p.count == 1:
		s = "1 " + noun
	case noun == "box":
		s = fmt.Sprintf("%d boxes", p.count)
	default:
		s = fmt.Sprintf("%d %ss", p.count, noun)
	}
	if p.dims != "" {
		s += " " + p.dims
		if p.count > 1 {
			s += " each"
		}
	}
	return s
}

// detectCarrier returns the carrier mentioned earliest in text.
func detectCarrier(text string) string {
	best, at := "", -1
	for _, c := range carriers {
		loc := c.re.FindStringIndex(text)
		if loc != nil && (at < 0 || loc[0] < at) {
			best, at = c.name, loc[0]
		}
	}
	return best
}

func findPO(text string) string {
	if m := rePO.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

func countLineMarkers(lines []string) int {
	n := 0
	for _, l := range lines {
		if reLineMarker.MatchString(l) {
			n++
		}
	}
	return n
}
