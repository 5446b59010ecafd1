package salesorder

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"shipdoc/internal"
	"shipdoc/internal/util"
)

// units is ordered longest first so GALLONS wins over GAL.
var units = []struct {
	token string
	unit  string
}{
	{"GALLONS", "GALLON"}, {"CARTONS", "CARTON"}, {"BOTTLES", "BOTTLE"},
	{"GALLON", "GALLON"}, {"CARTON", "CARTON"}, {"BOTTLE", "BOTTLE"},
	{"LITRES", "LITER"}, {"LITERS", "LITER"}, {"LITRE", "LITER"}, {"LITER", "LITER"},
	{"DRUMS", "DRUM"}, {"PAILS", "PAIL"}, {"CASES", "CASE"}, {"TOTES", "TOTE"},
	{"TUBES", "TUBE"}, {"BOXES", "BOX"}, {"DRUM", "DRUM"}, {"PAIL", "PAIL"},
	{"CASE", "CASE"}, {"TOTE", "TOTE"}, {"TUBE", "TUBE"}, {"KEGS", "KEG"},
	{"EACH", "EACH"}, {"BOX", "BOX"}, {"KEG", "KEG"}, {"IBC", "IBC"},
	{"PCS", "EACH"}, {"GAL", "GALLON"}, {"EA", "EACH"}, {"KG", "KG"}, {"LB", "LB"},
}

var (
	reQtyToken   = regexp.MustCompile(`^(?:\d{1,3}(?:,\d{3})+|\d+)$`)
	rePriceToken = regexp.MustCompile(`^(?:(?:US|CDN)?\$[\d,]+(?:\.\d+)?|\d{1,3}(?:,\d{3})*\.\d{2,}|\d+\.\d{2,})$`)
	rePricePair  = regexp.MustCompile(`(?:(?:US|CDN)?\$\s*)?(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+\.\d+)\s+(?:(?:US|CDN)?\$\s*)?(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+\.\d+)`)
	reDecimal    = regexp.MustCompile(`\d{1,3}(?:,\d{3})+\.\d+|\d+\.\d+`)
	reItemHeader = regexp.MustCompile(`(?i)\b(?:item\s+no|description)\b.*\b(?:qty|quantity|ordered|unit|price|amount)\b|\b(?:qty|ordered)\b.*\bdescription\b`)
	reChargeWord = regexp.MustCompile(`(?i)^(?:pallets?|freight|brokerage)\b`)
)

// ParseItems tokenizes product lines: an optional item code, a whole number
// quantity directly followed by a unit word, a description, then unit price
// and amount.
func ParseItems(lines []string) []internal.LineItem {
	var out []internal.LineItem
	for _, line := range lines {
		if reItemHeader.MatchString(line) {
			continue
		}
		item, ok := parseItemLine(line)
		if !ok || isChargeItem(item) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func parseItemLine(line string) (internal.LineItem, bool) {
	tokens := strings.Fields(line)
	unitAt := -1
	unit := ""
	for j := 1; j < len(tokens); j++ {
		if !reQtyToken.MatchString(tokens[j-1]) {
			continue
		}
		if u, ok := lookupUnit(tokens[j]); ok {
			unitAt, unit = j, u
			break
		}
	}
	if unitAt < 0 {
		return internal.LineItem{}, false
	}
	qty, ok := util.ParseInt(tokens[unitAt-1])
	if !ok {
		return internal.LineItem{}, false
	}

	item := internal.LineItem{
		ItemCode: strings.Join(tokens[:unitAt-1], " "),
		Quantity: qty,
		Unit:     unit,
	}

	rest := tokens[unitAt+1:]
	desc := make([]string, 0, len(rest))
	priceAt := len(rest)
	for i, tok := range rest {
		if rePriceToken.MatchString(tok) {
			priceAt = i
			break
		}
		desc = append(desc, tok)
	}
	item.Description = strings.Join(desc, " ")
	item.UnitPrice, item.Amount = parsePrices(strings.Join(rest[priceAt:], " "), qty)
	return item, true
}

func lookupUnit(token string) (string, bool) {
	t := strings.ToUpper(strings.TrimRight(token, ".,"))
	for _, u := range units {
		if t == u.token {
			return u.unit, true
		}
	}
	return "", false
}

// parsePrices reads the first unit price / amount pair, then falls back to
// the last two decimals, then to a single amount with the unit price
// derived from the quantity.
func parsePrices(tail string, qty int) (decimal.Decimal, decimal.Decimal) {
	if m := rePricePair.FindStringSubmatch(tail); m != nil {
		price, _ := util.ParseAmount(m[1])
		amount, _ := util.ParseAmount(m[2])
		return price, amount
	}
	nums := reDecimal.FindAllString(tail, -1)
	switch {
	case len(nums) >= 2:
		price, _ := util.ParseAmount(nums[len(nums)-2])
		amount, _ := util.ParseAmount(nums[len(nums)-1])
		return price, amount
	case len(nums) == 1:
		amount, _ := util.ParseAmount(nums[0])
		if qty <= 0 {
			return decimal.Zero, amount
		}
		return amount.Div(decimal.NewFromInt(int64(qty))).Round(2), amount
	}
	return decimal.Zero, decimal.Zero
}

// isChargeItem reports pallet, freight and brokerage charge lines.
func isChargeItem(item internal.LineItem) bool {
	return reChargeWord.MatchString(item.ItemCode) || reChargeWord.MatchString(item.Description)
}
