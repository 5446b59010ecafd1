package shipment

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reCompanyLabel  = regexp.MustCompile(`(?im)^\s*(?:customer|company|client|consignee)(?:\s+name)?\s*:\s*(.+)$`)
	rePurchaseOrder = regexp.MustCompile(`(?i)\bpurchase\s+order\b`)
	reNonAlnum      = regexp.MustCompile(`[^A-Z0-9]+`)
)

var legalSuffixes = map[string]bool{
	"LTD": true, "LIMITED": true, "INC": true, "INCORPORATED": true, "CORP": true,
	"CORPORATION": true, "CO": true, "LLC": true, "LTEE": true, "LTÉE": true,
}

var leadingFiller = map[string]bool{
	"PLEASE": true, "ATTACHED": true, "FIND": true, "SEE": true, "HERE": true,
	"THE": true, "OUR": true, "YOUR": true, "A": true, "AN": true, "NEW": true,
	"RE": true, "FW": true, "FWD": true, "HI": true, "HELLO": true, "FOR": true,
	"FROM": true, "THIS": true, "IS": true, "AND": true,
}

// IsShipperName reports whether name refers to the shipping company itself.
// Legal suffixes and punctuation are ignored.
func IsShipperName(name, shipper string) bool {
	n, s := companyCore(name), companyCore(shipper)
	if n == "" || s == "" {
		return false
	}
	return strings.Contains(" "+s+" ", " "+n+" ") || strings.Contains(" "+n+" ", " "+s+" ")
}

func companyCore(name string) string {
	words := strings.Fields(reNonAlnum.ReplaceAllString(strings.ToUpper(name), " "))
	out := words[:0]
	for _, w := range words {
		if !legalSuffixes[w] {
			out = append(out, w)
		}
	}
	return strings.Join(out, " ")
}

// findCompany looks for a labelled customer line, then for the name written
// in front of "purchase order". The shipper's own name is never returned.
func findCompany(text, shipper string) string {
	for _, m := range reCompanyLabel.FindAllStringSubmatch(text, -1) {
		name := strings.Trim(strings.TrimSpace(m[1]), ".,;")
		if name != "" && !IsShipperName(name, shipper) {
			return name
		}
	}
	return companyBeforePurchaseOrder(text, shipper)
}

func companyBeforePurchaseOrder(text, shipper string) string {
	for _, line := range strings.Split(text, "\n") {
		loc := rePurchaseOrder.FindStringIndex(line)
		if loc == nil {
			continue
		}
		name := trailingProperName(line[:loc[0]])
		if name != "" && !IsShipperName(name, shipper) {
			return name
		}
	}
	return ""
}

// trailingProperName returns the run of capitalised words at the end of s,
// without leading filler words.
func trailingProperName(s string) string {
	tokens := strings.Fields(s)
	if len(tokens) == 0 {
		return ""
	}
	last := tokens[len(tokens)-1]
	for _, suffix := range []string{"'s", "’s", "'S"} {
		last = strings.TrimSuffix(last, suffix)
	}
	tokens[len(tokens)-1] = last

	start := len(tokens)
	for i := len(tokens) - 1; i >= 0; i-- {
		tok := tokens[i]
		if i < len(tokens)-1 && strings.ContainsAny(tok[len(tok)-1:], ",:;") {
			break
		}
		if tok != "&" && !properToken(tok) {
			break
		}
		start = i
	}
	run := tokens[start:]
	for len(run) > 0 && (leadingFiller[strings.ToUpper(strings.Trim(run[0], ",.:"))] || run[0] == "&") {
		run = run[1:]
	}
	return strings.Trim(strings.Join(run, " "), " ,.;:-")
}

func properToken(tok string) bool {
	hasLetter := false
	for _, r := range tok {
		if unicode.IsLetter(r) {
			hasLetter = true
			break
		}
	}
	if !hasLetter {
		return false
	}
	first := []rune(tok)[0]
	return unicode.IsUpper(first) || unicode.IsDigit(first)
}
