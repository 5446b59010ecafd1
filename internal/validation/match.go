package validation

import (
	"strings"

	"shipdoc/internal"
	"shipdoc/internal/util"
)

const (
	MethodSubstring    = "substring"
	MethodFamily       = "family"
	MethodAbbreviation = "abbreviation"
	MethodCode         = "code"

	minCodeLength  = 4
	maxCodeHamming = 2
)

// candidate is a product line of the order with its 1-based position among
// product lines.
type candidate struct {
	position int
	item     internal.LineItem
}

// productLines numbers the order's product lines, skipping charges.
func productLines(order internal.SalesOrder, rules Rules) []candidate {
	var out []candidate
	for _, it := range order.Items {
		if rules.IsCharge(it) {
			continue
		}
		out = append(out, candidate{position: len(out) + 1, item: it})
	}
	return out
}

type matcher func(rules Rules, email internal.ShipmentItem, so internal.LineItem) bool

var matchers = []struct {
	method string
	fn     matcher
}{
	{MethodSubstring, matchSubstring},
	{MethodFamily, matchFamily},
	{MethodAbbreviation, matchAbbreviation},
	{MethodCode, matchCode},
}

// matchItem finds the order line for an email item. Methods are tried in a
// fixed order and lines not matched yet are preferred within a method.
func matchItem(rules Rules, email internal.ShipmentItem, cands []candidate, used map[int]bool) (int, string) {
	for _, m := range matchers {
		for _, wantUsed := range []bool{false, true} {
			for i, c := range cands {
				if used[c.position] != wantUsed {
					continue
				}
				if familyConflict(rules, email.Description, c.item.Description) {
					continue
				}
				if m.fn(rules, email, c.item) {
					return i, m.method
				}
			}
		}
	}
	return -1, ""
}

// familyConflict reports two descriptions of one product family with
// different variant numbers.
func familyConflict(rules Rules, a, b string) bool {
	for _, f := range rules.Families {
		_, na, okA := familyNumber(a, f.Token)
		_, nb, okB := familyNumber(b, f.Token)
		if okA && okB && na != nb {
			return true
		}
	}
	return false
}

func matchSubstring(_ Rules, email internal.ShipmentItem, so internal.LineItem) bool {
	e := util.NormalizeDescription(email.Description)
	s := util.NormalizeDescription(so.Description)
	if len(e) < 3 || len(s) < 3 {
		return false
	}
	return strings.Contains(s, e) || strings.Contains(e, s)
}

func matchFamily(rules Rules, email internal.ShipmentItem, so internal.LineItem) bool {
	for _, f := range rules.Families {
		va, na, okA := familyNumber(email.Description, f.Token)
		vb, nb, okB := familyNumber(so.Description, f.Token)
		if !okA || !okB || na == "" || na != nb {
			continue
		}
		if len(va) == 0 || len(vb) == 0 || strings.Join(va, " ") == strings.Join(vb, " ") {
			return true
		}
	}
	return false
}

func matchAbbreviation(rules Rules, email internal.ShipmentItem, so internal.LineItem) bool {
	for _, a := range rules.Abbreviations {
		if !util.ContainsWord(email.Description, a) || !util.ContainsWord(so.Description, a) {
			continue
		}
		ne, ns := util.Numbers(email.Description), util.Numbers(so.Description)
		if len(ne) == 0 || len(ns) == 0 || intersects(ne, ns) {
			return true
		}
	}
	return false
}

func matchCode(_ Rules, email internal.ShipmentItem, so internal.LineItem) bool {
	code := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(so.ItemCode)), " ", "")
	if len(code) < minCodeLength {
		return false
	}
	for _, tok := range util.Tokenize(email.Description) {
		if len(tok) < minCodeLength {
			continue
		}
		if strings.Contains(tok, code) || strings.Contains(code, tok) {
			return true
		}
		if !util.LooksLikeCode(tok) {
			continue
		}
		if d := util.Hamming(tok, code); d >= 0 && d <= maxCodeHamming {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, x := range a {
		set[x] = true
	}
	for _, y := range b {
		if set[y] {
			return true
		}
	}
	return false
}
