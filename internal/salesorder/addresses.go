package salesorder

import (
	"context"
	"regexp"
	"strings"

	"shipdoc/internal"
	"shipdoc/internal/address"
)

var (
	reMarker      = regexp.MustCompile(`(?i)sold\s*to\s*:.*ship\s*to\s*:`)
	reShipLabelAt = regexp.MustCompile(`(?i)ship\s*to\s*:`)
	reMergedSplit = regexp.MustCompile(`\s{2,}|\s*·\s*`)
	rePickup      = regexp.MustCompile(`(?i)\bpick\s*-?\s*up\b`)
	rePickupOnly  = regexp.MustCompile(`(?i)^[\s\-–(]*(?:customer\s+)?pick\s*-?\s*up[\s)\-.!]*(?:order)?[\s.]*$`)
	reContactLine = regexp.MustCompile(`(?i)^\s*(?:attn|attention|c/o|contact)\s*[:.]?\s*(.+)$`)
	reEmailAddr   = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	rePhoneAddr   = regexp.MustCompile(`(?:\+?1[\s.\-]?)?\(?\b\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}\b`)

	windowStops = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bbusiness\s+no\b`),
		regexp.MustCompile(`(?i)\bitem\s+no\b`),
	}
	windowFilters = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*MO\b|\bMO\s*#?\s*:?\s*\d{4}\b`),
		regexp.MustCompile(`(?i)^\s*line\s+\d+\s*:`),
		regexp.MustCompile(`(?i)\b(?:sub\s*total|total|tax|hst|gst|amount)\b.*\d+\.\d{2}`),
		regexp.MustCompile(`(?i)\$\s*\d`),
		regexp.MustCompile(`(?i)\b\d+\s+(?:drums?|pails?|cases?|gallons?|totes?|kegs?|cartons?|bottles?)\b`),
		regexp.MustCompile(`(?i)^\s*(?:sold|ship)\s*to\s*:?\s*$`),
		regexp.MustCompile(`(?i)\b(?:order|ship)\s+date\b|\bterms\s*:|\bP\.?O\.?\s*(?:#|no\.?)?\s*:`),
	}
)

// inlineBlock is the address block read from the text under the
// "Sold To: ... Ship To:" marker line.
type inlineBlock struct {
	found bool
	sold  []string
	ship  []string
}

// findInlineBlock looks for the marker in the layout text first, where both
// columns share a line, then in the plain text.
func findInlineBlock(layoutLines, plainLines []string, window int) inlineBlock {
	for _, lines := range [][]string{layoutLines, plainLines} {
		for i, line := range lines {
			if !reMarker.MatchString(line) {
				continue
			}
			shipCol := -1
			if loc := reShipLabelAt.FindStringIndex(line); loc != nil {
				shipCol = len([]rune(line[:loc[0]]))
			}
			end := i + 1 + window
			if end > len(lines) {
				end = len(lines)
			}
			b := inlineBlock{found: true}
			b.sold, b.ship = splitColumns(filterWindow(lines[i+1:end]), shipCol)
			return b
		}
	}
	return inlineBlock{}
}

func filterWindow(lines []string) []string {
	out := make([]string, 0, len(lines))
	prev := ""
outer:
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		for _, re := range windowStops {
			if re.MatchString(trimmed) {
				break outer
			}
		}
		for _, re := range windowFilters {
			if re.MatchString(trimmed) {
				continue outer
			}
		}
		if trimmed == prev {
			continue
		}
		prev = trimmed
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return out
}

// splitColumns separates merged two-column lines. Runs split on two or more
// spaces or a middle dot; a line whose word sequence repeats itself is
// halved. A single run that starts at or beyond the ship column belongs to
// the ship-to side; other unsplittable lines go to sold-to.
func splitColumns(lines []string, shipCol int) (sold, ship []string) {
	for _, line := range lines {
		indent := len([]rune(line)) - len([]rune(strings.TrimLeft(line, " ")))
		trimmed := strings.TrimSpace(line)

		runs := nonEmpty(reMergedSplit.Split(trimmed, -1))
		switch {
		case len(runs) >= 2:
			sold = append(sold, runs[0])
			ship = append(ship, strings.Join(runs[1:], " "))
		case shipCol > 0 && indent >= shipCol-2:
			ship = append(ship, trimmed)
		default:
			if l, r, ok := halves(trimmed); ok {
				sold = append(sold, l)
				ship = append(ship, r)
			} else {
				sold = append(sold, trimmed)
			}
		}
	}
	return sold, ship
}

func halves(line string) (string, string, bool) {
	words := strings.Fields(line)
	if len(words) < 2 || len(words)%2 != 0 {
		return "", "", false
	}
	n := len(words) / 2
	left := strings.Join(words[:n], " ")
	right := strings.Join(words[n:], " ")
	if left != right {
		return "", "", false
	}
	return left, right, true
}

func nonEmpty(parts []string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// chooseLines prefers the side channel column when it is non-empty and at
// least as long as the inline text.
func chooseLines(side, inline []string) []string {
	if len(side) > 0 && len(strings.Join(side, "\n")) >= len(strings.Join(inline, "\n")) {
		return side
	}
	return inline
}

// stripPickup removes pickup instructions from ship-to lines and reports
// whether any were present.
func stripPickup(lines []string) ([]string, bool) {
	found := false
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if !rePickup.MatchString(l) {
			out = append(out, l)
			continue
		}
		found = true
		if rePickupOnly.MatchString(l) {
			continue
		}
		cleaned := strings.TrimSpace(rePickup.ReplaceAllString(address.Clean(l), ""))
		cleaned = strings.Trim(cleaned, " -–,()")
		if cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out, found
}

// buildAddress turns column lines into an Address. The first line is the
// company; contact, phone and email lines are lifted out before the rest is
// decomposed.
func (p *Parser) buildAddress(ctx context.Context, lines []string) (internal.Address, string) {
	var a internal.Address
	if len(lines) == 0 {
		return a, ""
	}
	a.CompanyName = strings.TrimSpace(address.Clean(lines[0]))
	if a.CompanyName == "" {
		a.CompanyName = strings.TrimSpace(lines[0])
	}

	rest := make([]string, 0, len(lines)-1)
	for _, l := range lines[1:] {
		if a.Phone == "" {
			a.Phone = rePhoneAddr.FindString(l)
		}
		if a.Email == "" {
			a.Email = reEmailAddr.FindString(l)
		}
		l = strings.TrimSpace(reEmailAddr.ReplaceAllString(l, ""))
		if m := reContactLine.FindStringSubmatch(l); m != nil {
			if a.ContactPerson == "" {
				a.ContactPerson = strings.TrimSpace(address.Clean(m[1]))
			}
			continue
		}
		if l != "" {
			rest = append(rest, l)
		}
	}

	raw := address.Clean(strings.Join(rest, "\n"))
	a.AddressRaw = raw
	if raw == "" {
		return a, ""
	}
	fields, strategy := p.addresses.Parse(ctx, raw, a.ContactPerson)
	a.Street = fields.Street
	a.City = fields.City
	a.Province = fields.Province
	a.PostalCode = fields.PostalCode
	a.Country = fields.Country
	return a, strategy
}
