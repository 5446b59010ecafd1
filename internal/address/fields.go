package address

import (
	"regexp"
	"strings"
)

// Fields is the decomposition of one address block.
type Fields struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

var (
	reCAPostal      = regexp.MustCompile(`\b([A-Z]\d[A-Z])\s?(\d[A-Z]\d)\b`)
	reUSZip         = regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b`)
	reCountryToken  = regexp.MustCompile(`(?im)(?:^|[\s,])(U\.S\.A\.?|USA|UNITED STATES(?: OF AMERICA)?|CANADA)(?:\s*(?:,|$|[A-Z]\d[A-Z]|\d{5}))`)
	reCountryStrip  = regexp.MustCompile(`(?im)(^|[\s,])(?:U\.S\.A\.?|USA|UNITED STATES(?: OF AMERICA)?|CANADA)(\s*(?:,|$))`)
	reBareRegion    = regexp.MustCompile(`\b[A-Z]{2}\b`)
	reCitySuffix    = regexp.MustCompile(`(?i)^\s+city\b`)
	reLineRemainder = regexp.MustCompile(`^[\s,.;]*$`)
)

// ParseFields decomposes an address block (street lines, city line) into its
// parts. contact, when it appears verbatim in the street text, is removed.
func ParseFields(raw, contact string) Fields {
	work := Clean(raw)
	if work == "" {
		return Fields{}
	}
	original := work
	var f Fields

	if postal, rest, ok := takeCanadianPostal(work); ok {
		f.PostalCode, f.Country, work = postal, CountryCanada, rest
	} else if zip, rest, ok := takeUSZip(work); ok {
		f.PostalCode, f.Country, work = zip, CountryUSA, rest
	}

	if m := reCountryToken.FindAllStringSubmatch(original, -1); len(m) > 0 {
		f.Country = countryName(m[len(m)-1][1])
		work = reCountryStrip.ReplaceAllString(work, "${1}${2}")
	}

	if code, rest, ok := takeRegionName(work); ok {
		f.Province, work = code, rest
	} else if code, rest, ok := takeRegionCode(work); ok {
		f.Province, work = code, rest
	}
	if f.Country == "" && f.Province != "" {
		f.Country, _ = RegionCountry(f.Province)
	}

	segments := splitSegments(work)
	if len(segments) == 0 {
		return f
	}
	f.City = segments[len(segments)-1]
	street := strings.Join(segments[:len(segments)-1], ", ")
	if c := strings.TrimSpace(contact); c != "" && strings.Contains(street, c) {
		street = tidy(strings.ReplaceAll(street, c, ""))
	}
	f.Street = street
	return f
}

// Join renders fields back into a single line.
func (f Fields) Join() string {
	parts := make([]string, 0, 3)
	if f.Street != "" {
		parts = append(parts, f.Street)
	}
	if f.City != "" {
		parts = append(parts, f.City)
	}
	tail := strings.TrimSpace(f.Province + " " + f.PostalCode)
	if tail != "" {
		parts = append(parts, tail)
	}
	return strings.Join(parts, ", ")
}

func takeCanadianPostal(work string) (string, string, bool) {
	idx := reCAPostal.FindAllStringSubmatchIndex(work, -1)
	if len(idx) == 0 {
		return "", work, false
	}
	m := idx[len(idx)-1]
	postal := work[m[2]:m[3]] + " " + work[m[4]:m[5]]
	return postal, work[:m[0]] + work[m[1]:], true
}

// takeUSZip accepts a five digit run only when nothing but punctuation or a
// country name follows it on its line, so street numbers are left alone.
func takeUSZip(work string) (string, string, bool) {
	idx := reUSZip.FindAllStringIndex(work, -1)
	for i := len(idx) - 1; i >= 0; i-- {
		m := idx[i]
		rest := work[m[1]:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[:nl]
		}
		rest = reCountryStrip.ReplaceAllString(rest, "${1}${2}")
		if !reLineRemainder.MatchString(rest) {
			continue
		}
		return work[m[0]:m[1]], work[:m[0]] + work[m[1]:], true
	}
	return "", work, false
}

func countryName(token string) string {
	if strings.EqualFold(token, "canada") {
		return CountryCanada
	}
	return CountryUSA
}

// takeRegionName finds the full province or state name closest to the end of
// the block. A name followed by "City" is a city, and a name followed later
// by a bare region code is treated as street or city text.
func takeRegionName(work string) (string, string, bool) {
	bestStart, bestEnd := -1, -1
	var best regionName
	for _, r := range regionNames {
		all := r.re.FindAllStringSubmatchIndex(work, -1)
		for i := len(all) - 1; i >= 0; i-- {
			s, e := all[i][2], all[i][3]
			if reCitySuffix.MatchString(work[e:]) {
				continue
			}
			if e > bestEnd || (e == bestEnd && s < bestStart) {
				bestStart, bestEnd, best = s, e, r
			}
			break
		}
	}
	if bestStart < 0 {
		return "", work, false
	}
	if _, _, later := takeRegionCode(work[bestEnd:]); later {
		return "", work, false
	}
	return best.code, work[:bestStart] + work[bestEnd:], true
}

// takeRegionCode scans the last two segments from the end for an upper-case
// two letter token that is a known province or state code.
func takeRegionCode(work string) (string, string, bool) {
	bounds := segmentBounds(work)
	seen := 0
	for i := len(bounds) - 1; i >= 0 && seen < 2; i-- {
		s, e := bounds[i][0], bounds[i][1]
		if strings.TrimSpace(work[s:e]) == "" {
			continue
		}
		seen++
		matches := reBareRegion.FindAllStringIndex(work[s:e], -1)
		for j := len(matches) - 1; j >= 0; j-- {
			ms, me := s+matches[j][0], s+matches[j][1]
			if _, ok := regionCodes[work[ms:me]]; ok {
				return work[ms:me], work[:ms] + work[me:], true
			}
		}
	}
	return "", work, false
}

// segmentBounds returns [start,end) offsets of comma or newline separated
// segments.
func segmentBounds(s string) [][2]int {
	var out [][2]int
	start := 0
	for i, r := range s {
		if r == ',' || r == '\n' {
			out = append(out, [2]int{start, i})
			start = i + 1
		}
	}
	return append(out, [2]int{start, len(s)})
}

func splitSegments(work string) []string {
	var out []string
	for _, b := range segmentBounds(work) {
		if seg := tidy(work[b[0]:b[1]]); seg != "" {
			out = append(out, seg)
		}
	}
	return out
}
