package address

import (
	"regexp"
	"sort"
	"strings"
)

const (
	CountryCanada = "Canada"
	CountryUSA    = "USA"
)

var provinceNames = map[string]string{
	"alberta":                   "AB",
	"british columbia":          "BC",
	"manitoba":                  "MB",
	"new brunswick":             "NB",
	"newfoundland and labrador": "NL",
	"newfoundland":              "NL",
	"nova scotia":               "NS",
	"northwest territories":     "NT",
	"nunavut":                   "NU",
	"ontario":                   "ON",
	"prince edward island":      "PE",
	"quebec":                    "QC",
	"québec":                    "QC",
	"saskatchewan":              "SK",
	"yukon":                     "YT",
}

var stateNames = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT", "delaware": "DE",
	"florida": "FL", "georgia": "GA", "hawaii": "HI", "idaho": "ID",
	"illinois": "IL", "indiana": "IN", "iowa": "IA", "kansas": "KS",
	"kentucky": "KY", "louisiana": "LA", "maine": "ME", "maryland": "MD",
	"massachusetts": "MA", "michigan": "MI", "minnesota": "MN", "mississippi": "MS",
	"missouri": "MO", "montana": "MT", "nebraska": "NE", "nevada": "NV",
	"new hampshire": "NH", "new jersey": "NJ", "new mexico": "NM", "new york": "NY",
	"north carolina": "NC", "north dakota": "ND", "ohio": "OH", "oklahoma": "OK",
	"oregon": "OR", "pennsylvania": "PA", "rhode island": "RI", "south carolina": "SC",
	"south dakota": "SD", "tennessee": "TN", "texas": "TX", "utah": "UT",
	"vermont": "VT", "virginia": "VA", "washington": "WA", "west virginia": "WV",
	"wisconsin": "WI", "wyoming": "WY", "district of columbia": "DC",
}

type regionName struct {
	name    string
	code    string
	country string
	re      *regexp.Regexp
}

var (
	// longest names first so "West Virginia" wins over "Virginia"
	regionNames []regionName
	regionCodes = map[string]string{}
)

func init() {
	add := func(names map[string]string, country string) {
		for name, code := range names {
			regionNames = append(regionNames, regionName{
				name:    name,
				code:    code,
				country: country,
				re:      regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}])(` + regexp.QuoteMeta(name) + `)(?:$|[^\p{L}\p{N}])`),
			})
			regionCodes[code] = country
		}
	}
	add(provinceNames, CountryCanada)
	add(stateNames, CountryUSA)
	sort.Slice(regionNames, func(i, j int) bool {
		if len(regionNames[i].name) != len(regionNames[j].name) {
			return len(regionNames[i].name) > len(regionNames[j].name)
		}
		return regionNames[i].name < regionNames[j].name
	})
}

// RegionCountry returns the country of a province or state code.
func RegionCountry(code string) (string, bool) {
	c, ok := regionCodes[strings.ToUpper(strings.TrimSpace(code))]
	return c, ok
}

// RegionCode maps a full province or state name, or a code, to its code.
func RegionCode(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if _, ok := RegionCountry(s); ok && len(s) == 2 {
		return strings.ToUpper(s), true
	}
	lower := strings.ToLower(s)
	if code, ok := provinceNames[lower]; ok {
		return code, true
	}
	if code, ok := stateNames[lower]; ok {
		return code, true
	}
	return "", false
}
