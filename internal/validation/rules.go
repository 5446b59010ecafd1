package validation

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v2"

	"shipdoc/internal"
	"shipdoc/internal/util"
)

//go:embed rules.yaml
var defaultRules []byte

type Family struct {
	Name  string `yaml:"name"`
	Token string `yaml:"token"`
}

// Rules is the product matching table. It is loaded from YAML so other
// product lines can be added without code changes.
type Rules struct {
	Families       []Family `yaml:"families"`
	Abbreviations  []string `yaml:"abbreviations"`
	ChargeWords    []string `yaml:"charge_words"`
	CountOnceUnits []string `yaml:"count_once_units"`

	charge *regexp.Regexp
}

func DefaultRules() Rules {
	r, err := parseRules(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("embedded rules: %v", err))
	}
	return r
}

// LoadRules reads a rule table from path, or the embedded table when path is
// empty.
func LoadRules(path string) (Rules, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules: %w", err)
	}
	r, err := parseRules(data)
	if err != nil {
		return Rules{}, fmt.Errorf("parse rules %s: %w", path, err)
	}
	return r, nil
}

func parseRules(data []byte) (Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rules{}, err
	}
	for i := range r.Families {
		r.Families[i].Token = strings.ToUpper(strings.TrimSpace(r.Families[i].Token))
	}
	for i, a := range r.Abbreviations {
		r.Abbreviations[i] = strings.ToUpper(strings.TrimSpace(a))
	}
	for i, u := range r.CountOnceUnits {
		r.CountOnceUnits[i] = strings.ToUpper(strings.TrimSpace(u))
	}

	var words []string
	for _, w := range r.ChargeWords {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, strings.ReplaceAll(regexp.QuoteMeta(w), " ", `\s+`)+`s?`)
		}
	}
	if len(words) > 0 {
		re, err := regexp.Compile(`(?i)^\s*(?:` + strings.Join(words, "|") + `)\b`)
		if err != nil {
			return Rules{}, fmt.Errorf("charge words: %w", err)
		}
		r.charge = re
	}
	return r, nil
}

// IsCharge reports freight, brokerage and pallet charge lines.
func (r Rules) IsCharge(item internal.LineItem) bool {
	if r.charge == nil {
		return false
	}
	return r.charge.MatchString(item.Description) || r.charge.MatchString(item.ItemCode)
}

func (r Rules) countsOnce(unit string) bool {
	u := strings.ToUpper(strings.TrimSpace(unit))
	for _, c := range r.CountOnceUnits {
		if u == c {
			return true
		}
	}
	return false
}

// familyNumber returns the variant words and the number that follow the
// family token in desc. ok is false when the token is absent.
func familyNumber(desc, token string) (variant []string, number string, ok bool) {
	words := strings.Fields(util.NormalizeDescription(desc))
	at := -1
	for i, w := range words {
		if w == token {
			at = i
			break
		}
	}
	if at < 0 {
		return nil, "", false
	}
	for _, w := range words[at+1:] {
		if reNumberToken.MatchString(w) {
			return variant, w, true
		}
		variant = append(variant, w)
	}
	return variant, "", true
}

var reNumberToken = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
