package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	reSpaces     = regexp.MustCompile(`[ \t\f\v]+`)
	reNonAllowed = regexp.MustCompile(`[^A-Z0-9.\-/ ]`)
	reNumbers    = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// CleanText applies NFKC so ligatures, non-breaking spaces and full-width
// digits coming out of PDFs and HTML match plain ASCII patterns, and trims
// trailing blanks on every line.
func CleanText(input string) string {
	s := norm.NFKC.String(input)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRightFunc(l, unicode.IsSpace)
	}
	return strings.Join(lines, "\n")
}

// CollapseSpaces squeezes runs of horizontal whitespace into one space.
func CollapseSpaces(s string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

// NormalizeDescription upper-cases a product description and strips
// punctuation that varies between an email and a printed order.
func NormalizeDescription(input string) string {
	s := strings.ToUpper(norm.NFKC.String(input))
	repl := strings.NewReplacer("×", "X", "*", "X", ",", " ", "(", " ", ")", " ", "#", " ")
	s = repl.Replace(s)
	s = reNonAllowed.ReplaceAllString(s, " ")
	return CollapseSpaces(s)
}

// Tokenize splits a normalized description into tokens of two or more runes.
func Tokenize(input string) []string {
	parts := strings.Fields(NormalizeDescription(input))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, ".-/")
		if len([]rune(p)) >= 2 {
			out = append(out, p)
		}
	}
	return out
}

// Numbers returns every numeric token in s in order of appearance.
func Numbers(s string) []string {
	return reNumbers.FindAllString(s, -1)
}

// ContainsWord reports whether word occurs in s on word boundaries, ignoring case.
func ContainsWord(s, word string) bool {
	word = strings.TrimSpace(word)
	if word == "" {
		return false
	}
	re, err := regexp.Compile(`(?i)(?:^|[^A-Za-z0-9])` + regexp.QuoteMeta(word) + `(?:$|[^A-Za-z0-9])`)
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

// LooksLikeCode reports a token of three or more runes mixing letters and
// digits, the shape of an item code such as GRX-200 or WH5A12.
func LooksLikeCode(token string) bool {
	token = strings.TrimSpace(token)
	if len([]rune(token)) < 3 {
		return false
	}
	return strings.ContainsFunc(token, unicode.IsLetter) && strings.ContainsFunc(token, unicode.IsDigit)
}

// Hamming counts differing positions of two equal-length strings, or -1 when
// the lengths differ.
func Hamming(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) != len(rb) {
		return -1
	}
	d := 0
	for i := range ra {
		if ra[i] != rb[i] {
			d++
		}
	}
	return d
}
