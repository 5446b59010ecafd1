package address

import (
	"regexp"
	"strings"

	"shipdoc/internal/util"
)

var (
	rePickupPhrase = regexp.MustCompile(`(?i)\s*(?:-\s*PICK\s*-?\s*UP\b|\(\s*PICK\s*-?\s*UP\s*\))`)
	reStockComment = regexp.MustCompile(`(?i)(?:^|,)\s*(?:pull\s+from\s+stock|batch\s*#|lot\s*#)[^\n]*`)
	rePhone        = regexp.MustCompile(`(?i)(?:\b(?:tel|phone|ph|fax|cell)\b\.?\s*:?\s*)?(?:\+?1[\s.\-]?)?\(?\b\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}\b(?:\s*(?:ext\.?|x)\s*\d{1,5})?`)
	reNotAvail     = regexp.MustCompile(`(?i)(^|[\s,])N/A($|[\s,])`)
	reCommaRun     = regexp.MustCompile(`\s*,[\s,]*`)
)

const maxCleanPasses = 4

// Clean strips pickup phrases, stock or batch comments, phone numbers and
// N/A tokens from an address block, then tidies whitespace and commas.
// Lines that end up empty are dropped. Clean(Clean(s)) == Clean(s).
func Clean(text string) string {
	cur := util.CleanText(text)
	for i := 0; i < maxCleanPasses; i++ {
		next := cleanOnce(cur)
		if next == cur {
			break
		}
		cur = next
	}
	return cur
}

func cleanOnce(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = rePickupPhrase.ReplaceAllString(line, "")
		line = reStockComment.ReplaceAllString(line, "")
		line = rePhone.ReplaceAllString(line, "")
		line = reNotAvail.ReplaceAllString(line, "${1}${2}")
		line = tidy(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// tidy squeezes spaces and comma runs and trims dangling separators.
func tidy(s string) string {
	s = util.CollapseSpaces(s)
	s = reCommaRun.ReplaceAllString(s, ", ")
	s = strings.Trim(s, " ,;-")
	return strings.TrimSpace(s)
}
