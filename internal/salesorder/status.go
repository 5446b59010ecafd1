package salesorder

import (
	"path/filepath"
	"regexp"

	"shipdoc/internal"
)

var (
	reStatusRevised    = regexp.MustCompile(`(?i)(?:_R\d+|(?:^|[^A-Za-z0-9])R[1-3])(?:[^A-Za-z0-9]|$)`)
	reStatusCancelled  = regexp.MustCompile(`(?i)cancel+ed`)
	reStatusCompleted  = regexp.MustCompile(`(?i)completed|closed`)
	reStatusProduction = regexp.MustCompile(`(?i)production|scheduled`)
)

// StatusFromFilename derives the order lifecycle from tokens in the file
// name. Document content is never consulted.
func StatusFromFilename(name string) internal.OrderStatus {
	base := filepath.Base(name)
	switch {
	case base == "." || base == "":
		return internal.StatusUnknown
	case reStatusRevised.MatchString(base):
		return internal.StatusRevised
	case reStatusCancelled.MatchString(base):
		return internal.StatusCancelled
	case reStatusCompleted.MatchString(base):
		return internal.StatusCompleted
	case reStatusProduction.MatchString(base):
		return internal.StatusInProduction
	}
	return internal.StatusUnknown
}
