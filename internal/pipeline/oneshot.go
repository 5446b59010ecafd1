package pipeline

import (
	"os"
	"path/filepath"
	"strings"
)

// LoadEmailFile reads a shipment email from disk. .eml files (or any file
// when asEML is set) are parsed as MIME, .html files are flattened, anything
// else is taken as the plain body.
func LoadEmailFile(path string, asEML bool) (Email, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return Email{}, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); {
	case asEML || ext == ".eml":
		return ParseEmail(blob)
	case ext == ".html" || ext == ".htm":
		return Email{Text: HTMLToText(string(blob))}, nil
	default:
		return Email{Text: string(blob)}, nil
	}
}
