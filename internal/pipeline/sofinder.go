package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	ErrSalesOrderNotFound = errors.New("sales order pdf not found")

	reDigitRun = regexp.MustCompile(`\d+`)
)

// FindSalesOrderPDF returns the newest PDF under dir whose file name carries
// soNumber as a whole run of digits, so "2707" matches "SO_2707_R1.pdf" but
// not "SO_27071.pdf".
func FindSalesOrderPDF(dir, soNumber string) (string, error) {
	soNumber = strings.TrimSpace(soNumber)
	if dir == "" || soNumber == "" {
		return "", fmt.Errorf("SO %q in %q: %w", soNumber, dir, ErrSalesOrderNotFound)
	}

	var best string
	var bestTime time.Time
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return nil
		}
		if !nameHasNumber(d.Name(), soNumber) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		mod := info.ModTime()
		if best == "" || mod.After(bestTime) || (mod.Equal(bestTime) && path > best) {
			best, bestTime = path, mod
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scan %s: %w", dir, err)
	}
	if best == "" {
		return "", fmt.Errorf("SO %s in %s: %w", soNumber, dir, ErrSalesOrderNotFound)
	}
	return best, nil
}

func nameHasNumber(name, number string) bool {
	for _, run := range reDigitRun.FindAllString(strings.TrimSuffix(name, filepath.Ext(name)), -1) {
		if run == number {
			return true
		}
	}
	return false
}
