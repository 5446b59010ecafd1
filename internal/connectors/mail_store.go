package connectors

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"shipdoc/internal"
	"shipdoc/internal/pipeline"
	"shipdoc/internal/shipment"
	"shipdoc/internal/storage"
)

// MailStoreService keeps raw fetched messages on disk, keyed by content hash,
// and indexes them in the emails table together with the sales order they
// mention.
type MailStoreService struct {
	db     *storage.DB
	rawDir string
}

func NewMailStoreService(db *storage.DB, rawDir string) *MailStoreService {
	return &MailStoreService{db: db, rawDir: rawDir}
}

func (s *MailStoreService) Store(msg internal.FetchedMailMessage) (internal.EmailRow, error) {
	sum := sha256.Sum256(msg.Raw)
	hash := hex.EncodeToString(sum[:])

	rawPath, err := s.writeRaw(hash, msg.Raw)
	if err != nil {
		return internal.EmailRow{}, err
	}
	row, err := s.db.UpsertEmail(msg.Provider, msg.MessageID, msg.Subject, msg.From, msg.ReceivedAt, hash, rawPath, storage.EmailFetched)
	if err != nil {
		return internal.EmailRow{}, err
	}

	if so := SOHint(msg); so != "" {
		if err := s.db.SetEmailSOHint(row.ID, so); err != nil {
			return row, err
		}
		row.SOHint = so
	}
	return row, nil
}

// writeRaw leaves an existing file alone; identical content has the same name.
func (s *MailStoreService) writeRaw(hash string, raw []byte) (string, error) {
	if err := os.MkdirAll(s.rawDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(s.rawDir, hash+".eml")
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return path, nil
	case !errors.Is(err, fs.ErrNotExist):
		return "", err
	}

	tmp := path + ".part"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return "", fmt.Errorf("write raw email: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return path, nil
}

// SOHint returns the sales order number named in the subject, or else in the
// body. Messages that do not parse as MIME fall back to the subject alone.
func SOHint(msg internal.FetchedMailMessage) string {
	if so, _ := shipment.ExtractSONumber(msg.Subject); so != "" {
		return so
	}
	mail, err := pipeline.ParseEmail(msg.Raw)
	if err != nil {
		return ""
	}
	if so, _ := shipment.ExtractSONumber(mail.Subject); so != "" {
		return so
	}
	so, _ := shipment.ExtractSONumber(mail.Text)
	return so
}
