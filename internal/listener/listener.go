package listener

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"shipdoc/internal/config"
	"shipdoc/internal/connectors"
	gmailconnector "shipdoc/internal/connectors/gmail"
	imapconnector "shipdoc/internal/connectors/imap"
	"shipdoc/internal/logger"
	"shipdoc/internal/pipeline"
	"shipdoc/internal/storage"
)

// Service polls a mailbox and validates every new shipment email.
type Service struct {
	db        *storage.DB
	cfg       config.Config
	log       *zap.Logger
	connector connectors.MailConnector
	processor *pipeline.ProcessingService
}

func NewService(db *storage.DB, cfg config.Config, log *zap.Logger) (*Service, error) {
	processor, err := pipeline.NewProcessingService(db, cfg, log)
	if err != nil {
		return nil, err
	}
	if cfg.MailListenerAutoExport {
		processor.SetExportDir(filepath.Join(cfg.OutputDir, "listener"))
	}
	return &Service{db: db, cfg: cfg, log: logger.OrNop(log), processor: processor}, nil
}

// Run polls until ctx is cancelled. A failed cycle is logged and retried on
// the next tick.
func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.MailListenerIntervalSec) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	for {
		if err := s.RunCycle(ctx); err != nil {
			s.log.Error("listener cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

func (s *Service) RunCycle(ctx context.Context) error {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.MailListenerProvider))
	if s.connector == nil {
		c, err := MakeConnector(ctx, s.cfg, provider, s.log)
		if err != nil {
			return err
		}
		s.connector = c
	}

	fetch := connectors.NewFetchService(s.db, s.cfg.RawMailDir, s.connector, s.log)
	fetched, err := fetch.FetchAndStore(ctx, s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
	if err != nil {
		return err
	}

	processed, failed, err := s.processor.ProcessPending(ctx, s.cfg.MailListenerProcessBatch, provider)
	if err != nil {
		return err
	}

	s.log.Info("listener cycle done",
		zap.String("provider", provider),
		zap.Int("fetched", fetched.Fetched),
		zap.Int("stored", fetched.Stored),
		zap.Int("processed", processed),
		zap.Int("failed", failed),
	)
	return nil
}

func MakeConnector(ctx context.Context, cfg config.Config, provider string, log *zap.Logger) (connectors.MailConnector, error) {
	switch provider {
	case "gmail":
		return gmailconnector.NewConnector(ctx, cfg, log)
	case "imap":
		return imapconnector.NewConnector(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported mail provider: %s", provider)
	}
}
