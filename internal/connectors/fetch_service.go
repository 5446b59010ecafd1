package connectors

import (
	"context"
	"time"

	"go.uber.org/zap"

	"shipdoc/internal"
	"shipdoc/internal/logger"
	"shipdoc/internal/storage"
)

type FetchService struct {
	db        *storage.DB
	connector MailConnector
	store     *MailStoreService
	log       *zap.Logger
}

type FetchResult struct {
	Fetched int
	Stored  int
}

func NewFetchService(db *storage.DB, rawMailDir string, connector MailConnector, log *zap.Logger) *FetchService {
	return &FetchService{
		db:        db,
		connector: connector,
		store:     NewMailStoreService(db, rawMailDir),
		log:       logger.OrNop(log),
	}
}

// FetchAndStore saves new messages as fetched emails. Messages already stored
// under the same provider and message id keep their processing status.
func (s *FetchService) FetchAndStore(ctx context.Context, label string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchInbox(ctx, label, max)
	if err != nil {
		return FetchResult{}, &internal.ExternalServiceError{Service: s.connector.Provider(), Err: err}
	}

	stored := 0
	for _, msg := range messages {
		existing, err := s.db.GetEmailByProviderMessageID(msg.Provider, msg.MessageID)
		if err != nil {
			return FetchResult{}, err
		}
		if existing != nil {
			s.log.Debug("email already stored", zap.String("message_id", msg.MessageID))
			continue
		}
		if _, err := s.store.Store(msg); err != nil {
			return FetchResult{}, err
		}
		stored++
	}

	key := "fetch." + s.connector.Provider() + ".lastRun"
	if err := s.db.SetMetadata(key, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return FetchResult{}, err
	}
	return FetchResult{Fetched: len(messages), Stored: stored}, nil
}
