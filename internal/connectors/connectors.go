package connectors

import (
	"context"

	"shipdoc/internal"
)

// MailConnector pulls raw shipment emails from a mailbox.
type MailConnector interface {
	Provider() string
	FetchInbox(ctx context.Context, label string, max int) ([]internal.FetchedMailMessage, error)
}
