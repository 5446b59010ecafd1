package listener

import (
	"context"
	"path/filepath"
	"testing"

	"shipdoc/internal"
	"shipdoc/internal/config"
	"shipdoc/internal/storage"
)

type stubConnector struct {
	messages []internal.FetchedMailMessage
}

func (stubConnector) Provider() string { return "imap" }

func (s stubConnector) FetchInbox(context.Context, string, int) ([]internal.FetchedMailMessage, error) {
	return s.messages, nil
}

func TestRunCycleFetchesAndProcesses(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	cfg := config.Config{
		RawMailDir:               filepath.Join(tmp, "raw"),
		OutputDir:                filepath.Join(tmp, "out"),
		SOPDFDir:                 filepath.Join(tmp, "orders"),
		ShipperName:              "Canoil Canada Ltd",
		MailListenerProvider:     "imap",
		MailListenerLabel:        "INBOX",
		MailListenerFetchMax:     10,
		MailListenerProcessBatch: 10,
	}
	svc, err := NewService(db, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	svc.connector = stubConnector{messages: []internal.FetchedMailMessage{
		{Provider: "imap", MessageID: "<n1@x>", Subject: "Newsletter", Raw: []byte("Subject: Newsletter\n\nPrices change soon.\n")},
		{Provider: "imap", MessageID: "<s1@x>", Subject: "SO 9999 shipped", Raw: []byte("Subject: SO 9999 shipped\n\nSO 9999: 2 drums of oil picked up by Purolator.\n")},
	}}

	if err := svc.RunCycle(context.Background()); err != nil {
		t.Fatal(err)
	}

	skipped, _ := db.MustEmailByProviderMessageID("imap", "<n1@x>")
	if skipped.Status != storage.EmailSkipped {
		t.Fatalf("newsletter status=%s", skipped.Status)
	}
	// No sales order PDF exists for 9999, so the shipment email fails.
	failed, _ := db.MustEmailByProviderMessageID("imap", "<s1@x>")
	if failed.Status != storage.EmailFailed {
		t.Fatalf("shipment status=%s", failed.Status)
	}
}

func TestMakeConnectorRejectsUnknownProvider(t *testing.T) {
	if _, err := MakeConnector(context.Background(), config.Config{}, "pop3", nil); err == nil {
		t.Fatal("expected error")
	}
	if _, err := MakeConnector(context.Background(), config.Config{}, "imap", nil); err == nil {
		t.Fatal("expected missing IMAP_HOST error")
	}
}
