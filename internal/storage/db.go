package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"shipdoc/internal"
)

const (
	EmailFetched   = "fetched"
	EmailProcessed = "processed"
	EmailSkipped   = "skipped"
	EmailFailed    = "failed"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS emails (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  soHint TEXT NOT NULL DEFAULT '',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS sales_orders (
  soNumber TEXT PRIMARY KEY,
  sourceFile TEXT,
  status TEXT NOT NULL,
  customerName TEXT,
  totalAmount TEXT,
  orderJson TEXT NOT NULL,
  parsedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL UNIQUE,
  emailId INTEGER,
  soNumber TEXT,
  overall TEXT NOT NULL,
  verdictJson TEXT NOT NULL,
  shipmentJson TEXT NOT NULL,
  orderJson TEXT NOT NULL,
  timingsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(emailId) REFERENCES emails(id)
);
CREATE INDEX IF NOT EXISTS idx_runs_soNumber ON runs(soNumber);
CREATE INDEX IF NOT EXISTS idx_runs_emailId ON runs(emailId);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertEmail(provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.EmailRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO emails (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.EmailRow{}, err
	}

	row, err := d.GetEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if row == nil {
		return internal.EmailRow{}, errors.New("failed to upsert email")
	}
	return *row, nil
}

const emailColumns = `id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef, soHint`

func scanEmail(s interface{ Scan(...any) error }) (internal.EmailRow, error) {
	var row internal.EmailRow
	err := s.Scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef, &row.SOHint)
	return row, err
}

func (d *DB) GetEmailByProviderMessageID(provider, messageID string) (*internal.EmailRow, error) {
	row, err := scanEmail(d.conn.QueryRow(`SELECT `+emailColumns+` FROM emails WHERE provider = ? AND messageId = ?`, provider, messageID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) GetEmailByID(id int) (*internal.EmailRow, error) {
	row, err := scanEmail(d.conn.QueryRow(`SELECT `+emailColumns+` FROM emails WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) ListEmailsByStatus(status string, limit int) ([]internal.EmailRow, error) {
	rows, err := d.conn.Query(`SELECT `+emailColumns+` FROM emails WHERE status = ? ORDER BY receivedAt ASC LIMIT ?`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.EmailRow
	for rows.Next() {
		row, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateEmailStatus(emailID int, status string) error {
	_, err := d.conn.Exec(`UPDATE emails SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, emailID)
	return err
}

// SetEmailSOHint records the sales order number an email appears to be about.
func (d *DB) SetEmailSOHint(emailID int, soNumber string) error {
	_, err := d.conn.Exec(`UPDATE emails SET soHint = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, soNumber, emailID)
	return err
}

func (d *DB) ListEmailsBySOHint(soNumber string) ([]internal.EmailRow, error) {
	rows, err := d.conn.Query(`SELECT `+emailColumns+` FROM emails WHERE soHint = ? ORDER BY receivedAt ASC`, soNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.EmailRow
	for rows.Next() {
		row, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) MustEmailByProviderMessageID(provider, messageID string) (internal.EmailRow, error) {
	row, err := d.GetEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if row == nil {
		return internal.EmailRow{}, fmt.Errorf("email not found: provider=%s messageId=%s", provider, messageID)
	}
	return *row, nil
}

// UpsertSalesOrder stores the latest parse of an order, keyed by SO number.
func (d *DB) UpsertSalesOrder(order internal.SalesOrder) error {
	if order.SONumber == "" {
		return errors.New("sales order without SO number")
	}
	orderJSON, err := json.Marshal(order)
	if err != nil {
		return err
	}
	_, err = d.conn.Exec(`
INSERT INTO sales_orders (soNumber, sourceFile, status, customerName, totalAmount, orderJson)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(soNumber) DO UPDATE SET
  sourceFile=excluded.sourceFile,
  status=excluded.status,
  customerName=excluded.customerName,
  totalAmount=excluded.totalAmount,
  orderJson=excluded.orderJson,
  parsedAt=CURRENT_TIMESTAMP
`, order.SONumber, order.SourceFile, string(order.Status), order.CustomerName, order.TotalAmount.String(), string(orderJSON))
	return err
}

func (d *DB) GetSalesOrder(soNumber string) (*internal.SalesOrder, error) {
	var orderJSON string
	err := d.conn.QueryRow(`SELECT orderJson FROM sales_orders WHERE soNumber = ?`, soNumber).Scan(&orderJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var order internal.SalesOrder
	if err := json.Unmarshal([]byte(orderJSON), &order); err != nil {
		return nil, fmt.Errorf("decode sales order %s: %w", soNumber, err)
	}
	return &order, nil
}

// InsertRun records one validation run. emailID may be nil for runs started
// from files.
func (d *DB) InsertRun(traceID string, emailID *int, shipment internal.EmailShipment, order internal.SalesOrder, verdict internal.ValidationVerdict, timings map[string]float64) (int64, error) {
	shipmentJSON, err := json.Marshal(shipment)
	if err != nil {
		return 0, err
	}
	orderJSON, err := json.Marshal(order)
	if err != nil {
		return 0, err
	}
	verdictJSON, err := json.Marshal(verdict)
	if err != nil {
		return 0, err
	}
	timingsJSON, _ := json.Marshal(timings)

	result, err := d.conn.Exec(`
INSERT INTO runs (traceId, emailId, soNumber, overall, verdictJson, shipmentJson, orderJson, timingsJson)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, traceID, emailID, shipment.SONumber, string(verdict.Overall), string(verdictJSON), string(shipmentJSON), string(orderJSON), string(timingsJSON))
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

const runColumns = `id, traceId, emailId, soNumber, overall, verdictJson, shipmentJson, orderJson, timingsJson, createdAt`

func scanRun(s interface{ Scan(...any) error }) (internal.RunRecord, error) {
	var r internal.RunRecord
	var emailID sql.NullInt64
	var so sql.NullString
	err := s.Scan(&r.ID, &r.TraceID, &emailID, &so, &r.Overall, &r.VerdictJSON, &r.ShipmentJSON, &r.OrderJSON, &r.TimingsJSON, &r.CreatedAt)
	if err != nil {
		return r, err
	}
	if emailID.Valid {
		id := int(emailID.Int64)
		r.EmailID = &id
	}
	r.SONumber = so.String
	return r, nil
}

func (d *DB) GetRun(id int64) (*internal.RunRecord, error) {
	r, err := scanRun(d.conn.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (d *DB) GetRunByTraceID(traceID string) (*internal.RunRecord, error) {
	r, err := scanRun(d.conn.QueryRow(`SELECT `+runColumns+` FROM runs WHERE traceId = ?`, traceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (d *DB) ListRunsBySONumber(soNumber string, limit int) ([]internal.RunRecord, error) {
	rows, err := d.conn.Query(`SELECT `+runColumns+` FROM runs WHERE soNumber = ? ORDER BY id DESC LIMIT ?`, soNumber, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DecodeRun unpacks the stored JSON documents of a run.
func DecodeRun(r internal.RunRecord) (internal.EmailShipment, internal.SalesOrder, internal.ValidationVerdict, error) {
	var s internal.EmailShipment
	var o internal.SalesOrder
	var v internal.ValidationVerdict
	if err := json.Unmarshal([]byte(r.ShipmentJSON), &s); err != nil {
		return s, o, v, fmt.Errorf("decode run %d shipment: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.OrderJSON), &o); err != nil {
		return s, o, v, fmt.Errorf("decode run %d order: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.VerdictJSON), &v); err != nil {
		return s, o, v, fmt.Errorf("decode run %d verdict: %w", r.ID, err)
	}
	return s, o, v, nil
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
