package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"shipdoc/internal"
	"shipdoc/internal/address"
	"shipdoc/internal/cache"
	"shipdoc/internal/config"
	"shipdoc/internal/llm"
	"shipdoc/internal/logger"
	"shipdoc/internal/lookup"
	"shipdoc/internal/salesorder"
	"shipdoc/internal/shipment"
	"shipdoc/internal/storage"
	"shipdoc/internal/validation"
)

// ProcessingService runs shipment emails through parsing, sales order lookup
// and validation. db may be nil, in which case nothing is persisted.
type ProcessingService struct {
	db        *storage.DB
	cfg       config.Config
	orders    *salesorder.Parser
	shipments *shipment.Parser
	engine    *validation.Engine
	dangerous *lookup.DangerousGoods
	cache     cache.Store[internal.SalesOrder]
	exportDir string
	log       *zap.Logger
}

type ProcessResult struct {
	TraceID    string
	EmailID    int
	RunID      int64
	Skipped    bool
	Shipment   internal.EmailShipment
	Order      internal.SalesOrder
	Verdict    internal.ValidationVerdict
	ExportPath string
}

func NewProcessingService(db *storage.DB, cfg config.Config, log *zap.Logger) (*ProcessingService, error) {
	var completer llm.Completer
	if cfg.LLMActive() {
		completer = llm.NewClient(cfg, log)
	}
	return newProcessingService(db, cfg, completer, log)
}

func newProcessingService(db *storage.DB, cfg config.Config, completer llm.Completer, log *zap.Logger) (*ProcessingService, error) {
	log = logger.OrNop(log)
	rules, err := validation.LoadRules(cfg.ProductRulesPath)
	if err != nil {
		return nil, err
	}
	dangerous, err := lookup.LoadDangerousGoods(cfg.DangerousGoodsPath)
	if err != nil {
		return nil, err
	}

	var judge validation.CompanyJudge
	if completer != nil {
		judge = validation.NewLLMJudge(completer)
	}
	var store cache.Store[internal.SalesOrder] = cache.Noop[internal.SalesOrder]{}
	if cfg.SOCacheTTL > 0 {
		store = cache.NewTTL(internal.SalesOrder.Clone)
	}

	return &ProcessingService{
		db:        db,
		cfg:       cfg,
		orders:    salesorder.NewParser(address.NewParser(completer, log), cfg.AddressWindowLines, log),
		shipments: shipment.NewParser(completer, cfg.ShipperName, cfg.LLMMaxRetries, log),
		engine:    validation.NewEngine(rules, judge, log),
		dangerous: dangerous,
		cache:     store,
		log:       log,
	}, nil
}

// SetExportDir makes every processed email also write a workbook into dir.
// An empty dir turns the export off.
func (s *ProcessingService) SetExportDir(dir string) {
	s.exportDir = dir
}

func (s *ProcessingService) ProcessByProviderMessageID(ctx context.Context, provider, messageID string) (ProcessResult, error) {
	email, err := s.db.MustEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return ProcessResult{}, err
	}
	return s.ProcessEmailRow(ctx, email)
}

// ProcessBySONumber reprocesses every stored email whose hint names soNumber,
// whatever its status. Results are returned in receive order.
func (s *ProcessingService) ProcessBySONumber(ctx context.Context, soNumber string) ([]ProcessResult, error) {
	emails, err := s.db.ListEmailsBySOHint(soNumber)
	if err != nil {
		return nil, err
	}
	var out []ProcessResult
	for _, email := range emails {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		res, err := s.ProcessEmailRow(ctx, email)
		if err != nil {
			s.log.Warn("email processing failed", zap.Int("email_id", email.ID), zap.String("so_hint", soNumber), zap.Error(err))
			continue
		}
		out = append(out, res)
	}
	return out, nil
}

// ProcessPending handles stored emails still in the fetched state. A failing
// email is marked failed and does not stop the batch.
func (s *ProcessingService) ProcessPending(ctx context.Context, limit int, provider string) (int, int, error) {
	pending, err := s.db.ListEmailsByStatus(storage.EmailFetched, limit)
	if err != nil {
		return 0, 0, err
	}
	processed, failed := 0, 0
	for _, email := range pending {
		if provider != "" && email.Provider != provider {
			continue
		}
		if err := ctx.Err(); err != nil {
			return processed, failed, err
		}
		res, err := s.ProcessEmailRow(ctx, email)
		if err != nil {
			failed++
			s.log.Warn("email processing failed", zap.Int("email_id", email.ID), zap.Error(err))
			continue
		}
		if !res.Skipped {
			processed++
		}
	}
	return processed, failed, nil
}

func (s *ProcessingService) ProcessEmailRow(ctx context.Context, email internal.EmailRow) (ProcessResult, error) {
	raw, err := os.ReadFile(email.RawRef)
	if err != nil {
		return ProcessResult{}, err
	}
	mail, err := ParseEmail(raw)
	if err != nil {
		_ = s.db.UpdateEmailStatus(email.ID, storage.EmailFailed)
		return ProcessResult{}, err
	}

	detect := DetectShipmentEmail(firstNonEmpty(mail.Subject, email.Subject), mail.Text, mail.AttachmentNames())
	if !detect.IsShipment {
		s.log.Info("email skipped", zap.Int("email_id", email.ID), zap.String("so_hint", email.SOHint), zap.Float64("score", detect.Score))
		_ = s.db.UpdateEmailStatus(email.ID, storage.EmailSkipped)
		return ProcessResult{EmailID: email.ID, Skipped: true}, nil
	}

	id := email.ID
	res, err := s.process(ctx, mail, &id, s.lookupOrder)
	if err != nil {
		_ = s.db.UpdateEmailStatus(email.ID, storage.EmailFailed)
		return ProcessResult{}, err
	}
	if err := s.db.UpdateEmailStatus(email.ID, storage.EmailProcessed); err != nil {
		return res, err
	}
	return res, nil
}

// ProcessEmail validates one raw RFC 822 shipment email.
func (s *ProcessingService) ProcessEmail(ctx context.Context, raw []byte) (ProcessResult, error) {
	mail, err := ParseEmail(raw)
	if err != nil {
		return ProcessResult{}, err
	}
	return s.Process(ctx, mail)
}

// Process validates an already decoded email. The sales order comes from a
// PDF attachment when one matches, otherwise from SO_PDF_DIR.
func (s *ProcessingService) Process(ctx context.Context, mail Email) (ProcessResult, error) {
	return s.process(ctx, mail, nil, s.lookupOrder)
}

// ValidateFile validates an email against the sales order PDF at pdfPath.
func (s *ProcessingService) ValidateFile(ctx context.Context, pdfPath string, mail Email) (ProcessResult, error) {
	return s.process(ctx, mail, nil, func(ctx context.Context, _ string, _ []Attachment) (internal.SalesOrder, error) {
		return s.ParseSalesOrderFile(ctx, pdfPath)
	})
}

func (s *ProcessingService) ParseSalesOrderFile(ctx context.Context, path string) (internal.SalesOrder, error) {
	order, err := s.orders.ParseFile(ctx, path)
	if err != nil {
		return internal.SalesOrder{}, err
	}
	return s.annotate(order), nil
}

// annotate adds the static per-item lookups. It never changes parsed fields.
func (s *ProcessingService) annotate(order internal.SalesOrder) internal.SalesOrder {
	return s.dangerous.Annotate(order)
}

func (s *ProcessingService) ParseShipment(ctx context.Context, mail Email) (internal.EmailShipment, error) {
	return s.shipments.Parse(ctx, shipmentText(mail))
}

type orderSource func(ctx context.Context, soNumber string, pdfs []Attachment) (internal.SalesOrder, error)

func (s *ProcessingService) process(ctx context.Context, mail Email, emailID *int, source orderSource) (ProcessResult, error) {
	start := time.Now()
	text := shipmentText(mail)
	hint, _ := shipment.ExtractSONumber(text)

	var (
		ship            internal.EmailShipment
		order           internal.SalesOrder
		shipMs, orderMs float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t := time.Now()
		var err error
		ship, err = s.shipments.Parse(gctx, text)
		shipMs = msSince(t)
		return err
	})
	g.Go(func() error {
		t := time.Now()
		var err error
		order, err = source(gctx, hint, mail.PDFAttachments())
		orderMs = msSince(t)
		return err
	})
	if err := g.Wait(); err != nil {
		return ProcessResult{}, err
	}

	res := s.engine.Validate(ctx, order, ship)
	out := ProcessResult{
		TraceID:  uuid.NewString(),
		Shipment: ship,
		Order:    res.Order,
		Verdict:  res.Verdict,
	}
	if emailID != nil {
		out.EmailID = *emailID
	}

	timings := map[string]float64{"shipmentMs": shipMs, "salesOrderMs": orderMs, "totalMs": msSince(start)}
	if s.db != nil {
		runID, err := s.db.InsertRun(out.TraceID, emailID, ship, res.Order, res.Verdict, timings)
		if err != nil {
			return out, err
		}
		out.RunID = runID
	}
	if s.exportDir != "" {
		path := filepath.Join(s.exportDir, exportFileName(ship.SONumber, out.TraceID))
		if err := ExportToXLSX(ship, res.Order, res.Verdict, path); err != nil {
			return out, err
		}
		out.ExportPath = path
	}

	s.log.Info("shipment processed",
		zap.String("trace_id", out.TraceID),
		zap.String("so", ship.SONumber),
		zap.String("strategy", ship.Strategy),
		zap.String("overall", string(res.Verdict.Overall)),
		zap.Float64("total_ms", timings["totalMs"]),
	)
	return out, nil
}

func (s *ProcessingService) lookupOrder(ctx context.Context, soNumber string, pdfs []Attachment) (internal.SalesOrder, error) {
	var attached *internal.SalesOrder
	for _, a := range pdfs {
		order, err := s.orders.ParseBytes(ctx, a.Data, a.Name)
		if err != nil {
			s.log.Warn("attached pdf unreadable", zap.String("file", a.Name), zap.Error(err))
			continue
		}
		order = s.annotate(order)
		s.remember(order)
		if soNumber == "" || order.SONumber == soNumber {
			return order, nil
		}
		if attached == nil {
			attached = &order
		}
	}
	if soNumber == "" {
		return internal.SalesOrder{}, &internal.EmailParseError{Reason: "sales order number", Err: internal.ErrNoSONumber}
	}

	if cached, ok := s.cache.Get(soNumber); ok {
		s.log.Debug("sales order cache hit", zap.String("so", soNumber))
		return cached, nil
	}
	path, err := FindSalesOrderPDF(s.cfg.SOPDFDir, soNumber)
	if err != nil {
		if attached != nil && errors.Is(err, ErrSalesOrderNotFound) {
			return *attached, nil
		}
		return internal.SalesOrder{}, err
	}
	order, err := s.ParseSalesOrderFile(ctx, path)
	if err != nil {
		return internal.SalesOrder{}, err
	}
	s.remember(order)
	return order, nil
}

func (s *ProcessingService) remember(order internal.SalesOrder) {
	if order.SONumber == "" {
		return
	}
	s.cache.Put(order.SONumber, order, s.cfg.SOCacheTTL)
	if s.db != nil {
		if err := s.db.UpsertSalesOrder(order); err != nil {
			s.log.Warn("store sales order failed", zap.String("so", order.SONumber), zap.Error(err))
		}
	}
}

// shipmentText is the body, prefixed by the subject when only the subject
// names the sales order.
func shipmentText(mail Email) string {
	if so, _ := shipment.ExtractSONumber(mail.Text); so != "" {
		return mail.Text
	}
	if so, _ := shipment.ExtractSONumber(mail.Subject); so != "" {
		return mail.Subject + "\n\n" + mail.Text
	}
	return mail.Text
}

func exportFileName(soNumber, traceID string) string {
	if soNumber == "" {
		soNumber = "unknown"
	}
	return fmt.Sprintf("SO_%s_%s.xlsx", soNumber, strings.SplitN(traceID, "-", 2)[0])
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
