package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"shipdoc/internal/config"
	"shipdoc/internal/connectors"
	"shipdoc/internal/listener"
	"shipdoc/internal/logger"
	"shipdoc/internal/pipeline"
	"shipdoc/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	must(err)
	defer logger.Sync()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := os.Args[1]
	switch cmd {
	case "so:parse":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		pdfPath := fs.String("pdf", "", "sales order pdf")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*pdfPath) == "" {
			must(fmt.Errorf("--pdf is required"))
		}
		order, err := newProcessor(db, cfg, log).ParseSalesOrderFile(ctx, *pdfPath)
		must(err)
		printJSON(order)
	case "email:parse":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "email file (.eml, .html or plain text)")
		eml := fs.Bool("eml", false, "treat input as a raw RFC 822 message")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}
		mail, err := pipeline.LoadEmailFile(*input, *eml)
		must(err)
		s, err := newProcessor(db, cfg, log).ParseShipment(ctx, mail)
		must(err)
		printJSON(s)
	case "validate":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		pdfPath := fs.String("pdf", "", "sales order pdf")
		input := fs.String("email", "", "email file (.eml, .html or plain text)")
		eml := fs.Bool("eml", false, "treat email as a raw RFC 822 message")
		out := fs.String("out", "", "optional directory for the xlsx report")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*pdfPath) == "" || strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--pdf and --email are required"))
		}
		mail, err := pipeline.LoadEmailFile(*input, *eml)
		must(err)
		processor := newProcessor(db, cfg, log)
		processor.SetExportDir(*out)
		res, err := processor.ValidateFile(ctx, *pdfPath, mail)
		must(err)
		printJSON(map[string]any{
			"trace_id":    res.TraceID,
			"run_id":      res.RunID,
			"verdict":     res.Verdict,
			"reasons":     res.Verdict.Reasons(),
			"shipment":    res.Shipment,
			"sales_order": res.Order,
			"export_path": res.ExportPath,
		})
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.MailListenerProvider, "gmail|imap")
		label := fs.String("label", "INBOX", "mailbox/label")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(os.Args[2:])
		conn, err := listener.MakeConnector(ctx, cfg, strings.ToLower(strings.TrimSpace(*provider)), log)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn, log)
		result, err := fetch.FetchAndStore(ctx, *label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d\n", *provider, result.Fetched, result.Stored)
	case "mail:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "", "gmail|imap, empty for all")
		messageID := fs.String("messageId", "", "specific message-id")
		soNumber := fs.String("so", "", "reprocess stored emails about this SO number")
		batch := fs.Int("batch", 20, "batch size")
		export := fs.String("export", "", "optional directory for xlsx reports")
		_ = fs.Parse(os.Args[2:])
		processor := newProcessor(db, cfg, log)
		processor.SetExportDir(*export)
		if strings.TrimSpace(*messageID) != "" {
			res, err := processor.ProcessByProviderMessageID(ctx, *provider, *messageID)
			must(err)
			printJSON(map[string]any{"email_id": res.EmailID, "skipped": res.Skipped, "run_id": res.RunID, "verdict": res.Verdict})
			return
		}
		if strings.TrimSpace(*soNumber) != "" {
			results, err := processor.ProcessBySONumber(ctx, strings.TrimSpace(*soNumber))
			must(err)
			printJSON(results)
			return
		}
		processed, failed, err := processor.ProcessPending(ctx, *batch, *provider)
		must(err)
		fmt.Printf("processed pending emails=%d failed=%d\n", processed, failed)
	case "mail:listen":
		s, err := listener.NewService(db, cfg, log)
		must(err)
		must(s.Run(ctx))
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		runID := fs.Int64("runId", 0, "validation run id")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if *runID == 0 || strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--runId and --out are required"))
		}
		must(pipeline.ExportRunToXLSX(db, *runID, *out))
		fmt.Printf("exported run %d to %s\n", *runID, *out)
	default:
		usage()
		os.Exit(1)
	}
}

func newProcessor(db *storage.DB, cfg config.Config, log *zap.Logger) *pipeline.ProcessingService {
	p, err := pipeline.NewProcessingService(db, cfg, log)
	must(err)
	return p
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	must(enc.Encode(v))
}

func usage() {
	fmt.Println("usage: shipdoc <command>")
	fmt.Println("commands:")
	fmt.Println("  so:parse --pdf=./SO_2707.pdf")
	fmt.Println("  email:parse --input=./mail.eml [--eml]")
	fmt.Println("  validate --pdf=./SO_2707.pdf --email=./mail.txt [--eml] [--out=./out]")
	fmt.Println("  mail:fetch --provider=gmail|imap --label=INBOX --max=50")
	fmt.Println("  mail:process [--provider=gmail|imap] [--messageId=...] [--so=2707] [--batch=20] [--export=./out]")
	fmt.Println("  mail:listen")
	fmt.Println("  export:xlsx --runId=1 --out=./out/result.xlsx")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
