package salesorder

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"shipdoc/internal"
	"shipdoc/internal/address"
	"shipdoc/internal/logger"
	"shipdoc/internal/util"
)

const DefaultWindowLines = 20

// Parser builds SalesOrder records from PDF documents. It holds no state
// between calls.
type Parser struct {
	addresses   *address.Parser
	windowLines int
	log         *zap.Logger
}

func NewParser(addresses *address.Parser, windowLines int, log *zap.Logger) *Parser {
	if addresses == nil {
		addresses = address.NewParser(nil, log)
	}
	if windowLines <= 0 {
		windowLines = DefaultWindowLines
	}
	return &Parser{addresses: addresses, windowLines: windowLines, log: logger.OrNop(log)}
}

func (p *Parser) ParseFile(ctx context.Context, path string) (internal.SalesOrder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return internal.SalesOrder{}, &internal.ParseError{Op: "read sales order", Path: path, Err: err}
	}
	return p.ParseBytes(ctx, data, path)
}

// ParseBytes parses PDF bytes. filename feeds status derivation and the SO
// number fallback and may be empty.
func (p *Parser) ParseBytes(ctx context.Context, data []byte, filename string) (internal.SalesOrder, error) {
	doc, err := ReadPDF(data)
	if err != nil {
		return internal.SalesOrder{}, &internal.ParseError{Op: "open pdf", Path: filename, Err: err}
	}
	return p.ParseDocument(ctx, doc, filename)
}

// ParseDocument builds the record from already extracted pages. Fields that
// cannot be found stay at their zero value; only a document without any text
// is an error.
func (p *Parser) ParseDocument(ctx context.Context, doc Document, filename string) (internal.SalesOrder, error) {
	plain := util.CleanText(doc.Text())
	if strings.TrimSpace(plain) == "" {
		return internal.SalesOrder{}, &internal.ParseError{Op: "parse sales order", Path: filename, Err: internal.ErrNoText}
	}
	plainLines := textLines(plain)
	layoutLines := strings.Split(util.CleanText(doc.LayoutText()), "\n")

	order := internal.SalesOrder{
		Status: StatusFromFilename(filename),
	}
	if filename != "" {
		order.SourceFile = filepath.Base(filename)
	}
	order.Items = ParseItems(plainLines)

	h := parseHeader(plainLines)
	if h.soNumber == "" && filename != "" {
		h.soNumber = soNumberFromFilename(filename)
	}
	h.apply(&order)

	side := sideChannel(doc)
	order.BatchNumber = side.BatchNumber
	order.MONumber = side.MONumber

	inline := findInlineBlock(layoutLines, plainLines, p.windowLines)
	sideHasColumns := len(side.SoldToLines) > 0 || len(side.ShipToLines) > 0
	if !inline.found && !sideHasColumns {
		order.Warnings = append(order.Warnings, internal.ErrNoAddressMarker.Error())
		return order, nil
	}

	soldLines := chooseLines(side.SoldToLines, inline.sold)
	shipLines := chooseLines(side.ShipToLines, inline.ship)
	shipLines, pickup := stripPickup(shipLines)
	order.IsPickupOrder = pickup

	var strategy string
	order.SoldTo, strategy = p.buildAddress(ctx, soldLines)
	if pickup {
		if len(shipLines) > 0 {
			order.ShipTo.CompanyName = strings.TrimSpace(address.Clean(shipLines[0]))
		}
	} else {
		order.ShipTo, _ = p.buildAddress(ctx, shipLines)
	}
	order.CustomerName = order.SoldTo.CompanyName
	if order.CustomerName == "" {
		order.CustomerName = order.ShipTo.CompanyName
	}

	p.log.Debug("sales order parsed",
		zap.String("so", order.SONumber),
		zap.Int("items", len(order.Items)),
		zap.Bool("pickup", order.IsPickupOrder),
		zap.String("address_strategy", strategy),
	)
	return order, nil
}

// sideChannel runs the word position extractor over each page and falls back
// to native table cells; the first page with a result wins.
func sideChannel(doc Document) address.ColumnResult {
	var res address.ColumnResult
	for _, page := range doc.Pages {
		if r := address.ExtractColumns(page.Words); !r.Empty() {
			res = r
			break
		}
	}
	if len(res.SoldToLines) > 0 || len(res.ShipToLines) > 0 {
		return res
	}
	for _, page := range doc.Pages {
		if t := address.FromTables(page.Tables); !t.Empty() {
			res.SoldToLines, res.ShipToLines = t.SoldToLines, t.ShipToLines
			break
		}
	}
	return res
}

func textLines(text string) []string {
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
