package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"shipdoc/internal"
	"shipdoc/internal/storage"
)

const (
	sheetVerdict  = "Verdict"
	sheetShipment = "Shipment"
	sheetItems    = "SO Items"
)

type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
}

func (w *sheetWriter) line(values ...any) {
	w.row++
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, w.row)
		_ = w.f.SetCellValue(w.sheet, cell, v)
	}
}

func (w *sheetWriter) blank() { w.row++ }

// ExportToXLSX writes a workbook with the verdict, the shipment read from
// the email and the sales order lines it was checked against.
func ExportToXLSX(ship internal.EmailShipment, order internal.SalesOrder, verdict internal.ValidationVerdict, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetVerdict); err != nil {
		return err
	}
	for _, name := range []string{sheetShipment, sheetItems} {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}

	writeVerdict(&sheetWriter{f: f, sheet: sheetVerdict}, verdict)
	writeShipment(&sheetWriter{f: f, sheet: sheetShipment}, ship)
	writeOrderItems(&sheetWriter{f: f, sheet: sheetItems}, order)

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

// ExportRunToXLSX exports a stored run.
func ExportRunToXLSX(db *storage.DB, runID int64, outputPath string) error {
	run, err := db.GetRun(runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run not found: %d", runID)
	}
	ship, order, verdict, err := storage.DecodeRun(*run)
	if err != nil {
		return err
	}
	return ExportToXLSX(ship, order, verdict, outputPath)
}

func writeVerdict(w *sheetWriter, v internal.ValidationVerdict) {
	w.line("overall", string(v.Overall))
	for _, c := range []struct {
		name  string
		check internal.Check
	}{
		{"so_number", v.SONumberCheck},
		{"company", v.CompanyCheck},
		{"items", v.ItemsCheck},
	} {
		w.line(c.name, string(c.check.Status), c.check.Details)
	}
	if v.PartialShipmentNotice != "" {
		w.line("partial_shipment", v.PartialShipmentNotice)
	}

	w.blank()
	w.line("kind", "email_line", "description", "so_line", "detail")
	for _, m := range v.Matches {
		detail := m.Method
		if m.PartialQuantity {
			detail += ", partial quantity"
		}
		w.line("match", m.EmailLine, m.EmailDescription, m.SOLine, detail)
	}
	for _, u := range v.UnmatchedItems {
		w.line("unmatched", u.EmailLine, u.Description, "", u.Reason)
	}
	for _, q := range v.QuantityMismatches {
		w.line("quantity", q.EmailLine, q.Description, "", q.Reason)
	}
}

func writeShipment(w *sheetWriter, s internal.EmailShipment) {
	lines := make([]string, 0, len(s.SOLineNumbers))
	for _, n := range s.SOLineNumbers {
		lines = append(lines, fmt.Sprint(n))
	}
	w.line("so_number", s.SONumber)
	w.line("so_line_numbers", strings.Join(lines, ", "))
	w.line("po_number", s.PONumber)
	w.line("company_name", s.CompanyName)
	w.line("carrier", s.Carrier)
	w.line("total_weight", s.TotalWeight)
	w.line("skid_info", s.SkidInfo)
	w.line("batch_number", s.BatchNumber)
	w.line("batch_numbers_full", s.BatchNumbersFull)
	w.line("strategy", s.Strategy)
	for _, a := range s.Anomalies {
		w.line("anomaly", a)
	}

	w.blank()
	w.line("email_line", "description", "quantity", "unit", "batch_number", "weight_kg")
	for _, it := range s.Items {
		w.line(it.SourceLine, it.Description, it.Quantity, it.Unit, it.BatchNumber, it.WeightKg.InexactFloat64())
	}
}

func writeOrderItems(w *sheetWriter, o internal.SalesOrder) {
	w.line("line", "item_code", "description", "quantity", "unit", "unit_price", "amount", "un_number", "class", "packing_group")
	for i, it := range o.Items {
		var un, class, pg string
		if dg := it.DangerousGoods; dg != nil {
			un, class, pg = dg.UNNumber, dg.Class, dg.PackingGroup
		}
		w.line(i+1, it.ItemCode, it.Description, it.Quantity, it.Unit,
			it.UnitPrice.InexactFloat64(), it.Amount.InexactFloat64(), un, class, pg)
	}

	w.blank()
	w.line("so_number", o.SONumber)
	w.line("customer", o.CustomerName)
	w.line("subtotal", o.Subtotal.InexactFloat64())
	w.line("tax", o.Tax.InexactFloat64())
	w.line("total", o.TotalAmount.InexactFloat64())
	if o.TotalsArePartial {
		w.line("note", o.PartialShipmentNotice)
	}
}
