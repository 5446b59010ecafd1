package validation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"shipdoc/internal"
)

func item(code, desc string, qty int, unit, amount string) internal.LineItem {
	return internal.LineItem{
		ItemCode:    code,
		Description: desc,
		Quantity:    qty,
		Unit:        unit,
		Amount:      decimal.RequireFromString(amount),
	}
}

func ship(desc string, qty int, unit string, line int) internal.ShipmentItem {
	return internal.ShipmentItem{Description: desc, Quantity: qty, Unit: unit, SourceLine: line}
}

func baseOrder(items ...internal.LineItem) internal.SalesOrder {
	return internal.SalesOrder{SONumber: "2707", CustomerName: "Acme Lubricants Inc", Items: items}
}

func baseShipment(items ...internal.ShipmentItem) internal.EmailShipment {
	return internal.EmailShipment{SONumber: "2707", CompanyName: "Acme Lubricants", Items: items}
}

type stubJudge struct {
	j     CompanyJudgement
	err   error
	calls int
}

func (s *stubJudge) JudgeCompany(context.Context, CompanyQuery) (CompanyJudgement, error) {
	s.calls++
	return s.j, s.err
}

func TestMOVVariantsNeverCrossMatch(t *testing.T) {
	e := NewEngine(DefaultRules(), nil, nil)
	email := baseShipment(ship("MOV Extra 0", 3, "DRUM", 4))

	res := e.Validate(context.Background(), baseOrder(item("M1", "MOV Extra 1", 3, "DRUM", "300.00")), email)
	if res.Verdict.Overall != internal.OverallFail || len(res.Verdict.UnmatchedItems) != 1 {
		t.Fatalf("verdict=%+v", res.Verdict)
	}
	if u := res.Verdict.UnmatchedItems[0]; u.EmailLine != 4 || !strings.Contains(u.Reason, "MOV Extra 0") {
		t.Fatalf("unmatched=%+v", u)
	}

	res = e.Validate(context.Background(), baseOrder(
		item("M1", "MOV Extra 1", 3, "DRUM", "300.00"),
		item("M0", "MOV Extra 0", 3, "DRUM", "300.00"),
	), email)
	if res.Verdict.Overall != internal.OverallPass {
		t.Fatalf("verdict=%+v", res.Verdict)
	}
	if m := res.Verdict.Matches[0]; m.SOLine != 2 || m.Method != MethodSubstring {
		t.Fatalf("match=%+v", m)
	}
}

func TestMatchMethods(t *testing.T) {
	rules := DefaultRules()
	tests := []struct {
		name   string
		email  string
		so     internal.LineItem
		method string
	}{
		{"substring", "Extra 0", item("", "MOV Extra 0 Synthetic", 1, "DRUM", "1.00"), MethodSubstring},
		{"family short form", "MOV 0", item("", "MOV Extra 0", 1, "DRUM", "1.00"), MethodFamily},
		{"family variant words differ", "MOV Long Life 0", item("", "MOV Extra 0", 1, "DRUM", "1.00"), ""},
		{"abbreviation", "VSG-32 hydraulic", item("", "Hydraulic fluid VSG 32", 1, "PAIL", "1.00"), MethodAbbreviation},
		{"abbreviation grade differs", "VSG 46", item("", "Hydraulic fluid VSG 32", 1, "PAIL", "1.00"), ""},
		{"code hamming", "GRX-208 grease", item("GRX-200", "Premium lithium", 1, "CASE", "1.00"), MethodCode},
		{"plain word near code", "Oily rags", item("OILS", "Shop towels", 1, "CASE", "1.00"), ""},
		{"code too short", "ABX lube", item("ABC", "Other", 1, "CASE", "1.00"), ""},
		{"unrelated", "Brake cleaner", item("BC-1", "Chain oil", 1, "CASE", "1.00"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cands := []candidate{{position: 1, item: tt.so}}
			idx, method := matchItem(rules, ship(tt.email, 1, "", 1), cands, map[int]bool{})
			if method != tt.method || (tt.method == "" && idx != -1) {
				t.Fatalf("got %d %q want %q", idx, method, tt.method)
			}
		})
	}
}

func TestQuantityReconciliation(t *testing.T) {
	e := NewEngine(DefaultRules(), nil, nil)
	order := baseOrder(item("A-1", "Item A", 3, "DRUM", "300.00"))

	res := e.Validate(context.Background(), order, baseShipment(ship("Item A", 2, "DRUM", 1)))
	m := res.Verdict.Matches[0]
	if !m.QuantityMatch || !m.PartialQuantity || res.Verdict.Overall != internal.OverallPass {
		t.Fatalf("partial quantity: %+v %s", m, res.Verdict.Overall)
	}

	res = e.Validate(context.Background(), order, baseShipment(ship("Item A", 4, "DRUM", 1)))
	if res.Verdict.Matches[0].QuantityMatch || res.Verdict.Overall != internal.OverallFail {
		t.Fatalf("over shipment accepted: %+v", res.Verdict)
	}
	mm := res.Verdict.QuantityMismatches
	if len(mm) != 1 || mm[0].EmailQuantity != 4 || mm[0].SOQuantity != 3 {
		t.Fatalf("mismatches=%+v", mm)
	}
	if res.Verdict.ItemsCheck.Status != internal.CheckFailed {
		t.Fatalf("items check=%+v", res.Verdict.ItemsCheck)
	}
}

func TestQuantitySummedAcrossBatches(t *testing.T) {
	e := NewEngine(DefaultRules(), nil, nil)
	order := baseOrder(
		item("VSG-32", "VSG 32", 2, "PAIL", "200.00"),
		item("SOLV-205L", "MOV Extra 0", 3, "DRUM", "900.00"),
	)

	res := e.Validate(context.Background(), order, baseShipment(
		ship("MOV Extra 0", 2, "DRUM", 3),
		ship("MOV Extra 0", 2, "DRUM", 4),
	))
	v := res.Verdict
	if v.Overall != internal.OverallFail || v.ItemsCheck.Status != internal.CheckFailed {
		t.Fatalf("over shipment across batches accepted: %+v", v)
	}
	if len(v.QuantityMismatches) != 1 || v.QuantityMismatches[0].EmailQuantity != 4 || v.QuantityMismatches[0].SOQuantity != 3 {
		t.Fatalf("mismatches=%+v", v.QuantityMismatches)
	}
	if len(v.Matches) != 2 || !v.Matches[0].QuantityMatch || v.Matches[1].QuantityMatch || v.Matches[1].SOLine != 2 {
		t.Fatalf("matches=%+v", v.Matches)
	}

	res = e.Validate(context.Background(), order, baseShipment(
		ship("MOV Extra 0", 2, "DRUM", 3),
		ship("MOV Extra 0", 1, "DRUM", 4),
	))
	if res.Verdict.Overall != internal.OverallPass || !res.Verdict.Matches[0].PartialQuantity || res.Verdict.Matches[1].PartialQuantity {
		t.Fatalf("batches summing to the ordered quantity: %+v", res.Verdict)
	}
}

func TestUnmatchedReasonWithoutUnit(t *testing.T) {
	e := NewEngine(DefaultRules(), nil, nil)
	order := baseOrder(item("A-1", "Item A", 3, "DRUM", "300.00"))
	res := e.Validate(context.Background(), order, baseShipment(ship("Gear oil", 2, "", 1)))
	u := res.Verdict.UnmatchedItems
	if len(u) != 1 || u[0].Reason != `Email item "Gear oil" (2) was not found on SO #2707` {
		t.Fatalf("unmatched=%+v", u)
	}
}

func TestUnreadableLinesFailItemsCheck(t *testing.T) {
	e := NewEngine(DefaultRules(), nil, nil)
	order := baseOrder(item("A-1", "Item A", 3, "DRUM", "300.00"))

	res := e.Validate(context.Background(), order, baseShipment())
	if res.Verdict.ItemsCheck.Status != internal.CheckWarning || res.Verdict.Overall != internal.OverallPass {
		t.Fatalf("no items: %+v", res.Verdict.ItemsCheck)
	}

	shipment := baseShipment()
	shipment.LineMarkerCount = 2
	res = e.Validate(context.Background(), order, shipment)
	if res.Verdict.ItemsCheck.Status != internal.CheckFailed || res.Verdict.Overall != internal.OverallFail {
		t.Fatalf("unreadable lines: %+v", res.Verdict.ItemsCheck)
	}
}

func TestToteSoldAsOneUnitSkipsQuantity(t *testing.T) {
	e := NewEngine(DefaultRules(), nil, nil)
	order := baseOrder(item("CT-1", "Coolant concentrate", 1, "TOTE", "900.00"))
	res := e.Validate(context.Background(), order, baseShipment(ship("Coolant concentrate", 1000, "CONTAINER", 2)))
	if res.Verdict.Overall != internal.OverallPass || len(res.Verdict.QuantityMismatches) != 0 {
		t.Fatalf("verdict=%+v", res.Verdict)
	}

	order.Items[0].Quantity = 2
	res = e.Validate(context.Background(), order, baseShipment(ship("Coolant concentrate", 1000, "CONTAINER", 2)))
	if res.Verdict.Overall != internal.OverallFail {
		t.Fatal("tote quantity above 1 is compared")
	}
}

func TestPartialShipmentSkipsChargeLines(t *testing.T) {
	e := NewEngine(DefaultRules(), nil, nil)
	order := baseOrder(
		item("", "Freight", 1, "EACH", "75.00"),
		item("A-1", "Item A", 3, "DRUM", "300.00"),
		item("", "Pallet Charge", 2, "EACH", "50.00"),
		item("B-2", "Item B", 2, "PAIL", "100.00"),
	)
	order.Subtotal = decimal.RequireFromString("525.00")
	order.Tax = decimal.RequireFromString("68.25")
	order.TotalAmount = decimal.RequireFromString("593.25")

	shipment := baseShipment(ship("Item B", 2, "PAIL", 3))
	shipment.SetLineNumbers([]int{2})

	res := e.Validate(context.Background(), order, shipment)
	if res.Verdict.Overall != internal.OverallPass {
		t.Fatalf("verdict=%+v", res.Verdict)
	}
	if m := res.Verdict.Matches[0]; m.SOLine != 2 || m.SODescription != "Item B" {
		t.Fatalf("match=%+v", m)
	}
	if len(res.Order.Items) != 1 || res.Order.Items[0].Description != "Item B" {
		t.Fatalf("filtered items=%+v", res.Order.Items)
	}
	if len(order.Items) != 4 {
		t.Fatal("input order was modified")
	}

	shipment.Items = []internal.ShipmentItem{ship("Item A", 3, "DRUM", 3)}
	res = e.Validate(context.Background(), order, shipment)
	if res.Verdict.Overall != internal.OverallFail || len(res.Verdict.UnmatchedItems) != 1 {
		t.Fatalf("line 1 item accepted against line 2: %+v", res.Verdict)
	}

	shipment.SetLineNumbers([]int{5})
	res = e.Validate(context.Background(), order, shipment)
	if len(res.Verdict.UnmatchedItems) != 2 || !strings.Contains(res.Verdict.UnmatchedItems[0].Reason, "SO line 5") {
		t.Fatalf("unmatched=%+v", res.Verdict.UnmatchedItems)
	}
}

func TestSONumberCheck(t *testing.T) {
	tests := []struct {
		email, pdf string
		status     internal.CheckStatus
		details    string
	}{
		{"2707", " 2707 ", internal.CheckPassed, "SO #2707 matches"},
		{"2707", "2932", internal.CheckFailed, "Email mentions SO #2707 but PDF is for SO #2932"},
		{"", "2932", internal.CheckFailed, "Email does not mention a sales order number"},
		{"2707", "", internal.CheckFailed, "Email mentions SO #2707 but no SO number was found in the PDF"},
	}
	for _, tt := range tests {
		c := checkSONumber(internal.SalesOrder{SONumber: tt.pdf}, internal.EmailShipment{SONumber: tt.email})
		if c.Status != tt.status || c.Details != tt.details {
			t.Errorf("%q/%q: got %s %q", tt.email, tt.pdf, c.Status, c.Details)
		}
	}
}

func TestCompanyMatches(t *testing.T) {
	tests := []struct {
		email, so string
		want      bool
	}{
		{"Acme Lubricants", "ACME LUBRICANTS INC.", true},
		{"Acme", "Acme Lubricants Inc", true},
		{"Northern Acme Lubricants East", "Acme Lubricants Inc", true},
		{"Lubricants Depot", "Acme Lubricants", true},
		{"Beta Limited", "Acme Limited", false},
		{"John Smith", "Acme Lubricants Inc", false},
		{"", "Acme", false},
	}
	for _, tt := range tests {
		if got := CompanyMatches(tt.email, tt.so); got != tt.want {
			t.Errorf("%q vs %q: got %v", tt.email, tt.so, got)
		}
	}
}

func TestCompanyCheckUsesJudge(t *testing.T) {
	order := baseOrder()
	order.ShipTo.CompanyName = "Acme Warehouse"
	shipment := baseShipment()
	shipment.CompanyName = "John Smith"

	judge := &stubJudge{j: CompanyJudgement{Valid: true, Confidence: "medium", Reason: "John Smith is the receiving contact"}}
	c := NewEngine(DefaultRules(), judge, nil).checkCompany(context.Background(), order, shipment)
	if c.Status != internal.CheckPassedWithAI || c.Details != "John Smith is the receiving contact" || judge.calls != 1 {
		t.Fatalf("check=%+v calls=%d", c, judge.calls)
	}

	judge = &stubJudge{j: CompanyJudgement{Valid: true, Confidence: "low", Reason: "unclear"}}
	c = NewEngine(DefaultRules(), judge, nil).checkCompany(context.Background(), order, shipment)
	if c.Status != internal.CheckFailed || !strings.HasSuffix(c.Details, ": unclear") {
		t.Fatalf("low confidence check=%+v", c)
	}

	judge = &stubJudge{err: internal.ErrLLMUnavailable}
	c = NewEngine(DefaultRules(), judge, nil).checkCompany(context.Background(), order, shipment)
	if c.Status != internal.CheckFailed {
		t.Fatalf("judge error check=%+v", c)
	}

	shipment.CompanyName = "Acme Lubricants"
	judge = &stubJudge{err: errors.New("should not be called")}
	c = NewEngine(DefaultRules(), judge, nil).checkCompany(context.Background(), order, shipment)
	if c.Status != internal.CheckPassed || judge.calls != 0 {
		t.Fatalf("direct match check=%+v calls=%d", c, judge.calls)
	}

	shipment.CompanyName = ""
	c = NewEngine(DefaultRules(), nil, nil).checkCompany(context.Background(), order, shipment)
	if c.Status != internal.CheckWarning {
		t.Fatalf("missing company check=%+v", c)
	}
}

func TestFilterForShipment(t *testing.T) {
	order := baseOrder(
		item("A-1", "Item A", 3, "DRUM", "300.00"),
		item("B-2", "Item B", 2, "PAIL", "100.00"),
	)
	order.Subtotal = decimal.RequireFromString("400.00")
	order.Tax = decimal.RequireFromString("52.00")
	order.TotalAmount = decimal.RequireFromString("452.00")

	full := FilterForShipment(order, baseShipment(), DefaultRules())
	if full.TotalsArePartial || len(full.Items) != 2 || full.PartialShipmentNotice != "" {
		t.Fatalf("full shipment changed the order: %+v", full)
	}

	shipment := baseShipment()
	shipment.SetLineNumbers([]int{1})
	got := FilterForShipment(order, shipment, DefaultRules())
	if len(got.Items) != 1 || got.Items[0].ItemCode != "A-1" {
		t.Fatalf("items=%+v", got.Items)
	}
	if got.Subtotal.StringFixed(2) != "300.00" || got.Tax.StringFixed(2) != "39.00" || got.TotalAmount.StringFixed(2) != "339.00" {
		t.Fatalf("totals %s %s %s", got.Subtotal, got.Tax, got.TotalAmount)
	}
	if !got.TotalsArePartial || !strings.Contains(got.PartialShipmentNotice, "line 1 only") ||
		!strings.Contains(got.PartialShipmentNotice, "452.00") {
		t.Fatalf("notice %q", got.PartialShipmentNotice)
	}
	if order.Subtotal.StringFixed(2) != "400.00" || len(order.Items) != 2 {
		t.Fatal("input order was modified")
	}
}

func TestLoadRules(t *testing.T) {
	r, err := LoadRules("")
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Families) != 1 || r.Families[0].Token != "MOV" || r.Abbreviations[0] != "VSG" {
		t.Fatalf("rules=%+v", r)
	}
	if !r.IsCharge(internal.LineItem{Description: "Brokerage fees"}) || r.IsCharge(internal.LineItem{Description: "Palletized grease"}) {
		t.Fatal("charge detection")
	}
	if _, err := LoadRules("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
