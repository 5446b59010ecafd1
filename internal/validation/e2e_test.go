package validation_test

import (
	"context"
	"testing"

	"shipdoc/internal"
	"shipdoc/internal/salesorder"
	"shipdoc/internal/shipment"
	"shipdoc/internal/validation"
)

const twoItemOrder = `Sales Order No: 100
A-1 3 DRUM Item A 100.00 300.00
B-2 2 PAIL Item B 50.00 100.00
Subtotal: 400.00
HST: 52.00
Total: 452.00`

func TestPartialShipmentEndToEnd(t *testing.T) {
	ctx := context.Background()
	doc := salesorder.Document{Pages: []salesorder.Page{{Number: 1, Text: twoItemOrder, Layout: twoItemOrder}}}
	order, err := salesorder.NewParser(nil, 0, nil).ParseDocument(ctx, doc, "salesorder_100.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if len(order.Items) != 2 {
		t.Fatalf("order items=%+v", order.Items)
	}

	s, err := shipment.NewParser(nil, "Canoil Canada Ltd", 0, nil).
		Parse(ctx, "SO 100 line 1, 3 drums of Item A, batch BATCH001")
	if err != nil {
		t.Fatal(err)
	}
	if !s.IsPartialShipment || len(s.SOLineNumbers) != 1 || s.SOLineNumbers[0] != 1 {
		t.Fatalf("line numbers %v", s.SOLineNumbers)
	}
	if len(s.Items) != 1 || s.Items[0].BatchNumber != "BATCH001" {
		t.Fatalf("shipment items %+v", s.Items)
	}

	res := validation.NewEngine(validation.DefaultRules(), nil, nil).Validate(ctx, order, s)
	if res.Verdict.Overall != internal.OverallPass {
		t.Fatalf("verdict=%+v", res.Verdict)
	}
	if len(res.Order.Items) != 1 || res.Order.Items[0].ItemCode != "A-1" {
		t.Fatalf("filtered items=%+v", res.Order.Items)
	}
	if !res.Order.Subtotal.Equal(order.Items[0].Amount) {
		t.Fatalf("subtotal %s want %s", res.Order.Subtotal, order.Items[0].Amount)
	}
	if res.Verdict.PartialShipmentNotice == "" || res.Order.PartialShipmentNotice == "" || !res.Order.TotalsArePartial {
		t.Fatal("partial shipment notice missing")
	}
	if len(order.Items) != 2 {
		t.Fatal("parsed order was modified")
	}
}
