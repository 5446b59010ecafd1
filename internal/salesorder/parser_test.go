package salesorder

import (
	"context"
	"errors"
	"strings"
	"testing"

	"shipdoc/internal"
	"shipdoc/internal/address"
)

const twoColumnOrder = `CANOIL CANADA LTD
SALES ORDER
Sales Order No: 2707
Order Date: 2024-03-05    Ship Date: 2024-03-12
Sold To:                                Ship To:
Acme Lubricants Inc                     Acme Warehouse
Attn: Jane Roy                          88 Dock Rd
12 Bay St                               Hamilton, ON L8P 4R5
Toronto, ON M5J 2R8
Business No: 123456789 RT0001
Terms: Net 30
P.O.: PO-555
Item No. Ordered Unit Description Unit Price Amount
CC-100 3 DRUM MOV Extra 0 540.00 1,620.00
CC-200 2 PAIL VSG 46 $90.00 $180.00
FREIGHT 1 EACH Freight charge 75.00 75.00
Subtotal: 1,875.00
HST: 243.75
Total: 2,118.75`

func newTestParser() *Parser {
	return NewParser(address.NewParser(nil, nil), 0, nil)
}

func textDoc(text string) Document {
	return Document{Pages: []Page{{Number: 1, Text: text, Layout: text}}}
}

func TestParseDocumentTwoColumnOrder(t *testing.T) {
	order, err := newTestParser().ParseDocument(context.Background(), textDoc(twoColumnOrder), "/orders/salesorder_2707.pdf")
	if err != nil {
		t.Fatal(err)
	}

	checks := []struct {
		name string
		got  string
		want string
	}{
		{"so", order.SONumber, "2707"},
		{"customer", order.CustomerName, "Acme Lubricants Inc"},
		{"order date", order.OrderDate, "2024-03-05"},
		{"ship date", order.ShipDate, "2024-03-12"},
		{"business", order.BusinessNumber, "123456789 RT0001"},
		{"terms", order.Terms, "Net 30"},
		{"po", order.PONumber, "PO-555"},
		{"subtotal", order.Subtotal.StringFixed(2), "1875.00"},
		{"tax", order.Tax.StringFixed(2), "243.75"},
		{"total", order.TotalAmount.StringFixed(2), "2118.75"},
		{"status", string(order.Status), string(internal.StatusUnknown)},
		{"source", order.SourceFile, "salesorder_2707.pdf"},
		{"sold contact", order.SoldTo.ContactPerson, "Jane Roy"},
		{"sold street", order.SoldTo.Street, "12 Bay St"},
		{"sold city", order.SoldTo.City, "Toronto"},
		{"sold province", order.SoldTo.Province, "ON"},
		{"sold postal", order.SoldTo.PostalCode, "M5J 2R8"},
		{"sold country", order.SoldTo.Country, "Canada"},
		{"ship company", order.ShipTo.CompanyName, "Acme Warehouse"},
		{"ship street", order.ShipTo.Street, "88 Dock Rd"},
		{"ship city", order.ShipTo.City, "Hamilton"},
		{"ship postal", order.ShipTo.PostalCode, "L8P 4R5"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %q want %q", c.name, c.got, c.want)
		}
	}

	if len(order.Items) != 2 {
		t.Fatalf("items=%+v", order.Items)
	}
	first := order.Items[0]
	if first.ItemCode != "CC-100" || first.Quantity != 3 || first.Unit != "DRUM" || first.Description != "MOV Extra 0" {
		t.Fatalf("first item %+v", first)
	}
	if first.UnitPrice.StringFixed(2) != "540.00" || first.Amount.StringFixed(2) != "1620.00" {
		t.Fatalf("first prices %s %s", first.UnitPrice, first.Amount)
	}
	if second := order.Items[1]; second.Unit != "PAIL" || second.Amount.StringFixed(2) != "180.00" {
		t.Fatalf("second item %+v", second)
	}
	if order.IsPickupOrder || len(order.Warnings) != 0 {
		t.Fatalf("pickup=%v warnings=%v", order.IsPickupOrder, order.Warnings)
	}
}

func TestParseDocumentSideChannelAndPickup(t *testing.T) {
	words := []address.Word{
		{Text: "Sold", X0: 30, Top: 100}, {Text: "To:", X0: 55, Top: 100},
		{Text: "Ship", X0: 300, Top: 100}, {Text: "To:", X0: 325, Top: 100},
		{Text: "Beta", X0: 30, Top: 112}, {Text: "Oils", X0: 60, Top: 112},
		{Text: "CUSTOMER", X0: 300, Top: 112}, {Text: "PICK", X0: 350, Top: 112}, {Text: "UP", X0: 380, Top: 112},
		{Text: "Batch", X0: 430, Top: 112}, {Text: "WH2B7", X0: 470, Top: 112},
		{Text: "5", X0: 30, Top: 124}, {Text: "Elm", X0: 42, Top: 124}, {Text: "Ave", X0: 62, Top: 124},
		{Text: "MO", X0: 430, Top: 124}, {Text: "5521", X0: 450, Top: 124},
		{Text: "Guelph,", X0: 30, Top: 136}, {Text: "ON", X0: 70, Top: 136}, {Text: "N1H", X0: 90, Top: 136}, {Text: "2K5", X0: 110, Top: 136},
		{Text: "ITEM", X0: 30, Top: 160},
	}
	text := "Sales Order 3001\nSold To:\nShip To:\nBeta Oils\nCUSTOMER PICK UP\n5 Elm Ave\nGuelph, ON N1H 2K5\nBG-1 4 PAIL Grease EP2 40.00 160.00"
	doc := Document{Pages: []Page{{Number: 1, Text: text, Layout: text, Words: words}}}

	order, err := newTestParser().ParseDocument(context.Background(), doc, "SO_3001_R2.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if order.Status != internal.StatusRevised {
		t.Fatalf("status=%s", order.Status)
	}
	if !order.IsPickupOrder || order.ShipTo.AddressRaw != "" || order.ShipTo.City != "" {
		t.Fatalf("pickup not applied: %+v", order.ShipTo)
	}
	if order.SoldTo.CompanyName != "Beta Oils" || order.SoldTo.City != "Guelph" || order.SoldTo.PostalCode != "N1H 2K5" {
		t.Fatalf("sold to %+v", order.SoldTo)
	}
	if order.BatchNumber != "WH2B7" || order.MONumber != "5521" {
		t.Fatalf("batch=%q mo=%q", order.BatchNumber, order.MONumber)
	}
	if order.Subtotal.StringFixed(2) != "160.00" || order.TotalAmount.StringFixed(2) != "160.00" {
		t.Fatalf("subtotal=%s total=%s", order.Subtotal, order.TotalAmount)
	}
}

func TestParseDocumentWithoutAddressMarker(t *testing.T) {
	text := "Sales Order No: 4100\nX-1 2 CASE Wipes 15.00 30.00\nX-2 1 TOTE Coolant 900.00\nGST: 46.50"
	order, err := newTestParser().ParseDocument(context.Background(), textDoc(text), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(order.Warnings) != 1 || order.Warnings[0] != internal.ErrNoAddressMarker.Error() {
		t.Fatalf("warnings=%v", order.Warnings)
	}
	if !order.SoldTo.IsEmpty() || !order.ShipTo.IsEmpty() {
		t.Fatal("addresses should stay empty")
	}
	if order.Subtotal.StringFixed(2) != "930.00" {
		t.Fatalf("subtotal=%s", order.Subtotal)
	}
	if order.TotalAmount.StringFixed(2) != "976.50" {
		t.Fatalf("total=%s", order.TotalAmount)
	}
	if tote := order.Items[1]; tote.UnitPrice.StringFixed(2) != "900.00" || tote.Quantity != 1 {
		t.Fatalf("tote=%+v", tote)
	}
}

func TestParseDocumentNoText(t *testing.T) {
	_, err := newTestParser().ParseDocument(context.Background(), textDoc("  \n "), "empty.pdf")
	var pe *internal.ParseError
	if !errors.As(err, &pe) || !errors.Is(err, internal.ErrNoText) {
		t.Fatalf("err=%v", err)
	}
}

func TestParseBytesRejectsGarbage(t *testing.T) {
	_, err := newTestParser().ParseBytes(context.Background(), []byte("definitely not a pdf"), "junk.pdf")
	var pe *internal.ParseError
	if !errors.As(err, &pe) || pe.Op != "open pdf" {
		t.Fatalf("err=%v", err)
	}
}

func TestCommentLineWinsForPOAndTotal(t *testing.T) {
	text := strings.Join([]string{
		"Sales Order No: 5000",
		"P.O.: GENERIC-1",
		"Comment: PO# 778812 total $1,500.00",
		"A-1 3 DRUM Oil 100.00 300.00",
		"Total: 339.00",
	}, "\n")
	order, err := newTestParser().ParseDocument(context.Background(), textDoc(text), "")
	if err != nil {
		t.Fatal(err)
	}
	if order.PONumber != "778812" {
		t.Fatalf("po=%q", order.PONumber)
	}
	if order.TotalAmount.StringFixed(2) != "1500.00" {
		t.Fatalf("total=%s", order.TotalAmount)
	}
}
