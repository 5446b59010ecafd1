package shipment

import (
	"reflect"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"shipdoc/internal"
)

func TestExtractSONumber(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		so    string
		lines []int
	}{
		{"adjacent line", "Canoil sales order 2707 line 2, attached", "2707", []int{2}},
		{"list markers only", "SO 2932, attached)\n\nLine 1: 100 cases\nLine 2: 60 pails", "2932", nil},
		{"several lines", "Please ship SO #3100 lines 1, 3 and 4 today", "3100", []int{1, 3, 4}},
		{"line item", "Sales Order No. 4410 line item 2", "4410", []int{2}},
		{"quantity after line", "SO 100 line 1, 3 drums of Item A", "100", []int{1}},
		{"line on next row", "SO 2707\nline 2: 3 drums of oil", "2707", nil},
		{"lowercase so before a quantity", "so 12 drums left, SO 2708 line 1", "2708", []int{1}},
		{"lowercase so before a unit", "so 1000 cases went out on SO 2708", "2708", nil},
		{"lowercase so number", "re: so 2707 ready for pickup", "2707", nil},
		{"hyphenated", "Shipment for SO-2707 line 2", "2707", []int{2}},
		{"hyphen and hash", "so-#2707", "2707", nil},
		{"none", "Please ship the drums", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			so, lines := ExtractSONumber(tt.text)
			if so != tt.so || !reflect.DeepEqual(lines, tt.lines) {
				t.Fatalf("got %q %v want %q %v", so, lines, tt.so, tt.lines)
			}
		})
	}
}

func TestScanItemsWithLookahead(t *testing.T) {
	text := strings.Join([]string{
		"SO 2707",
		"3 drums of MOV Extra 0",
		"Batch number: NT5D14T016",
		"Total net weight: 1,200 kg",
		"2 drums of MOV Extra 1",
		"Batch number: NT5E19T018 (3) + NT5E19T019 (2)",
		"Total net weight: 1,020 kg",
		"4 pails of VSG 32, 1,760 kg total",
	}, "\n")
	items := scanItems(strings.Split(text, "\n"))
	if len(items) != 3 {
		t.Fatalf("items=%+v", items)
	}

	want := []internal.ShipmentItem{
		{Description: "MOV Extra 0", Quantity: 3, Unit: "DRUM", BatchNumber: "NT5D14T016", WeightKg: decimal.NewFromInt(1200), SourceLine: 2},
		{Description: "MOV Extra 1", Quantity: 2, Unit: "DRUM", BatchNumber: "NT5E19T018 (3) + NT5E19T019 (2)", WeightKg: decimal.NewFromInt(1020), SourceLine: 5},
		{Description: "VSG 32", Quantity: 4, Unit: "PAIL", WeightKg: decimal.NewFromInt(1760), SourceLine: 8},
	}
	for i, w := range want {
		got := items[i]
		if got.Description != w.Description || got.Quantity != w.Quantity || got.Unit != w.Unit ||
			got.BatchNumber != w.BatchNumber || !got.WeightKg.Equal(w.WeightKg) || got.SourceLine != w.SourceLine {
			t.Errorf("item %d: got %+v want %+v", i, got, w)
		}
	}

	s, err := ParseDeterministic(text, "Canoil Canada Ltd")
	if err != nil {
		t.Fatal(err)
	}
	if s.TotalWeight != "1,200 kg + 1,020 kg + 1,760 kg = 3,980 kg" {
		t.Fatalf("total weight %q", s.TotalWeight)
	}
	if !s.TotalWeightKg.Equal(decimal.NewFromInt(3980)) {
		t.Fatalf("total kg %s", s.TotalWeightKg)
	}
	if s.BatchNumber != "NT5D14T016 + NT5E19T018 + NT5E19T019" {
		t.Fatalf("batch %q", s.BatchNumber)
	}
	if s.BatchNumbersFull != "NT5D14T016 + NT5E19T018 (3) + NT5E19T019 (2)" {
		t.Fatalf("batch full %q", s.BatchNumbersFull)
	}
}

func TestDescriptionTruncation(t *testing.T) {
	items := scanItems([]string{"3 drums of MOV Extra 0, 540 kg total, batch NT1A2"})
	if len(items) != 1 {
		t.Fatalf("items=%+v", items)
	}
	it := items[0]
	if it.Description != "MOV Extra 0" || it.BatchNumber != "NT1A2" || !it.WeightKg.Equal(decimal.NewFromInt(540)) {
		t.Fatalf("item=%+v", it)
	}
}

func TestAggregateWeights(t *testing.T) {
	s, total := AggregateWeights([]decimal.Decimal{decimal.NewFromInt(7360)})
	if s != "7,360 kg" || !total.Equal(decimal.NewFromInt(7360)) {
		t.Fatalf("single: %q %s", s, total)
	}
	s, total = AggregateWeights([]decimal.Decimal{decimal.Zero, decimal.RequireFromString("10.5"), decimal.NewFromInt(2)})
	if s != "10.50 kg + 2 kg = 12.50 kg" || !total.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("mixed: %q %s", s, total)
	}
	if s, total = AggregateWeights(nil); s != "" || !total.IsZero() {
		t.Fatalf("empty: %q %s", s, total)
	}
}

func TestNormalizeBatches(t *testing.T) {
	tests := []struct {
		in    []string
		codes string
		full  string
	}{
		{[]string{"NT5D14T016 (5) + NT5E19T018 (3)"}, "NT5D14T016 + NT5E19T018", "NT5D14T016 (5) + NT5E19T018 (3)"},
		{[]string{"A100 (2)", "A100 (3)", ""}, "A100", "A100 (2) + A100 (3)"},
		{[]string{"B1, B2", "B2"}, "B1 + B2", "B1, B2 + B2"},
		{nil, "", ""},
	}
	for _, tt := range tests {
		codes, full := NormalizeBatches(tt.in)
		if codes != tt.codes || full != tt.full {
			t.Errorf("%q: got %q / %q", tt.in, codes, full)
		}
	}
}

func TestDetectPackaging(t *testing.T) {
	tests := []struct {
		text  string
		count int
		dims  string
		kind  internal.PackagingType
		info  string
	}{
		{"Shipping on 2 pallets 48x40x50", 2, "48x40x50", internal.PackagingPallet, "2 pallets 48x40x50 each"},
		{"Packed in 3 cases, 20 x 15 x 10 inches", 3, "20x15x10", internal.PackagingCase, "3 boxes 20x15x10 each"},
		{"1 skid going out", 1, "", internal.PackagingPallet, "1 pallet"},
		{"Pallet size 48x40", 0, "48x40", internal.PackagingPallet, "pallet 48x40"},
		{"nothing here", 0, "", internal.PackagingPallet, ""},
	}
	for _, tt := range tests {
		p := detectPackaging(tt.text)
		if p.count != tt.count || p.dims != tt.dims || p.kind != tt.kind || p.skidInfo() != tt.info {
			t.Errorf("%q: got %+v info %q", tt.text, p, p.skidInfo())
		}
	}
}

func TestDetectCarrier(t *testing.T) {
	tests := map[string]string{
		"Please book with Day and Ross; UPS for samples": "Day & Ross",
		"Manitoulin pickup tomorrow":                      "Manitoulin",
		"Customer will pick up at the dock":               "Customer pickup",
		"ups and downs of the week":                       "",
	}
	for text, want := range tests {
		if got := detectCarrier(text); got != want {
			t.Errorf("%q: got %q want %q", text, got, want)
		}
	}
}

func TestFindPO(t *testing.T) {
	tests := map[string]string{
		"Attached purchase order 4500-22 for review": "4500-22",
		"PO#: 778812":                                "778812",
		"PO Box 12, Hamilton":                        "",
		"no order number":                            "",
	}
	for text, want := range tests {
		if got := findPO(text); got != want {
			t.Errorf("%q: got %q want %q", text, got, want)
		}
	}
}
