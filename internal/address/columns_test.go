package address

import (
	"reflect"
	"testing"
)

func words(ws ...Word) []Word { return ws }

func TestExtractColumns(t *testing.T) {
	page := words(
		Word{"Ship", 420, 40}, Word{"Date:", 450, 40},
		Word{"Sold", 30, 100}, Word{"To:", 55, 100},
		Word{"Ship", 300, 100}, Word{"To:", 325, 100},
		Word{"Acme", 30, 112}, Word{"Lubricants", 62, 112.4},
		Word{"Acme", 300, 112}, Word{"Warehouse", 332, 112},
		Word{"Batch", 430, 112}, Word{"WH5A12", 470, 112},
		Word{"12", 30, 124}, Word{"Bay", 45, 124}, Word{"St", 70, 124},
		Word{"88", 300, 124}, Word{"Dock", 318, 124}, Word{"Rd", 350, 124},
		Word{"MO", 430, 124}, Word{"4821", 450, 124},
		Word{"Toronto,", 30, 136}, Word{"ON", 80, 136}, Word{"M5J", 100, 136}, Word{"2R8", 125, 136},
		Word{"MO", 300, 136}, Word{"ref", 320, 136},
		Word{"BUSINESS", 30, 170}, Word{"NO.", 90, 170},
		Word{"Ignored", 30, 180},
	)

	got := ExtractColumns(page)
	want := ColumnResult{
		SoldToLines: []string{"Acme Lubricants", "12 Bay St", "Toronto, ON M5J 2R8"},
		ShipToLines: []string{"Acme Warehouse", "88 Dock Rd"},
		BatchNumber: "WH5A12",
		MONumber:    "4821",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v\nwant %+v", got, want)
	}
}

func TestExtractColumnsBlockEnd(t *testing.T) {
	base := words(
		Word{"Sold", 30, 100}, Word{"To:", 55, 100},
		Word{"Ship", 300, 100}, Word{"To:", 325, 100},
		Word{"Acme", 30, 112}, Word{"Beta", 300, 112},
		Word{"Toronto", 30, 262}, Word{"Ottawa", 300, 262},
	)
	cases := []struct {
		name     string
		extra    []Word
		wantSold []string
		wantShip []string
	}{
		{"deep end marker", []Word{{"BUSINESS", 30, 285}, {"Ignored", 30, 300}}, []string{"Acme", "Toronto"}, []string{"Beta", "Ottawa"}},
		{"item marker", []Word{{"ITEM", 30, 200}}, []string{"Acme"}, []string{"Beta"}},
		{"no marker", nil, []string{"Acme"}, []string{"Beta"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page := append(append([]Word{}, base...), tc.extra...)
			got := ExtractColumns(page)
			if !reflect.DeepEqual(got.SoldToLines, tc.wantSold) || !reflect.DeepEqual(got.ShipToLines, tc.wantShip) {
				t.Fatalf("sold=%q ship=%q", got.SoldToLines, got.ShipToLines)
			}
		})
	}
}

func TestExtractColumnsRejectsNearbyShip(t *testing.T) {
	page := words(
		Word{"Sold", 30, 100}, Word{"To:", 55, 100},
		Word{"Ship", 60, 100},
		Word{"Acme", 30, 112},
	)
	if got := ExtractColumns(page); !got.Empty() {
		t.Fatalf("expected empty result, got %+v", got)
	}
}

func TestFromTables(t *testing.T) {
	tables := [][][]string{
		{{"Invoice", "2707"}},
		{
			{"Sold To:", "Ship To:"},
			{"Acme Lubricants\n12 Bay St", "Acme Warehouse\n88 Dock Rd"},
			{"Toronto, ON", ""},
			{"ITEM NO.", "DESCRIPTION"},
			{"CC-1", "Oil"},
		},
	}
	got := FromTables(tables)
	want := ColumnResult{
		SoldToLines: []string{"Acme Lubricants", "12 Bay St", "Toronto, ON"},
		ShipToLines: []string{"Acme Warehouse", "88 Dock Rd"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v\nwant %+v", got, want)
	}
}
