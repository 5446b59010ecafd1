package address

import "testing"

func TestParseFields(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		contact string
		want    Fields
	}{
		{
			name: "canadian postal infers country",
			raw:  "1200 Industrial Rd\nRouyn-Noranda, Quebec J9X 5B5",
			want: Fields{Street: "1200 Industrial Rd", City: "Rouyn-Noranda", Province: "QC", PostalCode: "J9X 5B5", Country: "Canada"},
		},
		{
			name: "bare province code",
			raw:  "45 King St W, Toronto, ON M5H1J8",
			want: Fields{Street: "45 King St W", City: "Toronto", Province: "ON", PostalCode: "M5H 1J8", Country: "Canada"},
		},
		{
			name: "us zip",
			raw:  "12345 Ranch Rd\nAustin, TX 78701-1234",
			want: Fields{Street: "12345 Ranch Rd", City: "Austin", Province: "TX", PostalCode: "78701-1234", Country: "USA"},
		},
		{
			name: "explicit country wins",
			raw:  "1 Front St, Windsor, ON 48226, USA",
			want: Fields{Street: "1 Front St", City: "Windsor", Province: "ON", PostalCode: "48226", Country: "USA"},
		},
		{
			name: "street named after province",
			raw:  "200 Ontario St, Kingston, ON K7L 2Y9, Canada",
			want: Fields{Street: "200 Ontario St", City: "Kingston", Province: "ON", PostalCode: "K7L 2Y9", Country: "Canada"},
		},
		{
			name: "state name followed by city",
			raw:  "9 Grand Blvd, Kansas City, MO 64106",
			want: Fields{Street: "9 Grand Blvd", City: "Kansas City", Province: "MO", PostalCode: "64106", Country: "USA"},
		},
		{
			name:    "contact removed from street",
			raw:     "Attn Jane Roy, 77 Mill Rd, Guelph, Ontario",
			contact: "Attn Jane Roy",
			want:    Fields{Street: "77 Mill Rd", City: "Guelph", Province: "ON", Country: "Canada"},
		},
		{
			name: "phone stripped",
			raw:  "3 Dock St\nHalifax, Nova Scotia B3H 1A1\nTel 902-555-0101",
			want: Fields{Street: "3 Dock St", City: "Halifax", Province: "NS", PostalCode: "B3H 1A1", Country: "Canada"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseFields(tc.raw, tc.contact)
			if got != tc.want {
				t.Fatalf("got %+v\nwant %+v", got, tc.want)
			}
		})
	}
}

func TestParseFieldsReparseIsStable(t *testing.T) {
	raws := []string{
		"1200 Industrial Rd\nRouyn-Noranda, Quebec J9X 5B5",
		"45 King St W, Toronto, ON M5H 1J8",
		"12345 Ranch Rd\nAustin, TX 78701",
		"Unit 4, 88 Bridge St, Saint John, New Brunswick E2L 4S6",
	}
	for _, raw := range raws {
		first := ParseFields(raw, "")
		second := ParseFields(first.Join(), "")
		if first.City != second.City || first.Province != second.Province || first.PostalCode != second.PostalCode {
			t.Fatalf("reparse of %q changed fields: %+v -> %+v", raw, first, second)
		}
	}
}

func TestParseFieldsEmpty(t *testing.T) {
	if got := ParseFields("  N/A ", ""); got != (Fields{}) {
		t.Fatalf("got %+v", got)
	}
}
