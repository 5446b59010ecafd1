package address

import (
	"context"
	"errors"
	"testing"

	"shipdoc/internal/llm"
)

func TestParserPrefersLLM(t *testing.T) {
	stub := llm.CompleterFunc(func(ctx context.Context, m []llm.Message) (string, error) {
		return "```json\n{\"street\":\"12 Bay St\",\"city\":\"Toronto\",\"province\":\"Ontario\",\"postal_code\":\"m5j2r8\",\"country\":\"\"}\n```", nil
	})
	p := NewParser(stub, nil)
	got, strategy := p.Parse(context.Background(), "12 Bay St\nToronto ON M5J 2R8", "")
	if strategy != StrategyLLM {
		t.Fatalf("strategy=%s", strategy)
	}
	want := Fields{Street: "12 Bay St", City: "Toronto", Province: "ON", PostalCode: "M5J 2R8", Country: "Canada"}
	if got != want {
		t.Fatalf("got %+v", got)
	}
}

func TestParserFallsBack(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		err   error
	}{
		{"api error", "", errors.New("boom")},
		{"malformed", "not json", nil},
		{"empty fields", `{"street":"","city":"","postal_code":""}`, nil},
	}
	raw := "1200 Industrial Rd\nRouyn-Noranda, Quebec J9X 5B5"
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := llm.CompleterFunc(func(ctx context.Context, m []llm.Message) (string, error) {
				return tc.reply, tc.err
			})
			got, strategy := NewParser(stub, nil).Parse(context.Background(), raw, "")
			if strategy != StrategyDeterministic {
				t.Fatalf("strategy=%s", strategy)
			}
			if got != ParseFields(raw, "") {
				t.Fatalf("fallback differs: %+v", got)
			}
		})
	}
}

func TestParserWithoutLLM(t *testing.T) {
	got, strategy := NewParser(nil, nil).Parse(context.Background(), "45 King St W, Toronto, ON M5H 1J8", "")
	if strategy != StrategyDeterministic || got.City != "Toronto" {
		t.Fatalf("got %+v via %s", got, strategy)
	}
}
