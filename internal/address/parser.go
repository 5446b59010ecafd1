package address

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"shipdoc/internal"
	"shipdoc/internal/llm"
	"shipdoc/internal/logger"
)

const (
	StrategyLLM           = "llm"
	StrategyDeterministic = "deterministic"
)

const addressPrompt = `You split North American postal addresses into fields.
Return only a JSON object with the keys "street", "city", "province", "postal_code", "country".
Use the two letter province or state code. Use "Canada" or "USA" for country.
Leave a key empty when the address does not contain it. Never invent data.`

var rePostalLoose = regexp.MustCompile(`(?i)^([A-Z]\d[A-Z])\s*(\d[A-Z]\d)$`)

// Parser decomposes address blocks, asking the language model first when one
// is configured and falling back to ParseFields.
type Parser struct {
	llm llm.Completer
	log *zap.Logger
}

func NewParser(c llm.Completer, log *zap.Logger) *Parser {
	return &Parser{llm: c, log: logger.OrNop(log)}
}

// Parse returns the fields of raw and the name of the strategy that produced
// them.
func (p *Parser) Parse(ctx context.Context, raw, contact string) (Fields, string) {
	if strings.TrimSpace(raw) == "" {
		return Fields{}, StrategyDeterministic
	}
	if p != nil && p.llm != nil {
		f, err := p.tryLLM(ctx, raw, contact)
		if err == nil {
			return f, StrategyLLM
		}
		if errors.Is(err, internal.ErrLLMUnavailable) {
			p.log.Debug("address llm unavailable")
		} else {
			p.log.Warn("address llm fallback", zap.Error(err))
		}
	}
	return ParseFields(raw, contact), StrategyDeterministic
}

func (p *Parser) tryLLM(ctx context.Context, raw, contact string) (Fields, error) {
	user := "Address:\n" + Clean(raw)
	if contact != "" {
		user += "\nContact person (not part of the street): " + contact
	}
	var f Fields
	if err := llm.Ask(ctx, p.llm, addressPrompt, user, &f); err != nil {
		return Fields{}, err
	}
	return normalizeLLMFields(f, contact)
}

func normalizeLLMFields(f Fields, contact string) (Fields, error) {
	f.Street = tidy(f.Street)
	f.City = tidy(f.City)
	if f.City == "" && f.PostalCode == "" {
		return Fields{}, fmt.Errorf("%w: no city or postal code", internal.ErrMalformedLLMOutput)
	}
	if code, ok := RegionCode(f.Province); ok {
		f.Province = code
	} else {
		f.Province = strings.ToUpper(strings.TrimSpace(f.Province))
	}
	f.PostalCode = strings.ToUpper(strings.TrimSpace(f.PostalCode))
	if m := rePostalLoose.FindStringSubmatch(f.PostalCode); m != nil {
		f.PostalCode = m[1] + " " + m[2]
	}
	switch strings.ToUpper(strings.TrimSpace(f.Country)) {
	case "CANADA", "CA":
		f.Country = CountryCanada
	case "USA", "US", "UNITED STATES", "UNITED STATES OF AMERICA":
		f.Country = CountryUSA
	case "":
		f.Country, _ = RegionCountry(f.Province)
	}
	if c := strings.TrimSpace(contact); c != "" && strings.Contains(f.Street, c) {
		f.Street = tidy(strings.ReplaceAll(f.Street, c, ""))
	}
	return f, nil
}
