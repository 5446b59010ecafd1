package shipment

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"shipdoc/internal"
	"shipdoc/internal/llm"
	"shipdoc/internal/logger"
	"shipdoc/internal/util"
)

const (
	StrategyLLM           = "llm"
	StrategyDeterministic = "deterministic"

	DefaultRetries = 2
)

// Parser turns shipment email bodies into EmailShipment records. The model
// is asked first when one is configured; the regular expression strategy is
// the fallback and always available.
type Parser struct {
	llm     llm.Completer
	shipper string
	retries int
	log     *zap.Logger
}

func NewParser(c llm.Completer, shipper string, retries int, log *zap.Logger) *Parser {
	if retries < 0 {
		retries = DefaultRetries
	}
	return &Parser{llm: c, shipper: shipper, retries: retries, log: logger.OrNop(log)}
}

func (p *Parser) Parse(ctx context.Context, text string) (internal.EmailShipment, error) {
	text = util.CleanText(text)
	if p.llm != nil {
		for attempt := 0; attempt <= p.retries; attempt++ {
			s, err := p.tryLLM(ctx, text)
			if err == nil {
				return s, nil
			}
			if errors.Is(err, internal.ErrLLMUnavailable) {
				p.log.Debug("shipment llm unavailable")
				break
			}
			p.log.Warn("shipment llm attempt failed", zap.Int("attempt", attempt+1), zap.Error(err))
			if ctx.Err() != nil {
				break
			}
		}
	}
	return ParseDeterministic(text, p.shipper)
}
