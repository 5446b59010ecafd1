package shipment

import (
	"strings"

	"github.com/shopspring/decimal"

	"shipdoc/internal"
	"shipdoc/internal/util"
)

// ParseDeterministic extracts a shipment with regular expressions only. An
// email without any sales order number is an *internal.EmailParseError.
func ParseDeterministic(text, shipper string) (internal.EmailShipment, error) {
	text = util.CleanText(text)
	so, lineNumbers := ExtractSONumber(text)
	if so == "" {
		return internal.EmailShipment{}, &internal.EmailParseError{Reason: "sales order number", Err: internal.ErrNoSONumber}
	}
	lines := strings.Split(text, "\n")

	s := internal.EmailShipment{
		SONumber:    so,
		PONumber:    findPO(text),
		CompanyName: findCompany(text, shipper),
		Items:       scanItems(lines),
		Strategy:    StrategyDeterministic,
	}
	s.SetLineNumbers(lineNumbers)

	var batches []string
	var weights []decimal.Decimal
	for _, it := range s.Items {
		batches = append(batches, it.BatchNumber)
		weights = append(weights, it.WeightKg)
	}
	if len(batches) == 0 || strings.Join(batches, "") == "" {
		batches = []string{findBatch(text)}
	}
	s.TotalWeight, s.TotalWeightKg = AggregateWeights(weights)
	if s.TotalWeightKg.IsZero() {
		if total := totalWeightMention(text); total.Sign() > 0 {
			s.TotalWeight, s.TotalWeightKg = formatKg(total), total
		}
	}
	applyCommon(&s, text, lines, batches)
	return s, nil
}

// applyCommon fills the fields both strategies derive from the raw text the
// same way.
func applyCommon(s *internal.EmailShipment, text string, lines []string, batches []string) {
	s.BatchNumber, s.BatchNumbersFull = NormalizeBatches(batches)

	pack := detectPackaging(text)
	if s.PalletCount == 0 {
		s.PalletCount = pack.count
	}
	if s.PalletDimensions == "" {
		s.PalletDimensions = pack.dims
	}
	if s.PackagingType == "" {
		s.PackagingType = pack.kind
	}
	pack.count, pack.dims, pack.kind = s.PalletCount, s.PalletDimensions, s.PackagingType
	s.SkidInfo = pack.skidInfo()

	if s.Carrier == "" {
		s.Carrier = detectCarrier(text)
	}
	s.LineMarkerCount = countLineMarkers(lines)
}
