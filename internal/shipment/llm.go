package shipment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"shipdoc/internal"
	"shipdoc/internal/llm"
)

const shipmentPrompt = `You read logistics emails sent to %[1]s and extract the shipment they describe.
Return only a JSON object with these keys:
"so_number": the sales order number, digits only.
"so_line_numbers": array of integers, only when the sales order number is directly followed by "line N". Otherwise [].
"po_number": the customer purchase order number.
"company_name": the customer company. Never %[1]s, which is the shipper.
"items": array of objects with "description", "quantity", "unit", "batch_number", "weight_kg".
"total_weight_kg", "pallet_count", "pallet_dimensions", "packaging_type" ("pallet" or "case"), "carrier".
When the email lists "Line 1:", "Line 2:" and so on, return one item for every line.
Use "" , 0 or [] for anything the email does not state.`

// looseString accepts a JSON string or number.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = looseString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	*s = looseString(num.String())
	return nil
}

type llmItem struct {
	Description string      `json:"description"`
	Quantity    float64     `json:"quantity"`
	Unit        string      `json:"unit"`
	BatchNumber looseString `json:"batch_number"`
	WeightKg    float64     `json:"weight_kg"`
}

type llmShipment struct {
	SONumber         looseString `json:"so_number"`
	SOLineNumbers    []int       `json:"so_line_numbers"`
	PONumber         looseString `json:"po_number"`
	CompanyName      string      `json:"company_name"`
	Items            []llmItem   `json:"items"`
	TotalWeightKg    float64     `json:"total_weight_kg"`
	PalletCount      int         `json:"pallet_count"`
	PalletDimensions string      `json:"pallet_dimensions"`
	PackagingType    string      `json:"packaging_type"`
	Carrier          string      `json:"carrier"`
}

func (p *Parser) tryLLM(ctx context.Context, text string) (internal.EmailShipment, error) {
	var out llmShipment
	prompt := fmt.Sprintf(shipmentPrompt, p.shipper)
	if err := llm.Ask(ctx, p.llm, prompt, "Email:\n"+text, &out); err != nil {
		return internal.EmailShipment{}, err
	}
	so := reDigits.FindString(string(out.SONumber))
	if so == "" {
		return internal.EmailShipment{}, fmt.Errorf("%w: so_number missing", internal.ErrMalformedLLMOutput)
	}
	lines := strings.Split(text, "\n")

	s := internal.EmailShipment{
		SONumber:         so,
		PONumber:         strings.TrimSpace(string(out.PONumber)),
		CompanyName:      strings.TrimSpace(out.CompanyName),
		PalletCount:      out.PalletCount,
		PalletDimensions: strings.TrimSpace(out.PalletDimensions),
		Carrier:          strings.TrimSpace(out.Carrier),
		Strategy:         StrategyLLM,
	}
	switch strings.ToLower(strings.TrimSpace(out.PackagingType)) {
	case "case", "cases", "box", "boxes":
		s.PackagingType = internal.PackagingCase
	case "pallet", "pallets", "skid", "skids":
		s.PackagingType = internal.PackagingPallet
	}

	detSO, detLines := ExtractSONumber(text)
	s.SetLineNumbers(detLines)
	if !slices.Equal(out.SOLineNumbers, detLines) && len(out.SOLineNumbers)+len(detLines) > 0 {
		p.log.Debug("llm line numbers ignored",
			zap.Ints("llm", out.SOLineNumbers),
			zap.Ints("adjacent", detLines),
		)
	}
	if detSO != "" && detSO != so {
		s.Anomalies = append(s.Anomalies, fmt.Sprintf("model read SO #%s but the text names SO #%s first", so, detSO))
	}
	if s.PONumber == "" {
		s.PONumber = findPO(text)
	}

	if s.CompanyName == "" || IsShipperName(s.CompanyName, p.shipper) {
		guarded := companyBeforePurchaseOrder(text, p.shipper)
		if s.CompanyName != "" {
			p.log.Info("company guard override",
				zap.String("model", s.CompanyName),
				zap.String("replacement", guarded),
			)
		}
		s.CompanyName = guarded
	}

	var batches []string
	var weights []decimal.Decimal
	for _, it := range out.Items {
		desc := strings.TrimSpace(it.Description)
		if desc == "" {
			continue
		}
		item := internal.ShipmentItem{
			Description: desc,
			Quantity:    int(math.Round(it.Quantity)),
			Unit:        canonicalUnit(it.Unit),
			BatchNumber: strings.TrimSpace(string(it.BatchNumber)),
			SourceLine:  sourceLine(lines, desc),
		}
		if it.WeightKg > 0 {
			item.WeightKg = decimal.NewFromFloat(it.WeightKg)
		}
		s.Items = append(s.Items, item)
		batches = append(batches, item.BatchNumber)
		weights = append(weights, item.WeightKg)
	}

	s.TotalWeight, s.TotalWeightKg = AggregateWeights(weights)
	if s.TotalWeightKg.IsZero() && out.TotalWeightKg > 0 {
		total := decimal.NewFromFloat(out.TotalWeightKg)
		s.TotalWeight, s.TotalWeightKg = formatKg(total), total
	}
	if strings.Join(batches, "") == "" {
		batches = []string{findBatch(text)}
	}
	applyCommon(&s, text, lines, batches)

	if s.LineMarkerCount > len(s.Items) {
		msg := fmt.Sprintf("email lists %d line markers but %d items were extracted", s.LineMarkerCount, len(s.Items))
		s.Anomalies = append(s.Anomalies, msg)
		p.log.Warn("shipment item count anomaly",
			zap.String("so", s.SONumber),
			zap.Int("line_markers", s.LineMarkerCount),
			zap.Int("items", len(s.Items)),
		)
	}
	return s, nil
}

// sourceLine returns the 1-based line of the email that mentions desc, or 0.
func sourceLine(lines []string, desc string) int {
	needle := strings.ToLower(desc)
	for i, l := range lines {
		if strings.Contains(strings.ToLower(l), needle) {
			return i + 1
		}
	}
	return 0
}
