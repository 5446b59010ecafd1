package pipeline

import (
	"strings"

	"shipdoc/internal/shipment"
)

type DetectResult struct {
	IsShipment bool
	Score      float64
	Reason     string
}

var detectKeywords = []string{
	"shipped", "shipping", "shipment", "pallet", "skid", "drums", "pails",
	"batch", "carrier", "pick up", "pickup", "ready to ship", "bol",
}

// DetectShipmentEmail scores a message as a shipment notice. A sales order
// reference alone is close to enough.
func DetectShipmentEmail(subject, text string, attachmentNames []string) DetectResult {
	lowerSubject := strings.ToLower(subject)
	lowerText := strings.ToLower(text)

	score := 0.0
	reason := "rules_negative"
	if so, _ := shipment.ExtractSONumber(subject + "\n" + text); so != "" {
		score += 0.4
		reason = "so_reference"
	}
	for _, kw := range detectKeywords {
		if strings.Contains(lowerSubject, kw) {
			score += 0.2
		}
		if strings.Contains(lowerText, kw) {
			score += 0.1
		}
	}
	for _, name := range attachmentNames {
		if strings.HasSuffix(strings.ToLower(name), ".pdf") {
			score += 0.15
			break
		}
	}
	if score > 1 {
		score = 1
	}

	isShipment := score >= 0.45
	if !isShipment {
		reason = "rules_negative"
	} else if reason != "so_reference" {
		reason = "rules_positive"
	}
	return DetectResult{IsShipment: isShipment, Score: score, Reason: reason}
}
