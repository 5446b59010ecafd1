package validation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"shipdoc/internal"
	"shipdoc/internal/logger"
)

const quantityTolerance = 0.01

var (
	reCompanyPunct = regexp.MustCompile(`[^A-Z0-9&]+`)
	companySuffix  = map[string]bool{
		"LTD": true, "LIMITED": true, "INC": true, "INCORPORATED": true, "CORP": true,
		"CORPORATION": true, "CO": true, "LLC": true, "LTEE": true, "THE": true,
	}
)

// Result is the verdict plus the order copy documents should be built from.
type Result struct {
	Verdict internal.ValidationVerdict
	Order   internal.SalesOrder
}

// Engine cross-checks a parsed sales order against a shipment email. It
// keeps no state between calls.
type Engine struct {
	rules Rules
	judge CompanyJudge
	log   *zap.Logger
}

// NewEngine builds an engine. judge may be nil, in which case a company that
// fails the word heuristics fails the check.
func NewEngine(rules Rules, judge CompanyJudge, log *zap.Logger) *Engine {
	return &Engine{rules: rules, judge: judge, log: logger.OrNop(log)}
}

func (e *Engine) Validate(ctx context.Context, order internal.SalesOrder, shipment internal.EmailShipment) Result {
	v := internal.ValidationVerdict{
		SONumberCheck: checkSONumber(order, shipment),
		CompanyCheck:  e.checkCompany(ctx, order, shipment),
	}
	e.checkItems(&v, order, shipment)

	v.Overall = internal.OverallPass
	for _, c := range []internal.Check{v.SONumberCheck, v.CompanyCheck, v.ItemsCheck} {
		if c.Status == internal.CheckFailed {
			v.Overall = internal.OverallFail
		}
	}

	filtered := FilterForShipment(order, shipment, e.rules)
	v.PartialShipmentNotice = filtered.PartialShipmentNotice

	e.log.Info("validation verdict",
		zap.String("so", shipment.SONumber),
		zap.String("overall", string(v.Overall)),
		zap.String("so_check", string(v.SONumberCheck.Status)),
		zap.String("company_check", string(v.CompanyCheck.Status)),
		zap.String("items_check", string(v.ItemsCheck.Status)),
		zap.Int("unmatched", len(v.UnmatchedItems)),
		zap.Int("quantity_mismatches", len(v.QuantityMismatches)),
	)
	return Result{Verdict: v, Order: filtered}
}

func checkSONumber(order internal.SalesOrder, shipment internal.EmailShipment) internal.Check {
	email := strings.TrimSpace(shipment.SONumber)
	pdf := strings.TrimSpace(order.SONumber)
	evidence := map[string]any{"email": email, "pdf": pdf}
	switch {
	case email == "":
		return internal.Check{Status: internal.CheckFailed, Details: "Email does not mention a sales order number", Evidence: evidence}
	case pdf == "":
		return internal.Check{Status: internal.CheckFailed, Details: fmt.Sprintf("Email mentions SO #%s but no SO number was found in the PDF", email), Evidence: evidence}
	case email != pdf:
		return internal.Check{Status: internal.CheckFailed, Details: fmt.Sprintf("Email mentions SO #%s but PDF is for SO #%s", email, pdf), Evidence: evidence}
	}
	return internal.Check{Status: internal.CheckPassed, Details: fmt.Sprintf("SO #%s matches", pdf), Evidence: evidence}
}

func (e *Engine) checkCompany(ctx context.Context, order internal.SalesOrder, shipment internal.EmailShipment) internal.Check {
	email := strings.TrimSpace(shipment.CompanyName)
	customer := strings.TrimSpace(order.CustomerName)
	if customer == "" {
		customer = strings.TrimSpace(order.SoldTo.CompanyName)
	}
	evidence := map[string]any{"email": email, "customer": customer, "ship_to": order.ShipTo.CompanyName}

	switch {
	case email == "":
		return internal.Check{Status: internal.CheckWarning, Details: "Email does not name the customer", Evidence: evidence}
	case customer == "" && order.ShipTo.CompanyName == "":
		return internal.Check{Status: internal.CheckWarning, Details: "No customer name was found in the PDF", Evidence: evidence}
	}
	for _, name := range []string{customer, order.ShipTo.CompanyName} {
		if CompanyMatches(email, name) {
			return internal.Check{Status: internal.CheckPassed, Details: fmt.Sprintf("Email company %q matches %q", email, name), Evidence: evidence}
		}
	}

	failed := fmt.Sprintf("Email company %q does not match SO customer %q", email, customer)
	if e.judge == nil {
		return internal.Check{Status: internal.CheckFailed, Details: failed, Evidence: evidence}
	}
	j, err := e.judge.JudgeCompany(ctx, CompanyQuery{
		EmailCompany: email,
		CustomerName: customer,
		SoldTo:       order.SoldTo,
		ShipTo:       order.ShipTo,
	})
	if err != nil {
		if errors.Is(err, internal.ErrLLMUnavailable) {
			e.log.Debug("company judge unavailable")
		} else {
			e.log.Warn("company judge failed", zap.Error(err))
		}
		return internal.Check{Status: internal.CheckFailed, Details: failed, Evidence: evidence}
	}
	evidence["judge_valid"] = j.Valid
	evidence["judge_confidence"] = j.Confidence
	evidence["judge_reason"] = j.Reason
	if j.Accepted() {
		return internal.Check{Status: internal.CheckPassedWithAI, Details: j.Reason, Evidence: evidence}
	}
	if j.Reason != "" {
		failed += ": " + j.Reason
	}
	return internal.Check{Status: internal.CheckFailed, Details: failed, Evidence: evidence}
}

// CompanyMatches accepts when one name contains the other, when they share
// two words, or when a word of more than four letters from the email name
// appears in the order name. Legal suffixes are ignored.
func CompanyMatches(email, so string) bool {
	ew, sw := companyWords(email), companyWords(so)
	if len(ew) == 0 || len(sw) == 0 {
		return false
	}
	e, s := strings.Join(ew, " "), strings.Join(sw, " ")
	if strings.Contains(s, e) || strings.Contains(e, s) {
		return true
	}
	shared := 0
	for _, w := range ew {
		for _, x := range sw {
			if w == x {
				shared++
				break
			}
		}
	}
	if shared >= 2 {
		return true
	}
	for _, w := range ew {
		if len(w) > 4 && strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func companyWords(name string) []string {
	var out []string
	for _, w := range strings.Fields(reCompanyPunct.ReplaceAllString(strings.ToUpper(name), " ")) {
		if !companySuffix[w] {
			out = append(out, w)
		}
	}
	return out
}

func (e *Engine) checkItems(v *internal.ValidationVerdict, order internal.SalesOrder, shipment internal.EmailShipment) {
	products := productLines(order, e.rules)
	universe := products
	evidence := map[string]any{"partial": shipment.IsPartialShipment, "so_product_lines": len(products)}

	if shipment.IsPartialShipment {
		byPos := make(map[int]candidate, len(products))
		for _, c := range products {
			byPos[c.position] = c
		}
		universe = nil
		for _, n := range shipment.SOLineNumbers {
			c, ok := byPos[n]
			if !ok {
				v.UnmatchedItems = append(v.UnmatchedItems, internal.UnmatchedItem{
					Description: fmt.Sprintf("SO line %d", n),
					Reason:      fmt.Sprintf("Email references SO line %d but SO #%s has %d product lines", n, order.SONumber, len(products)),
				})
				continue
			}
			universe = append(universe, c)
		}
		evidence["compared_lines"] = shipment.SOLineNumbers
	}

	if len(shipment.Items) == 0 {
		status := internal.CheckWarning
		details := "Email lists no items to compare"
		switch {
		case len(v.UnmatchedItems) > 0:
			status, details = internal.CheckFailed, v.UnmatchedItems[0].Reason
		case shipment.LineMarkerCount > 0:
			// The email enumerates lines, none of which could be read.
			status = internal.CheckFailed
			details = fmt.Sprintf("Email lists %d lines but no item could be read from them", shipment.LineMarkerCount)
			evidence["line_markers"] = shipment.LineMarkerCount
		}
		v.ItemsCheck = internal.Check{Status: status, Details: details, Evidence: evidence}
		return
	}

	used := map[int]bool{}
	shipped := map[int]int{}
	overShipped := map[int]bool{}
	for _, it := range shipment.Items {
		idx, method := matchItem(e.rules, it, universe, used)
		if idx < 0 {
			v.UnmatchedItems = append(v.UnmatchedItems, internal.UnmatchedItem{
				EmailLine:   it.SourceLine,
				Description: it.Description,
				Reason:      fmt.Sprintf("Email item %q (%s) was not found on SO #%s", it.Description, quantityText(it.Quantity, it.Unit), order.SONumber),
			})
			continue
		}
		c := universe[idx]
		used[c.position] = true
		shipped[c.position] += it.Quantity
		total := shipped[c.position]

		m := internal.ItemMatch{
			EmailLine:        it.SourceLine,
			EmailDescription: it.Description,
			SOLine:           c.position,
			SODescription:    c.item.Description,
			Method:           method,
			QuantityMatch:    true,
		}
		switch {
		case e.rules.countsOnce(c.item.Unit) && c.item.Quantity == 1:
			// Sold as one unit regardless of fill volume.
		case float64(total) > float64(c.item.Quantity)+quantityTolerance:
			m.QuantityMatch = false
			if overShipped[c.position] {
				break
			}
			overShipped[c.position] = true
			reason := fmt.Sprintf("Email ships %d of %q but SO #%s line %d orders %d",
				total, it.Description, order.SONumber, c.position, c.item.Quantity)
			if total != it.Quantity {
				reason = fmt.Sprintf("Email ships %d of %q across several items but SO #%s line %d orders %d",
					total, it.Description, order.SONumber, c.position, c.item.Quantity)
			}
			v.QuantityMismatches = append(v.QuantityMismatches, internal.QuantityMismatch{
				EmailLine:     it.SourceLine,
				Description:   it.Description,
				EmailQuantity: total,
				SOQuantity:    c.item.Quantity,
				Reason:        reason,
			})
		case total < c.item.Quantity:
			m.PartialQuantity = true
		}
		v.Matches = append(v.Matches, m)
	}

	evidence["matched"] = len(v.Matches)
	switch {
	case len(v.UnmatchedItems) > 0 || len(v.QuantityMismatches) > 0:
		v.ItemsCheck = internal.Check{
			Status:   internal.CheckFailed,
			Details:  fmt.Sprintf("%d unmatched items, %d quantity mismatches", len(v.UnmatchedItems), len(v.QuantityMismatches)),
			Evidence: evidence,
		}
	default:
		v.ItemsCheck = internal.Check{
			Status:   internal.CheckPassed,
			Details:  fmt.Sprintf("All %d email items match the sales order", len(shipment.Items)),
			Evidence: evidence,
		}
	}
}

func quantityText(qty int, unit string) string {
	if unit = strings.TrimSpace(unit); unit == "" {
		return strconv.Itoa(qty)
	}
	return fmt.Sprintf("%d %s", qty, strings.ToLower(unit))
}
