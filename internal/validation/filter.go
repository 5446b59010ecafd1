package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"shipdoc/internal"
)

// FilterForShipment returns the copy of order that downstream documents use.
// For a partial shipment only the referenced product lines are kept and the
// totals are recomputed from them; tax is scaled by the retained share of the
// subtotal. The order itself is never modified.
func FilterForShipment(order internal.SalesOrder, shipment internal.EmailShipment, rules Rules) internal.SalesOrder {
	out := order.Clone()
	if !shipment.IsPartialShipment {
		return out
	}

	keep := make(map[int]bool, len(shipment.SOLineNumbers))
	for _, n := range shipment.SOLineNumbers {
		keep[n] = true
	}
	products := productLines(order, rules)
	out.Items = out.Items[:0]
	subtotal := decimal.Zero
	for _, c := range products {
		if !keep[c.position] {
			continue
		}
		out.Items = append(out.Items, cloneItem(c.item))
		subtotal = subtotal.Add(c.item.Amount)
	}

	tax := decimal.Zero
	if order.Subtotal.Sign() > 0 && order.Tax.Sign() > 0 {
		tax = order.Tax.Mul(subtotal).Div(order.Subtotal).Round(2)
	}
	out.Subtotal = subtotal
	out.Tax = tax
	out.TotalAmount = subtotal.Add(tax)
	out.TotalsArePartial = true
	out.PartialShipmentNotice = partialNotice(order, shipment.SOLineNumbers, len(out.Items), len(products))
	return out
}

func cloneItem(it internal.LineItem) internal.LineItem {
	if it.DangerousGoods != nil {
		dg := *it.DangerousGoods
		it.DangerousGoods = &dg
	}
	return it
}

func partialNotice(order internal.SalesOrder, lines []int, kept, total int) string {
	nums := make([]string, len(lines))
	for i, n := range lines {
		nums[i] = strconv.Itoa(n)
	}
	label := "line"
	if len(lines) > 1 {
		label = "lines"
	}
	return fmt.Sprintf("Partial shipment of SO #%s: %s %s only (%d of %d product lines). Totals cover the shipped lines, not the order total of %s.",
		order.SONumber, label, strings.Join(nums, ", "), kept, total, order.TotalAmount.StringFixed(2))
}
