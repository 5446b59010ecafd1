package salesorder

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"shipdoc/internal"
	"shipdoc/internal/util"
)

const datePattern = `(\d{4}-\d{2}-\d{2}|\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\d{1,2}[- ][A-Za-z]{3,9}[- ]\d{2,4}|[A-Za-z]{3,9}\.? \d{1,2},? \d{4})`

const amountPattern = `(\d{1,3}(?:,\d{3})+\.\d{2}|\d+\.\d{2})`

var (
	reSONumber      = regexp.MustCompile(`(?i)\bsales\s+order\s*(?:no\.?|number|#)?\s*:?\s*#?\s*(\d{3,})\b`)
	reSOShort       = regexp.MustCompile(`(?i)\bS\.?O\.?\s*(?:#|no\.?|number)\s*:?\s*(\d{3,})\b`)
	reSOFilename    = regexp.MustCompile(`(?i)(?:sales[_\s-]*order|so)[_\s#-]*(\d{3,})`)
	reAnyNumber     = regexp.MustCompile(`\d{4,}`)
	reOrderDate     = regexp.MustCompile(`(?i)\border\s+date\s*:?\s*` + datePattern)
	reShipDate      = regexp.MustCompile(`(?i)\bship\s+date\s*:?\s*` + datePattern)
	reBusinessNo    = regexp.MustCompile(`(?i)\bbusiness\s+(?:no|number)\.?\s*:?\s*(\d{9}\s?[A-Z]{2}\s?\d{4}|\d{9}|[A-Z0-9][A-Z0-9-]{5,})`)
	reTerms         = regexp.MustCompile(`(?i)\bterms\s*:\s*(.+)$`)
	rePOLine        = regexp.MustCompile(`(?i)(?:^|[^A-Za-z])(?:customer\s+)?P\.?\s?O\.?\s*(?:#|no\.?|number)?\s*:\s*#?\s*([A-Za-z0-9][A-Za-z0-9\-/]*)`)
	reCommentLine   = regexp.MustCompile(`(?i)^\s*comments?\s*:\s*(.*)$`)
	reCommentPO     = regexp.MustCompile(`(?i)(?:^|[^A-Za-z])P\.?\s?O\.?\s*(?:#|no\.?|number)?\s*:?\s*#?\s*([A-Za-z0-9][A-Za-z0-9\-/]{2,})`)
	reCommentTotal  = regexp.MustCompile(`(?i)\btotal\s*(?:amount)?\s*:?\s*(?:CAD|USD|US|CDN)?\s*\$?\s*` + amountPattern)
	reSubtotal      = regexp.MustCompile(`(?i)\bsub\s*-?\s*total\s*:?\s*(?:CAD|USD|US|CDN)?\s*\$?\s*` + amountPattern)
	reTax           = regexp.MustCompile(`(?i)^\s*(?:sales\s+)?(?:tax|hst|gst|pst|qst)\b.*?\$?\s*` + amountPattern + `\s*$`)
	reTotal         = regexp.MustCompile(`(?i)^\s*(?:grand\s+|order\s+)?total(?:\s+amount)?(?:\s*\([A-Z]{3}\))?\s*:?\s*(?:CAD|USD|US|CDN)?\s*\$?\s*` + amountPattern)
	reTermsTrailing = regexp.MustCompile(`\s{2,}.*$`)
)

type header struct {
	soNumber       string
	orderDate      string
	shipDate       string
	businessNumber string
	terms          string
	poNumber       string
	commentPO      string
	subtotal       *decimal.Decimal
	tax            *decimal.Decimal
	total          *decimal.Decimal
	commentTotal   *decimal.Decimal
}

// parseHeader runs every field rule over every line; the first match of each
// rule wins.
func parseHeader(lines []string) header {
	var h header
	for _, line := range lines {
		if h.soNumber == "" {
			if m := reSONumber.FindStringSubmatch(line); m != nil {
				h.soNumber = m[1]
			} else if m := reSOShort.FindStringSubmatch(line); m != nil {
				h.soNumber = m[1]
			}
		}
		if h.orderDate == "" {
			if m := reOrderDate.FindStringSubmatch(line); m != nil {
				h.orderDate = strings.TrimSpace(m[1])
			}
		}
		if h.shipDate == "" {
			if m := reShipDate.FindStringSubmatch(line); m != nil {
				h.shipDate = strings.TrimSpace(m[1])
			}
		}
		if h.businessNumber == "" {
			if m := reBusinessNo.FindStringSubmatch(line); m != nil {
				h.businessNumber = strings.TrimSpace(m[1])
			}
		}
		if h.terms == "" {
			if m := reTerms.FindStringSubmatch(line); m != nil {
				h.terms = strings.TrimSpace(reTermsTrailing.ReplaceAllString(m[1], ""))
			}
		}

		if c := reCommentLine.FindStringSubmatch(line); c != nil {
			if h.commentPO == "" {
				if m := reCommentPO.FindStringSubmatch(c[1]); m != nil {
					h.commentPO = m[1]
				}
			}
			if h.commentTotal == nil {
				if m := reCommentTotal.FindStringSubmatch(c[1]); m != nil {
					h.commentTotal = amountPtr(m[1])
				}
			}
			continue
		}
		if h.poNumber == "" {
			if m := rePOLine.FindStringSubmatch(line); m != nil {
				h.poNumber = m[1]
			}
		}

		if h.subtotal == nil {
			if m := reSubtotal.FindStringSubmatch(line); m != nil {
				h.subtotal = amountPtr(m[1])
				continue
			}
		}
		if h.tax == nil {
			if m := reTax.FindStringSubmatch(line); m != nil {
				h.tax = amountPtr(m[1])
				continue
			}
		}
		if h.total == nil {
			if m := reTotal.FindStringSubmatch(line); m != nil {
				h.total = amountPtr(m[1])
			}
		}
	}
	return h
}

// apply copies header values onto the order and fills the documented
// fallbacks: subtotal from line amounts, total from subtotal plus tax.
func (h header) apply(order *internal.SalesOrder) {
	order.SONumber = h.soNumber
	order.OrderDate = h.orderDate
	order.ShipDate = h.shipDate
	order.BusinessNumber = h.businessNumber
	order.Terms = h.terms
	order.PONumber = h.poNumber
	if h.commentPO != "" {
		order.PONumber = h.commentPO
	}

	if h.subtotal != nil {
		order.Subtotal = *h.subtotal
	} else {
		sum := decimal.Zero
		for _, it := range order.Items {
			sum = sum.Add(it.Amount)
		}
		order.Subtotal = sum
	}
	if h.tax != nil {
		order.Tax = *h.tax
	}
	switch {
	case h.commentTotal != nil:
		order.TotalAmount = *h.commentTotal
	case h.total != nil:
		order.TotalAmount = *h.total
	default:
		order.TotalAmount = order.Subtotal.Add(order.Tax)
	}
}

func soNumberFromFilename(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if m := reSOFilename.FindStringSubmatch(base); m != nil {
		return m[1]
	}
	return reAnyNumber.FindString(base)
}

func amountPtr(s string) *decimal.Decimal {
	d, ok := util.ParseAmount(s)
	if !ok {
		return nil
	}
	return &d
}
