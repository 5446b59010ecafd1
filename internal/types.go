package internal

import (
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusUnknown      OrderStatus = "Unknown"
	StatusRevised      OrderStatus = "Revised"
	StatusCancelled    OrderStatus = "Cancelled"
	StatusCompleted    OrderStatus = "Completed"
	StatusInProduction OrderStatus = "InProduction"
)

type Address struct {
	CompanyName   string `json:"company_name"`
	ContactPerson string `json:"contact_person"`
	AddressRaw    string `json:"address_raw"`
	Street        string `json:"street"`
	City          string `json:"city"`
	Province      string `json:"province"`
	PostalCode    string `json:"postal_code"`
	Country       string `json:"country"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
}

// IsEmpty reports whether no location field was resolved.
func (a Address) IsEmpty() bool {
	return a.AddressRaw == "" && a.Street == "" && a.City == "" && a.PostalCode == ""
}

type DangerousGoods struct {
	UNNumber     string `json:"un_number" yaml:"un_number"`
	Class        string `json:"class" yaml:"class"`
	PackingGroup string `json:"packing_group" yaml:"packing_group"`
	ProperName   string `json:"proper_name" yaml:"proper_name"`
}

type LineItem struct {
	ItemCode       string          `json:"item_code"`
	Description    string          `json:"description"`
	Quantity       int             `json:"quantity"`
	Unit           string          `json:"unit"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Amount         decimal.Decimal `json:"amount"`
	DangerousGoods *DangerousGoods `json:"dangerous_goods,omitempty"`
}

// SalesOrder is built fresh by every parse call. Empty strings and zero
// decimals mean "not found in the document", never a real zero.
type SalesOrder struct {
	SONumber       string          `json:"so_number"`
	CustomerName   string          `json:"customer_name"`
	SoldTo         Address         `json:"sold_to"`
	ShipTo         Address         `json:"ship_to"`
	IsPickupOrder  bool            `json:"is_pickup_order"`
	Items          []LineItem      `json:"items"`
	OrderDate      string          `json:"order_date"`
	ShipDate       string          `json:"ship_date"`
	BusinessNumber string          `json:"business_number"`
	Terms          string          `json:"terms"`
	PONumber       string          `json:"po_number"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Tax            decimal.Decimal `json:"tax"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Status         OrderStatus     `json:"status"`
	BatchNumber    string          `json:"batch_number"`
	MONumber       string          `json:"mo_number"`
	SourceFile     string          `json:"source_file"`

	// Set only on the copy trimmed for a partial shipment.
	TotalsArePartial      bool   `json:"totals_are_partial"`
	PartialShipmentNotice string `json:"partial_shipment_notice,omitempty"`

	Warnings []string `json:"warnings,omitempty"`
}

// Clone returns a deep copy so callers can enrich the record without
// touching the parser's (or a cache's) value.
func (o SalesOrder) Clone() SalesOrder {
	out := o
	out.Items = make([]LineItem, len(o.Items))
	for i, item := range o.Items {
		out.Items[i] = item
		if item.DangerousGoods != nil {
			dg := *item.DangerousGoods
			out.Items[i].DangerousGoods = &dg
		}
	}
	if o.Warnings != nil {
		out.Warnings = append([]string(nil), o.Warnings...)
	}
	return out
}

type PackagingType string

const (
	PackagingCase   PackagingType = "case"
	PackagingPallet PackagingType = "pallet"
)

type ShipmentItem struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	Unit        string          `json:"unit"`
	BatchNumber string          `json:"batch_number"`
	WeightKg    decimal.Decimal `json:"weight_kg"`
	// 1-based line in the email body the item was read from, 0 when unknown.
	SourceLine int `json:"source_line"`
}

type EmailShipment struct {
	SONumber          string          `json:"so_number"`
	SOLineNumbers     []int           `json:"so_line_numbers"`
	IsPartialShipment bool            `json:"is_partial_shipment"`
	PONumber          string          `json:"po_number"`
	CompanyName       string          `json:"company_name"`
	Items             []ShipmentItem  `json:"items"`
	TotalWeightKg     decimal.Decimal `json:"total_weight_kg"`
	TotalWeight       string          `json:"total_weight"`
	PalletCount       int             `json:"pallet_count"`
	PalletDimensions  string          `json:"pallet_dimensions"`
	PackagingType     PackagingType   `json:"packaging_type"`
	SkidInfo          string          `json:"skid_info"`
	BatchNumber       string          `json:"batch_number"`
	BatchNumbersFull  string          `json:"batch_numbers_full"`
	Carrier           string          `json:"carrier"`
	LineMarkerCount   int             `json:"line_marker_count"`
	Strategy          string          `json:"strategy"`
	Anomalies         []string        `json:"anomalies,omitempty"`
}

// SetLineNumbers keeps IsPartialShipment in step with SOLineNumbers.
func (s *EmailShipment) SetLineNumbers(lines []int) {
	if len(lines) == 0 {
		s.SOLineNumbers = nil
		s.IsPartialShipment = false
		return
	}
	s.SOLineNumbers = append([]int(nil), lines...)
	s.IsPartialShipment = true
}

type CheckStatus string

const (
	CheckPassed       CheckStatus = "passed"
	CheckPassedWithAI CheckStatus = "passed_with_ai"
	CheckFailed       CheckStatus = "failed"
	CheckWarning      CheckStatus = "warning"
)

type Overall string

const (
	OverallPass Overall = "pass"
	OverallFail Overall = "fail"
)

type Check struct {
	Status   CheckStatus    `json:"status"`
	Details  string         `json:"details"`
	Evidence map[string]any `json:"evidence,omitempty"`
}

type UnmatchedItem struct {
	EmailLine   int    `json:"email_line"`
	Description string `json:"description"`
	Reason      string `json:"reason"`
}

type QuantityMismatch struct {
	EmailLine     int    `json:"email_line"`
	Description   string `json:"description"`
	EmailQuantity int    `json:"email_quantity"`
	SOQuantity    int    `json:"so_quantity"`
	Reason        string `json:"reason"`
}

type ItemMatch struct {
	EmailLine        int    `json:"email_line"`
	EmailDescription string `json:"email_description"`
	SOLine           int    `json:"so_line"`
	SODescription    string `json:"so_description"`
	Method           string `json:"method"`
	QuantityMatch    bool   `json:"quantity_match"`
	PartialQuantity  bool   `json:"partial_quantity"`
}

type ValidationVerdict struct {
	Overall               Overall            `json:"overall"`
	SONumberCheck         Check              `json:"so_number_check"`
	CompanyCheck          Check              `json:"company_check"`
	ItemsCheck            Check              `json:"items_check"`
	UnmatchedItems        []UnmatchedItem    `json:"unmatched_items"`
	QuantityMismatches    []QuantityMismatch `json:"quantity_mismatches"`
	Matches               []ItemMatch        `json:"matches"`
	PartialShipmentNotice string             `json:"partial_shipment_notice,omitempty"`
}

// Reasons lists the details of every failed check followed by the itemized
// item problems, in a form a clerk can act on.
func (v ValidationVerdict) Reasons() []string {
	var out []string
	for _, c := range []Check{v.SONumberCheck, v.CompanyCheck, v.ItemsCheck} {
		if c.Status == CheckFailed && c.Details != "" {
			out = append(out, c.Details)
		}
	}
	for _, u := range v.UnmatchedItems {
		out = append(out, u.Reason)
	}
	for _, m := range v.QuantityMismatches {
		out = append(out, m.Reason)
	}
	return out
}

type EmailRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
	SOHint     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

type RunRecord struct {
	ID           int64
	TraceID      string
	EmailID      *int
	SONumber     string
	Overall      string
	VerdictJSON  string
	ShipmentJSON string
	OrderJSON    string
	TimingsJSON  string
	CreatedAt    string
}
