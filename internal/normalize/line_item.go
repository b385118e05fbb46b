package normalize

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Accepted keys for billing payloads, in precedence order
var (
	ItemListKeys        = []string{"lineItems", "items"}
	ItemDescriptionKeys = []string{"description", "name", "product", "label"}
	ItemQuantityKeys    = []string{"qty", "quantity", "qtyOrdered", "quantityOrdered"}
	ItemRateKeys        = []string{"rate", "price", "unitPrice", "pricePerUnit"}
	PatientNameKeys     = []string{"patientName", "patient"}
)

// DefaultPatientName is billed when the payload names no patient
const DefaultPatientName = "Walk-in"

// LineItem is a validated billing line. Amount is never read from input.
type LineItem struct {
	Description string
	Quantity    int
	Rate        decimal.Decimal
}

// Rejection explains why an input line was dropped
type Rejection struct {
	Index  int                    `json:"index"`
	Item   map[string]interface{} `json:"item"`
	Reason string                 `json:"reason"`
}

// BillingPayload is the normalized body of a create-billing request
type BillingPayload struct {
	PatientName string
	Notes       string
	Status      string
	Tax         decimal.Decimal
	PaidAmount  decimal.Decimal
	Items       []LineItem
	Rejected    []Rejection
}

// ParseBilling normalizes a create-billing body. Errors are returned only for
// invalid header fields; bad lines are collected in Rejected.
func ParseBilling(payload map[string]interface{}) (BillingPayload, error) {
	out := BillingPayload{
		PatientName: FirstString(payload, PatientNameKeys...),
		Notes:       FirstString(payload, "notes"),
		Status:      FirstString(payload, "status"),
	}
	if out.PatientName == "" {
		out.PatientName = DefaultPatientName
	}

	var err error
	if out.Tax, err = nonNegative(payload, "tax"); err != nil {
		return out, err
	}
	if out.PaidAmount, err = nonNegative(payload, "paidAmount"); err != nil {
		return out, err
	}

	for i, raw := range itemList(payload) {
		item, ok := raw.(map[string]interface{})
		if !ok {
			out.Rejected = append(out.Rejected, Rejection{Index: i, Reason: "line item is not an object"})
			continue
		}
		li, reason := parseLineItem(item)
		if reason != "" {
			out.Rejected = append(out.Rejected, Rejection{Index: i, Item: item, Reason: reason})
			continue
		}
		out.Items = append(out.Items, li)
	}
	return out, nil
}

func itemList(payload map[string]interface{}) []interface{} {
	for _, k := range ItemListKeys {
		if arr, ok := payload[k].([]interface{}); ok {
			return arr
		}
	}
	return nil
}

func parseLineItem(item map[string]interface{}) (LineItem, string) {
	li := LineItem{Description: FirstString(item, ItemDescriptionKeys...)}
	if li.Description == "" {
		return li, "missing description"
	}

	qty, found, err := FirstNumber(item, ItemQuantityKeys...)
	if !found || err != nil {
		return li, "missing or invalid quantity"
	}
	q, ok := PositiveInt(qty)
	if !ok {
		return li, "quantity must be a positive whole number"
	}
	li.Quantity = q

	rate, found, err := FirstNumber(item, ItemRateKeys...)
	if !found || err != nil {
		return li, "missing or invalid rate"
	}
	if rate.IsNegative() {
		return li, "rate must not be negative"
	}
	// stored as decimal(18,2); amount must be computed from the stored value
	li.Rate = rate.Round(2)
	return li, ""
}

func nonNegative(payload map[string]interface{}, key string) (decimal.Decimal, error) {
	d, found, err := FirstNumber(payload, key)
	if !found {
		return decimal.Zero, nil
	}
	if err != nil || d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must be a non-negative number", key)
	}
	return d, nil
}
