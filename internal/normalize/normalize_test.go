package normalize

import (
	"encoding/json"
	"strings"
	"testing"
)

func decode(t *testing.T, s string) map[string]interface{} {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var m map[string]interface{}
	if err := dec.Decode(&m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return m
}

func TestFirstStringPrecedence(t *testing.T) {
	m := decode(t, `{"name":"  Ibuprofen ","description":"   ","item":"x"}`)
	if got := FirstString(m, RowDescriptionKeys...); got != "Ibuprofen" {
		t.Errorf("expected blank description to fall through to name, got %q", got)
	}

	m = decode(t, `{"batch": 1234}`)
	if got := FirstString(m, RowBatchKeys...); got != "1234" {
		t.Errorf("expected numeric batch rendered as 1234, got %q", got)
	}
}

func TestNumberAcceptsStrings(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
		err  bool
	}{
		{json.Number("12"), "12", false},
		{"1,200.50", "1200.5", false},
		{" 7 ", "7", false},
		{3.25, "3.25", false},
		{"abc", "", true},
		{true, "", true},
	}
	for _, tt := range tests {
		d, err := Number(tt.in)
		if tt.err {
			if err == nil {
				t.Errorf("Number(%v): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("Number(%v): unexpected error %v", tt.in, err)
			continue
		}
		if d.String() != tt.want {
			t.Errorf("Number(%v) = %s, want %s", tt.in, d.String(), tt.want)
		}
	}
}

func TestParseInvoiceRow(t *testing.T) {
	row, err := ParseInvoiceRow(decode(t, `{"description":"Paracetamol 500mg","quantity":"100","batch":"B1","expiry":"10/2025","price":"2.50"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.Description != "Paracetamol 500mg" || row.Quantity != 100 || row.Batch != "B1" || row.Expiry != "10/2025" {
		t.Errorf("unexpected row: %+v", row)
	}
	if row.Price == nil || row.Price.String() != "2.5" {
		t.Errorf("unexpected price: %v", row.Price)
	}

	row, err = ParseInvoiceRow(decode(t, `{"desc":"Amoxicillin","qty":5,"batchNumber":"A9","expiryDate":"2026-01-31"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.Description != "Amoxicillin" || row.Quantity != 5 || row.Batch != "A9" || row.Price != nil {
		t.Errorf("alternate keys not honoured: %+v", row)
	}
}

func TestParseInvoiceRowRejects(t *testing.T) {
	cases := map[string]string{
		"blank description": `{"description":"  ","quantity":10}`,
		"zero quantity":     `{"description":"X","quantity":0}`,
		"negative quantity": `{"description":"X","quantity":-3}`,
		"fractional":        `{"description":"X","quantity":2.5}`,
		"missing quantity":  `{"description":"X"}`,
		"uint64 overflow":   `{"description":"X","quantity":"18446744073709551617"}`,
		"above int32":       `{"description":"X","quantity":2147483648}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseInvoiceRow(decode(t, body)); err != ErrInvalidRow {
				t.Errorf("expected ErrInvalidRow, got %v", err)
			}
		})
	}

	if _, err := ParseInvoiceRow(decode(t, `{"description":"X","quantity":1,"price":"free"}`)); err != ErrInvalidPrice {
		t.Errorf("expected ErrInvalidPrice, got %v", err)
	}
}

func TestParseBilling(t *testing.T) {
	p, err := ParseBilling(decode(t, `{
		"items": [
			{"name":"Paracetamol","quantity":"3","price":"2.10","amount":999},
			{"product":"Gauze","qtyOrdered":2,"unitPrice":1.5},
			{"label":"","qty":1,"rate":1},
			{"description":"Syringe","qty":0,"rate":1},
			{"description":"Saline","qty":1},
			"bogus"
		],
		"tax": "1.00"
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.PatientName != DefaultPatientName {
		t.Errorf("expected default patient, got %q", p.PatientName)
	}
	if len(p.Items) != 2 {
		t.Fatalf("expected 2 valid items, got %d", len(p.Items))
	}
	if p.Items[0].Description != "Paracetamol" || p.Items[0].Quantity != 3 || p.Items[0].Rate.String() != "2.1" {
		t.Errorf("unexpected first item: %+v", p.Items[0])
	}
	if p.Items[1].Description != "Gauze" || p.Items[1].Quantity != 2 {
		t.Errorf("unexpected second item: %+v", p.Items[1])
	}
	if len(p.Rejected) != 4 {
		t.Errorf("expected 4 rejections, got %d: %+v", len(p.Rejected), p.Rejected)
	}
	if p.Tax.String() != "1" {
		t.Errorf("expected tax 1, got %s", p.Tax)
	}
}

func TestParseBillingRejectsOversizedQuantity(t *testing.T) {
	p, err := ParseBilling(decode(t, `{"items":[
		{"description":"Paracetamol","qty":"18446744073709551615","rate":"10"},
		{"description":"Gauze","qty":2147483647,"rate":"1.005"}
	]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Items) != 1 || p.Items[0].Description != "Gauze" {
		t.Fatalf("expected only the in-range item, got %+v", p.Items)
	}
	if p.Items[0].Rate.String() != "1.01" {
		t.Errorf("expected rate rounded to 1.01, got %s", p.Items[0].Rate)
	}
	if len(p.Rejected) != 1 {
		t.Errorf("expected 1 rejection, got %+v", p.Rejected)
	}
}

func TestParseBillingPrefersLineItems(t *testing.T) {
	p, err := ParseBilling(decode(t, `{"lineItems":[{"description":"A","qty":1,"rate":1}],"items":[{"description":"B","qty":1,"rate":1}],"patient":"Ravi"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Items) != 1 || p.Items[0].Description != "A" {
		t.Errorf("expected lineItems to win, got %+v", p.Items)
	}
	if p.PatientName != "Ravi" {
		t.Errorf("expected patient fallback key, got %q", p.PatientName)
	}
}

func TestParseBillingIgnoresUnknownListKeys(t *testing.T) {
	p, err := ParseBilling(decode(t, `{"medicines":[{"description":"A","qty":1,"rate":1}]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Items) != 0 || len(p.Rejected) != 0 {
		t.Errorf("only lineItems and items carry line items, got %+v", p)
	}
}

func TestParseBillingRejectsNegativeTax(t *testing.T) {
	if _, err := ParseBilling(decode(t, `{"items":[],"tax":-1}`)); err == nil {
		t.Error("expected error for negative tax")
	}
}
