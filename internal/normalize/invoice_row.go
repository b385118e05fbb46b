package normalize

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Accepted keys for parser rows, in precedence order
var (
	RowDescriptionKeys = []string{"description", "desc", "name", "item"}
	RowQuantityKeys    = []string{"quantity", "qty"}
	RowBatchKeys       = []string{"batch", "batchNumber", "batch_no"}
	RowExpiryKeys      = []string{"expiry", "expiryDate", "exp"}
	RowPriceKeys       = []string{"price", "rate", "unitPrice"}
)

// ErrInvalidRow is the reason attached to rows that cannot be applied to stock
var ErrInvalidRow = errors.New("missing description or non-positive quantity")

// ErrInvalidPrice is returned for a price that is present but not a non-negative number
var ErrInvalidPrice = errors.New("price is not a non-negative number")

// InvoiceRow is one parsed supplier invoice line
type InvoiceRow struct {
	Description string
	Quantity    int
	Batch       string // empty when the invoice had none
	Expiry      string // raw text; see service.ParseExpiry
	Price       *decimal.Decimal
	Raw         map[string]interface{}
}

// ParseInvoiceRow reads a parser row. The partially read row is returned
// alongside the error so it can still be queued for review.
func ParseInvoiceRow(raw map[string]interface{}) (InvoiceRow, error) {
	row := InvoiceRow{
		Description: FirstString(raw, RowDescriptionKeys...),
		Batch:       FirstString(raw, RowBatchKeys...),
		Expiry:      FirstString(raw, RowExpiryKeys...),
		Raw:         raw,
	}

	qty, found, err := FirstNumber(raw, RowQuantityKeys...)
	if found && err == nil {
		if q, ok := PositiveInt(qty); ok {
			row.Quantity = q
		}
	}

	if price, found, err := FirstNumber(raw, RowPriceKeys...); found {
		if err != nil || price.IsNegative() {
			return row, ErrInvalidPrice
		}
		row.Price = &price
	}

	if row.Description == "" || row.Quantity <= 0 {
		return row, ErrInvalidRow
	}
	return row, nil
}
