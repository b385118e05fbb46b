package service

import (
	"context"
	"encoding/json"
	"io"

	"github.com/Sayyed-Ali/MediSys/internal/matcher"
	"github.com/Sayyed-Ali/MediSys/internal/upstream"
)

// InvoiceParser turns an uploaded invoice into rows
type InvoiceParser interface {
	Parse(ctx context.Context, filename, contentType string, file io.Reader) (*upstream.ParseResult, error)
}

// LabelReader extracts batch and expiry from a package photo
type LabelReader interface {
	Extract(ctx context.Context, filename, contentType string, image io.Reader) (*upstream.OCRResult, error)
}

// MedicineMatcher finds the closest master record for a description
type MedicineMatcher interface {
	Match(ctx context.Context, text string) (*matcher.Match, error)
	Invalidate()
}

// AnalyticsNotifier delivers fire-and-forget events
type AnalyticsNotifier interface {
	Notify(event interface{})
}

// AnalyticsGateway is the synchronous side of the analytics service
type AnalyticsGateway interface {
	Post(ctx context.Context, path string, payload interface{}) (json.RawMessage, error)
	Metadata(ctx context.Context) json.RawMessage
}

// EventPublisher pushes realtime events to connected dashboards
type EventPublisher interface {
	Publish(event string, data interface{})
}

// Realtime event names
const (
	EventLowStock = "low_stock"
)

// LowStockAlert is published when a batch falls under the threshold
type LowStockAlert struct {
	BatchID     string `json:"batch_id"`
	MedicineID  string `json:"medicine_id"`
	BatchNumber string `json:"batch_number"`
	Quantity    int    `json:"quantity"`
	Threshold   int    `json:"threshold"`
}
