package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/Sayyed-Ali/MediSys/internal/logger"
)

const analyticsService = "analytics"

// Analytics endpoints, relative to the service base URL
const (
	PathPredictDemand  = "/predict/demand"
	PathPredictRisk    = "/predict/risk"
	PathPredictDisease = "/predict/disease"
	PathUpdate         = "/analytics/update"
	PathMetadata       = "/analytics/metadata"
)

const metadataTimeout = 10 * time.Second

// DemandEvent is one billed medicine, aggregated by month on the analytics side
type DemandEvent struct {
	Type      string `json:"type"`
	Month     string `json:"month"` // YYYY-MM
	Medicine  string `json:"medicine"`
	Quantity  int    `json:"quantity"`
	InvoiceID string `json:"invoiceId"`
}

// DemandBatch groups the demand events of one billing
type DemandBatch struct {
	Type   string        `json:"type"`
	Events []DemandEvent `json:"events"`
}

// NewDemandBatch builds a demand_batch event
func NewDemandBatch(events []DemandEvent) DemandBatch {
	for i := range events {
		events[i].Type = "demand"
	}
	return DemandBatch{Type: "demand_batch", Events: events}
}

// AdmissionEvent is sent on admission and on room change
type AdmissionEvent struct {
	Type        string `json:"type"`
	PatientName string `json:"patientName"`
	Age         *int   `json:"age"`
	Gender      string `json:"gender,omitempty"`
	RoomType    string `json:"roomType"`
	Doctor      string `json:"doctor,omitempty"`
	AdmittedAt  string `json:"admittedAt"`
	AdmissionID string `json:"admissionId"`
}

// AnalyticsClient talks to the analytics/prediction service
type AnalyticsClient struct {
	baseURL       string
	client        *http.Client
	notifyTimeout time.Duration
	wg            sync.WaitGroup
}

func NewAnalyticsClient(baseURL string, timeout, notifyTimeout time.Duration) *AnalyticsClient {
	return &AnalyticsClient{
		baseURL:       baseURL,
		client:        &http.Client{Timeout: timeout},
		notifyTimeout: notifyTimeout,
	}
}

// Post sends payload to path and returns the raw JSON answer. Non-2xx answers are *Error.
func (c *AnalyticsClient) Post(ctx context.Context, path string, payload interface{}) (json.RawMessage, error) {
	status, raw, err := postJSON(ctx, c.client, joinURL(c.baseURL, path), payload)
	if err != nil {
		return nil, &Error{Service: analyticsService, Err: err}
	}
	if status < 200 || status >= 300 {
		return nil, statusError(analyticsService, status, raw)
	}
	if !json.Valid(raw) {
		return nil, &Error{Service: analyticsService, StatusCode: status, Body: decodeBody(raw), Err: ErrMalformedResponse}
	}
	return json.RawMessage(raw), nil
}

// Notify posts event to the update endpoint in the background. Failures are
// only logged.
func (c *AnalyticsClient) Notify(event interface{}) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		log := logger.WithComponent("analytics")

		ctx, cancel := context.WithTimeout(context.Background(), c.notifyTimeout)
		defer cancel()

		if _, err := c.Post(ctx, PathUpdate, event); err != nil {
			log.Warn().Err(err).Msg("analytics update failed")
			return
		}
		log.Debug().Msg("analytics update sent")
	}()
}

// Wait blocks until in-flight notifications finish
func (c *AnalyticsClient) Wait() {
	c.wg.Wait()
}

type metadataFallback struct {
	Status  string        `json:"status"`
	Message string        `json:"message"`
	Models  []interface{} `json:"models"`
}

// Metadata returns the service status document, or a static "unavailable"
// document when the service cannot be reached.
func (c *AnalyticsClient) Metadata(ctx context.Context) json.RawMessage {
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, joinURL(c.baseURL, PathMetadata), nil)
	if err == nil {
		status, raw, doErr := do(c.client, req)
		if doErr == nil && status == http.StatusOK && json.Valid(raw) {
			return json.RawMessage(raw)
		}
		if doErr != nil {
			err = doErr
		}
	}

	log := logger.WithComponent("analytics")
	log.Warn().Err(err).Msg("analytics metadata unavailable, serving fallback")
	fallback, _ := json.Marshal(metadataFallback{
		Status:  "unavailable",
		Message: "Analytics service is starting up or unavailable",
		Models:  []interface{}{},
	})
	return fallback
}
