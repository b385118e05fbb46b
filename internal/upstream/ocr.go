package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

const ocrService = "ocr"

// OCRResult is what the OCR service read off a medicine strip
type OCRResult struct {
	ExtractedText string `json:"extractedText"`
	BatchNumber   string `json:"batchNumber"`
	ExpiryDate    string `json:"expiryDate"`
}

// OCRClient uploads package photos to the OCR service
type OCRClient struct {
	url    string
	client *http.Client
}

func NewOCRClient(url string, timeout time.Duration) *OCRClient {
	return &OCRClient{url: url, client: &http.Client{Timeout: timeout}}
}

// Extract posts the image as multipart field "image"
func (c *OCRClient) Extract(ctx context.Context, filename, contentType string, image io.Reader) (*OCRResult, error) {
	status, raw, err := postFile(ctx, c.client, c.url, "image", filename, contentType, image)
	if err != nil {
		return nil, &Error{Service: ocrService, Err: err}
	}
	if status != http.StatusOK {
		return nil, statusError(ocrService, status, raw)
	}

	var res OCRResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, &Error{Service: ocrService, StatusCode: status, Body: decodeBody(raw), Err: ErrMalformedResponse}
	}
	return &res, nil
}
