package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/Sayyed-Ali/MediSys/internal/logger"
)

const parserService = "invoice-parser"

// ParseResult is the parser's answer. Rows keep their loose JSON shape;
// numbers are json.Number.
type ParseResult struct {
	Rows []map[string]interface{}
	Raw  json.RawMessage
}

// ParserClient uploads invoice PDFs to the parsing service
type ParserClient struct {
	url    string
	client *http.Client
}

func NewParserClient(url string, timeout time.Duration) *ParserClient {
	return &ParserClient{url: url, client: &http.Client{Timeout: timeout}}
}

// Parse posts the file as multipart field "file". Non-200 answers and bodies
// without a rows array are returned as *Error.
func (c *ParserClient) Parse(ctx context.Context, filename, contentType string, file io.Reader) (*ParseResult, error) {
	log := logger.WithComponent("upstream")
	log.Debug().Str("url", c.url).Str("file", filename).Msg("posting invoice to parser")

	status, raw, err := postFile(ctx, c.client, c.url, "file", filename, contentType, file)
	if err != nil {
		return nil, &Error{Service: parserService, Err: err}
	}
	if status != http.StatusOK {
		log.Warn().Int("status", status).Msg("invoice parser returned non-200")
		return nil, statusError(parserService, status, raw)
	}

	rows, err := decodeRows(raw)
	if err != nil {
		return nil, &Error{Service: parserService, StatusCode: status, Body: decodeBody(raw), Err: err}
	}
	return &ParseResult{Rows: rows, Raw: json.RawMessage(raw)}, nil
}

func decodeRows(raw []byte) ([]map[string]interface{}, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, ErrMalformedResponse
	}
	rowsRaw, ok := envelope["rows"]
	if !ok {
		return nil, ErrMalformedResponse
	}

	dec := json.NewDecoder(bytes.NewReader(rowsRaw))
	dec.UseNumber()
	var items []interface{}
	if err := dec.Decode(&items); err != nil || items == nil {
		return nil, ErrMalformedResponse
	}

	rows := make([]map[string]interface{}, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]interface{}); ok {
			rows = append(rows, m)
			continue
		}
		// keep the slot so the row is still counted and sent to review
		rows = append(rows, map[string]interface{}{"value": it})
	}
	return rows, nil
}
