package readers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/insightdash/syncengine/internal/models"
)

const defaultHTTPTimeout = 30 * time.Second

// HTTPReader fetches records from a REST endpoint. The response body may be
// a bare JSON array or an envelope object carrying a "data" array; both are
// normalized to the former.
type HTTPReader struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration

	client *resty.Client
}

func NewHTTPReader(url string, headers map[string]string) *HTTPReader {
	return &HTTPReader{
		URL:     url,
		Headers: headers,
		Timeout: defaultHTTPTimeout,
	}
}

func (r *HTTPReader) httpClient() *resty.Client {
	if r.client == nil {
		timeout := r.Timeout
		if timeout == 0 {
			timeout = defaultHTTPTimeout
		}
		r.client = resty.New().SetTimeout(timeout)
	}
	return r.client
}

func (r *HTTPReader) Read(ctx context.Context) ([]models.Record, error) {
	resp, err := r.httpClient().R().
		SetContext(ctx).
		SetHeaders(r.Headers).
		Get(r.URL)
	if err != nil {
		return nil, readErr(r.URL, err)
	}
	if resp.IsError() {
		return nil, readErr(r.URL, fmt.Errorf("unexpected status %s", resp.Status()))
	}

	records, err := decodeRecords(resp.Body())
	if err != nil {
		return nil, readErr(r.URL, err)
	}
	return records, nil
}

// decodeRecords accepts either `[...]` or `{"data": [...]}`.
func decodeRecords(body []byte) ([]models.Record, error) {
	var rows []models.Record
	if err := json.Unmarshal(body, &rows); err == nil {
		return rows, nil
	}

	var envelope struct {
		Data []models.Record `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("response is neither an array nor a data envelope")
	}
	return envelope.Data, nil
}
