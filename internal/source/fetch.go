// Package source fetches the raw survey snapshot from the upstream feed.
// The feed's response shape is not stable: depending on the deployment it
// returns a JSON object carrying a "data" array, a bare JSON array, or CSV
// text. All three decode to the same raw row set.
package source

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// StatusLive is the status string reported after a successful fetch.
const StatusLive = "Live"

// Fetcher pulls one snapshot per call from a fixed URL.
type Fetcher struct {
	url    string
	client *http.Client
}

func NewFetcher(url string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves and decodes the current snapshot. The returned status
// string and error flag are surfaced to callers unchanged; on any failure
// the record set is nil and the caller keeps its previous snapshot.
func (f *Fetcher) Fetch(ctx context.Context) ([]map[string]any, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, "Invalid Source URL", fmt.Errorf("failed to build fetch request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "Connection Failed", fmt.Errorf("failed to fetch source data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Sprintf("Source Error: HTTP %d", resp.StatusCode),
			fmt.Errorf("source returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "Read Failed", fmt.Errorf("failed to read source response: %w", err)
	}

	records, err := Decode(body)
	if err != nil {
		return nil, "Unreadable Data", err
	}
	if len(records) == 0 {
		return nil, "No Data in Script", fmt.Errorf("source returned no records")
	}
	return records, StatusLive, nil
}

// Decode interprets a payload as a JSON object with a "data" array, a bare
// JSON array of row objects, or CSV text, in that order.
func Decode(body []byte) ([]map[string]any, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil, fmt.Errorf("source returned empty payload")
	}

	var envelope struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Data != nil {
		return envelope.Data, nil
	}

	var rows []map[string]any
	if err := json.Unmarshal(body, &rows); err == nil {
		return rows, nil
	}

	return decodeCSV(trimmed)
}

func decodeCSV(text string) ([]map[string]any, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to parse source payload as JSON or CSV: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []map[string]any
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV row: %w", err)
		}
		row := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
