package warehouse

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"seki/internal/config"
)

// maxResultLine bounds a single JSONEachRow line.
const maxResultLine = 1 << 20

type httpExecutor struct {
	cfg    config.WarehouseConfig
	client *http.Client
}

func newHTTPExecutor(cfg config.WarehouseConfig) *httpExecutor {
	return &httpExecutor{
		cfg:    cfg,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
	}
}

// Execute posts the statement to the query API. The FORMAT suffix is
// appended here so callers never hold format concerns; a trailing
// semicolon would break the suffix and is stripped first.
func (e *httpExecutor) Execute(ctx context.Context, stmt string) (*ResultSet, error) {
	q := strings.TrimSuffix(strings.TrimSpace(stmt), ";")
	switch e.cfg.Format {
	case "json":
		q += " FORMAT JSON"
	case "json_each_row":
		q += " FORMAT JSONEachRow"
	}

	reqURL := e.cfg.Endpoint + "?q=" + url.QueryEscape(q)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, nil)
	if err != nil {
		return nil, &ExecutionError{Op: "request", Err: err}
	}
	if e.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.Token)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &ExecutionError{Op: "request", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ExecutionError{Op: "decode", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ExecutionError{Op: "status", Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}
	return decodeResults(raw)
}

// decodeResults handles both response shapes: the FORMAT JSON envelope
// with a "data" array, and bare JSONEachRow lines.
func decodeResults(raw []byte) (*ResultSet, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return &ResultSet{Data: []Row{}}, nil
	}

	var envelope struct {
		Data *[]Row `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err == nil && envelope.Data != nil {
		return &ResultSet{Data: *envelope.Data, Rows: len(*envelope.Data)}, nil
	}

	data := []Row{}
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 0, 64*1024), maxResultLine)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var row Row
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, &ExecutionError{Op: "decode", Err: err}
		}
		data = append(data, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, &ExecutionError{Op: "decode", Err: err}
	}
	return &ResultSet{Data: data, Rows: len(data)}, nil
}
