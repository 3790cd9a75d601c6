package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTP invokes a remote tool handler by POSTing the invocation as JSON and
// decoding a {success, data, error} body.
type HTTP struct {
	URL        string
	Timeout    time.Duration
	HTTPClient *http.Client
}

func (h HTTP) Invoke(ctx context.Context, inv Invocation) (Result, error) {
	client := h.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: h.Timeout}
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(inv); err != nil {
		return Result{}, fmt.Errorf("encode invocation: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, &buf)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("call %s tool: %w", inv.Intent, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Result{}, fmt.Errorf("%s tool returned status %d: %s", inv.Intent, resp.StatusCode, bytes.TrimSpace(b))
	}
	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return Result{}, fmt.Errorf("decode %s tool response: %w", inv.Intent, err)
	}
	if !res.Success && res.Error == "" {
		res.Error = ErrNoDetail.Error()
	}
	return res, nil
}
