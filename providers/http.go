package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"
)

const defaultCallTimeout = 15 * time.Second

func newHTTPClient() *http.Client {
	// Provider calls are blocking I/O; every call gets a bounded timeout so
	// a stalled rail surfaces as a retryable failure instead of hanging the
	// request.
	return &http.Client{Timeout: defaultCallTimeout}
}

// doJSON issues a JSON request against a rail and decodes the response.
// Timeouts and 5xx responses come back as retryable provider errors; 4xx
// responses are terminal rejections.
func doJSON(ctx context.Context, client *http.Client, provider, method, url string, headers map[string]string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &Error{Provider: provider, Code: "encode", Message: "failed to encode request", Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return &Error{Provider: provider, Code: "request", Message: "failed to build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		retryable := true
		if errors.Is(err, context.Canceled) {
			retryable = false
		}
		return &Error{Provider: provider, Code: "network", Message: "provider unreachable", Retryable: retryable, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &Error{Provider: provider, Code: "read", Message: "failed to read response", Retryable: true, Err: err}
	}

	switch {
	case resp.StatusCode >= 500:
		return &Error{
			Provider:  provider,
			Code:      fmt.Sprintf("http_%d", resp.StatusCode),
			Message:   "provider error response",
			Retryable: true,
		}
	case resp.StatusCode >= 400:
		return &Error{
			Provider: provider,
			Code:     fmt.Sprintf("http_%d", resp.StatusCode),
			Message:  fmt.Sprintf("provider rejected request: %s", truncate(raw, 256)),
		}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return &Error{Provider: provider, Code: "decode", Message: "failed to decode response", Err: err}
		}
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}

// majorUnits renders a minor-unit amount as the "12.34" decimal string the
// mobile rails expect.
func majorUnits(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}

// minorUnits parses a provider decimal amount string back into minor units.
// Malformed amounts come back as 0, which downstream reads as "no amount
// reported" and skips amount verification.
func minorUnits(s string) int64 {
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(math.Round(value * 100))
}
