package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const maxRetries = 3

// httpAPI is a JSON-over-HTTP client with the shared status handling.
type httpAPI struct {
	baseURL string
	client  *http.Client
	header  http.Header
}

// do sends body (if non-nil) as JSON and decodes a 200 response into out.
// Rate limits and 5xx responses are retried with back-off.
func (a *httpAPI) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
	}

	return retryWithBackoff(ctx, maxRetries, func() error {
		var rd io.Reader
		if payload != nil {
			rd = bytes.NewReader(payload)
		}
		httpReq, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, rd)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		if payload != nil {
			httpReq.Header.Set("Content-Type", "application/json")
		}
		for k, vs := range a.header {
			for _, v := range vs {
				httpReq.Header.Add(k, v)
			}
		}

		httpResp, err := a.client.Do(httpReq)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer httpResp.Body.Close()

		respBody, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		if httpResp.StatusCode == 429 {
			return &rateLimitError{}
		}
		if httpResp.StatusCode == 401 || httpResp.StatusCode == 403 {
			return &authError{message: string(respBody)}
		}
		if httpResp.StatusCode >= 500 {
			return &serverError{statusCode: httpResp.StatusCode, body: string(respBody)}
		}
		if httpResp.StatusCode != 200 {
			return fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, string(respBody))
		}

		if out == nil {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
		return nil
	})
}
