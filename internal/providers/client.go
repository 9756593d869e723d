package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxErrorBodySize = 64 << 10

// apiClient is the thin HTTP layer shared by the adapters: one request, one
// response, non-2xx decoded into a gateway error message. Authentication is
// injected per adapter since every gateway signs requests differently.
type apiClient struct {
	baseURL    string
	httpClient *http.Client
	// authorize sets whatever auth the gateway wants on the request.
	authorize func(r *http.Request)
}

func newAPIClient(baseURL string, authorize func(r *http.Request)) *apiClient {
	return &apiClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		authorize:  authorize,
	}
}

// do performs one HTTP exchange. A nil body sends no payload; out may be nil
// when the response body is irrelevant. Non-2xx responses are returned as
// *gatewayError carrying the parsed message when one could be extracted.
func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authorize != nil {
		c.authorize(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return &gatewayError{
			StatusCode: resp.StatusCode,
			Message:    extractErrorMessage(raw, resp.Status),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// doForm is do for gateways that speak application/x-www-form-urlencoded
// instead of JSON (Stripe). Error handling is identical.
func (c *apiClient) doForm(ctx context.Context, method, path string, form url.Values, out any) error {
	var reader io.Reader
	if form != nil {
		reader = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.authorize != nil {
		c.authorize(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return &gatewayError{
			StatusCode: resp.StatusCode,
			Message:    extractErrorMessage(raw, resp.Status),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// gatewayError is the pre-taxonomy form of a gateway rejection; adapters wrap
// it into an errors.APIError with provider and operation context.
type gatewayError struct {
	StatusCode int
	Message    string
}

func (e *gatewayError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.StatusCode, e.Message)
}

// extractErrorMessage digs a human-readable message out of the common error
// body shapes the five gateways use, falling back to the HTTP status text.
func extractErrorMessage(raw []byte, statusText string) string {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return statusText
	}

	// {"error": {"message": "..."}} (stripe, payplug)
	if errObj, ok := body["error"].(map[string]any); ok {
		if msg, ok := errObj["message"].(string); ok && msg != "" {
			return msg
		}
	}
	// {"message": "...", "detail": "..."} (paypal, mollie)
	for _, key := range []string{"message", "detail", "title"} {
		if msg, ok := body[key].(string); ok && msg != "" {
			return msg
		}
	}
	// {"error": {"errors": [{"message": "..."}]}} (gocardless)
	if errObj, ok := body["error"].(map[string]any); ok {
		if list, ok := errObj["errors"].([]any); ok && len(list) > 0 {
			if first, ok := list[0].(map[string]any); ok {
				if msg, ok := first["message"].(string); ok && msg != "" {
					return msg
				}
			}
		}
	}
	return statusText
}
