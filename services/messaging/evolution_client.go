package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"barberflow-backend/metrics"
)

const (
	createTimeout = 30 * time.Second
	qrTimeout     = 15 * time.Second
	sendTimeout   = 15 * time.Second
	stateTimeout  = 10 * time.Second

	maxBodyBytes = 1 << 20
)

// EvolutionConfig is shared by the channel manager and the sender.
type EvolutionConfig struct {
	BaseURL string
	APIKey  string
	// HTTPClient is optional; per-call timeouts come from the context.
	HTTPClient *http.Client
	Metrics    *metrics.Metrics
}

type evolutionClient struct {
	baseURL   string
	globalKey string
	http      *http.Client
	metrics   *metrics.Metrics
}

func newEvolutionClient(cfg EvolutionConfig) *evolutionClient {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &evolutionClient{
		baseURL:   strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		globalKey: strings.TrimSpace(cfg.APIKey),
		http:      hc,
		metrics:   cfg.Metrics,
	}
}

func (c *evolutionClient) configured() bool {
	return c.baseURL != "" && c.globalKey != ""
}

type apiResponse struct {
	Status int
	// Body is the decoded JSON document, nil when the body was empty or
	// not JSON.
	Body any
}

func (r *apiResponse) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// call performs one request with its own timeout. The instance key wins
// over the global key when both are set. No retries.
func (c *evolutionClient) call(ctx context.Context, endpoint, method, path, apiKey string, payload any, timeout time.Duration) (*apiResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &TransportError{Op: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if key := firstNonEmpty(apiKey, c.globalKey); key != "" {
		req.Header.Set("apikey", key)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ProviderRequest(endpoint, "transport_error", time.Since(start))
		return nil, &TransportError{Op: endpoint, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.metrics.ProviderRequest(endpoint, "transport_error", time.Since(start))
		return nil, &TransportError{Op: endpoint, Err: err}
	}

	out := &apiResponse{Status: resp.StatusCode}
	if len(bytes.TrimSpace(raw)) > 0 {
		var decoded any
		if json.Unmarshal(raw, &decoded) == nil {
			out.Body = decoded
		}
	}

	outcome := "ok"
	if !out.OK() {
		outcome = "status_" + strconv.Itoa(resp.StatusCode)
	}
	c.metrics.ProviderRequest(endpoint, outcome, time.Since(start))
	return out, nil
}

// dig walks a decoded JSON document. String steps index objects, int steps
// index arrays. Missing steps yield nil.
func dig(v any, path ...any) any {
	for _, step := range path {
		switch key := step.(type) {
		case string:
			m, ok := v.(map[string]any)
			if !ok {
				return nil
			}
			v = m[key]
		case int:
			a, ok := v.([]any)
			if !ok || key < 0 || key >= len(a) {
				return nil
			}
			v = a[key]
		default:
			return nil
		}
	}
	return v
}

// stringValue accepts strings and JSON numbers (phone-like owners are
// sometimes sent unquoted).
func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func firstString(body any, paths ...[]any) string {
	for _, p := range paths {
		if s := stringValue(dig(body, p...)); s != "" {
			return s
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// providerMessage pulls a human readable error out of a failed response.
func providerMessage(body any, fallback string) string {
	for _, p := range [][]any{{"message"}, {"error"}, {"response", "message"}} {
		switch v := dig(body, p...).(type) {
		case string:
			if v != "" {
				return v
			}
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				if s := stringValue(item); s != "" {
					parts = append(parts, s)
				}
			}
			if len(parts) > 0 {
				return strings.Join(parts, ", ")
			}
		}
	}
	return fallback
}
