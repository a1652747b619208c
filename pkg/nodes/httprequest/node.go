// Package httprequest provides a node that performs an outbound HTTP call.
package httprequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/atelierhq/easel/pkg/models"
)

const defaultTimeoutSeconds = 30

// HTTPRequestNode performs a single HTTP request and exposes the response
// as its result payload. Responses with status >= 400 count as node
// failures.
type HTTPRequestNode struct {
	id     string
	config Config
}

// Config defines the configuration for HTTP request nodes.
type Config struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body,omitempty"`
	Timeout int               `json:"timeout"`
}

func NewHTTPRequestNode(id string, config map[string]any) (*HTTPRequestNode, error) {
	cfg := Config{
		Method:  http.MethodGet,
		Headers: make(map[string]string),
		Timeout: defaultTimeoutSeconds,
	}

	url, ok := config["url"].(string)
	if !ok || url == "" {
		return nil, errors.New("missing required field 'url'")
	}

	cfg.URL = url

	if method, ok := config["method"].(string); ok && method != "" {
		cfg.Method = strings.ToUpper(method)
	}

	if headers, ok := config["headers"].(map[string]any); ok {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				cfg.Headers[k] = s
			}
		}
	}

	if body, ok := config["body"].(string); ok {
		cfg.Body = body
	}

	if timeout, ok := config["timeout"].(float64); ok && timeout > 0 {
		cfg.Timeout = int(timeout)
	}

	return &HTTPRequestNode{id: id, config: cfg}, nil
}

func (n *HTTPRequestNode) ID() string {
	return n.id
}

func (n *HTTPRequestNode) Type() string {
	return "httprequest"
}

func (n *HTTPRequestNode) Execute(ctx context.Context, _ map[string]*models.NodeResult) (map[string]any, error) {
	var bodyReader io.Reader
	if n.config.Body != "" {
		bodyReader = strings.NewReader(n.config.Body)
	}

	req, err := http.NewRequestWithContext(ctx, n.config.Method, n.config.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	for k, v := range n.config.Headers {
		req.Header.Set(k, v)
	}

	client := &http.Client{Timeout: time.Duration(n.config.Timeout) * time.Second}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", n.config.URL, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("request to %s returned status %d", n.config.URL, resp.StatusCode)
	}

	var body any = string(raw)
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var parsed any
		if err := json.Unmarshal(raw, &parsed); err == nil {
			body = parsed
		}
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"body":        body,
	}, nil
}
