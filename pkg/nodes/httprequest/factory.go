package httprequest

import "github.com/atelierhq/easel/pkg/protocol"

// HTTPRequestNodeFactory creates HTTPRequestNode instances.
type HTTPRequestNodeFactory struct{}

func (f *HTTPRequestNodeFactory) Create(id string, config map[string]any) (protocol.Handler, error) {
	return NewHTTPRequestNode(id, config)
}

func (f *HTTPRequestNodeFactory) ID() string {
	return "httprequest"
}

func (f *HTTPRequestNodeFactory) Name() string {
	return "HTTP Request"
}

// Schema returns the JSON schema for HTTP request node configuration.
func (f *HTTPRequestNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "URL to request.",
			},
			"method": map[string]any{
				"type":        "string",
				"enum":        []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD"},
				"default":     "GET",
				"description": "HTTP method.",
			},
			"headers": map[string]any{
				"type":        "object",
				"description": "Request headers.",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Request body.",
			},
			"timeout": map[string]any{
				"type":        "number",
				"default":     30,
				"description": "Request timeout in seconds.",
			},
		},
		"required": []string{"url"},
	}
}

func NewHTTPRequestNodeFactory() protocol.HandlerFactory {
	return &HTTPRequestNodeFactory{}
}
