package log

import "github.com/atelierhq/easel/pkg/protocol"

// LogNodeFactory creates LogNode instances.
type LogNodeFactory struct{}

func (f *LogNodeFactory) Create(id string, config map[string]any) (protocol.Handler, error) {
	return NewLogNode(id, config)
}

func (f *LogNodeFactory) ID() string {
	return "log"
}

func (f *LogNodeFactory) Name() string {
	return "Log"
}

// Schema returns the JSON schema for Log node configuration.
func (f *LogNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Message to log.",
			},
			"level": map[string]any{
				"type":        "string",
				"enum":        []string{"debug", "info", "warn", "error"},
				"default":     "info",
				"description": "Log level for the message.",
			},
		},
		"required": []string{"message"},
	}
}

func NewLogNodeFactory() protocol.HandlerFactory {
	return &LogNodeFactory{}
}
