package imagegen

import (
	"github.com/atelierhq/easel/pkg/imaging"
	"github.com/atelierhq/easel/pkg/protocol"
)

// ImageGenNodeFactory creates ImageGenNode instances bound to one provider
// client.
type ImageGenNodeFactory struct {
	client imaging.Client
}

func (f *ImageGenNodeFactory) Create(id string, config map[string]any) (protocol.Handler, error) {
	return NewImageGenNode(id, config, f.client)
}

func (f *ImageGenNodeFactory) ID() string {
	return "imagegen"
}

func (f *ImageGenNodeFactory) Name() string {
	return "Image Generation"
}

// Schema returns the JSON schema for imagegen node configuration.
func (f *ImageGenNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Text prompt describing the image to generate.",
			},
			"size": map[string]any{
				"type":        "string",
				"pattern":     `^\d{2,4}x\d{2,4}$`,
				"default":     DefaultSize,
				"description": "Image dimensions as WxH, e.g. 1024x1024.",
			},
		},
		"required": []string{"prompt"},
	}
}

func NewImageGenNodeFactory(client imaging.Client) protocol.HandlerFactory {
	return &ImageGenNodeFactory{client: client}
}
