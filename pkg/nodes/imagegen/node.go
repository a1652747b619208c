// Package imagegen provides the image-generation node, backed by an
// external provider.
package imagegen

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"

	"github.com/atelierhq/easel/pkg/imaging"
	"github.com/atelierhq/easel/pkg/models"
)

const DefaultSize = "1024x1024"

var sizePattern = regexp.MustCompile(`^\d{2,4}x\d{2,4}$`)

// ImageGenNode calls the image-generation provider with (prompt, size) and
// packages the encoded image as its result payload. The provider call is
// synchronous and may take seconds to low minutes.
type ImageGenNode struct {
	id     string
	prompt string
	size   string
	client imaging.Client
}

func NewImageGenNode(id string, config map[string]any, client imaging.Client) (*ImageGenNode, error) {
	prompt, ok := config["prompt"].(string)
	if !ok || prompt == "" {
		return nil, errors.New("missing required field 'prompt'")
	}

	size := DefaultSize
	if s, ok := config["size"].(string); ok && s != "" {
		size = s
	}

	if !sizePattern.MatchString(size) {
		return nil, fmt.Errorf("invalid size %q (expected WxH, e.g. 1024x1024)", size)
	}

	return &ImageGenNode{
		id:     id,
		prompt: prompt,
		size:   size,
		client: client,
	}, nil
}

func (n *ImageGenNode) ID() string {
	return n.id
}

func (n *ImageGenNode) Type() string {
	return "imagegen"
}

func (n *ImageGenNode) Execute(ctx context.Context, _ map[string]*models.NodeResult) (map[string]any, error) {
	image, err := n.client.Generate(ctx, n.prompt, n.size)
	if err != nil {
		return nil, fmt.Errorf("image generation failed: %w", err)
	}

	return map[string]any{
		"image_base64": base64.StdEncoding.EncodeToString(image),
		"size":         n.size,
		"prompt":       n.prompt,
	}, nil
}
