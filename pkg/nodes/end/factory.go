package end

import "github.com/atelierhq/easel/pkg/protocol"

// EndNodeFactory creates EndNode instances.
type EndNodeFactory struct{}

func (f *EndNodeFactory) Create(id string, _ map[string]any) (protocol.Handler, error) {
	return NewEndNode(id), nil
}

func (f *EndNodeFactory) ID() string {
	return "end"
}

func (f *EndNodeFactory) Name() string {
	return "End"
}

// Schema returns nil: end nodes take no configuration.
func (f *EndNodeFactory) Schema() map[string]any {
	return nil
}

func NewEndNodeFactory() protocol.HandlerFactory {
	return &EndNodeFactory{}
}
