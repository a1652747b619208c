package start

import "github.com/atelierhq/easel/pkg/protocol"

// StartNodeFactory creates StartNode instances.
type StartNodeFactory struct{}

func (f *StartNodeFactory) Create(id string, _ map[string]any) (protocol.Handler, error) {
	return NewStartNode(id), nil
}

func (f *StartNodeFactory) ID() string {
	return "start"
}

func (f *StartNodeFactory) Name() string {
	return "Start"
}

// Schema returns nil: start nodes take no configuration.
func (f *StartNodeFactory) Schema() map[string]any {
	return nil
}

func NewStartNodeFactory() protocol.HandlerFactory {
	return &StartNodeFactory{}
}
