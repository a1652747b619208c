// Package registry provides built-in handler registration.
package registry

import (
	"github.com/atelierhq/easel/pkg/imaging"
	"github.com/atelierhq/easel/pkg/nodes/end"
	"github.com/atelierhq/easel/pkg/nodes/httprequest"
	"github.com/atelierhq/easel/pkg/nodes/imagegen"
	"github.com/atelierhq/easel/pkg/nodes/log"
	"github.com/atelierhq/easel/pkg/nodes/start"
)

// RegisterDefaultHandlers registers all built-in node handler factories.
func (r *Registry) RegisterDefaultHandlers(client imaging.Client) {
	r.Register(start.NewStartNodeFactory())
	r.Register(end.NewEndNodeFactory())
	r.Register(imagegen.NewImageGenNodeFactory(client))
	r.Register(log.NewLogNodeFactory())
	r.Register(httprequest.NewHTTPRequestNodeFactory())
}
