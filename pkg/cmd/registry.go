package cmd

import (
	"log/slog"

	"github.com/atelierhq/easel/pkg/imaging"
	"github.com/atelierhq/easel/pkg/registry"
)

// NewRegistry builds the node handler registry with the built-in node
// types wired to the configured image provider.
func NewRegistry(logger *slog.Logger, providerURL, providerKey string) *registry.Registry {
	client := imaging.NewHTTPClient(providerURL, providerKey, logger)

	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultHandlers(client)

	return reg
}
