package cmd

import (
	"log/slog"

	"github.com/atelierhq/easel/pkg/eventbus"
)

// NewEventBus builds the in-process event bus the API and runner share.
func NewEventBus(logger *slog.Logger) eventbus.EventBus {
	return eventbus.NewGoChannelEventBus(logger)
}
