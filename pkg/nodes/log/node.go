// Package log provides a node that records a message at a chosen level.
package log

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/atelierhq/easel/pkg/models"
)

var validLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// LogNode writes a configured message to the process log and echoes it in
// its result payload so it lands in the execution record.
type LogNode struct {
	id      string
	message string
	level   string
	logger  *slog.Logger
}

func NewLogNode(id string, config map[string]any) (*LogNode, error) {
	message, ok := config["message"].(string)
	if !ok || message == "" {
		return nil, errors.New("missing required field 'message'")
	}

	level := "info"
	if lvl, ok := config["level"].(string); ok && lvl != "" {
		level = lvl
	}

	if !validLevels[level] {
		return nil, fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", level)
	}

	return &LogNode{
		id:      id,
		message: message,
		level:   level,
		logger:  slog.Default(),
	}, nil
}

func (n *LogNode) ID() string {
	return n.id
}

func (n *LogNode) Type() string {
	return "log"
}

func (n *LogNode) Execute(_ context.Context, _ map[string]*models.NodeResult) (map[string]any, error) {
	logger := n.logger.With("node_id", n.id, "node_type", "log")

	switch n.level {
	case "debug":
		logger.Debug(n.message)
	case "warn":
		logger.Warn(n.message)
	case "error":
		logger.Error(n.message)
	default:
		logger.Info(n.message)
	}

	return map[string]any{
		"message": n.message,
		"level":   n.level,
	}, nil
}
