// Package bus provides event bus implementations for Ringsight.
package bus

import (
	"fmt"

	"github.com/ringsight/ringsight/internal/domain"
)

// New creates an event bus based on configuration: in-process Go
// channels by default, NATS when the analysis events need to leave
// the process.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel", "":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}
