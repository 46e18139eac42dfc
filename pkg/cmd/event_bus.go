package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/leadflowhq/leadflow/pkg/channels/gochannel"
	"github.com/leadflowhq/leadflow/pkg/channels/kafka"
	"github.com/leadflowhq/leadflow/pkg/eventbus"
)

// NewEventBus creates the event bus for the given provider. Kafka backs
// production; gochannel is a single-process bus for local development.
func NewEventBus(provider, serviceName string, logger *slog.Logger) eventbus.EventBus {
	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), serviceName)
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)

	case "gochannel":
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			panic(fmt.Errorf("failed to create gochannel pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)

	default:
		panic("Unsupported event bus provider: " + provider)
	}
}
