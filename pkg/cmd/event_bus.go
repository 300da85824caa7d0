package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/deskflow/pkg/channels/gochannel"
	"github.com/dukex/deskflow/pkg/channels/kafka"
	"github.com/dukex/deskflow/pkg/eventbus"
)

// NewEventBus builds the event bus for provider ("gochannel" or "kafka"). serviceName names the Kafka consumer group.
func NewEventBus(provider string, brokers []string, serviceName string, logger *slog.Logger) eventbus.EventBus {
	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), brokers, serviceName)
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger)
	case "gochannel", "":
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			panic(fmt.Errorf("failed to create in-memory pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger)
	default:
		panic("Unsupported event bus provider: " + provider)
	}
}
