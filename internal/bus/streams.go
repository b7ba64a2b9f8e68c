package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// Stream configuration for JetStream.
var StreamConfigs = []jetstream.StreamConfig{
	{
		Name:        "FLEET_LIFECYCLE",
		Description: "Compute fleet lifecycle events: start, stop, status changes",
		Subjects:    []string{"corral.fleet.>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour, // 30 days
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Discard:     jetstream.DiscardOld,
	},
}

// ProvisionStreams creates or updates all JetStream streams.
func ProvisionStreams(ctx context.Context, js jetstream.JetStream) error {
	for _, cfg := range StreamConfigs {
		if _, err := js.CreateOrUpdateStream(ctx, cfg); err != nil {
			return fmt.Errorf("provision stream %s: %w", cfg.Name, err)
		}
	}
	return nil
}
