package rolefeed

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
)

// RemotePublisher emits staff role events on the shared topic so every
// process, not just the one that made the change, observes it.
type RemotePublisher struct {
	publisher *pubsub.Publisher
}

// NewRemotePublisher wraps the staff topic publisher.
func NewRemotePublisher(publisher *pubsub.Publisher) (*RemotePublisher, error) {
	if publisher == nil {
		return nil, fmt.Errorf("staff publisher required")
	}
	return &RemotePublisher{publisher: publisher}, nil
}

// PublishRoleChanged emits a role change event and waits for the broker to
// accept it.
func (p *RemotePublisher) PublishRoleChanged(ctx context.Context, payload RoleChangedPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding role event: %w", err)
	}

	result := p.publisher.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"event_type": EventTypeRoleChanged},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publishing role event: %w", err)
	}
	return nil
}
