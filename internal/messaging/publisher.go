package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pixil98/go-skillstore/internal/profile"
)

const SavedSubjectPrefix = "profiles.saved"

type Publisher interface {
	Publish(subject string, data []byte) error
}

// NatsPublisher announces saved profiles, one subject per player.
type NatsPublisher struct {
	pub Publisher
}

// NewNatsPublisher wraps a NatsServer (or anything that can publish) for
// saved-profile announcements.
func NewNatsPublisher(pub Publisher) *NatsPublisher {
	return &NatsPublisher{pub: pub}
}

func (p *NatsPublisher) PublishSaved(_ context.Context, ev profile.SavedEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshalling saved event: %w", err)
	}

	subject := SavedSubject(ev.PlayerId.String())
	if err := p.pub.Publish(subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}

func SavedSubject(playerId string) string {
	return fmt.Sprintf("%s.%s", SavedSubjectPrefix, playerId)
}
