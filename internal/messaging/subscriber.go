package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pixil98/go-skillstore/internal/profile"
)

const UpdateSubject = "profiles.update"

type Subscriber interface {
	Ready() <-chan struct{}
	Subscribe(subject string, handler func(data []byte)) (func(), error)
}

type Applier interface {
	Apply(context.Context, profile.Update) error
}

// UpdateSubscriber feeds profile updates arriving over nats into an Applier.
type UpdateSubscriber struct {
	sub     Subscriber
	applier Applier
	subject string
}

func NewUpdateSubscriber(sub Subscriber, applier Applier) *UpdateSubscriber {
	return &UpdateSubscriber{
		sub:     sub,
		applier: applier,
		subject: UpdateSubject,
	}
}

func (s *UpdateSubscriber) Start(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case <-s.sub.Ready():
	}

	unsub, err := s.sub.Subscribe(s.subject, func(data []byte) {
		err := s.handle(ctx, data)
		switch {
		case errors.Is(err, profile.ErrManagerClosed):
			slog.DebugContext(ctx, "profile update arrived during shutdown", "error", err)
		case err != nil:
			slog.WarnContext(ctx, "dropping profile update", "error", err)
		}
	})
	if err != nil {
		return err
	}
	defer unsub()

	slog.InfoContext(ctx, "listening for profile updates", "subject", s.subject)

	<-ctx.Done()
	return nil
}

func (s *UpdateSubscriber) handle(ctx context.Context, data []byte) error {
	var u profile.Update
	if err := json.Unmarshal(data, &u); err != nil {
		return fmt.Errorf("decoding update: %w", err)
	}

	if err := s.applier.Apply(ctx, u); err != nil {
		return fmt.Errorf("applying %s for %s: %w", u.Kind, u.PlayerId, err)
	}
	return nil
}
