package command

import (
	"context"
	"fmt"

	"github.com/pixil98/go-service"
	"github.com/pixil98/go-skillstore/internal/driver"
	"github.com/pixil98/go-skillstore/internal/messaging"
	"github.com/pixil98/go-skillstore/internal/profile"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	store, err := cfg.Storage.BuildProfileStore(context.Background())
	if err != nil {
		return nil, fmt.Errorf("creating profile store: %w", err)
	}

	nats, err := cfg.Nats.BuildNatsServer()
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}

	profiles, err := cfg.Profiles.BuildManager(store, profile.WithPublisher(messaging.NewNatsPublisher(nats)))
	if err != nil {
		return nil, fmt.Errorf("creating profile manager: %w", err)
	}

	// The driver runs the autosave
	d := driver.NewDriver([]driver.Manager{
		profiles,
	}, driver.WithTickLength(cfg.tickInterval()))

	return service.WorkerList{
		"nats":     nats,
		"updates":  messaging.NewUpdateSubscriber(nats, profiles),
		"driver":   d,
		"profiles": profiles,
	}, nil
}
