package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-skillstore/internal/profile"
	"github.com/pixil98/go-skillstore/internal/storage"
)

type ProfilesConfig struct {
	CacheTTL       string `json:"cache_ttl"`
	SaveAttempts   uint   `json:"save_attempts"`
	SaveRetryDelay string `json:"save_retry_delay"`
	MaxLevel       int    `json:"max_level"`
}

func (c *ProfilesConfig) Validate() error {
	el := errors.NewErrorList()

	if c.CacheTTL != "" {
		d, err := time.ParseDuration(c.CacheTTL)
		if err != nil {
			el.Add(fmt.Errorf("parsing cache_ttl: %w", err))
		} else if d < 0 {
			el.Add(fmt.Errorf("cache_ttl must not be negative"))
		}
	}

	if c.SaveRetryDelay != "" {
		_, err := time.ParseDuration(c.SaveRetryDelay)
		if err != nil {
			el.Add(fmt.Errorf("parsing save_retry_delay: %w", err))
		}
	}

	if c.MaxLevel < 0 {
		el.Add(fmt.Errorf("max_level must not be negative"))
	}

	return el.Err()
}

func (c *ProfilesConfig) BuildManager(store storage.Storer[*profile.Profile], opts ...profile.ManagerOpt) (*profile.Manager, error) {
	if c.CacheTTL != "" {
		d, err := time.ParseDuration(c.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("parsing cache_ttl: %w", err)
		}
		opts = append(opts, profile.WithCacheTTL(d))
	}
	if c.SaveRetryDelay != "" {
		d, err := time.ParseDuration(c.SaveRetryDelay)
		if err != nil {
			return nil, fmt.Errorf("parsing save_retry_delay: %w", err)
		}
		opts = append(opts, profile.WithRetryDelay(d))
	}
	opts = append(opts,
		profile.WithSaveAttempts(c.SaveAttempts),
		profile.WithMaxLevel(c.MaxLevel),
	)

	return profile.NewManager(store, opts...), nil
}
