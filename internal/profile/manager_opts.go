package profile

import "time"

type ManagerOpt func(*Manager)

// WithPublisher sets where saved events are sent
func WithPublisher(pub EventPublisher) ManagerOpt {
	return func(m *Manager) {
		m.pub = pub
	}
}

// WithCacheTTL sets how long unloaded profiles stay cached. Zero disables
// the cache.
func WithCacheTTL(d time.Duration) ManagerOpt {
	return func(m *Manager) {
		m.cacheTTL = d
	}
}

// WithSaveAttempts sets how many times a save is tried before giving up
// until the next tick
func WithSaveAttempts(n uint) ManagerOpt {
	return func(m *Manager) {
		if n > 0 {
			m.saveAttempts = n
		}
	}
}

// WithRetryDelay sets the pause between save attempts
func WithRetryDelay(d time.Duration) ManagerOpt {
	return func(m *Manager) {
		m.retryDelay = d
	}
}

// WithMaxLevel caps skill levels. Zero means uncapped.
func WithMaxLevel(lvl int) ManagerOpt {
	return func(m *Manager) {
		m.maxLevel = lvl
	}
}
