package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	goerrors "github.com/pixil98/go-errors"
	"github.com/pixil98/go-skillstore/internal/storage"
)

const (
	DefaultCacheTTL     = 5 * time.Minute
	DefaultSaveAttempts = 3
	DefaultRetryDelay   = 100 * time.Millisecond
)

type EventPublisher interface {
	PublishSaved(context.Context, SavedEvent) error
}

// Manager owns the loaded profiles. It is the only thing that clears a
// profile's dirty flag, and only after the store accepted the save.
type Manager struct {
	store storage.Storer[*Profile]
	pub   EventPublisher

	cacheTTL     time.Duration
	saveAttempts uint
	retryDelay   time.Duration
	maxLevel     int
	now          func() time.Time

	// offline holds recently unloaded, already saved profiles so a quick
	// reconnect skips the store.
	offline *cache.Cache

	mu       sync.RWMutex
	profiles map[uuid.UUID]*Profile

	// applyMu is held for reading by every Apply so Start can wait them out
	// before the final save.
	applyMu sync.RWMutex
	closing bool
}

func NewManager(store storage.Storer[*Profile], opts ...ManagerOpt) *Manager {
	m := &Manager{
		store:        store,
		cacheTTL:     DefaultCacheTTL,
		saveAttempts: DefaultSaveAttempts,
		retryDelay:   DefaultRetryDelay,
		now:          time.Now,
		profiles:     map[uuid.UUID]*Profile{},
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.cacheTTL > 0 {
		m.offline = cache.New(m.cacheTTL, 2*m.cacheTTL)
	}

	return m
}

// Start blocks until ctx is done, stops accepting updates and then saves
// everything still dirty.
func (m *Manager) Start(ctx context.Context) error {
	<-ctx.Done()

	m.applyMu.Lock()
	m.closing = true
	m.applyMu.Unlock()

	slog.InfoContext(ctx, "saving profiles before shutdown", "loaded", m.Len())
	return m.SaveAll(context.WithoutCancel(ctx))
}

// Tick saves every dirty profile. Failures are logged and the profile stays
// dirty so the next tick tries again.
func (m *Manager) Tick(ctx context.Context) error {
	saved, failed := 0, 0
	for _, p := range m.loaded() {
		ok, err := m.Save(ctx, p)
		if err != nil {
			failed++
			slog.WarnContext(ctx, "autosave failed", "player", p.Id(), "error", err)
			continue
		}
		if ok {
			saved++
		}
	}

	if saved > 0 || failed > 0 {
		slog.InfoContext(ctx, "autosave", "saved", saved, "failed", failed)
	}
	return nil
}

// SaveAll saves every dirty profile and reports every failure.
func (m *Manager) SaveAll(ctx context.Context) error {
	el := goerrors.NewErrorList()
	for _, p := range m.loaded() {
		_, err := m.Save(ctx, p)
		el.Add(err)
	}
	return el.Err()
}

// Save persists p if it is dirty and reports whether a write happened.
func (m *Manager) Save(ctx context.Context, p *Profile) (bool, error) {
	p.mu.Lock()
	ev, saved, err := m.flushLocked(ctx, p)
	p.mu.Unlock()
	if err != nil || !saved {
		return false, err
	}

	m.publish(ctx, ev)
	return true, nil
}

func (m *Manager) publish(ctx context.Context, ev SavedEvent) {
	if m.pub == nil {
		return
	}
	if err := m.pub.PublishSaved(ctx, ev); err != nil {
		slog.WarnContext(ctx, "publishing saved event", "player", ev.PlayerId, "error", err)
	}
}

// flushLocked saves p if it is dirty. The caller holds p.mu.
func (m *Manager) flushLocked(ctx context.Context, p *Profile) (SavedEvent, bool, error) {
	if !p.IsDirty() {
		return SavedEvent{}, false, nil
	}

	id := p.Id().String()
	err := retry.Do(
		func() error {
			return m.store.Save(ctx, id, p)
		},
		retry.Attempts(m.saveAttempts),
		retry.Delay(m.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			slog.WarnContext(ctx, "retrying profile save", "player", id, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return SavedEvent{}, false, fmt.Errorf("saving profile %s: %w", id, err)
	}

	p.ClearDirty()

	return SavedEvent{
		PlayerId:   p.Id(),
		Name:       p.Name(),
		PowerLevel: p.PowerLevel(),
		SavedAt:    m.now(),
	}, true, nil
}

// Load returns the loaded profile for id, bringing it in from the offline
// cache or the store if needed. Unknown players get a new, dirty profile.
func (m *Manager) Load(ctx context.Context, id uuid.UUID, name string) (*Profile, error) {
	if p := m.Get(id); p != nil {
		return p, nil
	}

	p, err := m.fetch(ctx, id, name)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another caller may have won the race
	if existing, ok := m.profiles[id]; ok {
		return existing, nil
	}
	m.profiles[id] = p

	return p, nil
}

func (m *Manager) fetch(ctx context.Context, id uuid.UUID, name string) (*Profile, error) {
	if m.offline != nil {
		if v, ok := m.offline.Get(id.String()); ok {
			m.offline.Delete(id.String())
			slog.DebugContext(ctx, "profile restored from cache", "player", id)
			return v.(*Profile), nil
		}
	}

	p, err := m.store.Load(ctx, id.String())
	switch {
	case errors.Is(err, storage.ErrNotFound):
		slog.InfoContext(ctx, "creating profile", "player", id, "name", name)
		return New(id, name), nil
	case err != nil:
		return nil, fmt.Errorf("loading profile %s: %w", id, err)
	}

	// Freshly loaded data matches the store
	p.ClearDirty()
	return p, nil
}

func (m *Manager) Get(id uuid.UUID) *Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.profiles[id]
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.profiles)
}

// Unload saves the profile and drops it from the loaded set. A profile that
// fails to save stays loaded. The save, the removal and the hand-off to the
// offline cache happen under the profile lock, so no update can land on a
// profile that is on its way out.
func (m *Manager) Unload(ctx context.Context, id uuid.UUID) error {
	p := m.Get(id)
	if p == nil {
		return fmt.Errorf("%w: %s", ErrProfileNotLoaded, id)
	}

	p.mu.Lock()
	if p.unloaded {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrProfileNotLoaded, id)
	}

	ev, saved, err := m.flushLocked(ctx, p)
	if err != nil {
		p.mu.Unlock()
		return err
	}

	m.mu.Lock()
	if m.profiles[id] == p {
		delete(m.profiles, id)
	}
	m.mu.Unlock()

	p.unloaded = true
	if m.offline != nil {
		m.offline.Set(id.String(), p, cache.DefaultExpiration)
	}
	p.mu.Unlock()

	if saved {
		m.publish(ctx, ev)
	}

	slog.InfoContext(ctx, "profile unloaded", "player", id)
	return nil
}

// Apply performs a single update against the loaded profiles. Once the
// manager is shutting down every update is refused with ErrManagerClosed.
func (m *Manager) Apply(ctx context.Context, u Update) error {
	if err := u.Validate(); err != nil {
		return fmt.Errorf("invalid update: %w", err)
	}

	m.applyMu.RLock()
	defer m.applyMu.RUnlock()

	if m.closing {
		return ErrManagerClosed
	}

	switch u.Kind {
	case UpdateLogin:
		p, err := m.lockLoaded(ctx, u.PlayerId, u.Name)
		if err != nil {
			return err
		}
		defer p.mu.Unlock()

		if p.Name() != u.Name {
			p.SetName(u.Name)
		}
		p.SetLastLogin(m.now())
		return nil

	case UpdateLogout:
		return m.Unload(ctx, u.PlayerId)
	}

	p := m.Get(u.PlayerId)
	if p == nil {
		return fmt.Errorf("%w: %s", ErrProfileNotLoaded, u.PlayerId)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Unloaded while this update waited for the lock
	if p.unloaded {
		return fmt.Errorf("%w: %s", ErrProfileNotLoaded, u.PlayerId)
	}

	switch u.Kind {
	case UpdateAddXP:
		gained := p.AddExperience(u.Skill, u.Amount, m.maxLevel)
		if gained > 0 {
			slog.DebugContext(ctx, "level up", "player", u.PlayerId, "skill", u.Skill, "gained", gained)
		}
	case UpdateSetLevel:
		p.Levels.Put(u.Skill, u.Level)
		p.Experience.Put(u.Skill, 0)
	case UpdateSetCooldown:
		p.Cooldowns.Put(u.Ability, u.Until)
	case UpdateResetSkill:
		p.Levels.Remove(u.Skill)
		p.Experience.Remove(u.Skill)
	case UpdateSetExtension:
		p.Extensions.Put(u.Key, u.Value)
	}

	return nil
}

// lockLoaded loads id and returns it with its lock held. If an unload got
// there first the profile is loaded again.
func (m *Manager) lockLoaded(ctx context.Context, id uuid.UUID, name string) (*Profile, error) {
	for {
		p, err := m.Load(ctx, id, name)
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		if !p.unloaded {
			return p, nil
		}
		p.mu.Unlock()
	}
}

func (m *Manager) loaded() []*Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ps := make([]*Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		ps = append(ps, p)
	}
	return ps
}
