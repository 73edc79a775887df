package profile

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-skillstore/internal/dirty"
	"github.com/pixil98/go-skillstore/internal/storage"
)

// Profile is a player's persistent skill data. Every container on the
// profile shares one dirty flag, so a single check tells the owner whether
// anything needs saving.
type Profile struct {
	mu   sync.Mutex
	flag *dirty.Flag
	// unloaded is set under mu once the manager has saved and released the
	// profile. Updates must not touch it after that.
	unloaded bool

	id        uuid.UUID
	name      string
	lastLogin time.Time

	Levels     *dirty.Map[SkillType, int]
	Experience *dirty.Map[SkillType, float64]
	// Cooldowns holds the unix time each ability becomes available again.
	Cooldowns  *dirty.Map[Ability, int64]
	Extensions storage.ExtensionState
}

// New creates a profile that has never been saved. It starts dirty.
func New(id uuid.UUID, name string) *Profile {
	p := build(id, name, time.Time{}, nil, nil, nil, nil)
	p.flag.Mark()
	return p
}

func build(
	id uuid.UUID,
	name string,
	lastLogin time.Time,
	levels map[SkillType]int,
	xp map[SkillType]float64,
	cooldowns map[Ability]int64,
	ext map[string]json.RawMessage,
) *Profile {
	if levels == nil {
		levels = map[SkillType]int{}
	}
	if xp == nil {
		xp = map[SkillType]float64{}
	}
	if cooldowns == nil {
		cooldowns = map[Ability]int64{}
	}

	flag := dirty.NewFlag(false)
	return &Profile{
		flag:       flag,
		id:         id,
		name:       name,
		lastLogin:  lastLogin,
		Levels:     dirty.NewMap(levels, flag),
		Experience: dirty.NewMap(xp, flag),
		Cooldowns:  dirty.NewMap(cooldowns, flag),
		Extensions: storage.NewExtensionState(ext, flag),
	}
}

func (p *Profile) Id() uuid.UUID {
	return p.id
}

func (p *Profile) Name() string {
	return p.name
}

func (p *Profile) SetName(name string) {
	p.flag.Mark()
	p.name = name
}

func (p *Profile) LastLogin() time.Time {
	return p.lastLogin
}

func (p *Profile) SetLastLogin(t time.Time) {
	p.flag.Mark()
	p.lastLogin = t
}

func (p *Profile) IsDirty() bool {
	return p.flag.Get()
}

// ClearDirty is called by the owner once the profile has been persisted.
func (p *Profile) ClearDirty() {
	p.flag.Clear()
}

// maxLevelGain bounds the levels a single AddExperience call can grant.
const maxLevelGain = 1 << 20

// AddExperience adds amount to a skill and levels it up while enough
// experience has accumulated. A positive maxLevel caps the level; experience
// keeps accumulating at the cap. Non-finite or non-positive amounts are
// ignored. It returns the number of levels gained.
func (p *Profile) AddExperience(skill SkillType, amount float64, maxLevel int) int {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0
	}

	xp, _ := p.Experience.Merge(skill, amount, func(old, v float64) (float64, bool) {
		return old + v, true
	})

	level := p.Levels.GetOrDefault(skill, 0)
	gained := levelsAffordable(level, xp)
	if maxLevel > 0 {
		gained = min(gained, max(maxLevel-level, 0))
	}

	if gained > 0 {
		p.Levels.Put(skill, level+gained)
		p.Experience.Put(skill, xp-xpForLevels(level, gained))
	}

	return gained
}

// xpForLevels is the experience needed to climb n levels starting at level.
func xpForLevels(level, n int) float64 {
	fn := float64(n)
	return fn*XPToNextLevel(level) + 10*fn*(fn-1)
}

// levelsAffordable returns the largest n, up to maxLevelGain, with
// xpForLevels(level, n) <= xp.
func levelsAffordable(level int, xp float64) int {
	if xp < XPToNextLevel(level) {
		return 0
	}

	b := XPToNextLevel(level) - 10
	est := (math.Sqrt(b*b+40*xp) - b) / 20
	n := int(min(est, maxLevelGain))

	// Float rounding can leave the estimate one off either way
	for n < maxLevelGain && xpForLevels(level, n+1) <= xp {
		n++
	}
	for n > 0 && xpForLevels(level, n) > xp {
		n--
	}
	return n
}

// PowerLevel is the sum of all skill levels.
func (p *Profile) PowerLevel() int {
	total := 0
	for _, lvl := range p.Levels.Clone() {
		total += lvl
	}
	return total
}

func (p *Profile) Validate() error {
	if p == nil {
		return fmt.Errorf("profile is missing")
	}

	el := errors.NewErrorList()

	if p.id == uuid.Nil {
		el.Add(fmt.Errorf("id must be set"))
	}

	if p.name == "" {
		el.Add(fmt.Errorf("name must be set"))
	}

	for skill, lvl := range p.Levels.Clone() {
		if lvl < 0 {
			el.Add(fmt.Errorf("skill %s: level must not be negative", skill))
		}
	}

	for skill, xp := range p.Experience.Clone() {
		if xp < 0 {
			el.Add(fmt.Errorf("skill %s: experience must not be negative", skill))
		}
	}

	return el.Err()
}

type profileJSON struct {
	Id         uuid.UUID                  `json:"id"`
	Name       string                     `json:"name"`
	LastLogin  time.Time                  `json:"last_login"`
	Levels     map[SkillType]int          `json:"levels"`
	Experience map[SkillType]float64      `json:"experience"`
	Cooldowns  map[Ability]int64          `json:"cooldowns"`
	Extensions map[string]json.RawMessage `json:"extensions,omitempty"`
}

// MarshalJSON encodes the profile without marking it dirty.
func (p *Profile) MarshalJSON() ([]byte, error) {
	return json.Marshal(profileJSON{
		Id:         p.id,
		Name:       p.name,
		LastLogin:  p.lastLogin,
		Levels:     p.Levels.Clone(),
		Experience: p.Experience.Clone(),
		Cooldowns:  p.Cooldowns.Clone(),
		Extensions: p.Extensions.Clone(),
	})
}

// UnmarshalJSON rebuilds the profile with fresh containers on a new flag.
// The decoded profile is dirty until its owner clears it.
func (p *Profile) UnmarshalJSON(b []byte) error {
	var pj profileJSON
	if err := json.Unmarshal(b, &pj); err != nil {
		return err
	}

	decoded := build(pj.Id, pj.Name, pj.LastLogin, pj.Levels, pj.Experience, pj.Cooldowns, pj.Extensions)
	decoded.flag.Mark()

	p.flag = decoded.flag
	p.id = decoded.id
	p.name = decoded.name
	p.lastLogin = decoded.lastLogin
	p.Levels = decoded.Levels
	p.Experience = decoded.Experience
	p.Cooldowns = decoded.Cooldowns
	p.Extensions = decoded.Extensions
	return nil
}
