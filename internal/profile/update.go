package profile

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/pixil98/go-errors"
)

// MaxExperienceGain is the largest amount a single add_xp update may carry.
const MaxExperienceGain = 1_000_000

type UpdateKind string

const (
	UpdateLogin        UpdateKind = "login"
	UpdateLogout       UpdateKind = "logout"
	UpdateAddXP        UpdateKind = "add_xp"
	UpdateSetLevel     UpdateKind = "set_level"
	UpdateSetCooldown  UpdateKind = "set_cooldown"
	UpdateResetSkill   UpdateKind = "reset_skill"
	UpdateSetExtension UpdateKind = "set_extension"
)

// Update is a single change to a player's profile sent by a game server.
type Update struct {
	Kind     UpdateKind      `json:"kind"`
	PlayerId uuid.UUID       `json:"player_id"`
	Name     string          `json:"name,omitempty"`
	Skill    SkillType       `json:"skill,omitempty"`
	Ability  Ability         `json:"ability,omitempty"`
	Amount   float64         `json:"amount,omitempty"`
	Level    int             `json:"level,omitempty"`
	Until    int64           `json:"until,omitempty"`
	Key      string          `json:"key,omitempty"`
	Value    json.RawMessage `json:"value,omitempty"`
}

func (u *Update) Validate() error {
	el := errors.NewErrorList()

	if u.PlayerId == uuid.Nil {
		el.Add(fmt.Errorf("player_id must be set"))
	}

	switch u.Kind {
	case UpdateLogin:
		if u.Name == "" {
			el.Add(fmt.Errorf("name is required for login"))
		}
	case UpdateLogout:
	case UpdateAddXP:
		el.Add(u.validateSkill())
		switch {
		case math.IsNaN(u.Amount) || u.Amount <= 0:
			el.Add(fmt.Errorf("amount must be positive"))
		case u.Amount > MaxExperienceGain:
			el.Add(fmt.Errorf("amount must not exceed %d", MaxExperienceGain))
		}
	case UpdateSetLevel:
		el.Add(u.validateSkill())
		if u.Level < 0 {
			el.Add(fmt.Errorf("level must not be negative"))
		}
	case UpdateResetSkill:
		el.Add(u.validateSkill())
	case UpdateSetCooldown:
		if !u.Ability.Valid() {
			el.Add(fmt.Errorf("unknown ability: %q", u.Ability))
		}
	case UpdateSetExtension:
		if u.Key == "" {
			el.Add(fmt.Errorf("key is required"))
		}
		if len(u.Value) == 0 {
			el.Add(fmt.Errorf("value is required"))
		} else if !json.Valid(u.Value) {
			el.Add(fmt.Errorf("value must be valid json"))
		}
	default:
		el.Add(fmt.Errorf("unknown update kind: %q", u.Kind))
	}

	return el.Err()
}

func (u *Update) validateSkill() error {
	if !u.Skill.Valid() {
		return fmt.Errorf("unknown skill: %q", u.Skill)
	}
	return nil
}

// SavedEvent is published after a profile has been persisted.
type SavedEvent struct {
	PlayerId   uuid.UUID `json:"player_id"`
	Name       string    `json:"name"`
	PowerLevel int       `json:"power_level"`
	SavedAt    time.Time `json:"saved_at"`
}
