package profile

import (
	"fmt"
	"slices"
)

type SkillType string

const (
	SkillAcrobatics  SkillType = "acrobatics"
	SkillAlchemy     SkillType = "alchemy"
	SkillArchery     SkillType = "archery"
	SkillAxes        SkillType = "axes"
	SkillExcavation  SkillType = "excavation"
	SkillFishing     SkillType = "fishing"
	SkillHerbalism   SkillType = "herbalism"
	SkillMining      SkillType = "mining"
	SkillRepair      SkillType = "repair"
	SkillSalvage     SkillType = "salvage"
	SkillSmelting    SkillType = "smelting"
	SkillSwords      SkillType = "swords"
	SkillTaming      SkillType = "taming"
	SkillUnarmed     SkillType = "unarmed"
	SkillWoodcutting SkillType = "woodcutting"
)

var Skills = []SkillType{
	SkillAcrobatics,
	SkillAlchemy,
	SkillArchery,
	SkillAxes,
	SkillExcavation,
	SkillFishing,
	SkillHerbalism,
	SkillMining,
	SkillRepair,
	SkillSalvage,
	SkillSmelting,
	SkillSwords,
	SkillTaming,
	SkillUnarmed,
	SkillWoodcutting,
}

func (s SkillType) Valid() bool {
	return slices.Contains(Skills, s)
}

// UnmarshalText accepts an empty string as "no skill". Whether a skill is
// required is up to the caller.
func (s *SkillType) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*s = ""
		return nil
	}
	st := SkillType(text)
	if !st.Valid() {
		return fmt.Errorf("unknown skill: %s", text)
	}
	*s = st
	return nil
}

// Ability is a skill's active ability, tracked by cooldown.
type Ability string

const (
	AbilityBerserk          Ability = "berserk"
	AbilityBlastMining      Ability = "blast_mining"
	AbilityGigaDrillBreaker Ability = "giga_drill_breaker"
	AbilityGreenTerra       Ability = "green_terra"
	AbilitySerratedStrikes  Ability = "serrated_strikes"
	AbilitySkullSplitter    Ability = "skull_splitter"
	AbilitySuperBreaker     Ability = "super_breaker"
	AbilityTreeFeller       Ability = "tree_feller"
)

var Abilities = []Ability{
	AbilityBerserk,
	AbilityBlastMining,
	AbilityGigaDrillBreaker,
	AbilityGreenTerra,
	AbilitySerratedStrikes,
	AbilitySkullSplitter,
	AbilitySuperBreaker,
	AbilityTreeFeller,
}

func (a Ability) Valid() bool {
	return slices.Contains(Abilities, a)
}

func (a *Ability) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*a = ""
		return nil
	}
	ab := Ability(text)
	if !ab.Valid() {
		return fmt.Errorf("unknown ability: %s", text)
	}
	*a = ab
	return nil
}

// XPToNextLevel is the linear level curve: 1020 plus 20 per level.
func XPToNextLevel(level int) float64 {
	return float64(1020 + 20*level)
}
