package models

import (
	"fmt"
	"strings"

	"github.com/pixil98/go-errors"
)

// ========================= Domain Models =========================
// Catalogue records. The engine only ever reads these.

type CharacterType string

const (
	TypeInfantry CharacterType = "infantry"
	TypeCavalry  CharacterType = "cavalry"
	TypeParagon  CharacterType = "paragon"
)

type SubType string

const (
	SubTypeCommand  SubType = "Command"
	SubTypeChampion SubType = "Champion"
	SubTypeHeavy    SubType = "Heavy"
	SubTypeLight    SubType = "Light"
	SubTypeParagon  SubType = "Paragon"
)

type WeaponKind string

const (
	WeaponMelee  WeaponKind = "melee"
	WeaponRanged WeaponKind = "ranged"
)

// Stats is a characteristic line. Sv and Inv are target numbers
// (2 means 2+); Inv is 0 when the model has no invulnerable save.
type Stats struct {
	M   int `yaml:"m" json:"M"`
	WS  int `yaml:"ws" json:"WS"`
	BS  int `yaml:"bs" json:"BS"`
	S   int `yaml:"s" json:"S"`
	T   int `yaml:"t" json:"T"`
	W   int `yaml:"w" json:"W"`
	I   int `yaml:"i" json:"I"`
	A   int `yaml:"a" json:"A"`
	LD  int `yaml:"ld" json:"LD"`
	CL  int `yaml:"cl" json:"CL"`
	WP  int `yaml:"wp" json:"WP"`
	IN  int `yaml:"in" json:"IN"`
	Sv  int `yaml:"sv" json:"Sv"`
	Inv int `yaml:"inv,omitempty" json:"Inv,omitempty"`
}

// WeaponProfile is one line of a weapon. AP 0 means no armour penetration.
type WeaponProfile struct {
	Name       string        `yaml:"name" json:"name"`
	Initiative Modifier      `yaml:"initiative" json:"initiative"`
	Attacks    Modifier      `yaml:"attacks" json:"attacks"`
	Strength   Modifier      `yaml:"strength" json:"strength"`
	AP         int           `yaml:"ap,omitempty" json:"ap,omitempty"`
	Damage     int           `yaml:"damage" json:"damage"`
	Rules      []SpecialRule `yaml:"rules,omitempty" json:"rules,omitempty"`
}

type Weapon struct {
	ID       string          `yaml:"id" json:"id"`
	Name     string          `yaml:"name" json:"name"`
	Kind     WeaponKind      `yaml:"kind" json:"kind"`
	Profiles []WeaponProfile `yaml:"profiles" json:"profiles"`
}

// Character is an immutable catalogue record. Weapons are resolved from
// WeaponIDs by the catalogue at load time.
type Character struct {
	ID         string        `yaml:"id" json:"id"`
	Name       string        `yaml:"name" json:"name"`
	Faction    string        `yaml:"faction" json:"faction"`
	SubFaction string        `yaml:"sub_faction,omitempty" json:"sub_faction,omitempty"`
	Type       CharacterType `yaml:"type" json:"type"`
	SubTypes   []SubType     `yaml:"sub_types,omitempty" json:"sub_types,omitempty"`
	Stats      Stats         `yaml:"stats" json:"stats"`
	WeaponIDs  []string      `yaml:"weapons" json:"-"`
	Weapons    []Weapon      `yaml:"-" json:"weapons"`
	GambitIDs  []GambitID    `yaml:"gambits,omitempty" json:"gambits,omitempty"`
	Rules      []SpecialRule `yaml:"rules,omitempty" json:"rules,omitempty"`
	Mandatory  GambitID      `yaml:"mandatory_gambit,omitempty" json:"mandatory_gambit,omitempty"`
}

func (c Character) HasSubType(st SubType) bool {
	for _, s := range c.SubTypes {
		if s == st {
			return true
		}
	}
	return false
}

// Profile returns the referenced profile if it exists and belongs to a melee weapon.
func (c Character) Profile(ref WeaponRef) (WeaponProfile, bool) {
	if ref.Weapon < 0 || ref.Weapon >= len(c.Weapons) {
		return WeaponProfile{}, false
	}
	w := c.Weapons[ref.Weapon]
	if w.Kind != WeaponMelee || ref.Profile < 0 || ref.Profile >= len(w.Profiles) {
		return WeaponProfile{}, false
	}
	return w.Profiles[ref.Profile], true
}

// MeleeRefs lists every melee profile in catalogue order.
func (c Character) MeleeRefs() []WeaponRef {
	var refs []WeaponRef
	for wi, w := range c.Weapons {
		if w.Kind != WeaponMelee {
			continue
		}
		for pi := range w.Profiles {
			refs = append(refs, WeaponRef{Weapon: wi, Profile: pi})
		}
	}
	return refs
}

// HasWeaponNamed reports whether any weapon name contains s (case-insensitive).
func (c Character) HasWeaponNamed(s string) bool {
	s = strings.ToLower(s)
	for _, w := range c.Weapons {
		if strings.Contains(strings.ToLower(w.Name), s) {
			return true
		}
	}
	return false
}

// RuleValue returns the payload of the first model rule of the given kind.
func (c Character) RuleValue(kind RuleKind) (int, bool) {
	return ruleValue(c.Rules, kind)
}

func (c *Character) Validate() error {
	el := errors.NewErrorList()
	if c.ID == "" {
		el.Add(fmt.Errorf("character %q: missing id", c.Name))
	}
	if c.Stats.W <= 0 {
		el.Add(fmt.Errorf("character %s: wounds must be positive", c.ID))
	}
	if c.Stats.Sv < 2 || c.Stats.Sv > 7 {
		el.Add(fmt.Errorf("character %s: armour save %d out of range", c.ID, c.Stats.Sv))
	}
	if c.Stats.Inv != 0 && (c.Stats.Inv < 2 || c.Stats.Inv > 6) {
		el.Add(fmt.Errorf("character %s: invulnerable save %d out of range", c.ID, c.Stats.Inv))
	}
	if len(c.MeleeRefs()) == 0 {
		el.Add(fmt.Errorf("character %s: no melee weapon profile", c.ID))
	}
	return el.Err()
}

func (w *Weapon) Validate() error {
	el := errors.NewErrorList()
	if w.ID == "" {
		el.Add(fmt.Errorf("weapon %q: missing id", w.Name))
	}
	switch w.Kind {
	case WeaponMelee, WeaponRanged:
	default:
		el.Add(fmt.Errorf("weapon %s: unknown kind %q", w.ID, w.Kind))
	}
	if len(w.Profiles) == 0 {
		el.Add(fmt.Errorf("weapon %s: no profiles", w.ID))
	}
	for _, p := range w.Profiles {
		if p.Damage <= 0 {
			el.Add(fmt.Errorf("weapon %s profile %q: damage must be positive", w.ID, p.Name))
		}
		if p.AP < 0 || p.AP > 6 {
			el.Add(fmt.Errorf("weapon %s profile %q: ap %d out of range", w.ID, p.Name, p.AP))
		}
	}
	return el.Err()
}
