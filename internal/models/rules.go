package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type RuleKind string

const (
	RuleUnknown        RuleKind = ""
	RuleDuellistsEdge  RuleKind = "DuellistsEdge"
	RuleCriticalHit    RuleKind = "CriticalHit"
	RuleEternalWarrior RuleKind = "EternalWarrior"
	RuleRending        RuleKind = "Rending"
	RuleShred          RuleKind = "Shred"
	RuleBreaching      RuleKind = "Breaching"
	RulePoisoned       RuleKind = "Poisoned"
	RulePrecision      RuleKind = "Precision"
	RuleFeelNoPain     RuleKind = "FeelNoPain"
	RuleBulky          RuleKind = "Bulky"
	RuleFear           RuleKind = "Fear"
	RuleHatred         RuleKind = "Hatred"
	RuleImpact         RuleKind = "Impact"
	RuleLightningBlows RuleKind = "LightningBlows"
)

// SpecialRule is a tagged rule record. Value holds the numeric payload
// (a count or a target number), Target the Hatred keyword and Modifier the
// Impact modifier. Rules with an unrecognised tag keep Kind RuleUnknown and
// Raw, and are ignored by the engine.
type SpecialRule struct {
	Kind     RuleKind
	Value    int
	Target   string
	Modifier Modifier
	Raw      string
}

func Rule(kind RuleKind, v int) SpecialRule { return SpecialRule{Kind: kind, Value: v} }

func (r SpecialRule) String() string {
	switch r.Kind {
	case RuleUnknown:
		return r.Raw
	case RuleLightningBlows:
		return string(r.Kind)
	case RuleHatred:
		return fmt.Sprintf("%s(%s)", r.Kind, r.Target)
	case RuleImpact:
		return fmt.Sprintf("%s(%s)", r.Kind, r.Modifier)
	case RuleCriticalHit, RuleRending, RuleShred, RuleBreaching, RulePoisoned, RulePrecision, RuleFeelNoPain:
		return fmt.Sprintf("%s(%d+)", r.Kind, r.Value)
	case RuleDuellistsEdge, RuleEternalWarrior, RuleBulky, RuleFear:
		return fmt.Sprintf("%s(%d)", r.Kind, r.Value)
	default:
		return r.Raw
	}
}

var ruleRe = regexp.MustCompile(`^([A-Za-z']+)\s*(?:\(\s*([^)]*)\s*\))?$`)

// ParseRule reads "CriticalHit(5+)", "EternalWarrior(2)", "Hatred(Paragon)",
// "Impact(+1)" or "LightningBlows". Names are matched ignoring case,
// spaces and apostrophes.
func ParseRule(s string) (SpecialRule, error) {
	raw := strings.TrimSpace(s)
	m := ruleRe.FindStringSubmatch(strings.ReplaceAll(raw, " ", ""))
	if m == nil {
		return SpecialRule{}, fmt.Errorf("invalid special rule %q", s)
	}
	name := strings.ToLower(strings.ReplaceAll(m[1], "'", ""))
	arg := m[2]
	kind := RuleUnknown
	for _, k := range []RuleKind{
		RuleDuellistsEdge, RuleCriticalHit, RuleEternalWarrior, RuleRending, RuleShred,
		RuleBreaching, RulePoisoned, RulePrecision, RuleFeelNoPain, RuleBulky, RuleFear,
		RuleHatred, RuleImpact, RuleLightningBlows,
	} {
		if strings.ToLower(string(k)) == name {
			kind = k
			break
		}
	}
	r := SpecialRule{Kind: kind, Raw: raw}
	switch kind {
	case RuleUnknown, RuleLightningBlows:
	case RuleHatred:
		r.Target = arg
	case RuleImpact:
		mod, err := ParseModifier(arg)
		if err != nil {
			return SpecialRule{}, fmt.Errorf("special rule %q: %w", s, err)
		}
		r.Modifier = mod
	default:
		v, err := strconv.Atoi(strings.TrimSuffix(arg, "+"))
		if err != nil {
			return SpecialRule{}, fmt.Errorf("special rule %q: %w", s, err)
		}
		r.Value = v
	}
	return r, nil
}

func (r SpecialRule) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *SpecialRule) UnmarshalText(b []byte) error {
	v, err := ParseRule(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

func (r *SpecialRule) UnmarshalYAML(n *yaml.Node) error {
	return r.UnmarshalText([]byte(n.Value))
}

func ruleValue(rules []SpecialRule, kind RuleKind) (int, bool) {
	for _, r := range rules {
		if r.Kind == kind {
			return r.Value, true
		}
	}
	return 0, false
}

// RuleValue returns the payload of the first rule of the given kind.
func (p WeaponProfile) RuleValue(kind RuleKind) (int, bool) {
	return ruleValue(p.Rules, kind)
}

// SumRule adds up every rule of the given kind.
func SumRule(rules []SpecialRule, kind RuleKind) int {
	n := 0
	for _, r := range rules {
		if r.Kind == kind {
			n += r.Value
		}
	}
	return n
}
