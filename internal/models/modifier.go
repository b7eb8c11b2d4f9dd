package models

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type ModifierKind int

const (
	ModNone ModifierKind = iota
	ModAdd
	ModFixed
	ModMult
)

// Modifier changes a base characteristic. Written in data as "-" (none),
// "+2"/"-1" (add), "4" (fixed) or "x2" (multiply).
type Modifier struct {
	Kind  ModifierKind
	Value float64
}

func Add(d int) Modifier      { return Modifier{Kind: ModAdd, Value: float64(d)} }
func Fixed(v int) Modifier    { return Modifier{Kind: ModFixed, Value: float64(v)} }
func Mult(k float64) Modifier { return Modifier{Kind: ModMult, Value: k} }

// Apply returns the modified characteristic.
func (m Modifier) Apply(base int) int {
	switch m.Kind {
	case ModNone:
		return base
	case ModAdd:
		return base + int(m.Value)
	case ModFixed:
		return int(m.Value)
	case ModMult:
		return int(math.Round(float64(base) * m.Value))
	default:
		panic(fmt.Sprintf("models: unknown modifier kind %d", m.Kind))
	}
}

func (m Modifier) String() string {
	switch m.Kind {
	case ModNone:
		return "-"
	case ModAdd:
		return fmt.Sprintf("%+d", int(m.Value))
	case ModFixed:
		return strconv.Itoa(int(m.Value))
	case ModMult:
		return "x" + strconv.FormatFloat(m.Value, 'g', -1, 64)
	default:
		return "?"
	}
}

var modRe = regexp.MustCompile(`^([+\-x*])?\s*(\d+(?:\.\d+)?)$`)

// ParseModifier accepts "", "-", "+N", "-N", "N", "xK" and "*K".
func ParseModifier(s string) (Modifier, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "-" || s == "none" {
		return Modifier{}, nil
	}
	m := modRe.FindStringSubmatch(s)
	if m == nil {
		return Modifier{}, fmt.Errorf("invalid modifier %q", s)
	}
	v, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Modifier{}, fmt.Errorf("invalid modifier %q: %w", s, err)
	}
	switch m[1] {
	case "+":
		return Modifier{Kind: ModAdd, Value: v}, nil
	case "-":
		return Modifier{Kind: ModAdd, Value: -v}, nil
	case "x", "*":
		return Modifier{Kind: ModMult, Value: v}, nil
	default:
		return Modifier{Kind: ModFixed, Value: v}, nil
	}
}

func (m Modifier) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Modifier) UnmarshalText(b []byte) error {
	v, err := ParseModifier(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

func (m *Modifier) UnmarshalYAML(n *yaml.Node) error {
	return m.UnmarshalText([]byte(n.Value))
}
