package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"

	goerrors "github.com/pixil98/go-errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/pefman/w40k-challenge/internal/models"
)

var (
	ErrUnknownCharacter = errors.New("unknown character")
	ErrUnknownWeapon    = errors.New("unknown weapon")
)

//go:embed data/gambits.yaml data/weapons/*.yaml data/characters/*.yaml
var embeddedFS embed.FS

// Catalog is the read-only set of gambits, weapons and characters.
type Catalog struct {
	gambits    []models.Gambit
	gambitByID map[models.GambitID]models.Gambit
	weapons    map[string]models.Weapon
	characters []models.Character
	charByID   map[string]int
	log        *zap.Logger
}

type Option func(*Catalog)

func WithLogger(l *zap.Logger) Option {
	return func(c *Catalog) { c.log = l }
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// Default returns the embedded catalogue, loaded once per process.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		sub, err := fs.Sub(embeddedFS, "data")
		if err != nil {
			defaultErr = err
			return
		}
		defaultCat, defaultErr = Load(sub)
	})
	return defaultCat, defaultErr
}

// MustDefault is Default for tests and mains that cannot continue without it.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// LoadDir reads a catalogue laid out like the embedded one from dir.
func LoadDir(dir string, opts ...Option) (*Catalog, error) {
	return Load(os.DirFS(dir), opts...)
}

type gambitFile struct {
	Gambits []models.Gambit `yaml:"gambits"`
}

type weaponFile struct {
	Weapons []models.Weapon `yaml:"weapons"`
}

type characterFile struct {
	Characters []models.Character `yaml:"characters"`
}

// Load reads gambits.yaml, weapons/*.yaml and characters/*.yaml from fsys.
// Structural problems are collected and returned together; references to
// unknown gambits are dropped from the character.
func Load(fsys fs.FS, opts ...Option) (*Catalog, error) {
	c := &Catalog{
		gambitByID: map[models.GambitID]models.Gambit{},
		weapons:    map[string]models.Weapon{},
		charByID:   map[string]int{},
		log:        zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}

	el := goerrors.NewErrorList()

	var gf gambitFile
	if err := decode(fsys, "gambits.yaml", &gf); err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	for _, g := range gf.Gambits {
		switch {
		case g.ID == "":
			el.Add(fmt.Errorf("gambit %q: missing id", g.Name))
		case c.hasGambit(g.ID):
			el.Add(fmt.Errorf("gambit %s: duplicate id", g.ID))
		default:
			c.gambits = append(c.gambits, g)
			c.gambitByID[g.ID] = g
		}
	}
	for _, id := range models.CoreGambits {
		if !c.hasGambit(id) {
			el.Add(fmt.Errorf("core gambit %s is missing", id))
		}
	}

	weaponPaths, err := glob(fsys, "weapons/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	for _, path := range weaponPaths {
		var wf weaponFile
		if err := decode(fsys, path, &wf); err != nil {
			el.Add(err)
			continue
		}
		for _, w := range wf.Weapons {
			if err := w.Validate(); err != nil {
				el.Add(fmt.Errorf("%s: %w", path, err))
				continue
			}
			if _, dup := c.weapons[w.ID]; dup {
				el.Add(fmt.Errorf("%s: weapon %s: duplicate id", path, w.ID))
				continue
			}
			c.weapons[w.ID] = w
		}
	}

	charPaths, err := glob(fsys, "characters/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	for _, path := range charPaths {
		var cf characterFile
		if err := decode(fsys, path, &cf); err != nil {
			el.Add(err)
			continue
		}
		for _, ch := range cf.Characters {
			if err := c.addCharacter(ch); err != nil {
				el.Add(fmt.Errorf("%s: %w", path, err))
			}
		}
	}

	if err := el.Err(); err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	c.log.Info("catalog loaded",
		zap.Int("gambits", len(c.gambits)),
		zap.Int("weapons", len(c.weapons)),
		zap.Int("characters", len(c.characters)))
	return c, nil
}

func (c *Catalog) hasGambit(id models.GambitID) bool {
	_, ok := c.gambitByID[id]
	return ok
}

func (c *Catalog) addCharacter(ch models.Character) error {
	if _, dup := c.charByID[ch.ID]; dup && ch.ID != "" {
		return fmt.Errorf("character %s: duplicate id", ch.ID)
	}
	ch.Weapons = nil
	for _, id := range ch.WeaponIDs {
		w, ok := c.weapons[id]
		if !ok {
			return fmt.Errorf("character %s: %w %q", ch.ID, ErrUnknownWeapon, id)
		}
		ch.Weapons = append(ch.Weapons, w)
	}

	var kept []models.GambitID
	for _, id := range ch.GambitIDs {
		if !c.hasGambit(id) {
			c.log.Debug("dropping unknown gambit", zap.String("character", ch.ID), zap.String("gambit", string(id)))
			continue
		}
		kept = append(kept, id)
	}
	ch.GambitIDs = kept
	if ch.Mandatory != "" && !c.hasGambit(ch.Mandatory) {
		c.log.Debug("dropping unknown mandatory gambit", zap.String("character", ch.ID), zap.String("gambit", string(ch.Mandatory)))
		ch.Mandatory = ""
	}

	if err := ch.Validate(); err != nil {
		return err
	}
	c.charByID[ch.ID] = len(c.characters)
	c.characters = append(c.characters, ch)
	return nil
}

func glob(fsys fs.FS, pattern string) ([]string, error) {
	paths, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	sort.Strings(paths)
	return paths, nil
}

func decode(fsys fs.FS, path string, v any) error {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Character looks up a character by id.
func (c *Catalog) Character(id string) (models.Character, error) {
	i, ok := c.charByID[id]
	if !ok {
		return models.Character{}, fmt.Errorf("%w: %q", ErrUnknownCharacter, id)
	}
	return c.characters[i], nil
}

func (c *Catalog) Gambit(id models.GambitID) (models.Gambit, bool) {
	g, ok := c.gambitByID[id]
	return g, ok
}

// Characters returns every character in file order.
func (c *Catalog) Characters() []models.Character {
	return append([]models.Character(nil), c.characters...)
}

func (c *Catalog) Gambits() []models.Gambit {
	return append([]models.Gambit(nil), c.gambits...)
}

// Available lists the nine core gambits followed by the character's
// faction gambits, in catalogue order.
func (c *Catalog) Available(ch models.Character) []models.Gambit {
	out := make([]models.Gambit, 0, len(models.CoreGambits)+len(ch.GambitIDs))
	for _, id := range models.CoreGambits {
		if g, ok := c.gambitByID[id]; ok {
			out = append(out, g)
		}
	}
	for _, id := range ch.GambitIDs {
		if g, ok := c.gambitByID[id]; ok {
			out = append(out, g)
		}
	}
	if ch.Mandatory != "" && !containsGambit(out, ch.Mandatory) {
		if g, ok := c.gambitByID[ch.Mandatory]; ok {
			out = append(out, g)
		}
	}
	return out
}

func containsGambit(gs []models.Gambit, id models.GambitID) bool {
	for _, g := range gs {
		if g.ID == id {
			return true
		}
	}
	return false
}
