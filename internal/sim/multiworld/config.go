package multiworld

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"railnet.ai/internal/sim/world/terrain/store"
)

type Config struct {
	DefaultWorldID string      `yaml:"default_world_id"`
	Worlds         []WorldSpec `yaml:"worlds"`
}

// WorldSpec describes one namespace: an independent host world with its own
// derived seed and rail network.
type WorldSpec struct {
	ID          string `yaml:"id"`
	Type        string `yaml:"type"`
	SeedOffset  int64  `yaml:"seed_offset"`
	BoundaryR   int    `yaml:"boundary_r"`
	BaseHeight  int    `yaml:"base_height"`
	SeaLevel    int    `yaml:"sea_level"`
	RailEnabled bool   `yaml:"rail_enabled"`
}

type preset struct {
	base, sea, lakes int
}

// presets are the terrain shapes a world type starts from.
var presets = map[string]preset{
	"OVERWORLD":   {base: 68, sea: 62, lakes: 1000},
	"ARCHIPELAGO": {base: 62, sea: 63, lakes: 2000},
	"HIGHLANDS":   {base: 92, sea: 40, lakes: 300},
}

func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	cfg = Config{}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("worlds.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("worlds.yaml: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		DefaultWorldID: "OVERWORLD",
		Worlds: []WorldSpec{
			{ID: "OVERWORLD", Type: "OVERWORLD", BoundaryR: 4096, RailEnabled: true},
			{ID: "ARCHIPELAGO", Type: "ARCHIPELAGO", SeedOffset: 1, BoundaryR: 2048, RailEnabled: true},
			{ID: "HIGHLANDS", Type: "HIGHLANDS", SeedOffset: 2, BoundaryR: 2048, RailEnabled: true},
		},
	}
}

func (c *Config) Normalize() {
	if c == nil {
		return
	}
	for i := range c.Worlds {
		w := &c.Worlds[i]
		if strings.TrimSpace(w.Type) == "" {
			w.Type = w.ID
		}
		p, ok := presets[w.Type]
		if !ok {
			p = presets["OVERWORLD"]
		}
		if w.BaseHeight == 0 {
			w.BaseHeight = p.base
		}
		if w.SeaLevel == 0 {
			w.SeaLevel = p.sea
		}
	}
	if c.DefaultWorldID == "" && len(c.Worlds) > 0 {
		c.DefaultWorldID = c.Worlds[0].ID
	}
}

func (c Config) Validate() error {
	c.Normalize()
	if len(c.Worlds) == 0 {
		return fmt.Errorf("worlds must not be empty")
	}
	seen := map[string]bool{}
	for _, w := range c.Worlds {
		if strings.TrimSpace(w.ID) == "" {
			return fmt.Errorf("world id must not be empty")
		}
		if seen[w.ID] {
			return fmt.Errorf("duplicate world id: %s", w.ID)
		}
		seen[w.ID] = true
		if _, ok := presets[w.Type]; !ok {
			return fmt.Errorf("world %s has unknown type %q", w.ID, w.Type)
		}
		if w.BoundaryR <= 0 {
			return fmt.Errorf("world %s boundary_r must be > 0", w.ID)
		}
	}
	if !seen[c.DefaultWorldID] {
		return fmt.Errorf("default_world_id %q not found in worlds", c.DefaultWorldID)
	}
	return nil
}

func (c Config) WorldSpecByID(id string) (WorldSpec, bool) {
	for _, w := range c.Worlds {
		if w.ID == id {
			return w, true
		}
	}
	return WorldSpec{}, false
}

func (c Config) IDs() []string {
	out := make([]string, 0, len(c.Worlds))
	for _, w := range c.Worlds {
		out = append(out, w.ID)
	}
	sort.Strings(out)
	return out
}

// WorldGen is the host terrain for spec under the derived seed.
func (w WorldSpec) WorldGen(seed int64) store.WorldGen {
	g := store.DefaultWorldGen(seed)
	g.BoundaryR = w.BoundaryR
	g.BaseHeight = w.BaseHeight
	g.SeaLevel = w.SeaLevel
	if p, ok := presets[w.Type]; ok {
		g.LakeProbScalePermille = p.lakes
	}
	return g
}
