package tuning

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	Network   Network   `yaml:"network"`
	Terrain   Terrain   `yaml:"terrain"`
	Geometry  Geometry  `yaml:"geometry"`
	Reconcile Reconcile `yaml:"reconcile"`
}

type Network struct {
	Enabled         bool    `yaml:"enabled"`
	StationsEnabled bool    `yaml:"stations_enabled"`
	SeedOffset      int64   `yaml:"seed_offset"`
	StationSpacing  int     `yaml:"station_spacing"`
	StationChance   float64 `yaml:"station_chance"`
	Density         float64 `yaml:"density"`
	NoiseScale      float64 `yaml:"noise_scale"`
	BranchChance    float64 `yaml:"branch_chance"`
	Lanes           int     `yaml:"lanes"`
	DefaultHeight   int     `yaml:"default_height"`
}

type Terrain struct {
	FollowClosely   bool    `yaml:"follow_closely"`
	SurfaceOffset   int     `yaml:"surface_offset"`
	TunnelDepth     int     `yaml:"tunnel_depth"`
	UseBridges      bool    `yaml:"use_bridges"`
	BridgeThreshold int     `yaml:"bridge_threshold"`
	MaxSurfaceSlope float64 `yaml:"max_surface_slope"`
	Smoothing       float64 `yaml:"smoothing"`
	MinHeight       int     `yaml:"min_height"`
	MaxHeight       int     `yaml:"max_height"`
}

type Geometry struct {
	MinCurveRadius int  `yaml:"min_curve_radius"`
	MaxCurveAngle  int  `yaml:"max_curve_angle"`
	UsePillars     bool `yaml:"use_pillars"`
	PillarSpacing  int  `yaml:"pillar_spacing"`
	MinBuildHeight int  `yaml:"min_build_height"`
	InclineRise    int  `yaml:"incline_rise"`
}

type Reconcile struct {
	BatchPerTick    int    `yaml:"batch_per_tick"`
	FlushBatch      int    `yaml:"flush_batch"`
	FlushMaxBatches int    `yaml:"flush_max_batches"`
	MaxAgeMs        int    `yaml:"max_age_ms"`
	ScanCacheSize   int    `yaml:"scan_cache_size"`
	Search          Search `yaml:"search"`
}

// Search bounds the vertical scan for track ends near a cell boundary.
type Search struct {
	PrimaryMin   int `yaml:"primary_min"`
	PrimaryMax   int `yaml:"primary_max"`
	UpperMax     int `yaml:"upper_max"`
	LowerMin     int `yaml:"lower_min"`
	Inset        int `yaml:"inset"`
	AnchorWindow int `yaml:"anchor_window"`
}

func (r Reconcile) MaxAge() time.Duration {
	return time.Duration(r.MaxAgeMs) * time.Millisecond
}

func Defaults() Tuning {
	return Tuning{
		Network: Network{
			Enabled:         true,
			StationsEnabled: true,
			SeedOffset:      0xDEADBEEF,
			StationSpacing:  32,
			StationChance:   0.8,
			Density:         0.5,
			NoiseScale:      25,
			BranchChance:    0.3,
			Lanes:           1,
			DefaultHeight:   70,
		},
		Terrain: Terrain{
			FollowClosely:   true,
			SurfaceOffset:   0,
			TunnelDepth:     10,
			UseBridges:      true,
			BridgeThreshold: 5,
			MaxSurfaceSlope: 0.6,
			Smoothing:       0.7,
			MinHeight:       60,
			MaxHeight:       90,
		},
		Geometry: Geometry{
			MinCurveRadius: 8,
			MaxCurveAngle:  90,
			UsePillars:     true,
			PillarSpacing:  8,
			MinBuildHeight: -64,
			InclineRise:    5,
		},
		Reconcile: Reconcile{
			BatchPerTick:    1,
			FlushBatch:      50,
			FlushMaxBatches: 100,
			MaxAgeMs:        60000,
			ScanCacheSize:   10000,
			Search: Search{
				PrimaryMin:   55,
				PrimaryMax:   85,
				UpperMax:     150,
				LowerMin:     40,
				Inset:        2,
				AnchorWindow: 3,
			},
		},
	}
}

// Load reads path over Defaults. An empty path returns the defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if strings.TrimSpace(path) == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := validateDocument(raw); err != nil {
		return t, fmt.Errorf("railnet.yaml: %w", err)
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("railnet.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("railnet.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	n := t.Network
	if n.StationSpacing < 2 {
		return fmt.Errorf("network.station_spacing must be >= 2")
	}
	if n.NoiseScale <= 0 {
		return fmt.Errorf("network.noise_scale must be > 0")
	}
	if n.Lanes < 1 {
		return fmt.Errorf("network.lanes must be >= 1")
	}
	for name, p := range map[string]float64{
		"network.station_chance": n.StationChance,
		"network.density":        n.Density,
		"network.branch_chance":  n.BranchChance,
		"terrain.smoothing":      t.Terrain.Smoothing,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("%s must be in [0, 1]", name)
		}
	}
	if t.Terrain.MinHeight > t.Terrain.MaxHeight {
		return fmt.Errorf("terrain.min_height must be <= terrain.max_height")
	}
	if t.Terrain.BridgeThreshold < 0 || t.Terrain.TunnelDepth < 0 {
		return fmt.Errorf("terrain.bridge_threshold and terrain.tunnel_depth must be >= 0")
	}
	g := t.Geometry
	if g.MinCurveRadius < 1 {
		return fmt.Errorf("geometry.min_curve_radius must be >= 1")
	}
	if g.MaxCurveAngle != 45 && g.MaxCurveAngle != 90 {
		return fmt.Errorf("geometry.max_curve_angle must be 45 or 90")
	}
	if g.PillarSpacing < 1 {
		return fmt.Errorf("geometry.pillar_spacing must be >= 1")
	}
	r := t.Reconcile
	if r.BatchPerTick < 1 || r.FlushBatch < 1 || r.FlushMaxBatches < 1 {
		return fmt.Errorf("reconcile batch sizes must be >= 1")
	}
	if r.MaxAgeMs <= 0 {
		return fmt.Errorf("reconcile.max_age_ms must be > 0")
	}
	s := r.Search
	if !(s.LowerMin <= s.PrimaryMin && s.PrimaryMin <= s.PrimaryMax && s.PrimaryMax <= s.UpperMax) {
		return fmt.Errorf("reconcile.search bands must satisfy lower_min <= primary_min <= primary_max <= upper_max")
	}
	if s.Inset < 0 || s.AnchorWindow < 0 {
		return fmt.Errorf("reconcile.search inset and anchor_window must be >= 0")
	}
	return nil
}
