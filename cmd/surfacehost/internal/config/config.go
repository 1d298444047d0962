// Package config loads and resolves surfacehost.yaml.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	hosterrors "github.com/go-drift/surfacehost/pkg/errors"
	"github.com/go-drift/surfacehost/pkg/surface"
)

// FileName is the configuration file looked up by LoadOptional.
const FileName = "surfacehost.yaml"

const (
	defaultVersion        = "v1.0.0"
	defaultTickInterval   = 16 * time.Millisecond
	defaultTraceThreshold = 16667 * time.Microsecond
	defaultTraceCapacity  = 240
)

// Config represents the optional surfacehost.yaml configuration.
type Config struct {
	Version   string          `yaml:"version,omitempty"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Debug     DebugConfig     `yaml:"debug"`
	Surfaces  []SurfaceConfig `yaml:"surfaces"`
}

// SchedulerConfig contains frame scheduling settings.
type SchedulerConfig struct {
	TickInterval   time.Duration `yaml:"tick_interval,omitempty"`
	TraceThreshold time.Duration `yaml:"trace_threshold,omitempty"`
	TraceCapacity  int           `yaml:"trace_capacity,omitempty"`
	Continuous     bool          `yaml:"continuous,omitempty"`
}

// DebugConfig contains debug server settings. A port of 0 disables the
// server.
type DebugConfig struct {
	Port            int           `yaml:"port,omitempty"`
	RuntimeInterval time.Duration `yaml:"runtime_interval,omitempty"`
	RuntimeWindow   time.Duration `yaml:"runtime_window,omitempty"`
}

// SurfaceConfig describes one surface to host.
type SurfaceConfig struct {
	ID          int32             `yaml:"id"`
	Module      string            `yaml:"module"`
	DisplayMode string            `yaml:"display_mode,omitempty"`
	Start       *bool             `yaml:"start,omitempty"`
	PropsFile   string            `yaml:"props_file,omitempty"`
	Constraints ConstraintsConfig `yaml:"constraints"`
}

// ConstraintsConfig holds the scalar layout inputs of a surface. Omitted
// maximums are unbounded.
type ConstraintsConfig struct {
	MinWidth     float64  `yaml:"min_width,omitempty"`
	MaxWidth     *float64 `yaml:"max_width,omitempty"`
	MinHeight    float64  `yaml:"min_height,omitempty"`
	MaxHeight    *float64 `yaml:"max_height,omitempty"`
	OffsetX      float64  `yaml:"offset_x,omitempty"`
	OffsetY      float64  `yaml:"offset_y,omitempty"`
	RTL          bool     `yaml:"rtl,omitempty"`
	SwapInRTL    bool     `yaml:"swap_in_rtl,omitempty"`
	PixelDensity float64  `yaml:"pixel_density,omitempty"`
}

// Resolved contains resolved configuration values.
type Resolved struct {
	Path           string
	Version        string
	TickInterval   time.Duration
	TraceThreshold time.Duration
	TraceCapacity  int
	Continuous     bool
	DebugPort      int

	// Zero runtime values select the debug server defaults.
	RuntimeInterval time.Duration
	RuntimeWindow   time.Duration
	Surfaces        []SurfacePlan
}

// SurfacePlan is a validated surface entry.
type SurfacePlan struct {
	ID          surface.ID
	Module      string
	DisplayMode surface.DisplayMode
	Start       bool
	// PropsFile is an absolute path, or empty.
	PropsFile   string
	Constraints Constraints
}

// Constraints are the resolved scalar layout inputs of a surface.
type Constraints struct {
	MinWidth, MaxWidth   float64
	MinHeight, MaxHeight float64
	OffsetX, OffsetY     float64
	RTL, SwapInRTL       bool
	PixelDensity         float64
}

// Load reads the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return &cfg, nil
}

// LoadOptional reads surfacehost.yaml from dir if present.
func LoadOptional(dir string) (*Config, error) {
	cfg, err := Load(filepath.Join(dir, FileName))
	if errors.Is(err, os.ErrNotExist) {
		return &Config{}, nil
	}
	return cfg, err
}

// Resolve loads the configuration at path and resolves defaults. A path
// naming a directory is searched for surfacehost.yaml, which may be absent.
func Resolve(path string) (*Resolved, error) {
	var (
		cfg *Config
		err error
		dir string
	)
	if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
		dir = path
		path = filepath.Join(dir, FileName)
		cfg, err = LoadOptional(dir)
	} else {
		dir = filepath.Dir(path)
		cfg, err = Load(path)
	}
	if err != nil {
		return nil, err
	}
	res, err := cfg.resolve(path, dir)
	if err != nil {
		return nil, hosterrors.New("config.Resolve", hosterrors.KindConfig, hosterrors.NoSurface, err)
	}
	return res, nil
}

func (cfg *Config) resolve(path, dir string) (*Resolved, error) {
	version := strings.TrimSpace(cfg.Version)
	if version == "" {
		version = defaultVersion
	}
	if err := validateVersion(version); err != nil {
		return nil, err
	}

	res := &Resolved{
		Path:           path,
		Version:        version,
		TickInterval:   cfg.Scheduler.TickInterval,
		TraceThreshold: cfg.Scheduler.TraceThreshold,
		TraceCapacity:  cfg.Scheduler.TraceCapacity,
		Continuous:     cfg.Scheduler.Continuous,
		DebugPort:      cfg.Debug.Port,

		RuntimeInterval: cfg.Debug.RuntimeInterval,
		RuntimeWindow:   cfg.Debug.RuntimeWindow,
	}
	if res.TickInterval <= 0 {
		res.TickInterval = defaultTickInterval
	}
	if res.TraceThreshold <= 0 {
		res.TraceThreshold = defaultTraceThreshold
	}
	if res.TraceCapacity <= 0 {
		res.TraceCapacity = defaultTraceCapacity
	}
	if res.DebugPort < 0 || res.DebugPort > math.MaxUint16 {
		return nil, fmt.Errorf("debug.port out of range (got %d)", res.DebugPort)
	}

	seen := make(map[int32]int, len(cfg.Surfaces))
	for i, sc := range cfg.Surfaces {
		if prev, ok := seen[sc.ID]; ok {
			return nil, fmt.Errorf("surfaces[%d]: id %d already used by surfaces[%d]", i, sc.ID, prev)
		}
		seen[sc.ID] = i

		plan, err := sc.resolve(dir)
		if err != nil {
			return nil, fmt.Errorf("surfaces[%d]: %w", i, err)
		}
		res.Surfaces = append(res.Surfaces, plan)
	}
	return res, nil
}

func (sc SurfaceConfig) resolve(dir string) (SurfacePlan, error) {
	module := strings.TrimSpace(sc.Module)
	if module == "" {
		return SurfacePlan{}, fmt.Errorf("module must not be empty")
	}
	mode, err := surface.ParseDisplayMode(strings.TrimSpace(sc.DisplayMode))
	if err != nil {
		return SurfacePlan{}, err
	}
	c, err := sc.Constraints.resolve()
	if err != nil {
		return SurfacePlan{}, err
	}

	plan := SurfacePlan{
		ID:          surface.ID(sc.ID),
		Module:      module,
		DisplayMode: mode,
		Start:       sc.Start == nil || *sc.Start,
		Constraints: c,
	}
	if sc.PropsFile != "" {
		plan.PropsFile = sc.PropsFile
		if !filepath.IsAbs(plan.PropsFile) {
			plan.PropsFile = filepath.Join(dir, plan.PropsFile)
		}
	}
	return plan, nil
}

func (cc ConstraintsConfig) resolve() (Constraints, error) {
	c := Constraints{
		MinWidth:     cc.MinWidth,
		MaxWidth:     math.Inf(1),
		MinHeight:    cc.MinHeight,
		MaxHeight:    math.Inf(1),
		OffsetX:      cc.OffsetX,
		OffsetY:      cc.OffsetY,
		RTL:          cc.RTL,
		SwapInRTL:    cc.SwapInRTL,
		PixelDensity: cc.PixelDensity,
	}
	if cc.MaxWidth != nil {
		c.MaxWidth = *cc.MaxWidth
	}
	if cc.MaxHeight != nil {
		c.MaxHeight = *cc.MaxHeight
	}
	if c.PixelDensity <= 0 {
		c.PixelDensity = 1
	}

	if c.MinWidth < 0 || c.MinHeight < 0 {
		return Constraints{}, fmt.Errorf("constraints: minimums must not be negative")
	}
	if c.MinWidth > c.MaxWidth {
		return Constraints{}, fmt.Errorf("constraints: min_width %g exceeds max_width %g", c.MinWidth, c.MaxWidth)
	}
	if c.MinHeight > c.MaxHeight {
		return Constraints{}, fmt.Errorf("constraints: min_height %g exceeds max_height %g", c.MinHeight, c.MaxHeight)
	}
	return c, nil
}

func validateVersion(version string) error {
	if !semver.IsValid(version) {
		return fmt.Errorf("version must be a semantic version like v1.0.0 (got %q)", version)
	}
	if major := semver.Major(version); major != "v1" {
		return fmt.Errorf("unsupported config version %s (want v1.x)", major)
	}
	return nil
}
