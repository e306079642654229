package cube

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gogpu/gputypes"
	"gopkg.in/yaml.v3"
)

// Config holds the render loop settings. The zero value is not usable; start
// from DefaultConfig.
type Config struct {
	// Scene selects the preset to render: cube, pyramid or triangle.
	Scene string `yaml:"scene" toml:"scene"`

	// FPS is the tick rate of the default ticker.
	FPS int `yaml:"fps" toml:"fps"`

	// ReverseDelta feeds last-now instead of now-last into the rotation,
	// spinning the mesh the other way.
	ReverseDelta bool `yaml:"reverse_delta" toml:"reverse_delta"`

	// TrackResize re-syncs the surface with the window every frame.
	TrackResize bool `yaml:"track_resize" toml:"track_resize"`

	// Reproject recomputes the camera aspect after a resize.
	Reproject bool `yaml:"reproject" toml:"reproject"`

	// Background is the per-frame clear color.
	Background Color `yaml:"background" toml:"background"`

	// Projection configures the perspective camera.
	Projection Projection `yaml:"projection" toml:"projection"`

	// Window is the logical size and scale used by hosts without a real
	// window, such as the cubeview command.
	Window Window `yaml:"window" toml:"window"`
}

// Color is an RGBA color with components in [0, 1].
type Color struct {
	R float64 `yaml:"r" toml:"r"`
	G float64 `yaml:"g" toml:"g"`
	B float64 `yaml:"b" toml:"b"`
	A float64 `yaml:"a" toml:"a"`
}

func (c Color) gpu() gputypes.Color {
	return gputypes.Color{R: c.R, G: c.G, B: c.B, A: c.A}
}

// Projection configures the perspective camera.
type Projection struct {
	// FovY is the vertical field of view in radians.
	FovY float32 `yaml:"fov_y" toml:"fov_y"`
	// Near is the near clip plane distance.
	Near float32 `yaml:"near" toml:"near"`
	// Far is the far clip plane distance.
	Far float32 `yaml:"far" toml:"far"`
	// Distance is how far the camera sits back from the origin along -Z.
	Distance float32 `yaml:"distance" toml:"distance"`
}

// Window is a logical window size and DPI scale.
type Window struct {
	Width  int     `yaml:"width" toml:"width"`
	Height int     `yaml:"height" toml:"height"`
	Scale  float64 `yaml:"scale" toml:"scale"`
}

// DefaultConfig returns the default settings: the cube scene at 60 FPS on
// a white background, with resize tracking and re-projection enabled.
func DefaultConfig() Config {
	return Config{
		Scene:       SceneCube,
		FPS:         60,
		TrackResize: true,
		Reproject:   true,
		Background:  Color{R: 1, G: 1, B: 1, A: 1},
		Projection:  DefaultProjection(),
		Window:      Window{Width: 640, Height: 480, Scale: 1},
	}
}

// DefaultProjection returns a 0.785 rad (45°) perspective with clip planes
// at 0.1 and 1000 and the camera 5 units back.
func DefaultProjection() Projection {
	return Projection{FovY: 0.785, Near: 0.1, Far: 1000, Distance: 5}
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	if _, err := LookupScene(c.Scene); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.FPS <= 0 || c.FPS > 1000 {
		return fmt.Errorf("%w: fps %d out of range (1..1000)", ErrInvalidConfig, c.FPS)
	}
	p := c.Projection
	if p.FovY <= 0 || p.FovY >= math.Pi {
		return fmt.Errorf("%w: fov_y %v out of range (0..pi)", ErrInvalidConfig, p.FovY)
	}
	if p.Near <= 0 || p.Far <= p.Near {
		return fmt.Errorf("%w: clip planes near=%v far=%v", ErrInvalidConfig, p.Near, p.Far)
	}
	if p.Distance < 0 {
		return fmt.Errorf("%w: negative camera distance %v", ErrInvalidConfig, p.Distance)
	}
	for _, v := range []float64{c.Background.R, c.Background.G, c.Background.B, c.Background.A} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: background component %v out of range (0..1)", ErrInvalidConfig, v)
		}
	}
	if c.Window.Width < 0 || c.Window.Height < 0 || c.Window.Scale <= 0 {
		return fmt.Errorf("%w: window %dx%d scale %v", ErrInvalidConfig, c.Window.Width, c.Window.Height, c.Window.Scale)
	}
	return nil
}

// LoadConfig reads a YAML (.yaml, .yml) or TOML (.toml) file over the
// defaults and validates the result.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := ParseConfig(data, strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes data in the given format ("yaml", "yml" or "toml")
// over the defaults and validates the result. Unknown keys are rejected.
func ParseConfig(data []byte, format string) (Config, error) {
	cfg := DefaultConfig()
	switch strings.ToLower(format) {
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("parse yaml config: %w", err)
		}
	case "toml":
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg)
		if err != nil {
			return Config{}, fmt.Errorf("parse toml config: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("%w: unknown toml key %q", ErrInvalidConfig, undecoded[0].String())
		}
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnsupportedConfigFormat, format)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
