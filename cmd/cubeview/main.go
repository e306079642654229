// Command cubeview renders a scene headlessly on the software or noop HAL
// backend and optionally writes the last frame to an image file.
//
// Usage:
//
//	cubeview --scene pyramid --frames 120 --snapshot pyramid.png
//	cubeview --config cube.yaml --backend noop --log-level debug
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/gogpu/wgpu/hal/software"
	"github.com/urfave/cli/v2"

	"github.com/gogpu/cube"
	"github.com/gogpu/cube/render"
)

func main() {
	app := &cli.App{
		Name:  "cubeview",
		Usage: "render a rotating mesh headlessly",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "scene", Usage: "scene preset: " + strings.Join(cube.SceneNames(), ", ")},
			&cli.StringFlag{Name: "config", Usage: "YAML or TOML config `FILE`"},
			&cli.IntFlag{Name: "width", Usage: "logical window width"},
			&cli.IntFlag{Name: "height", Usage: "logical window height"},
			&cli.Float64Flag{Name: "scale", Usage: "window DPI scale factor"},
			&cli.IntFlag{Name: "fps", Usage: "frames per second"},
			&cli.Uint64Flag{Name: "frames", Value: 60, Usage: "frames to render before exiting (0 runs until interrupted)"},
			&cli.StringFlag{Name: "backend", Value: "software", Usage: "HAL backend: software or noop"},
			&cli.StringFlag{Name: "snapshot", Usage: "write the last frame to `FILE` (.png or .bmp, software backend only)"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug, info, warn or error"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "cubeview:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.String("log-level"))); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	cube.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	dev, err := openBackend(c.String("backend"))
	if err != nil {
		return err
	}
	defer dev.close()

	handle := render.NewHALDeviceHandle(dev.device, dev.queue, gputypes.TextureFormatRGBA8Unorm, dev.info)
	window := gpucontext.NullWindowProvider{W: cfg.Window.Width, H: cfg.Window.Height, SF: cfg.Window.Scale}
	surface, err := render.NewSurfaceAdapter(handle, dev.surface, window, render.SurfaceConfig{})
	if err != nil {
		return err
	}

	loop, err := cube.NewRenderLoop(handle, surface,
		cube.WithConfig(cfg),
		cube.WithFrameLimit(c.Uint64("frames")),
	)
	if err != nil {
		surface.Destroy()
		return err
	}
	defer loop.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if err := loop.Err(); err != nil {
		cube.Logger().Warn("rendered without a shader program", "err", err)
	}
	cube.Logger().Info("done", "frames", loop.Frames(), "angle", loop.Transform().Angle())

	if path := c.String("snapshot"); path != "" {
		return snapshot(path, dev.surface, surface)
	}
	return nil
}

// loadConfig applies the config file, then any flags set on the command line.
func loadConfig(c *cli.Context) (cube.Config, error) {
	cfg := cube.DefaultConfig()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = cube.LoadConfig(path); err != nil {
			return cube.Config{}, err
		}
	}
	if c.IsSet("scene") {
		cfg.Scene = c.String("scene")
	}
	if c.IsSet("fps") {
		cfg.FPS = c.Int("fps")
	}
	if c.IsSet("width") {
		cfg.Window.Width = c.Int("width")
	}
	if c.IsSet("height") {
		cfg.Window.Height = c.Int("height")
	}
	if c.IsSet("scale") {
		cfg.Window.Scale = c.Float64("scale")
	}
	return cfg, cfg.Validate()
}

type backend struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	surface  hal.Surface
	info     gpucontext.AdapterInfo
}

func openBackend(name string) (*backend, error) {
	var api hal.Backend
	switch name {
	case "software":
		api = software.API{}
	case "noop":
		api = noop.API{}
	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}

	instance, err := api.CreateInstance(&hal.InstanceDescriptor{})
	if err != nil {
		return nil, fmt.Errorf("create %s instance: %w", name, err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%s: no adapters", name)
	}
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open %s adapter: %w", name, err)
	}
	// A zero window handle gives a headless surface.
	surface, err := instance.CreateSurface(0, 0)
	if err != nil {
		open.Device.Destroy()
		instance.Destroy()
		return nil, fmt.Errorf("create %s surface: %w", name, err)
	}
	return &backend{
		instance: instance,
		device:   open.Device,
		queue:    open.Queue,
		surface:  surface,
		info:     render.AdapterInfoFrom(adapters[0].Info),
	}, nil
}

func (b *backend) close() {
	b.surface.Destroy()
	b.device.Destroy()
	b.instance.Destroy()
}

// framebufferSource is implemented by surfaces that keep their pixels in
// host memory.
type framebufferSource interface {
	GetFramebuffer() []byte
}

func snapshot(path string, surface hal.Surface, adapter *render.SurfaceAdapter) error {
	src, ok := surface.(framebufferSource)
	if !ok {
		return errors.New("snapshot: backend has no readable framebuffer")
	}
	w, h := adapter.BackingSize()
	pix := src.GetFramebuffer()
	if w == 0 || h == 0 || pix == nil {
		return errors.New("snapshot: no frame rendered")
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	if err := cube.WriteSnapshot(f, format, pix, int(w), int(h)); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	cube.Logger().Info("snapshot written", "path", path, "width", w, "height", h)
	return nil
}
