package cube

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/cube/internal/gpu"
	"github.com/gogpu/cube/render"
)

// LoopState is the lifecycle stage of a RenderLoop.
type LoopState int32

const (
	// StateUninitialized is the state before Init.
	StateUninitialized LoopState = iota
	// StateRunning is the state between Init and Stop.
	StateRunning
	// StateStopped is terminal.
	StateStopped
)

func (s LoopState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("LoopState(%d)", int32(s))
	}
}

// RenderLoop owns the per-frame pipeline: it ticks the clock, advances the
// model rotation, keeps the surface in sync with the window, uploads the
// transform uniforms and records one draw per frame.
//
// The loop takes ownership of the surface adapter; Close destroys it.
// Init, Frame and Close must be called from one goroutine. Stop may be
// called from any goroutine.
type RenderLoop struct {
	device  hal.Device
	queue   hal.Queue
	surface *render.SurfaceAdapter

	cfg        Config
	scene      Scene
	ticker     Ticker
	clock      *FrameClock
	frameLimit uint64

	encoder   *gpu.FrameEncoder
	program   *gpu.Program
	geometry  *gpu.GeometryBuffer
	transform *TransformState

	// progErr is the compile, link or mesh mismatch failure from Init, if any.
	progErr      error
	warnedNoDraw bool
	stopOnce     sync.Once
	closeOnce    sync.Once
	done         chan struct{}

	mu     sync.Mutex
	state  LoopState
	frames uint64
}

// NewRenderLoop creates a loop rendering onto surface with the device behind
// handle. The configuration is validated; no GPU objects are created until
// Init.
func NewRenderLoop(handle render.DeviceHandle, surface *render.SurfaceAdapter, opts ...Option) (*RenderLoop, error) {
	if surface == nil {
		return nil, render.ErrNilSurface
	}
	device, queue, err := render.HALDevice(handle)
	if err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	cfg := o.config
	if o.sceneName != "" {
		cfg.Scene = o.sceneName
	}

	var scene Scene
	if o.scene != nil {
		// A custom scene bypasses the preset lookup in Validate.
		scene = *o.scene
		cfg.Scene = SceneCube
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		cfg.Scene = scene.Name
	} else {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		scene, _ = LookupScene(cfg.Scene)
	}

	return &RenderLoop{
		device:     device,
		queue:      queue,
		surface:    surface,
		cfg:        cfg,
		scene:      scene,
		ticker:     o.ticker,
		clock:      NewFrameClock(o.now, cfg.ReverseDelta),
		frameLimit: o.frameLimit,
		done:       make(chan struct{}),
	}, nil
}

// Init configures the surface, clears it once, builds the shader program
// and uploads the mesh. A shader compile or link failure is not fatal: it
// is logged, reported by Err, and frames are cleared without drawing.
// Calling Init on a running loop is a no-op.
func (l *RenderLoop) Init() error {
	switch l.State() {
	case StateRunning:
		return nil
	case StateStopped:
		return ErrNotRunning
	}

	if _, err := l.surface.Reconcile(); err != nil {
		return fmt.Errorf("reconcile surface: %w", err)
	}

	program, err := l.buildProgram()
	if err != nil {
		Logger().Error("shader program unavailable", "scene", l.scene.Name, "err", err)
		l.progErr = err
	}
	l.program = program

	geometry, err := gpu.Upload(l.device, l.queue, l.scene.Mesh.vertexData())
	if err != nil {
		l.releaseGPU()
		return fmt.Errorf("upload %s mesh: %w", l.scene.Name, err)
	}
	l.geometry = geometry
	if l.program != nil {
		if err := l.program.Check(geometry); err != nil {
			Logger().Error("shader program unusable with mesh", "scene", l.scene.Name, "err", err)
			l.progErr = err
			l.program.Destroy()
			l.program = nil
		}
	}

	encoder, err := gpu.NewFrameEncoder(l.device, l.queue)
	if err != nil {
		l.releaseGPU()
		return err
	}
	l.encoder = encoder

	l.transform = NewTransformState(l.cfg.Projection, l.surface.Aspect())
	l.clock.Start()

	l.mu.Lock()
	l.state = StateRunning
	l.mu.Unlock()

	w, h := l.surface.BackingSize()
	Logger().Info("render loop started", "scene", l.scene.Name,
		"vertices", geometry.Count(), "width", w, "height", h)
	return nil
}

// buildProgram compiles and links the scene's shader pair. Shader modules
// are released once linking is done, whatever the outcome.
func (l *RenderLoop) buildProgram() (*gpu.Program, error) {
	compiler, err := gpu.NewCompiler(l.device)
	if err != nil {
		return nil, err
	}
	vs, err := compiler.Compile(l.scene.vertex.Kind, l.scene.vertex.Text)
	if err != nil {
		return nil, err
	}
	defer vs.Release()
	fs, err := compiler.Compile(l.scene.fragment.Kind, l.scene.fragment.Text)
	if err != nil {
		return nil, err
	}
	defer fs.Release()

	linker, err := gpu.NewLinker(l.device, gpu.LinkerConfig{ColorFormat: l.surface.Format()})
	if err != nil {
		return nil, err
	}
	return linker.Link(vs, fs)
}

// Frame renders one frame. It returns ErrNotRunning before Init and after
// Stop. A zero-area surface skips rendering without error.
func (l *RenderLoop) Frame() error {
	if l.State() != StateRunning {
		return ErrNotRunning
	}

	delta := l.clock.Tick()
	if l.scene.Animate {
		l.transform.Advance(delta)
	}

	// An outdated surface is reconfigured even when resize tracking is off.
	if l.cfg.TrackResize || l.surface.Stale() {
		resized, err := l.surface.Sync()
		if err != nil {
			return fmt.Errorf("sync surface: %w", err)
		}
		if resized && l.cfg.Reproject && !l.surface.Empty() {
			l.transform.SetAspect(l.surface.Aspect())
		}
	}
	if l.surface.Empty() {
		return nil
	}

	if l.program != nil {
		if err := l.program.SetMatrix(l.queue, gpu.UniformModel, l.transform.Model()); err != nil {
			return err
		}
		if err := l.program.SetMatrix(l.queue, gpu.UniformCamera, l.transform.ClipCamera()); err != nil {
			return err
		}
	}

	frame, err := l.surface.Acquire()
	if err != nil {
		return fmt.Errorf("acquire frame: %w", err)
	}
	target := gpu.FrameTarget{
		Color:    frame.View,
		Depth:    l.surface.DepthView(),
		Viewport: l.surface.Viewport(),
	}
	if err := l.encoder.Encode(target, l.cfg.Background.gpu(), l.draw); err != nil {
		frame.Discard()
		return fmt.Errorf("encode frame: %w", err)
	}
	if err := frame.Present(); err != nil {
		return fmt.Errorf("present frame: %w", err)
	}

	l.mu.Lock()
	l.frames++
	l.mu.Unlock()
	return nil
}

func (l *RenderLoop) draw(pass hal.RenderPassEncoder) {
	if l.program == nil {
		if !l.warnedNoDraw {
			Logger().Warn("no shader program, skipping draw", "scene", l.scene.Name)
			l.warnedNoDraw = true
		}
		return
	}
	l.program.Draw(pass, l.geometry)
}

// Run initializes the loop if needed and renders one frame per tick until
// ctx is cancelled, Stop is called or the frame limit is reached. Frame
// errors are logged and do not end the loop. Run returns ctx.Err() on
// cancellation and nil otherwise.
func (l *RenderLoop) Run(ctx context.Context) error {
	if l.State() == StateStopped {
		return nil
	}
	if err := l.Init(); err != nil {
		return err
	}

	ticker := l.ticker
	if ticker == nil {
		ticker = NewTicker(l.cfg.FPS)
	}
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return ctx.Err()
		case <-l.done:
			return nil
		case <-ticker.C():
			if err := l.Frame(); err != nil {
				if errors.Is(err, ErrNotRunning) {
					return nil
				}
				Logger().Warn("frame failed", "err", err)
			}
			if l.frameLimit > 0 && l.Frames() >= l.frameLimit {
				l.Stop()
				return nil
			}
		}
	}
}

// Stop ends the loop. Subsequent Frame calls return ErrNotRunning and Run
// returns. Safe to call multiple times and from any goroutine.
func (l *RenderLoop) Stop() {
	l.stopOnce.Do(func() {
		l.mu.Lock()
		l.state = StateStopped
		frames := l.frames
		l.mu.Unlock()
		close(l.done)
		Logger().Info("render loop stopped", "frames", frames)
	})
}

// Close stops the loop, waits for the GPU to go idle and releases every GPU
// object the loop owns, including the surface adapter. Safe to call
// multiple times.
func (l *RenderLoop) Close() {
	l.Stop()
	l.closeOnce.Do(func() {
		if err := l.device.WaitIdle(); err != nil {
			Logger().Warn("wait idle failed", "err", err)
		}
		l.releaseGPU()
		l.surface.Destroy()
	})
}

// releaseGPU destroys the command buffers, program and geometry, in that
// order.
func (l *RenderLoop) releaseGPU() {
	if l.encoder != nil {
		l.encoder.Destroy()
		l.encoder = nil
	}
	if l.program != nil {
		l.program.Destroy()
		l.program = nil
	}
	if l.geometry != nil {
		l.geometry.Destroy()
		l.geometry = nil
	}
}

// Err returns the shader compile, link or missing stream error recorded by
// Init, or nil.
func (l *RenderLoop) Err() error { return l.progErr }

// State returns the current lifecycle state.
func (l *RenderLoop) State() LoopState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Frames returns the number of frames presented.
func (l *RenderLoop) Frames() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frames
}

// Transform returns the loop's transform state. It is nil before Init.
func (l *RenderLoop) Transform() *TransformState { return l.transform }

// Scene returns the scene being rendered.
func (l *RenderLoop) Scene() Scene { return l.scene }

// Config returns the validated configuration.
func (l *RenderLoop) Config() Config { return l.cfg }

// Surface returns the surface adapter the loop renders onto.
func (l *RenderLoop) Surface() *render.SurfaceAdapter { return l.surface }
