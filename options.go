package cube

import "time"

// Option configures a RenderLoop during creation.
//
// Example:
//
//	loop, err := cube.NewRenderLoop(handle, surface,
//	    cube.WithScene("pyramid"),
//	    cube.WithFrameLimit(600),
//	)
type Option func(*loopOptions)

// loopOptions holds optional configuration for RenderLoop creation.
type loopOptions struct {
	config     Config
	sceneName  string
	scene      *Scene
	ticker     Ticker
	now        func() time.Time
	frameLimit uint64
}

// defaultOptions returns the default loop options.
func defaultOptions() loopOptions {
	return loopOptions{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the loop configuration.
func WithConfig(cfg Config) Option {
	return func(o *loopOptions) {
		o.config = cfg
	}
}

// WithScene selects a preset by name, overriding Config.Scene.
func WithScene(name string) Option {
	return func(o *loopOptions) {
		o.sceneName = name
	}
}

// WithCustomScene renders s instead of a preset.
// See NewScene for building one from WGSL sources.
func WithCustomScene(s Scene) Option {
	return func(o *loopOptions) {
		o.scene = &s
	}
}

// WithTicker drives the loop from t instead of a ticker at Config.FPS.
// The loop stops t when Run returns.
func WithTicker(t Ticker) Option {
	return func(o *loopOptions) {
		o.ticker = t
	}
}

// WithClock sets the time source used to measure frame deltas.
func WithClock(now func() time.Time) Option {
	return func(o *loopOptions) {
		o.now = now
	}
}

// WithFrameLimit makes Run return after n frames. Zero means no limit.
func WithFrameLimit(n uint64) Option {
	return func(o *loopOptions) {
		o.frameLimit = n
	}
}
