package render

import "errors"

var (
	// ErrNoHAL is returned when a DeviceHandle does not expose HAL device
	// and queue accessors.
	ErrNoHAL = errors.New("render: device handle does not expose a HAL device")

	// ErrNilSurface is returned when a SurfaceAdapter is created without a
	// surface or window.
	ErrNilSurface = errors.New("render: nil surface")
)
