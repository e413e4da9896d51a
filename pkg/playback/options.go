package playback

import (
	"log/slog"

	"github.com/aretw0/tableau/pkg/domain"
)

// Default build parameters.
const (
	DefaultMaxFrames    = 50
	DefaultDownsample   = 2
	DefaultPointSize    = 0.01
	DefaultFrustumScale = 0.15
)

// Option configures a Controller.
type Option func(*Controller)

// WithMaxFrames caps the number of frames loaded from the source.
func WithMaxFrames(n int) Option {
	return func(c *Controller) {
		c.maxFrames = n
	}
}

// WithDownsample keeps every n-th point and every n-th pixel row and column.
func WithDownsample(n int) Option {
	return func(c *Controller) {
		c.downsample = n
	}
}

// WithPointSize sets the rendered size of every frame's point cloud.
func WithPointSize(size float32) Option {
	return func(c *Controller) {
		c.pointSize = size
	}
}

// WithFrustumScale sets the drawn size of the camera frustums and the
// distance of the image plane from the camera.
func WithFrustumScale(scale float64) Option {
	return func(c *Controller) {
		c.frustumScale = scale
	}
}

// WithProgress registers fn to be called after each frame subtree is built.
func WithProgress(fn func(done, total int)) Option {
	return func(c *Controller) {
		c.progress = fn
	}
}

// WithLifecycleHooks registers transition and tick observers.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Controller) {
		c.hooks = hooks
	}
}

// WithLogger configures a logger for the Controller.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}
