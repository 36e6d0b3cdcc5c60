// Package camera maintains the pan and zoom transform between world and
// screen coordinates.
package camera

import (
	"math"

	"github.com/dd0wney/cluso-flowviz/pkg/flowgraph"
	"github.com/dd0wney/cluso-flowviz/pkg/validation"
)

// Transform maps world to screen coordinates: screen = world*K + (X, Y)
type Transform struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	K float64 `json:"k"`
}

// Identity is the unscaled, untranslated transform
var Identity = Transform{K: 1}

// Apply maps a world point to the screen
func (t Transform) Apply(p flowgraph.Vec) flowgraph.Vec {
	return flowgraph.Vec{X: p.X*t.K + t.X, Y: p.Y*t.K + t.Y}
}

// Invert maps a screen point back to the world
func (t Transform) Invert(p flowgraph.Vec) flowgraph.Vec {
	return flowgraph.Vec{X: (p.X - t.X) / t.K, Y: (p.Y - t.Y) / t.K}
}

// Config configures the camera
type Config struct {
	MinScale float64 `yaml:"minScale"`
	MaxScale float64 `yaml:"maxScale"`
	// WheelSensitivity maps a wheel delta to a zoom factor of 2^(-delta*WheelSensitivity)
	WheelSensitivity float64 `yaml:"wheelSensitivity"`
	Easing           Easing  `yaml:"easing"`
	FitPadding       float64 `yaml:"fitPadding"`
}

// DefaultConfig returns the reference camera bounds
func DefaultConfig() Config {
	return Config{
		MinScale:         0.1,
		MaxScale:         10,
		WheelSensitivity: 0.002,
		Easing:           EasingCubicInOut,
		FitPadding:       40,
	}
}

// Validate checks the camera bounds
func (c Config) Validate() error {
	return validation.NewConfigValidator("CameraConfig").
		PositiveFloat("MinScale", c.MinScale).
		LessFloat("MinScale", c.MinScale, "MaxScale", c.MaxScale).
		Finite("MaxScale", c.MaxScale).
		PositiveFloat("WheelSensitivity", c.WheelSensitivity).
		OneOf("Easing", string(c.Easing), []string{string(EasingLinear), string(EasingCubicInOut)}).
		NonNegativeFloat("FitPadding", c.FitPadding).
		Validate()
}

type animation struct {
	from, to Transform
	elapsed  float64
	duration float64
}

// Controller owns the view transform. The scale always stays within
// [MinScale, MaxScale]; the translation is unbounded.
type Controller struct {
	config    Config
	transform Transform
	viewport  flowgraph.Vec
	anim      *animation
}

// New creates a camera for a viewport of the given size
func New(config Config, width, height float64) (*Controller, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{
		config:   config,
		viewport: flowgraph.Vec{X: width, Y: height},
	}
	c.transform = Transform{K: c.clamp(1)}
	return c, nil
}

// Transform returns the current view transform
func (c *Controller) Transform() Transform {
	return c.transform
}

// Scale returns the current zoom level
func (c *Controller) Scale() float64 {
	return c.transform.K
}

// Viewport returns the viewport size
func (c *Controller) Viewport() flowgraph.Vec {
	return c.viewport
}

// Center returns the viewport center in screen coordinates
func (c *Controller) Center() flowgraph.Vec {
	return c.viewport.Scale(0.5)
}

// SetViewport changes the viewport size
func (c *Controller) SetViewport(width, height float64) {
	c.viewport = flowgraph.Vec{X: width, Y: height}
}

// ScreenToWorld maps a screen point to world coordinates
func (c *Controller) ScreenToWorld(p flowgraph.Vec) flowgraph.Vec {
	return c.transform.Invert(p)
}

// WorldToScreen maps a world point to screen coordinates
func (c *Controller) WorldToScreen(p flowgraph.Vec) flowgraph.Vec {
	return c.transform.Apply(p)
}

func (c *Controller) clamp(k float64) float64 {
	return flowgraph.Clamp(k, c.config.MinScale, c.config.MaxScale)
}

// ZoomAt multiplies the scale by factor, keeping the world point under the
// screen pivot fixed. Any running focus animation is cancelled.
func (c *Controller) ZoomAt(pivot flowgraph.Vec, factor float64) {
	if !(factor > 0) || math.IsInf(factor, 0) || !pivot.IsFinite() {
		return
	}
	c.anim = nil

	world := c.transform.Invert(pivot)
	k := c.clamp(c.transform.K * factor)
	c.transform = Transform{
		X: pivot.X - world.X*k,
		Y: pivot.Y - world.Y*k,
		K: k,
	}
}

// maxWheelExponent bounds 2^exponent to a finite, non-zero factor
const maxWheelExponent = 1000

// Wheel zooms about the pointer for a wheel delta. Positive deltas zoom out.
// A delta too large to express as a zoom factor pins the scale at the
// nearest bound; a non-finite delta is ignored.
func (c *Controller) Wheel(pivot flowgraph.Vec, deltaY float64) {
	exp := -deltaY * c.config.WheelSensitivity
	if math.IsNaN(exp) || math.IsInf(deltaY, 0) {
		return
	}
	exp = flowgraph.Clamp(exp, -maxWheelExponent, maxWheelExponent)
	c.ZoomAt(pivot, math.Pow(2, exp))
}

// PanBy translates the view by a screen delta. Any running focus animation
// is cancelled.
func (c *Controller) PanBy(delta flowgraph.Vec) {
	if !delta.IsFinite() {
		return
	}
	c.anim = nil
	c.transform.X += delta.X
	c.transform.Y += delta.Y
}

// FocusOn animates the view so the world point lands at the viewport center
// under the given scale. A new focus supersedes one in progress; a
// non-positive duration jumps immediately.
func (c *Controller) FocusOn(world flowgraph.Vec, scale, durationMs float64) {
	if !world.IsFinite() {
		return
	}
	k := c.clamp(scale)
	center := c.Center()
	target := Transform{
		X: center.X - world.X*k,
		Y: center.Y - world.Y*k,
		K: k,
	}

	if !(durationMs > 0) {
		c.anim = nil
		c.transform = target
		return
	}
	c.anim = &animation{from: c.transform, to: target, duration: durationMs}
}

// Step advances a running focus animation by deltaMs. It reports whether an
// animation finished during this step.
func (c *Controller) Step(deltaMs float64) bool {
	if c.anim == nil {
		return false
	}
	if deltaMs > 0 {
		c.anim.elapsed += deltaMs
	}

	t := math.Min(1, c.anim.elapsed/c.anim.duration)
	e := c.config.Easing.Ease(t)
	from, to := c.anim.from, c.anim.to
	c.transform = Transform{
		X: from.X + (to.X-from.X)*e,
		Y: from.Y + (to.Y-from.Y)*e,
		K: c.clamp(from.K + (to.K-from.K)*e),
	}

	if t >= 1 {
		c.transform = to
		c.anim = nil
		return true
	}
	return false
}

// Animating reports whether a focus animation is running
func (c *Controller) Animating() bool {
	return c.anim != nil
}

// FitBounds sets the view so the world rectangle fills the viewport, less
// padding on every side, centered.
func (c *Controller) FitBounds(r flowgraph.Rect, padding float64) {
	if !r.Min.IsFinite() || !r.Max.IsFinite() {
		return
	}
	c.anim = nil

	gw := math.Max(r.Width(), 1)
	gh := math.Max(r.Height(), 1)
	sx := (c.viewport.X - 2*padding) / gw
	sy := (c.viewport.Y - 2*padding) / gh
	k := math.Min(sx, sy)
	if k <= 0 {
		k = 1
	}
	k = c.clamp(k)

	mid := r.Center()
	center := c.Center()
	c.transform = Transform{
		X: center.X - mid.X*k,
		Y: center.Y - mid.Y*k,
		K: k,
	}
}

// Reset restores the identity view
func (c *Controller) Reset() {
	c.anim = nil
	c.transform = Transform{K: c.clamp(1)}
}
