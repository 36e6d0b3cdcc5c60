// Package engine drives one flow-network visualization: it owns the force
// solver, the camera and the interaction session for a graph and emits a
// frame of draw commands per tick.
//
// An Engine is single-threaded. The host calls Tick once per animation frame
// and forwards pointer events between ticks from the same goroutine. Dispose
// may be called from any goroutine.
package engine

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-flowviz/pkg/camera"
	"github.com/dd0wney/cluso-flowviz/pkg/flowgraph"
	"github.com/dd0wney/cluso-flowviz/pkg/interaction"
	"github.com/dd0wney/cluso-flowviz/pkg/logging"
	"github.com/dd0wney/cluso-flowviz/pkg/metrics"
	"github.com/dd0wney/cluso-flowviz/pkg/render"
	"github.com/dd0wney/cluso-flowviz/pkg/visualization"
)

// ErrDisposed is returned by every runtime call after Dispose
var ErrDisposed = errors.New("engine disposed")

// Options configures New. Every field is optional.
type Options struct {
	Config  *Config
	Logger  logging.Logger
	Metrics *metrics.Registry
	// InitialFocusNodeID overrides the descriptor's initial focus
	InitialFocusNodeID string
	// OnNodeClick fires when a node becomes selected
	OnNodeClick func(nodeID string)
}

// Engine is one live visualization of one graph
type Engine struct {
	id      string
	config  Config
	graph   *flowgraph.Graph
	sim     *visualization.Simulation
	camera  *camera.Controller
	session *interaction.Session
	emitter *render.Emitter
	logger  logging.Logger
	metrics *metrics.Registry

	elapsedMs    float64
	initialFocus string
	focusDone    bool
	focused      *flowgraph.Node
	wasRunning   bool
	sequence     uint64

	disposed atomic.Bool
	// ticks mirrors the solver tick count for readers off the tick goroutine
	ticks atomic.Uint64
}

// New builds the graph and every component. A rejected descriptor or config
// returns an error and no engine.
func New(desc flowgraph.Descriptor, opts Options) (*Engine, error) {
	cfg := DefaultConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}

	id := uuid.NewString()
	logger = logger.With(logging.Component("engine"), logging.EngineID(id))

	g, err := flowgraph.Build(desc)
	if err != nil {
		if opts.Metrics != nil {
			var defects flowgraph.ConstructionErrors
			if errors.As(err, &defects) {
				opts.Metrics.RecordConstructionErrors(defects.Reasons())
			} else {
				opts.Metrics.RecordConstructionErrors([]string{flowgraph.Reason(err)})
			}
		}
		logger.Error("graph rejected", logging.Error(err))
		return nil, err
	}

	viewport := flowgraph.Vec{X: cfg.Width, Y: cfg.Height}
	sim, err := visualization.NewSimulation(g, cfg.Force, viewport)
	if err != nil {
		return nil, err
	}
	cam, err := camera.New(cfg.Camera, cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}
	emitter, err := render.NewEmitter(cfg.Visual)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		id:           id,
		config:       cfg,
		graph:        g,
		sim:          sim,
		camera:       cam,
		emitter:      emitter,
		logger:       logger,
		metrics:      opts.Metrics,
		initialFocus: opts.InitialFocusNodeID,
		wasRunning:   sim.Running(),
	}
	if e.initialFocus == "" {
		e.initialFocus = desc.InitialFocusNodeID
	}
	e.focusDone = e.initialFocus == ""

	e.session = interaction.NewSession(cfg.Interaction, g, sim, cam)
	e.session.SetListener(e.onEvent)
	if opts.OnNodeClick != nil {
		e.session.OnNodeClick(opts.OnNodeClick)
	}

	if e.metrics != nil {
		e.metrics.RecordGraphBuilt(len(g.Nodes), len(g.Links))
	}
	logger.Info("engine constructed",
		logging.Count("nodes", len(g.Nodes)),
		logging.Count("links", len(g.Links)),
		logging.String("initial_focus", e.initialFocus))
	return e, nil
}

func (e *Engine) onEvent(ev interaction.Event) {
	if e.metrics != nil {
		e.metrics.RecordInteractionEvent(string(ev))
	}
	if e.logger.Enabled(logging.DebugLevel) {
		e.logger.Debug("interaction", logging.String("event", string(ev)), logging.String("state", e.session.State().String()))
	}
}

// Tick advances one frame: pending drag pins, then the solver (forces and
// collisions), then the camera animation, then emission.
func (e *Engine) Tick(deltaMs float64) (*render.Frame, error) {
	if e.disposed.Load() {
		return nil, ErrDisposed
	}
	start := time.Now()
	if !(deltaMs > 0) || math.IsInf(deltaMs, 1) {
		deltaMs = 0
	}
	e.elapsedMs += deltaMs

	e.session.ApplyPendingPins()

	if e.sim.Running() && !e.wasRunning {
		e.logger.Debug("solver resumed", logging.Tick(e.sim.Ticks()), logging.Alpha(e.sim.Alpha()))
	}
	stats := e.sim.Tick()
	e.ticks.Store(e.sim.Ticks())
	if len(stats.Recovered) > 0 {
		e.logger.Warn("numeric instability recovered",
			logging.Tick(e.sim.Ticks()),
			logging.Any("nodes", stats.Recovered))
	}
	if e.wasRunning && !e.sim.Running() {
		e.logger.Info("solver halted", logging.Tick(e.sim.Ticks()), logging.Alpha(stats.Alpha))
	}
	e.wasRunning = e.sim.Running()

	if !e.focusDone && e.elapsedMs >= e.config.Focus.SettleMs {
		e.focusDone = true
		e.focusOn(e.initialFocus, e.config.Focus.Scale, e.config.Focus.DurationMs)
	}

	if e.camera.Step(deltaMs) && e.focused != nil {
		e.logger.Info("focus completed", logging.NodeID(e.focused.ID))
	}
	e.syncFocus()

	frame := e.frame()
	if e.metrics != nil {
		e.metrics.RecordTick(metrics.TickSample{
			Active:        stats.Active,
			Duration:      time.Since(start),
			Alpha:         stats.Alpha,
			KineticEnergy: stats.KineticEnergy,
			DrawCommands:  len(frame.Commands),
			Recoveries:    len(stats.Recovered),
		})
	}
	return frame, nil
}

func (e *Engine) scene() render.Scene {
	sel, _ := e.session.Selection()
	return render.Scene{
		Graph:     e.graph,
		Transform: e.camera.Transform(),
		Viewport:  e.camera.Viewport(),
		Hovered:   e.session.Hovered(),
		Selected:  sel.NodeID,
	}
}

func (e *Engine) frame() *render.Frame {
	f := e.emitter.Emit(e.scene())
	e.sequence++
	f.EngineID = e.id
	f.Sequence = e.sequence
	if sel, ok := e.session.Selection(); ok {
		f.Selection = &sel
	}
	if tip, ok := e.session.Tooltip(); ok {
		f.Tooltip = &tip
	}
	f.Stats = render.Stats{
		Tick:          e.sim.Ticks(),
		Alpha:         e.sim.Alpha(),
		AlphaTarget:   e.sim.AlphaTarget(),
		KineticEnergy: e.sim.KineticEnergy(),
		Running:       e.sim.Running(),
		Nodes:         len(e.graph.Nodes),
		Links:         len(e.graph.Links),
	}
	return f
}

// focusOn pins a free target where it stands and starts the camera move.
// Unknown or unplaced nodes are ignored.
func (e *Engine) focusOn(id string, scale, durationMs float64) {
	n, ok := e.graph.Node(id)
	if !ok || !n.Placed || !n.Position.IsFinite() {
		e.logger.Debug("focus ignored", logging.NodeID(id))
		return
	}
	e.releaseFocus()
	if !(scale > 0) {
		scale = e.config.Focus.Scale
	}
	if n.PinAt(flowgraph.OwnerFocused, n.Position) {
		e.focused = n
	}
	e.camera.FocusOn(n.Position, scale, durationMs)
	e.logger.Info("focus started", logging.NodeID(id), logging.Float64("scale", scale), logging.Float64("duration_ms", durationMs))
	e.syncFocus()
}

// syncFocus releases the focus pin once no animation is running, whether it
// completed or was superseded by a pan or zoom
func (e *Engine) syncFocus() {
	if e.focused != nil && !e.camera.Animating() {
		e.releaseFocus()
	}
}

func (e *Engine) releaseFocus() {
	if e.focused == nil {
		return
	}
	e.focused.Release(flowgraph.OwnerFocused)
	e.focused = nil
}

// OnPointerDown forwards a pointer press with the host's hit test
func (e *Engine) OnPointerDown(screen flowgraph.Vec, hit interaction.Hit) error {
	if e.disposed.Load() {
		return ErrDisposed
	}
	e.session.PointerDown(screen, hit)
	return nil
}

// OnPointerMove forwards pointer motion
func (e *Engine) OnPointerMove(screen flowgraph.Vec, hit interaction.Hit) error {
	if e.disposed.Load() {
		return ErrDisposed
	}
	e.session.PointerMove(screen, hit)
	e.syncFocus()
	return nil
}

// OnPointerUp forwards a pointer release
func (e *Engine) OnPointerUp(screen flowgraph.Vec, hit interaction.Hit) error {
	if e.disposed.Load() {
		return ErrDisposed
	}
	e.session.PointerUp(screen, hit)
	return nil
}

// OnPointerLeave ends any gesture and clears hover state
func (e *Engine) OnPointerLeave() error {
	if e.disposed.Load() {
		return ErrDisposed
	}
	e.session.PointerLeave()
	return nil
}

// OnWheel zooms about the pointer
func (e *Engine) OnWheel(screen flowgraph.Vec, deltaY float64) error {
	if e.disposed.Load() {
		return ErrDisposed
	}
	e.camera.Wheel(screen, deltaY)
	e.syncFocus()
	return nil
}

// Resize changes the viewport and recenters the solver's centering force
func (e *Engine) Resize(width, height float64) error {
	if e.disposed.Load() {
		return ErrDisposed
	}
	if !(width > 0) || !(height > 0) || math.IsInf(width, 1) || math.IsInf(height, 1) {
		return fmt.Errorf("invalid viewport %vx%v", width, height)
	}
	e.camera.SetViewport(width, height)
	e.sim.SetCenter(flowgraph.Vec{X: width / 2, Y: height / 2})
	e.sim.Wake()
	return nil
}

// FocusOn animates the camera to a node. A non-positive scale uses the
// configured focus scale; unknown or unplaced nodes are ignored.
func (e *Engine) FocusOn(nodeID string, scale, durationMs float64) error {
	if e.disposed.Load() {
		return ErrDisposed
	}
	e.focusOn(nodeID, scale, durationMs)
	return nil
}

// Fit frames every placed node in the viewport
func (e *Engine) Fit() error {
	if e.disposed.Load() {
		return ErrDisposed
	}
	bounds, ok := visualization.Bounds(e.graph.Nodes)
	if !ok {
		return nil
	}
	e.camera.FitBounds(bounds.Expand(e.config.Visual.RadiusMax), e.config.Camera.FitPadding)
	e.syncFocus()
	return nil
}

// ResetView restores the identity camera
func (e *Engine) ResetView() error {
	if e.disposed.Load() {
		return ErrDisposed
	}
	e.camera.Reset()
	e.syncFocus()
	return nil
}

// PanBy translates the camera by a screen delta
func (e *Engine) PanBy(delta flowgraph.Vec) error {
	if e.disposed.Load() {
		return ErrDisposed
	}
	e.camera.PanBy(delta)
	e.syncFocus()
	return nil
}

// CloseSelection dismisses the selected node
func (e *Engine) CloseSelection() error {
	if e.disposed.Load() {
		return ErrDisposed
	}
	e.session.CloseSelection()
	return nil
}

// HitTest finds the node or link under a screen point
func (e *Engine) HitTest(screen flowgraph.Vec) interaction.Hit {
	if e.disposed.Load() {
		return interaction.NoHit
	}
	return e.emitter.HitTest(e.scene(), screen)
}

// Settle ticks until the solver halts and no focus is pending or running,
// or maxTicks is reached, and returns the last frame.
func (e *Engine) Settle(maxTicks int, deltaMs float64) (*render.Frame, error) {
	if maxTicks < 1 {
		return nil, fmt.Errorf("maxTicks must be positive, got %d", maxTicks)
	}
	timer := logging.StartTimer(e.logger, "settled")
	var frame *render.Frame
	var err error
	for i := 0; i < maxTicks; i++ {
		if frame, err = e.Tick(deltaMs); err != nil {
			return nil, err
		}
		if !e.sim.Running() && e.focusDone && !e.camera.Animating() {
			break
		}
	}
	timer.End(logging.Tick(e.sim.Ticks()), logging.Alpha(e.sim.Alpha()))
	return frame, nil
}

// Dispose stops the engine. Later calls return ErrDisposed; repeated
// Dispose calls are no-ops.
func (e *Engine) Dispose() {
	if e.disposed.Swap(true) {
		return
	}
	if e.metrics != nil {
		e.metrics.RecordEngineDisposed()
	}
	e.logger.Info("engine disposed", logging.Tick(e.ticks.Load()))
}

// Disposed reports whether Dispose has been called
func (e *Engine) Disposed() bool {
	return e.disposed.Load()
}

// ID returns the engine instance id
func (e *Engine) ID() string {
	return e.id
}

// Graph returns the simulated graph
func (e *Engine) Graph() *flowgraph.Graph {
	return e.graph
}

// Config returns the engine configuration
func (e *Engine) Config() Config {
	return e.config
}

// Running reports whether the solver is still ticking
func (e *Engine) Running() bool {
	return e.sim.Running()
}

// Alpha returns the solver temperature
func (e *Engine) Alpha() float64 {
	return e.sim.Alpha()
}

// AlphaTarget returns the temperature the solver decays toward
func (e *Engine) AlphaTarget() float64 {
	return e.sim.AlphaTarget()
}

// Transform returns the current camera transform
func (e *Engine) Transform() camera.Transform {
	return e.camera.Transform()
}

// Animating reports whether a focus animation is running
func (e *Engine) Animating() bool {
	return e.camera.Animating()
}

// State returns the interaction state
func (e *Engine) State() interaction.State {
	return e.session.State()
}

// Selection returns the selected node, if any
func (e *Engine) Selection() (interaction.Selection, bool) {
	return e.session.Selection()
}

// IsConnected reports whether a node is highlighted by the current hover
func (e *Engine) IsConnected(nodeID string) bool {
	return e.session.IsConnected(nodeID)
}

// Snapshot exports settled node positions
func (e *Engine) Snapshot() *visualization.Visualization {
	return visualization.Snapshot(e.graph, e.sim.Alpha())
}
