package visualization

import (
	"math"
	"math/rand"

	"github.com/dd0wney/cluso-flowviz/pkg/flowgraph"
	"github.com/dd0wney/cluso-flowviz/pkg/validation"
)

// Simulation is the force solver. It relaxes node positions one tick at a
// time under link, charge and centering forces, then resolves collisions.
//
// Only free nodes are moved. Pinned nodes keep their pin position but still
// take part in every force as a source.
type Simulation struct {
	config ForceConfig
	graph  *flowgraph.Graph

	alpha       float64
	alphaTarget float64
	running     bool
	center      flowgraph.Vec

	distances []float64
	strengths []float64
	bias      []float64

	lastFinite []flowgraph.Vec
	rng        *rand.Rand
	energy     float64
	recoveries uint64
	ticks      uint64
}

// NewSimulation creates a solver for g. Nodes without a position are placed
// by the configured seed layout inside a viewport of the given size.
func NewSimulation(g *flowgraph.Graph, config ForceConfig, viewport flowgraph.Vec) (*Simulation, error) {
	config.LinkIterations = validation.DefaultOr(config.LinkIterations, 1)
	config.Theta = validation.DefaultOr(config.Theta, 0.9)
	config.Seed = validation.DefaultOr(config.Seed, SeedPhyllotaxis)
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &Simulation{
		config:      config,
		graph:       g,
		alpha:       config.Alpha,
		alphaTarget: config.AlphaTarget,
		running:     true,
		center:      viewport.Scale(0.5),
		rng:         rand.New(rand.NewSource(config.RandomSeed)),
	}

	Seed(g, config.Seed, viewport)
	s.lastFinite = make([]flowgraph.Vec, len(g.Nodes))
	for i, n := range g.Nodes {
		s.lastFinite[i] = n.Position
	}

	s.initLinks()
	return s, nil
}

// initLinks caches per-link distance, strength and bias
func (s *Simulation) initLinks() {
	links := s.graph.Links
	s.distances = make([]float64, len(links))
	s.strengths = make([]float64, len(links))
	s.bias = make([]float64, len(links))

	for i, l := range links {
		ds := float64(s.graph.Degree(l.Source))
		dt := float64(s.graph.Degree(l.Target))
		s.distances[i] = s.config.LinkDistance(l.Value)
		if s.config.LinkStrength > 0 {
			s.strengths[i] = s.config.LinkStrength
		} else {
			s.strengths[i] = 1 / math.Min(ds, dt)
		}
		s.bias[i] = ds / (ds + dt)
	}
}

// Alpha returns the current temperature
func (s *Simulation) Alpha() float64 {
	return s.alpha
}

// AlphaTarget returns the temperature alpha decays toward
func (s *Simulation) AlphaTarget() float64 {
	return s.alphaTarget
}

// SetAlphaTarget changes the temperature alpha decays toward. Raising it
// resumes a halted solver.
func (s *Simulation) SetAlphaTarget(target float64) {
	raised := target > s.alphaTarget
	s.alphaTarget = flowgraph.Clamp(target, 0, 1)
	if raised {
		s.Wake()
	}
}

// Wake resumes ticking after a halt
func (s *Simulation) Wake() {
	s.running = true
}

// Running reports whether the next Tick will move nodes
func (s *Simulation) Running() bool {
	return s.running
}

// SetCenter moves the point the centering force pulls toward
func (s *Simulation) SetCenter(c flowgraph.Vec) {
	s.center = c
}

// Center returns the centering target
func (s *Simulation) Center() flowgraph.Vec {
	return s.center
}

// KineticEnergy returns the sum of squared velocities after the last tick
func (s *Simulation) KineticEnergy() float64 {
	return s.energy
}

// Recoveries returns how many non-finite node states have been rolled back
func (s *Simulation) Recoveries() uint64 {
	return s.recoveries
}

// Ticks returns how many active ticks have run
func (s *Simulation) Ticks() uint64 {
	return s.ticks
}

// Graph returns the simulated graph
func (s *Simulation) Graph() *flowgraph.Graph {
	return s.graph
}

// Config returns the solver configuration
func (s *Simulation) Config() ForceConfig {
	return s.config
}

// Tick advances the solver by one step. A halted solver returns immediately
// with Active unset.
func (s *Simulation) Tick() TickStats {
	if !s.running {
		return TickStats{Alpha: s.alpha}
	}

	s.alpha += (s.alphaTarget - s.alpha) * s.config.AlphaDecay
	s.ticks++

	s.applyLinks()
	s.applyCharge()
	s.applyCenter()
	s.integrate()
	for i := 0; i < s.config.CollisionIterations; i++ {
		s.resolveCollisions()
	}
	recovered := s.guard()
	s.energy = s.kineticEnergy()

	if s.alpha < s.config.AlphaMin && s.alphaTarget < s.config.AlphaMin {
		s.running = false
	}

	return TickStats{
		Active:        true,
		Alpha:         s.alpha,
		KineticEnergy: s.energy,
		Recovered:     recovered,
	}
}

func (s *Simulation) applyLinks() {
	for k := 0; k < s.config.LinkIterations; k++ {
		for i, l := range s.graph.Links {
			src, dst := l.Source, l.Target
			if !src.Free() && !dst.Free() {
				continue
			}

			x := dst.Position.X + dst.Velocity.X - src.Position.X - src.Velocity.X
			y := dst.Position.Y + dst.Velocity.Y - src.Position.Y - src.Velocity.Y
			if x == 0 {
				x = s.jiggle()
			}
			if y == 0 {
				y = s.jiggle()
			}
			d := math.Max(math.Sqrt(x*x+y*y), epsilon)
			d = (d - s.distances[i]) / d * s.alpha * s.strengths[i]
			x *= d
			y *= d

			// a pinned endpoint has infinite mass
			b := s.bias[i]
			switch {
			case !src.Free():
				b = 1
			case !dst.Free():
				b = 0
			}
			dst.Velocity.X -= x * b
			dst.Velocity.Y -= y * b
			src.Velocity.X += x * (1 - b)
			src.Velocity.Y += y * (1 - b)
		}
	}
}

func (s *Simulation) applyCharge() {
	nodes := s.graph.Nodes
	if len(nodes) < 2 || s.config.ChargeStrength == 0 {
		return
	}

	if s.config.BarnesHutThreshold > 0 && len(nodes) > s.config.BarnesHutThreshold {
		tree := buildQuadtree(nodes)
		theta2 := s.config.Theta * s.config.Theta
		for _, n := range nodes {
			if n.Free() {
				tree.apply(s, n, theta2)
			}
		}
		return
	}

	for _, n := range nodes {
		if !n.Free() {
			continue
		}
		for _, o := range nodes {
			if o == n {
				continue
			}
			s.repel(n, o.Position.X-n.Position.X, o.Position.Y-n.Position.Y, 1)
		}
	}
}

// repel applies the charge of weight sources at offset (x, y) from n
func (s *Simulation) repel(n *flowgraph.Node, x, y, weight float64) {
	l2 := x*x + y*y
	if dmax := s.config.DistanceMax; dmax > 0 && l2 >= dmax*dmax {
		return
	}
	if x == 0 {
		x = s.jiggle()
		l2 += x * x
	}
	if y == 0 {
		y = s.jiggle()
		l2 += y * y
	}
	if dmin := s.config.DistanceMin; l2 < dmin*dmin {
		l2 = math.Sqrt(dmin * dmin * l2)
	}
	l2 = math.Max(l2, epsilon*epsilon)

	w := s.config.ChargeStrength * weight * s.alpha / l2
	n.Velocity.X += x * w
	n.Velocity.Y += y * w
}

// applyCenter shifts free nodes so the centroid moves toward the center
func (s *Simulation) applyCenter() {
	nodes := s.graph.Nodes
	if len(nodes) == 0 || s.config.CenterStrength == 0 {
		return
	}

	centroid, ok := Centroid(nodes)
	if !ok {
		return
	}
	shift := s.center.Sub(centroid).Scale(s.config.CenterStrength)
	for _, n := range nodes {
		if n.Free() {
			n.Position = n.Position.Add(shift)
		}
	}
}

func (s *Simulation) integrate() {
	for _, n := range s.graph.Nodes {
		if !n.Free() {
			n.Position = n.Pin
			n.Velocity = flowgraph.Vec{}
			continue
		}
		n.Velocity = n.Velocity.Scale(s.config.Friction)
		n.Position = n.Position.Add(n.Velocity)
	}
}

// guard rolls back any node whose state went non-finite
func (s *Simulation) guard() []string {
	var recovered []string
	for i, n := range s.graph.Nodes {
		if n.Position.IsFinite() && n.Velocity.IsFinite() {
			s.lastFinite[i] = n.Position
			continue
		}
		n.Position = s.lastFinite[i]
		n.Velocity = flowgraph.Vec{}
		s.recoveries++
		recovered = append(recovered, n.ID)
	}
	return recovered
}

func (s *Simulation) kineticEnergy() float64 {
	var e float64
	for _, n := range s.graph.Nodes {
		if n.Free() {
			e += n.Velocity.X*n.Velocity.X + n.Velocity.Y*n.Velocity.Y
		}
	}
	return e
}

// jiggle returns a tiny random offset used to separate coincident nodes
func (s *Simulation) jiggle() float64 {
	return (s.rng.Float64() - 0.5) * 1e-6
}

const epsilon = 1e-6
