package visualization

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/dd0wney/cluso-flowviz/pkg/flowgraph"
)

var testViewport = flowgraph.Vec{X: 800, Y: 600}

func buildGraph(t *testing.T, desc flowgraph.Descriptor) *flowgraph.Graph {
	t.Helper()
	g, err := flowgraph.Build(desc)
	if err != nil {
		t.Fatalf("Failed to build graph: %v", err)
	}
	return g
}

func chainDescriptor(n int) flowgraph.Descriptor {
	var desc flowgraph.Descriptor
	for i := 0; i < n; i++ {
		desc.Nodes = append(desc.Nodes, flowgraph.NodeSpec{ID: fmt.Sprintf("n%d", i)})
		if i > 0 {
			desc.Links = append(desc.Links, flowgraph.LinkSpec{
				Source: fmt.Sprintf("n%d", i-1),
				Target: fmt.Sprintf("n%d", i),
				Value:  float64(i) * 1e6,
			})
		}
	}
	return desc
}

func newTestSimulation(t *testing.T, g *flowgraph.Graph, config ForceConfig) *Simulation {
	t.Helper()
	sim, err := NewSimulation(g, config, testViewport)
	if err != nil {
		t.Fatalf("Failed to create simulation: %v", err)
	}
	return sim
}

// TestAlphaDecaysUntilHalt tests that alpha falls every tick and the solver stops below AlphaMin
func TestAlphaDecaysUntilHalt(t *testing.T) {
	g := buildGraph(t, chainDescriptor(6))
	sim := newTestSimulation(t, g, DefaultForceConfig())

	prev := sim.Alpha()
	ticks := 0
	for sim.Running() {
		stats := sim.Tick()
		ticks++
		if !stats.Active {
			t.Fatal("Running solver reported an inactive tick")
		}
		if stats.Alpha >= prev {
			t.Fatalf("Alpha did not decrease at tick %d: %f -> %f", ticks, prev, stats.Alpha)
		}
		prev = stats.Alpha
		if ticks > 1000 {
			t.Fatal("Solver never halted")
		}
	}

	if prev >= DefaultForceConfig().AlphaMin {
		t.Errorf("Solver halted at alpha %f, above AlphaMin", prev)
	}
	if stats := sim.Tick(); stats.Active {
		t.Error("Halted solver should not tick")
	}
}

// TestKineticEnergyDecays tests that the layout settles
func TestKineticEnergyDecays(t *testing.T) {
	g := buildGraph(t, chainDescriptor(10))
	sim := newTestSimulation(t, g, DefaultForceConfig())

	peak := 0.0
	last := 0.0
	for sim.Running() {
		last = sim.Tick().KineticEnergy
		peak = math.Max(peak, last)
	}

	if peak == 0 {
		t.Fatal("Nodes never moved")
	}
	if last > peak/10 {
		t.Errorf("Kinetic energy did not decay: peak %f, final %f", peak, last)
	}
}

// TestPinnedNodeHoldsPosition tests that a pinned node is never moved by a tick
func TestPinnedNodeHoldsPosition(t *testing.T) {
	g := buildGraph(t, chainDescriptor(5))
	a, _ := g.Node("n0")
	sim := newTestSimulation(t, g, DefaultForceConfig())

	pin := flowgraph.Vec{X: 100, Y: 100}
	a.PinAt(flowgraph.OwnerDragged, pin)

	for i := 0; i < 50; i++ {
		sim.Tick()
		if a.Position != pin {
			t.Fatalf("Pinned node moved to %+v at tick %d", a.Position, i)
		}
	}
}

// TestPinnedNodeStillRepels tests that a pinned node acts as a charge source
func TestPinnedNodeStillRepels(t *testing.T) {
	desc := flowgraph.Descriptor{Nodes: []flowgraph.NodeSpec{
		{ID: "anchor", Pinned: &flowgraph.Vec{X: 400, Y: 300}},
		{ID: "free", Position: &flowgraph.Vec{X: 410, Y: 300}},
	}}
	g := buildGraph(t, desc)
	config := DefaultForceConfig()
	config.CenterStrength = 0
	config.CollisionRadius = 0
	sim := newTestSimulation(t, g, config)

	sim.Tick()

	free, _ := g.Node("free")
	if free.Position.X <= 410 {
		t.Errorf("Free node should be pushed away from the pinned node, x = %f", free.Position.X)
	}
}

// TestCoincidentNodesStayFinite tests the numeric floor for nodes sharing a position
func TestCoincidentNodesStayFinite(t *testing.T) {
	var desc flowgraph.Descriptor
	for i := 0; i < 8; i++ {
		desc.Nodes = append(desc.Nodes, flowgraph.NodeSpec{
			ID:       fmt.Sprintf("n%d", i),
			Position: &flowgraph.Vec{X: 200, Y: 200},
		})
	}
	desc.Links = []flowgraph.LinkSpec{{Source: "n0", Target: "n1", Value: 1}}

	g := buildGraph(t, desc)
	sim := newTestSimulation(t, g, DefaultForceConfig())

	for i := 0; i < 20; i++ {
		sim.Tick()
	}

	for _, n := range g.Nodes {
		if !n.Position.IsFinite() || !n.Velocity.IsFinite() {
			t.Fatalf("Node %s has non-finite state %+v / %+v", n.ID, n.Position, n.Velocity)
		}
	}
	a, _ := g.Node("n0")
	b, _ := g.Node("n1")
	if a.Position == b.Position {
		t.Error("Coincident nodes were never separated")
	}
}

// TestGuardRollsBackNonFinite tests recovery from a poisoned position
func TestGuardRollsBackNonFinite(t *testing.T) {
	g := buildGraph(t, chainDescriptor(3))
	sim := newTestSimulation(t, g, DefaultForceConfig())
	sim.Tick()

	n, _ := g.Node("n1")
	good := n.Position
	n.Position = flowgraph.Vec{X: math.NaN(), Y: 1}

	recovered := sim.guard()
	if len(recovered) != 1 || recovered[0] != "n1" {
		t.Fatalf("Expected n1 to be recovered, got %v", recovered)
	}
	if n.Position != good || n.Velocity != (flowgraph.Vec{}) {
		t.Errorf("Node not rolled back: %+v", n.Position)
	}
	if sim.Recoveries() != 1 {
		t.Errorf("Recoveries = %d, want 1", sim.Recoveries())
	}
}

// TestSetAlphaTargetWakes tests that reheating resumes a halted solver
func TestSetAlphaTargetWakes(t *testing.T) {
	g := buildGraph(t, chainDescriptor(4))
	sim := newTestSimulation(t, g, DefaultForceConfig())
	for sim.Running() {
		sim.Tick()
	}

	before := sim.Alpha()
	sim.SetAlphaTarget(0.3)
	if !sim.Running() {
		t.Fatal("Raising alphaTarget should wake the solver")
	}
	for i := 0; i < 10; i++ {
		sim.Tick()
	}
	if sim.Alpha() <= before {
		t.Errorf("Alpha should climb toward the target, got %f", sim.Alpha())
	}

	sim.SetAlphaTarget(0)
	if sim.AlphaTarget() != 0 {
		t.Errorf("AlphaTarget = %f, want 0", sim.AlphaTarget())
	}
}

func TestLinkDistance(t *testing.T) {
	config := DefaultForceConfig()
	tests := []struct {
		value float64
		want  float64
	}{
		{0, 50},
		{4e6, 52},
		{9e6, 53},
		{1e12, 200},
	}
	for _, tt := range tests {
		if got := config.LinkDistance(tt.value); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("LinkDistance(%g) = %f, want %f", tt.value, got, tt.want)
		}
	}
}

// TestBarnesHutMatchesNaive tests that an always-open tree reproduces the pairwise charge
func TestBarnesHutMatchesNaive(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var desc flowgraph.Descriptor
	for i := 0; i < 120; i++ {
		desc.Nodes = append(desc.Nodes, flowgraph.NodeSpec{
			ID:       fmt.Sprintf("n%d", i),
			Position: &flowgraph.Vec{X: rng.Float64() * 1000, Y: rng.Float64() * 1000},
		})
	}

	naiveConfig := DefaultForceConfig()
	naiveConfig.BarnesHutThreshold = 0
	treeConfig := DefaultForceConfig()
	treeConfig.BarnesHutThreshold = 1
	treeConfig.Theta = 1e-3

	naive := newTestSimulation(t, buildGraph(t, desc), naiveConfig)
	tree := newTestSimulation(t, buildGraph(t, desc), treeConfig)
	naive.applyCharge()
	tree.applyCharge()

	for i, n := range naive.Graph().Nodes {
		m := tree.Graph().Nodes[i]
		diff := n.Velocity.Sub(m.Velocity).Len()
		if diff > 1e-9*math.Max(1, n.Velocity.Len()) {
			t.Fatalf("Node %s: naive %+v vs tree %+v", n.ID, n.Velocity, m.Velocity)
		}
	}
}

// TestBarnesHutApproximation tests that the default theta stays close to the exact charge
func TestBarnesHutApproximation(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	var desc flowgraph.Descriptor
	for i := 0; i < 400; i++ {
		desc.Nodes = append(desc.Nodes, flowgraph.NodeSpec{
			ID:       fmt.Sprintf("n%d", i),
			Position: &flowgraph.Vec{X: rng.Float64() * 2000, Y: rng.Float64() * 2000},
		})
	}

	naiveConfig := DefaultForceConfig()
	naiveConfig.BarnesHutThreshold = 0
	naive := newTestSimulation(t, buildGraph(t, desc), naiveConfig)
	tree := newTestSimulation(t, buildGraph(t, desc), DefaultForceConfig())
	naive.applyCharge()
	tree.applyCharge()

	var exact, errSum float64
	for i, n := range naive.Graph().Nodes {
		exact += n.Velocity.Len()
		errSum += n.Velocity.Sub(tree.Graph().Nodes[i].Velocity).Len()
	}
	if errSum > exact*0.2 {
		t.Errorf("Barnes-Hut error too large: %f of %f", errSum, exact)
	}
}

// TestCollisionSeparatesPairs tests that one pass leaves two overlapping free nodes at the minimum distance
func TestCollisionSeparatesPairs(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("overlapping pair is separated", prop.ForAll(
		func(dx, dy float64) bool {
			desc := flowgraph.Descriptor{Nodes: []flowgraph.NodeSpec{
				{ID: "a", Position: &flowgraph.Vec{X: 300, Y: 300}},
				{ID: "b", Position: &flowgraph.Vec{X: 300 + dx, Y: 300 + dy}},
			}}
			g, err := flowgraph.Build(desc)
			if err != nil {
				return false
			}
			sim, err := NewSimulation(g, DefaultForceConfig(), testViewport)
			if err != nil {
				return false
			}
			sim.resolveCollisions()
			d := g.Nodes[0].Position.Sub(g.Nodes[1].Position).Len()
			return d >= 60-1e-6
		},
		gen.Float64Range(-40, 40),
		gen.Float64Range(-40, 40),
	))

	properties.TestingRun(t)
}

// TestCollisionRespectsPins tests that a pinned node keeps its position and its partner moves the full overlap
func TestCollisionRespectsPins(t *testing.T) {
	desc := flowgraph.Descriptor{Nodes: []flowgraph.NodeSpec{
		{ID: "pinned", Pinned: &flowgraph.Vec{X: 100, Y: 100}},
		{ID: "free", Position: &flowgraph.Vec{X: 120, Y: 100}},
	}}
	g := buildGraph(t, desc)
	sim := newTestSimulation(t, g, DefaultForceConfig())
	sim.resolveCollisions()

	pinned, _ := g.Node("pinned")
	free, _ := g.Node("free")
	if pinned.Position != (flowgraph.Vec{X: 100, Y: 100}) {
		t.Errorf("Pinned node moved to %+v", pinned.Position)
	}
	if math.Abs(free.Position.X-160) > 1e-9 || free.Position.Y != 100 {
		t.Errorf("Free node at %+v, want (160, 100)", free.Position)
	}
}

func TestSeedLayouts(t *testing.T) {
	layouts := []SeedLayout{SeedPhyllotaxis, SeedCircular, SeedLayered}

	for _, layout := range layouts {
		t.Run(string(layout), func(t *testing.T) {
			desc := flowgraph.Descriptor{Nodes: []flowgraph.NodeSpec{
				{ID: "d", Category: flowgraph.CategoryDonor},
				{ID: "r", Category: flowgraph.CategoryRecipient},
				{ID: "i", Category: flowgraph.CategoryImplementer},
				{ID: "s", Category: flowgraph.CategorySector},
				{ID: "x", Category: "bank"},
				{ID: "kept", Position: &flowgraph.Vec{X: 1, Y: 2}},
			}}
			g := buildGraph(t, desc)
			Seed(g, layout, testViewport)

			seen := make(map[flowgraph.Vec]string)
			for _, n := range g.Nodes {
				if !n.Placed || !n.Position.IsFinite() {
					t.Fatalf("Node %s not placed: %+v", n.ID, n.Position)
				}
				if other, dup := seen[n.Position]; dup {
					t.Errorf("Nodes %s and %s share position %+v", n.ID, other, n.Position)
				}
				seen[n.Position] = n.ID
			}

			kept, _ := g.Node("kept")
			if kept.Position != (flowgraph.Vec{X: 1, Y: 2}) {
				t.Errorf("Seeding overwrote an explicit position: %+v", kept.Position)
			}
		})
	}
}

func TestSeedLayeredBands(t *testing.T) {
	desc := flowgraph.Descriptor{Nodes: []flowgraph.NodeSpec{
		{ID: "s", Category: flowgraph.CategorySector},
		{ID: "d", Category: flowgraph.CategoryDonor},
		{ID: "r", Category: flowgraph.CategoryRecipient},
	}}
	g := buildGraph(t, desc)
	Seed(g, SeedLayered, testViewport)

	d, _ := g.Node("d")
	r, _ := g.Node("r")
	s, _ := g.Node("s")
	if !(d.Position.Y < r.Position.Y && r.Position.Y < s.Position.Y) {
		t.Errorf("Bands out of order: donor %f, recipient %f, sector %f", d.Position.Y, r.Position.Y, s.Position.Y)
	}
}

func TestBounds(t *testing.T) {
	g := buildGraph(t, flowgraph.Descriptor{Nodes: []flowgraph.NodeSpec{
		{ID: "a", Position: &flowgraph.Vec{X: -10, Y: 5}},
		{ID: "b", Position: &flowgraph.Vec{X: 30, Y: -20}},
		{ID: "c"},
	}})

	b, ok := Bounds(g.Nodes)
	if !ok {
		t.Fatal("Expected bounds for placed nodes")
	}
	want := flowgraph.Rect{Min: flowgraph.Vec{X: -10, Y: -20}, Max: flowgraph.Vec{X: 30, Y: 5}}
	if b != want {
		t.Errorf("Bounds = %+v, want %+v", b, want)
	}

	if _, ok := Bounds(nil); ok {
		t.Error("Expected no bounds for an empty node set")
	}
}

func TestCentroid(t *testing.T) {
	g := buildGraph(t, flowgraph.Descriptor{Nodes: []flowgraph.NodeSpec{
		{ID: "a", Position: &flowgraph.Vec{X: -10, Y: 5}},
		{ID: "b", Position: &flowgraph.Vec{X: 30, Y: -25}},
		{ID: "c"},
	}})

	c, ok := Centroid(g.Nodes)
	if !ok {
		t.Fatal("Expected a centroid for placed nodes")
	}
	if want := (flowgraph.Vec{X: 10, Y: -10}); c != want {
		t.Errorf("Centroid = %+v, want %+v (unplaced nodes must not count)", c, want)
	}

	if _, ok := Centroid(nil); ok {
		t.Error("Expected no centroid for an empty node set")
	}
}

// TestEmptyGraph tests that an empty graph ticks without error
func TestEmptyGraph(t *testing.T) {
	g := buildGraph(t, flowgraph.Descriptor{})
	sim := newTestSimulation(t, g, DefaultForceConfig())

	stats := sim.Tick()
	if !stats.Active || stats.KineticEnergy != 0 {
		t.Errorf("Unexpected stats for empty graph: %v", stats)
	}
}

func TestForceConfigValidate(t *testing.T) {
	if err := DefaultForceConfig().Validate(); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}

	bad := DefaultForceConfig()
	bad.Friction = 1.5
	bad.Seed = "random"
	if err := bad.Validate(); err == nil {
		t.Error("Expected invalid friction and seed to be rejected")
	}

	if _, err := NewSimulation(buildGraph(t, flowgraph.Descriptor{}), bad, testViewport); err == nil {
		t.Error("NewSimulation should reject an invalid config")
	}
}

// TestVisualizationExport tests JSON export
func TestVisualizationExport(t *testing.T) {
	g := buildGraph(t, chainDescriptor(3))
	sim := newTestSimulation(t, g, DefaultForceConfig())
	sim.Tick()

	data, err := ExportJSON(g, sim.Alpha())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var v Visualization
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("Export is not valid JSON: %v", err)
	}
	if len(v.Nodes) != 3 || len(v.Edges) != 2 {
		t.Fatalf("Exported %d nodes / %d edges, want 3/2", len(v.Nodes), len(v.Edges))
	}
	if v.Edges[0].Source != "n0" || v.Edges[0].Target != "n1" {
		t.Errorf("First edge = %+v", v.Edges[0])
	}
	if v.Nodes[0].Owner != "free" {
		t.Errorf("Owner = %q, want free", v.Nodes[0].Owner)
	}
}
