package visualization

import (
	"encoding/json"
	"math"

	"github.com/dd0wney/cluso-flowviz/pkg/flowgraph"
)

// seedPadding keeps seeded nodes away from the viewport edge
const seedPadding = 50

// Seed places every node that has no position yet. Nodes that already have
// one, including pinned nodes, are left alone.
func Seed(g *flowgraph.Graph, layout SeedLayout, viewport flowgraph.Vec) {
	var pending []*flowgraph.Node
	for _, n := range g.Nodes {
		if !n.Placed {
			pending = append(pending, n)
		}
	}
	if len(pending) == 0 {
		return
	}

	center := viewport.Scale(0.5)
	switch layout {
	case SeedCircular:
		seedCircular(pending, center, viewport)
	case SeedLayered:
		seedLayered(pending, viewport)
	default:
		seedPhyllotaxis(pending, center)
	}
	for _, n := range pending {
		n.Placed = true
	}
}

// seedPhyllotaxis spirals nodes out from the center, one per golden angle
func seedPhyllotaxis(nodes []*flowgraph.Node, center flowgraph.Vec) {
	const initialRadius = 10
	angleStep := math.Pi * (3 - math.Sqrt(5))

	for i, n := range nodes {
		radius := initialRadius * math.Sqrt(0.5+float64(i))
		angle := float64(i) * angleStep
		n.Position = flowgraph.Vec{
			X: center.X + radius*math.Cos(angle),
			Y: center.Y + radius*math.Sin(angle),
		}
	}
}

// ExportJSON exports the current layout of g to JSON
func ExportJSON(g *flowgraph.Graph, alpha float64) ([]byte, error) {
	return json.Marshal(Snapshot(g, alpha))
}

// Snapshot captures node positions and links of g
func Snapshot(g *flowgraph.Graph, alpha float64) *Visualization {
	v := &Visualization{
		Nodes: make([]NodeViz, 0, len(g.Nodes)),
		Edges: make([]EdgeViz, 0, len(g.Links)),
		Alpha: alpha,
	}
	if b, ok := Bounds(g.Nodes); ok {
		v.Bounds = b
	}

	for _, n := range g.Nodes {
		v.Nodes = append(v.Nodes, NodeViz{
			ID:          n.ID,
			DisplayName: n.DisplayName,
			Category:    n.Category,
			X:           n.Position.X,
			Y:           n.Position.Y,
			Owner:       n.Owner.String(),
			Placed:      n.Placed,
		})
	}

	for _, l := range g.Links {
		v.Edges = append(v.Edges, EdgeViz{
			Source:   l.Source.ID,
			Target:   l.Target.ID,
			Value:    l.Value,
			FlowKind: l.FlowKind,
			AuxLabel: l.AuxLabel,
		})
	}

	return v
}
