package render

import (
	"github.com/dd0wney/cluso-flowviz/pkg/flowgraph"
	"github.com/dd0wney/cluso-flowviz/pkg/interaction"
)

// HitTest finds what lies under a screen point. Nodes win over links; among
// nodes the one drawn last wins. Links are hit within half their width plus
// HitSlop pixels.
func (e *Emitter) HitTest(scene Scene, screen flowgraph.Vec) interaction.Hit {
	if scene.Graph == nil {
		return interaction.NoHit
	}
	t := scene.Transform
	world := t.Invert(screen)

	nodes := scene.Graph.Nodes
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		if !n.Placed {
			continue
		}
		if world.Sub(n.Position).Len() <= e.config.NodeRadius(n) {
			return interaction.NodeHit(n.ID)
		}
	}

	best := -1
	bestDist := 0.0
	for _, l := range scene.Graph.Links {
		from, to, ok := LinkEndpoints(e.config, l)
		if !ok {
			continue
		}
		d := distanceToSegment(screen, t.Apply(from), t.Apply(to))
		if d <= e.config.LinkWidth(l.Value)*t.K/2+e.config.HitSlop && (best < 0 || d < bestDist) {
			best, bestDist = l.Index, d
		}
	}
	if best >= 0 {
		return interaction.LinkHit(best)
	}
	return interaction.NoHit
}
