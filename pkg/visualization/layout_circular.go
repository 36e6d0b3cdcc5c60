package visualization

import (
	"math"

	"github.com/dd0wney/cluso-flowviz/pkg/flowgraph"
)

// seedCircular arranges nodes evenly on a circle around the center
func seedCircular(nodes []*flowgraph.Node, center, viewport flowgraph.Vec) {
	radius := math.Min(viewport.X, viewport.Y)/2 - seedPadding
	if radius <= 0 {
		radius = seedPadding
	}

	angleStep := 2 * math.Pi / float64(len(nodes))

	for i, n := range nodes {
		angle := float64(i) * angleStep
		n.Position = flowgraph.Vec{
			X: center.X + radius*math.Cos(angle),
			Y: center.Y + radius*math.Sin(angle),
		}
	}
}
