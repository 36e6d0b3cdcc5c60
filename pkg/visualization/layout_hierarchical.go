package visualization

import (
	"github.com/dd0wney/cluso-flowviz/pkg/flowgraph"
)

// bandOrder follows money from donors down to sectors
var bandOrder = []flowgraph.Category{
	flowgraph.CategoryDonor,
	flowgraph.CategoryRecipient,
	flowgraph.CategoryImplementer,
	flowgraph.CategorySector,
}

// seedLayered arranges nodes in horizontal bands by category. Nodes of an
// unknown category share a final band.
func seedLayered(nodes []*flowgraph.Node, viewport flowgraph.Vec) {
	rank := make(map[flowgraph.Category]int, len(bandOrder))
	for i, c := range bandOrder {
		rank[c] = i
	}

	levels := make([][]*flowgraph.Node, len(bandOrder)+1)
	for _, n := range nodes {
		r, ok := rank[n.Category]
		if !ok {
			r = len(bandOrder)
		}
		levels[r] = append(levels[r], n)
	}

	// Drop empty bands
	used := levels[:0]
	for _, level := range levels {
		if len(level) > 0 {
			used = append(used, level)
		}
	}

	levelHeight := (viewport.Y - 2*seedPadding) / float64(len(used))
	levelWidth := viewport.X - 2*seedPadding

	for levelIdx, level := range used {
		y := seedPadding + float64(levelIdx)*levelHeight + levelHeight/2
		spacing := levelWidth / float64(len(level)+1)

		for nodeIdx, n := range level {
			n.Position = flowgraph.Vec{X: seedPadding + spacing*float64(nodeIdx+1), Y: y}
		}
	}
}
