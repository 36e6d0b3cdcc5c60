package visualization

import (
	"math"

	"github.com/dd0wney/cluso-flowviz/pkg/flowgraph"
)

// Bounds returns the smallest rectangle containing every placed node. It
// reports false when no node has a position yet.
func Bounds(nodes []*flowgraph.Node) (flowgraph.Rect, bool) {
	minX, maxX := math.MaxFloat64, -math.MaxFloat64
	minY, maxY := math.MaxFloat64, -math.MaxFloat64
	found := false

	for _, n := range nodes {
		if !n.Placed {
			continue
		}
		found = true
		minX = math.Min(minX, n.Position.X)
		maxX = math.Max(maxX, n.Position.X)
		minY = math.Min(minY, n.Position.Y)
		maxY = math.Max(maxY, n.Position.Y)
	}

	if !found {
		return flowgraph.Rect{}, false
	}
	return flowgraph.Rect{
		Min: flowgraph.Vec{X: minX, Y: minY},
		Max: flowgraph.Vec{X: maxX, Y: maxY},
	}, true
}

// Centroid returns the mean position of the placed nodes
func Centroid(nodes []*flowgraph.Node) (flowgraph.Vec, bool) {
	var sum flowgraph.Vec
	count := 0
	for _, n := range nodes {
		if n.Placed {
			sum = sum.Add(n.Position)
			count++
		}
	}
	if count == 0 {
		return flowgraph.Vec{}, false
	}
	return sum.Scale(1 / float64(count)), true
}
