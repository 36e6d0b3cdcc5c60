package visualization

import (
	"math"

	"github.com/dd0wney/cluso-flowviz/pkg/flowgraph"
)

// maxQuadDepth bounds subdivision so coincident nodes share a leaf
const maxQuadDepth = 24

// quadNode is a Barnes-Hut cell. Every node carries unit charge, so a cell's
// aggregate charge is its body count located at the bodies' centroid.
type quadNode struct {
	x, y, size float64

	cx, cy float64
	count  int

	leaf     bool
	bodies   []*flowgraph.Node
	children [4]*quadNode
}

func newQuadNode(x, y, size float64) *quadNode {
	return &quadNode{x: x, y: y, size: size, leaf: true}
}

// buildQuadtree builds a square tree around every node position
func buildQuadtree(nodes []*flowgraph.Node) *quadNode {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, n := range nodes {
		minX = math.Min(minX, n.Position.X)
		minY = math.Min(minY, n.Position.Y)
		maxX = math.Max(maxX, n.Position.X)
		maxY = math.Max(maxY, n.Position.Y)
	}

	size := math.Max(maxX-minX, maxY-minY)
	size = math.Max(size*1.1, 1)
	root := newQuadNode((minX+maxX-size)/2, (minY+maxY-size)/2, size)
	for _, n := range nodes {
		root.insert(n, 0)
	}
	return root
}

func (q *quadNode) insert(n *flowgraph.Node, depth int) {
	total := float64(q.count + 1)
	q.cx += (n.Position.X - q.cx) / total
	q.cy += (n.Position.Y - q.cy) / total
	q.count++

	if q.leaf {
		if len(q.bodies) == 0 || depth >= maxQuadDepth {
			q.bodies = append(q.bodies, n)
			return
		}
		half := q.size / 2
		q.children[0] = newQuadNode(q.x, q.y, half)
		q.children[1] = newQuadNode(q.x+half, q.y, half)
		q.children[2] = newQuadNode(q.x, q.y+half, half)
		q.children[3] = newQuadNode(q.x+half, q.y+half, half)
		q.leaf = false
		for _, b := range q.bodies {
			q.quadrant(b).insert(b, depth+1)
		}
		q.bodies = nil
	}
	q.quadrant(n).insert(n, depth+1)
}

func (q *quadNode) quadrant(n *flowgraph.Node) *quadNode {
	half := q.size / 2
	i := 0
	if n.Position.X >= q.x+half {
		i |= 1
	}
	if n.Position.Y >= q.y+half {
		i |= 2
	}
	return q.children[i]
}

// apply accumulates the charge felt by n, treating a cell as one body once
// its size over distance drops below theta and n lies outside it
func (q *quadNode) apply(s *Simulation, n *flowgraph.Node, theta2 float64) {
	if q == nil || q.count == 0 {
		return
	}

	if !q.leaf {
		dx := q.cx - n.Position.X
		dy := q.cy - n.Position.Y
		l2 := dx*dx + dy*dy
		if q.size*q.size/theta2 < l2 && !q.contains(n.Position) {
			s.repel(n, dx, dy, float64(q.count))
			return
		}
		for _, c := range q.children {
			c.apply(s, n, theta2)
		}
		return
	}

	for _, b := range q.bodies {
		if b == n {
			continue
		}
		s.repel(n, b.Position.X-n.Position.X, b.Position.Y-n.Position.Y, 1)
	}
}

func (q *quadNode) contains(p flowgraph.Vec) bool {
	return p.X >= q.x && p.X < q.x+q.size && p.Y >= q.y && p.Y < q.y+q.size
}
