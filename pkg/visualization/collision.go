package visualization

import (
	"math"

	"github.com/dd0wney/cluso-flowviz/pkg/flowgraph"
)

type cellKey struct{ x, y int }

// collisionGrid buckets nodes into square cells one minimum distance wide, so
// any overlapping pair lies in the same or an adjacent cell
type collisionGrid struct {
	cell  float64
	cells map[cellKey][]*flowgraph.Node
}

func newCollisionGrid(nodes []*flowgraph.Node, cell float64) *collisionGrid {
	g := &collisionGrid{
		cell:  cell,
		cells: make(map[cellKey][]*flowgraph.Node, len(nodes)),
	}
	for _, n := range nodes {
		k := g.key(n.Position)
		g.cells[k] = append(g.cells[k], n)
	}
	return g
}

func (g *collisionGrid) key(p flowgraph.Vec) cellKey {
	return cellKey{x: int(math.Floor(p.X / g.cell)), y: int(math.Floor(p.Y / g.cell))}
}

// neighbours calls fn for every node in the 3x3 block of cells around p
func (g *collisionGrid) neighbours(p flowgraph.Vec, fn func(*flowgraph.Node)) {
	k := g.key(p)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for _, n := range g.cells[cellKey{x: k.x + dx, y: k.y + dy}] {
				fn(n)
			}
		}
	}
}

// resolveCollisions pushes apart every pair of nodes closer than twice the
// collision radius along their connecting axis. A pinned node does not move;
// its partner takes the whole correction.
func (s *Simulation) resolveCollisions() {
	r := s.config.CollisionRadius
	if r <= 0 || len(s.graph.Nodes) < 2 {
		return
	}
	minDist := 2 * r
	grid := newCollisionGrid(s.graph.Nodes, minDist)

	for _, a := range s.graph.Nodes {
		grid.neighbours(a.Position, func(b *flowgraph.Node) {
			if b.Index <= a.Index || (!a.Free() && !b.Free()) {
				return
			}

			x := b.Position.X - a.Position.X
			y := b.Position.Y - a.Position.Y
			l2 := x*x + y*y
			if l2 >= minDist*minDist {
				return
			}
			if l2 == 0 {
				x, y = s.jiggle(), s.jiggle()
				l2 = x*x + y*y
			}
			l := math.Sqrt(l2)
			k := (minDist - l) / l * s.config.CollisionStrength
			push := flowgraph.Vec{X: x * k, Y: y * k}

			switch {
			case !a.Free():
				b.Position = b.Position.Add(push)
			case !b.Free():
				a.Position = a.Position.Sub(push)
			default:
				half := push.Scale(0.5)
				a.Position = a.Position.Sub(half)
				b.Position = b.Position.Add(half)
			}
		})
	}
}
