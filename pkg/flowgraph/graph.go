package flowgraph

import (
	"fmt"
	"math"
	"sort"
)

// Graph is a validated flow network. Its topology never changes after Build;
// only node positions and ownership are mutated.
type Graph struct {
	Nodes []*Node
	Links []*Link

	byID      map[string]*Node
	adjacency []map[int]struct{}
	degree    []int
}

// Build validates a descriptor and resolves it into a Graph. Every defect is
// reported; a descriptor with any defect yields no graph at all.
func Build(desc Descriptor) (*Graph, error) {
	errs := validateDescriptor(&desc)

	g := &Graph{
		Nodes: make([]*Node, 0, len(desc.Nodes)),
		Links: make([]*Link, 0, len(desc.Links)),
		byID:  make(map[string]*Node, len(desc.Nodes)),
	}
	firstSeen := make(map[string]int, len(desc.Nodes))

	for i, spec := range desc.Nodes {
		if spec.ID == "" {
			continue // reported by validation
		}
		if prev, dup := firstSeen[spec.ID]; dup {
			errs = append(errs, NewError("resolve").Node(i, spec.ID).
				Field("id").
				Context(fmt.Sprintf("first defined at nodes[%d]", prev)).
				Cause(ErrDuplicateNode).Build())
			continue
		}
		firstSeen[spec.ID] = i

		if math.IsInf(spec.TotalInflow, 0) {
			errs = append(errs, NewError("resolve").Node(i, spec.ID).Field("totalInflow").Cause(ErrNonFiniteValue).Build())
		}
		if math.IsInf(spec.TotalOutflow, 0) {
			errs = append(errs, NewError("resolve").Node(i, spec.ID).Field("totalOutflow").Cause(ErrNonFiniteValue).Build())
		}
		if spec.Position != nil && !spec.Position.IsFinite() {
			errs = append(errs, NewError("resolve").Node(i, spec.ID).Field("position").Cause(ErrNonFiniteValue).Build())
		}
		if spec.Pinned != nil && !spec.Pinned.IsFinite() {
			errs = append(errs, NewError("resolve").Node(i, spec.ID).Field("pinned").Cause(ErrNonFiniteValue).Build())
		}

		n := &Node{
			Index:        len(g.Nodes),
			ID:           spec.ID,
			DisplayName:  spec.DisplayName,
			Category:     spec.Category,
			Sector:       spec.Sector,
			TotalInflow:  spec.TotalInflow,
			TotalOutflow: spec.TotalOutflow,
		}
		if n.DisplayName == "" {
			n.DisplayName = spec.ID
		}
		if spec.Position != nil {
			n.Position = *spec.Position
			n.Placed = true
		}
		if spec.Pinned != nil {
			n.PinAt(OwnerPinned, *spec.Pinned)
		}
		g.Nodes = append(g.Nodes, n)
		g.byID[n.ID] = n
	}

	for i, spec := range desc.Links {
		if math.IsInf(spec.Value, 0) {
			errs = append(errs, NewError("resolve").Link(i, spec.Source, spec.Target).Field("value").Cause(ErrNonFiniteValue).Build())
		}
		src, srcOK := g.byID[spec.Source]
		dst, dstOK := g.byID[spec.Target]
		if spec.Source != "" && !srcOK {
			errs = append(errs, NewError("resolve").Link(i, spec.Source, spec.Target).Field("source").Cause(ErrDanglingLink).Build())
		}
		if spec.Target != "" && !dstOK {
			errs = append(errs, NewError("resolve").Link(i, spec.Source, spec.Target).Field("target").Cause(ErrDanglingLink).Build())
		}
		if !srcOK || !dstOK {
			continue
		}
		g.Links = append(g.Links, &Link{
			Index:    len(g.Links),
			Source:   src,
			Target:   dst,
			Value:    spec.Value,
			FlowKind: spec.FlowKind,
			AuxLabel: spec.AuxLabel,
		})
	}

	if len(errs) > 0 {
		return nil, errs
	}

	g.index()
	return g, nil
}

// index derives adjacency, degrees and parallel-edge ranks
func (g *Graph) index() {
	g.adjacency = make([]map[int]struct{}, len(g.Nodes))
	g.degree = make([]int, len(g.Nodes))
	for i := range g.adjacency {
		g.adjacency[i] = make(map[int]struct{})
	}

	type pair struct{ a, b int }
	groups := make(map[pair][]*Link)
	for _, l := range g.Links {
		s, t := l.Source.Index, l.Target.Index
		g.degree[s]++
		g.degree[t]++
		g.adjacency[s][t] = struct{}{}
		g.adjacency[t][s] = struct{}{}

		key := pair{s, t}
		if t < s {
			key = pair{t, s}
		}
		groups[key] = append(groups[key], l)
	}
	for _, links := range groups {
		for rank, l := range links {
			l.Parallel = rank
			l.ParallelCount = len(links)
		}
	}
}

// Len returns the number of nodes
func (g *Graph) Len() int {
	return len(g.Nodes)
}

// Node looks up a node by id
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.byID[id]
	return n, ok
}

// Degree returns the number of links incident to n (parallel links counted separately)
func (g *Graph) Degree(n *Node) int {
	return g.degree[n.Index]
}

// IsConnected reports whether id is the hovered node itself or shares a link
// with it in either direction.
func (g *Graph) IsConnected(hovered, id string) bool {
	if hovered == id {
		return true
	}
	h, ok := g.byID[hovered]
	if !ok {
		return false
	}
	n, ok := g.byID[id]
	if !ok {
		return false
	}
	_, linked := g.adjacency[h.Index][n.Index]
	return linked
}

// ConnectedSet returns id together with every direct neighbour
func (g *Graph) ConnectedSet(id string) map[string]struct{} {
	n, ok := g.byID[id]
	if !ok {
		return nil
	}
	set := make(map[string]struct{}, len(g.adjacency[n.Index])+1)
	set[id] = struct{}{}
	for idx := range g.adjacency[n.Index] {
		set[g.Nodes[idx].ID] = struct{}{}
	}
	return set
}

// Neighbors returns the ids of nodes sharing a link with id, sorted
func (g *Graph) Neighbors(id string) []string {
	n, ok := g.byID[id]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(g.adjacency[n.Index]))
	for idx := range g.adjacency[n.Index] {
		out = append(out, g.Nodes[idx].ID)
	}
	sort.Strings(out)
	return out
}
