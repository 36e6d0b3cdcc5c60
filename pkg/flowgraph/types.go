package flowgraph

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Vec represents a 2D coordinate or displacement
type Vec struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

func (v Vec) Add(o Vec) Vec { return Vec{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vec) Sub(o Vec) Vec { return Vec{X: v.X - o.X, Y: v.Y - o.Y} }
func (v Vec) Scale(k float64) Vec { return Vec{X: v.X * k, Y: v.Y * k} }

// Len returns the euclidean length of v
func (v Vec) Len() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// IsFinite reports whether both components are neither NaN nor infinite
func (v Vec) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

// Clamp bounds v to [lo, hi]. NaN collapses to lo.
func Clamp[T constraints.Float](v, lo, hi T) T {
	if !(v >= lo) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Category classifies a node in the flow network
type Category string

const (
	CategoryDonor       Category = "donor"
	CategoryRecipient   Category = "recipient"
	CategoryImplementer Category = "implementer"
	CategorySector      Category = "sector"
)

// Known reports whether c is one of the four fixed categories
func (c Category) Known() bool {
	switch c {
	case CategoryDonor, CategoryRecipient, CategoryImplementer, CategorySector:
		return true
	}
	return false
}

// FlowKind classifies a link. The zero value means unset.
type FlowKind string

const (
	FlowUnset        FlowKind = ""
	FlowCommitment   FlowKind = "commitment"
	FlowDisbursement FlowKind = "disbursement"
	FlowExpenditure  FlowKind = "expenditure"
)

// Known reports whether k is one of the three fixed flow kinds
func (k FlowKind) Known() bool {
	switch k {
	case FlowCommitment, FlowDisbursement, FlowExpenditure:
		return true
	}
	return false
}

// PositionOwner records which subsystem controls a node's position.
// Owners are ordered by precedence: a higher owner is never displaced by a lower one.
type PositionOwner int

const (
	// OwnerFree nodes are moved by the force solver
	OwnerFree PositionOwner = iota
	// OwnerFocused nodes are held still while the camera animates onto them
	OwnerFocused
	// OwnerDragged nodes follow the pointer
	OwnerDragged
	// OwnerPinned nodes were pinned by the graph descriptor and never released
	OwnerPinned
)

// String returns the string representation of an owner
func (o PositionOwner) String() string {
	switch o {
	case OwnerFree:
		return "free"
	case OwnerFocused:
		return "pinned-by-focus"
	case OwnerDragged:
		return "pinned-by-drag"
	case OwnerPinned:
		return "pinned"
	default:
		return "unknown"
	}
}

// Node is an entity of the flow network. Position, Velocity, Owner and Pin are
// the only fields mutated after construction.
type Node struct {
	Index        int
	ID           string
	DisplayName  string
	Category     Category
	Sector       string
	TotalInflow  float64
	TotalOutflow float64

	Position Vec
	Velocity Vec
	// Placed is false until the node has been given a position
	Placed bool

	Owner PositionOwner
	// Pin is the fixed position while Owner != OwnerFree
	Pin Vec
}

// Free reports whether the solver may move the node
func (n *Node) Free() bool {
	return n.Owner == OwnerFree
}

// PinAt fixes the node at p on behalf of owner. It returns false when a
// higher-precedence owner already holds the node. A drag may still move a
// descriptor-pinned node; ownership stays with OwnerPinned.
func (n *Node) PinAt(owner PositionOwner, p Vec) bool {
	if owner == OwnerFree {
		return false
	}
	if n.Owner == OwnerPinned && owner == OwnerDragged {
		n.Pin = p
		n.Position = p
		n.Velocity = Vec{}
		n.Placed = true
		return true
	}
	if n.Owner > owner {
		return false
	}
	n.Owner = owner
	n.Pin = p
	n.Position = p
	n.Velocity = Vec{}
	n.Placed = true
	return true
}

// Release hands the node back to the solver if owner currently holds it
func (n *Node) Release(owner PositionOwner) bool {
	if n.Owner != owner || owner == OwnerPinned {
		return false
	}
	n.Owner = OwnerFree
	return true
}

// Link is a directed, valued flow between two nodes
type Link struct {
	Index    int
	Source   *Node
	Target   *Node
	Value    float64
	FlowKind FlowKind
	AuxLabel string

	// Parallel is this link's rank among links joining the same pair of nodes
	// (in either direction); ParallelCount is the size of that group.
	Parallel      int
	ParallelCount int
}

// Touches reports whether the link is incident to the node with the given id
func (l *Link) Touches(id string) bool {
	return l.Source.ID == id || l.Target.ID == id
}

// Rect is an axis-aligned rectangle in world coordinates
type Rect struct {
	Min Vec `json:"min"`
	Max Vec `json:"max"`
}

func (r Rect) Width() float64  { return r.Max.X - r.Min.X }
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// Center returns the midpoint of r
func (r Rect) Center() Vec {
	return Vec{X: (r.Min.X + r.Max.X) / 2, Y: (r.Min.Y + r.Max.Y) / 2}
}

// Expand grows r by d on every side
func (r Rect) Expand(d float64) Rect {
	return Rect{Min: Vec{X: r.Min.X - d, Y: r.Min.Y - d}, Max: Vec{X: r.Max.X + d, Y: r.Max.Y + d}}
}
