package interaction

import (
	"github.com/dd0wney/cluso-flowviz/pkg/flowgraph"
	"github.com/dd0wney/cluso-flowviz/pkg/validation"
)

// HitKind classifies what lies under the pointer
type HitKind int

const (
	HitNone HitKind = iota
	HitNode
	HitLink
)

// String returns the string representation of a hit kind
func (k HitKind) String() string {
	switch k {
	case HitNode:
		return "node"
	case HitLink:
		return "link"
	default:
		return "none"
	}
}

// Hit is the result of a host hit test
type Hit struct {
	Kind      HitKind `json:"kind"`
	NodeID    string  `json:"nodeId,omitempty"`
	LinkIndex int     `json:"linkIndex,omitempty"`
}

// NoHit is an empty-canvas hit
var NoHit = Hit{Kind: HitNone}

// NodeHit returns a hit on the node with the given id
func NodeHit(id string) Hit {
	return Hit{Kind: HitNode, NodeID: id}
}

// LinkHit returns a hit on the link at index i
func LinkHit(i int) Hit {
	return Hit{Kind: HitLink, LinkIndex: i}
}

// State is the pointer session state
type State int

const (
	StateIdle State = iota
	StateHovering
	StateDragging
	StatePanning
)

// String returns the string representation of a state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateHovering:
		return "hovering"
	case StateDragging:
		return "dragging"
	case StatePanning:
		return "panning"
	default:
		return "unknown"
	}
}

// TooltipKind distinguishes node and link tooltips
type TooltipKind int

const (
	TooltipNode TooltipKind = iota
	TooltipLink
)

// String returns the string representation of a tooltip kind
func (k TooltipKind) String() string {
	if k == TooltipLink {
		return "link"
	}
	return "node"
}

// MarshalText encodes the kind by name
func (k TooltipKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Tooltip is the pointer-following tooltip state
type Tooltip struct {
	Kind      TooltipKind `json:"kind"`
	NodeID    string      `json:"nodeId,omitempty"`
	LinkIndex int         `json:"linkIndex,omitempty"`
	// Position is the pointer's screen position
	Position flowgraph.Vec `json:"position"`
}

// Selection is the clicked node. ScreenPosition is where the click happened,
// not where the node is, so a detail popup stays put when the node moves.
type Selection struct {
	NodeID         string        `json:"nodeId"`
	ScreenPosition flowgraph.Vec `json:"screenPosition"`
}

// Event names a session transition, for metrics and logging
type Event string

const (
	EventHover     Event = "hover"
	EventUnhover   Event = "unhover"
	EventLinkHover Event = "link_hover"
	EventDragStart Event = "drag_start"
	EventDragEnd   Event = "drag_end"
	EventPanStart  Event = "pan_start"
	EventPanEnd    Event = "pan_end"
	EventSelect    Event = "select"
	EventDeselect  Event = "deselect"
	EventLeave     Event = "leave"
)

// Config configures gesture handling
type Config struct {
	// ClickTolerance is how far in screen pixels a pointer may travel between
	// down and up and still count as a click
	ClickTolerance float64 `yaml:"clickTolerance"`
	// DragAlphaTarget reheats the solver while a node is dragged
	DragAlphaTarget float64 `yaml:"dragAlphaTarget"`
	// RestAlphaTarget is restored when the drag ends
	RestAlphaTarget float64 `yaml:"restAlphaTarget"`
}

// DefaultConfig returns the reference gesture settings
func DefaultConfig() Config {
	return Config{
		ClickTolerance:  3,
		DragAlphaTarget: 0.3,
		RestAlphaTarget: 0,
	}
}

// Validate checks the gesture settings
func (c Config) Validate() error {
	return validation.NewConfigValidator("InteractionConfig").
		NonNegativeFloat("ClickTolerance", c.ClickTolerance).
		RangeFloat("DragAlphaTarget", c.DragAlphaTarget, 0, 1).
		RangeFloat("RestAlphaTarget", c.RestAlphaTarget, 0, 1).
		Validate()
}

// Solver is the part of the force solver the session drives
type Solver interface {
	SetAlphaTarget(target float64)
	Wake()
}

// Viewport is the part of the camera the session drives
type Viewport interface {
	ScreenToWorld(p flowgraph.Vec) flowgraph.Vec
	PanBy(delta flowgraph.Vec)
}
