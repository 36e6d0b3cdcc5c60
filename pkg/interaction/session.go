// Package interaction implements the pointer state machine: hover
// highlighting, node dragging, canvas panning and click selection.
package interaction

import (
	"github.com/dd0wney/cluso-flowviz/pkg/flowgraph"
)

type pendingPin struct {
	node  *flowgraph.Node
	world flowgraph.Vec
}

// Session tracks one pointer over one graph. It writes node pins and the
// solver's alpha target; it never moves free nodes itself.
type Session struct {
	config Config
	graph  *flowgraph.Graph
	solver Solver
	view   Viewport

	state     State
	hovered   string
	dragged   *flowgraph.Node
	selection *Selection
	tooltip   *Tooltip
	pending   *pendingPin

	downScreen flowgraph.Vec
	lastScreen flowgraph.Vec
	travelled  float64

	onClick  func(nodeID string)
	listener func(Event)
}

// NewSession creates an idle session
func NewSession(config Config, g *flowgraph.Graph, solver Solver, view Viewport) *Session {
	return &Session{
		config: config,
		graph:  g,
		solver: solver,
		view:   view,
		state:  StateIdle,
	}
}

// OnNodeClick registers the callback fired when a node becomes selected
func (s *Session) OnNodeClick(fn func(nodeID string)) {
	s.onClick = fn
}

// SetListener registers a callback for every transition
func (s *Session) SetListener(fn func(Event)) {
	s.listener = fn
}

func (s *Session) emit(e Event) {
	if s.listener != nil {
		s.listener(e)
	}
}

// node resolves a node hit; unknown ids count as empty canvas
func (s *Session) node(hit Hit) *flowgraph.Node {
	if hit.Kind != HitNode {
		return nil
	}
	n, _ := s.graph.Node(hit.NodeID)
	return n
}

func (s *Session) link(hit Hit) (*flowgraph.Link, bool) {
	if hit.Kind != HitLink || hit.LinkIndex < 0 || hit.LinkIndex >= len(s.graph.Links) {
		return nil, false
	}
	return s.graph.Links[hit.LinkIndex], true
}

// PointerDown starts a drag on a node or a pan on anything else
func (s *Session) PointerDown(screen flowgraph.Vec, hit Hit) {
	if s.state == StateDragging || s.state == StatePanning {
		return
	}
	s.downScreen = screen
	s.lastScreen = screen
	s.travelled = 0

	n := s.node(hit)
	if n == nil {
		s.state = StatePanning
		s.tooltip = nil
		s.emit(EventPanStart)
		return
	}

	s.state = StateDragging
	s.dragged = n
	s.hovered = n.ID
	s.tooltip = nil
	s.pending = nil
	n.PinAt(flowgraph.OwnerDragged, s.view.ScreenToWorld(screen))
	s.solver.SetAlphaTarget(s.config.DragAlphaTarget)
	s.emit(EventDragStart)
}

// PointerMove moves a dragged node, pans the canvas, or updates hover
func (s *Session) PointerMove(screen flowgraph.Vec, hit Hit) {
	switch s.state {
	case StateDragging:
		s.track(screen)
		s.pending = &pendingPin{node: s.dragged, world: s.view.ScreenToWorld(screen)}
		s.solver.Wake()
	case StatePanning:
		delta := screen.Sub(s.lastScreen)
		s.track(screen)
		s.view.PanBy(delta)
	default:
		s.hover(screen, hit)
	}
}

// track records pointer travel since the last down event
func (s *Session) track(screen flowgraph.Vec) {
	if d := screen.Sub(s.downScreen).Len(); d > s.travelled {
		s.travelled = d
	}
	s.lastScreen = screen
}

func (s *Session) hover(screen flowgraph.Vec, hit Hit) {
	if n := s.node(hit); n != nil {
		if s.hovered != n.ID {
			s.hovered = n.ID
			s.emit(EventHover)
		}
		s.state = StateHovering
		s.tooltip = &Tooltip{Kind: TooltipNode, NodeID: n.ID, Position: screen}
		return
	}

	s.clearHover()
	if l, ok := s.link(hit); ok {
		if s.tooltip == nil || s.tooltip.Kind != TooltipLink || s.tooltip.LinkIndex != l.Index {
			s.emit(EventLinkHover)
		}
		s.tooltip = &Tooltip{Kind: TooltipLink, LinkIndex: l.Index, Position: screen}
		return
	}
	s.tooltip = nil
}

func (s *Session) clearHover() {
	if s.hovered != "" {
		s.hovered = ""
		s.emit(EventUnhover)
	}
	s.state = StateIdle
}

// PointerUp ends a drag or pan. A gesture that stayed within the click
// tolerance on a node also selects it.
func (s *Session) PointerUp(screen flowgraph.Vec, hit Hit) {
	switch s.state {
	case StateDragging:
		s.track(screen)
		n := s.dragged
		s.endDrag()
		if s.travelled < s.config.ClickTolerance {
			s.selectNode(n.ID, screen)
		}
	case StatePanning:
		s.track(screen)
		s.state = StateIdle
		s.emit(EventPanEnd)
	}
}

func (s *Session) endDrag() {
	s.dragged.Release(flowgraph.OwnerDragged)
	s.dragged = nil
	s.pending = nil
	s.hovered = ""
	s.state = StateIdle
	s.solver.SetAlphaTarget(s.config.RestAlphaTarget)
	s.emit(EventDragEnd)
}

func (s *Session) selectNode(id string, screen flowgraph.Vec) {
	s.selection = &Selection{NodeID: id, ScreenPosition: screen}
	s.emit(EventSelect)
	if s.onClick != nil {
		s.onClick(id)
	}
}

// PointerLeave ends any gesture and clears hover state. The selection
// survives.
func (s *Session) PointerLeave() {
	switch s.state {
	case StateDragging:
		s.endDrag()
	case StatePanning:
		s.emit(EventPanEnd)
	}
	s.hovered = ""
	s.tooltip = nil
	s.state = StateIdle
	s.emit(EventLeave)
}

// CloseSelection dismisses the selected node
func (s *Session) CloseSelection() {
	if s.selection == nil {
		return
	}
	s.selection = nil
	s.emit(EventDeselect)
}

// ApplyPendingPins moves the dragged node to the latest pointer position.
// It reports whether a pin changed.
func (s *Session) ApplyPendingPins() bool {
	if s.pending == nil {
		return false
	}
	p := s.pending
	s.pending = nil
	if !p.node.PinAt(flowgraph.OwnerDragged, p.world) {
		return false
	}
	s.solver.Wake()
	return true
}

// State returns the current state
func (s *Session) State() State {
	return s.state
}

// Hovered returns the hovered node id, or "" when none
func (s *Session) Hovered() string {
	return s.hovered
}

// Dragged returns the dragged node id, or "" when none
func (s *Session) Dragged() string {
	if s.dragged == nil {
		return ""
	}
	return s.dragged.ID
}

// Selection returns the selected node, if any
func (s *Session) Selection() (Selection, bool) {
	if s.selection == nil {
		return Selection{}, false
	}
	return *s.selection, true
}

// Tooltip returns the active tooltip, if any
func (s *Session) Tooltip() (Tooltip, bool) {
	if s.tooltip == nil {
		return Tooltip{}, false
	}
	return *s.tooltip, true
}

// IsConnected reports whether the node is highlighted by the current hover.
// With nothing hovered every node counts as connected.
func (s *Session) IsConnected(id string) bool {
	return s.hovered == "" || s.graph.IsConnected(s.hovered, id)
}

// LinkConnected reports whether the link is highlighted by the current hover
func (s *Session) LinkConnected(l *flowgraph.Link) bool {
	return s.hovered == "" || l.Touches(s.hovered)
}

// Dimming reports whether non-connected elements are currently dimmed
func (s *Session) Dimming() bool {
	return s.hovered != ""
}
