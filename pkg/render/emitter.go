package render

import (
	"math"

	"github.com/dd0wney/cluso-flowviz/pkg/camera"
	"github.com/dd0wney/cluso-flowviz/pkg/flowgraph"
)

// Scene is everything a frame is drawn from
type Scene struct {
	Graph     *flowgraph.Graph
	Transform camera.Transform
	Viewport  flowgraph.Vec
	// Hovered dims every element not connected to it; "" disables dimming
	Hovered string
	// Selected gets a highlight ring
	Selected string
}

func (s Scene) nodeOpacity(dim float64, id string) float64 {
	if s.Hovered == "" || s.Graph.IsConnected(s.Hovered, id) {
		return 1
	}
	return dim
}

func (s Scene) linkOpacity(dim float64, l *flowgraph.Link) float64 {
	if s.Hovered == "" || l.Touches(s.Hovered) {
		return 1
	}
	return dim
}

// Emitter applies the visual encoding. It holds no state beyond its config.
type Emitter struct {
	config VisualConfig
}

// NewEmitter creates an emitter for a validated config
func NewEmitter(config VisualConfig) (*Emitter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Emitter{config: config}, nil
}

// Config returns the visual encoding
func (e *Emitter) Config() VisualConfig {
	return e.config
}

// Emit produces the draw commands for a scene: markers, then links, then
// nodes, then labels. Unplaced nodes and their links are skipped.
func (e *Emitter) Emit(scene Scene) *Frame {
	cfg := e.config
	t := scene.Transform
	frame := &Frame{
		Width:      scene.Viewport.X,
		Height:     scene.Viewport.Y,
		Background: cfg.Background,
		Transform:  t,
	}
	if scene.Graph == nil {
		return frame
	}
	g := scene.Graph
	frame.Commands = make([]Command, 0, 4+len(g.Links)+2*len(g.Nodes))

	for _, kind := range []flowgraph.FlowKind{flowgraph.FlowCommitment, flowgraph.FlowDisbursement, flowgraph.FlowExpenditure} {
		frame.Commands = append(frame.Commands, MarkerDef{
			ID:    cfg.MarkerID(kind),
			Color: cfg.FlowColor(kind),
			Size:  cfg.ArrowSize * t.K,
		})
	}
	frame.Commands = append(frame.Commands, MarkerDef{ID: markerNeutral, Color: cfg.NeutralFlow, Size: cfg.ArrowSize * t.K})

	for _, l := range g.Links {
		from, to, ok := LinkEndpoints(cfg, l)
		if !ok {
			continue
		}
		frame.Commands = append(frame.Commands, Line{
			From:      t.Apply(from),
			To:        t.Apply(to),
			Width:     cfg.LinkWidth(l.Value) * t.K,
			Color:     cfg.FlowColor(l.FlowKind),
			Opacity:   scene.linkOpacity(cfg.DimOpacity, l),
			MarkerEnd: cfg.MarkerID(l.FlowKind),
			LinkIndex: l.Index,
		})
	}

	for _, n := range g.Nodes {
		if !n.Placed {
			continue
		}
		c := Circle{
			Center:      t.Apply(n.Position),
			Radius:      cfg.NodeRadius(n) * t.K,
			Fill:        cfg.NodeColor(n.Category),
			Stroke:      cfg.NodeStroke,
			StrokeWidth: cfg.NodeStrokeWidth * t.K,
			Opacity:     scene.nodeOpacity(cfg.DimOpacity, n.ID),
			NodeID:      n.ID,
		}
		if n.ID == scene.Selected {
			c.Stroke = cfg.SelectionStroke
			c.StrokeWidth = cfg.SelectionStrokeWidth * t.K
		}
		frame.Commands = append(frame.Commands, c)
	}

	if cfg.ShowLabels {
		for _, n := range g.Nodes {
			if !n.Placed {
				continue
			}
			p := n.Position.Add(flowgraph.Vec{X: cfg.NodeRadius(n) + cfg.LabelOffset, Y: cfg.LabelSize / 3})
			frame.Commands = append(frame.Commands, Text{
				Position: t.Apply(p),
				Content:  cfg.Truncate(n.DisplayName),
				Size:     cfg.LabelSize * t.K,
				Color:    cfg.LabelColor,
				Opacity:  scene.nodeOpacity(cfg.DimOpacity, n.ID),
				NodeID:   n.ID,
			})
		}
	}

	return frame
}

// LinkEndpoints returns the world-space segment drawn for a link. Parallel
// links are offset perpendicular to the pair's canonical direction (lower
// node index to higher) so links in both directions fan out consistently.
// The segment is trimmed to the two node circles so the arrow ends at the
// target's edge.
func LinkEndpoints(cfg VisualConfig, l *flowgraph.Link) (from, to flowgraph.Vec, ok bool) {
	if !l.Source.Placed || !l.Target.Placed {
		return flowgraph.Vec{}, flowgraph.Vec{}, false
	}
	from, to = l.Source.Position, l.Target.Position

	lo, hi := l.Source, l.Target
	if hi.Index < lo.Index {
		lo, hi = hi, lo
	}
	axis := hi.Position.Sub(lo.Position)
	length := axis.Len()
	if length < 1e-9 {
		return from, to, true
	}
	dir := axis.Scale(1 / length)

	if l.ParallelCount > 1 {
		rank := float64(l.Parallel) - float64(l.ParallelCount-1)/2
		offset := flowgraph.Vec{X: -dir.Y, Y: dir.X}.Scale(rank * cfg.ParallelEdgeSpacing)
		from = from.Add(offset)
		to = to.Add(offset)
	}

	rs := cfg.NodeRadius(l.Source)
	rt := cfg.NodeRadius(l.Target)
	seg := to.Sub(from)
	segLen := seg.Len()
	if segLen <= rs+rt {
		return from, to, true
	}
	u := seg.Scale(1 / segLen)
	return from.Add(u.Scale(rs)), to.Sub(u.Scale(rt)), true
}

// distanceToSegment returns the distance from p to the segment ab
func distanceToSegment(p, a, b flowgraph.Vec) float64 {
	ab := b.Sub(a)
	l2 := ab.X*ab.X + ab.Y*ab.Y
	if l2 == 0 {
		return p.Sub(a).Len()
	}
	t := ((p.X-a.X)*ab.X + (p.Y-a.Y)*ab.Y) / l2
	t = math.Max(0, math.Min(1, t))
	return p.Sub(a.Add(ab.Scale(t))).Len()
}
