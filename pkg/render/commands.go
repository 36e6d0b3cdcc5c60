package render

import (
	"encoding/json"

	"github.com/dd0wney/cluso-flowviz/pkg/camera"
	"github.com/dd0wney/cluso-flowviz/pkg/flowgraph"
	"github.com/dd0wney/cluso-flowviz/pkg/interaction"
)

// Command is one immutable draw instruction in screen coordinates
type Command interface {
	Kind() string
}

// MarkerDef declares an arrowhead that Line commands refer to by ID
type MarkerDef struct {
	ID    string  `json:"id"`
	Color string  `json:"color"`
	Size  float64 `json:"size"`
}

// Line is a link stroke, optionally ending in a marker
type Line struct {
	From      flowgraph.Vec `json:"from"`
	To        flowgraph.Vec `json:"to"`
	Width     float64       `json:"width"`
	Color     string        `json:"color"`
	Opacity   float64       `json:"opacity"`
	MarkerEnd string        `json:"markerEnd,omitempty"`
	LinkIndex int           `json:"linkIndex"`
}

// Circle is a node disc
type Circle struct {
	Center      flowgraph.Vec `json:"center"`
	Radius      float64       `json:"radius"`
	Fill        string        `json:"fill"`
	Stroke      string        `json:"stroke,omitempty"`
	StrokeWidth float64       `json:"strokeWidth,omitempty"`
	Opacity     float64       `json:"opacity"`
	NodeID      string        `json:"nodeId"`
}

// Text is a label anchored at its start
type Text struct {
	Position flowgraph.Vec `json:"position"`
	Content  string        `json:"content"`
	Size     float64       `json:"size"`
	Color    string        `json:"color"`
	Opacity  float64       `json:"opacity"`
	NodeID   string        `json:"nodeId,omitempty"`
}

func (MarkerDef) Kind() string { return "marker" }
func (Line) Kind() string      { return "line" }
func (Circle) Kind() string    { return "circle" }
func (Text) Kind() string      { return "text" }

// Stats describes the engine state a frame was emitted from
type Stats struct {
	Tick          uint64  `json:"tick"`
	Alpha         float64 `json:"alpha"`
	AlphaTarget   float64 `json:"alphaTarget"`
	KineticEnergy float64 `json:"kineticEnergy"`
	Running       bool    `json:"running"`
	Nodes         int     `json:"nodes"`
	Links         int     `json:"links"`
}

// Frame is the complete output of one tick
type Frame struct {
	EngineID   string                 `json:"engineId,omitempty"`
	Sequence   uint64                 `json:"sequence"`
	Width      float64                `json:"width"`
	Height     float64                `json:"height"`
	Background string                 `json:"background"`
	Transform  camera.Transform       `json:"transform"`
	Commands   []Command              `json:"-"`
	Selection  *interaction.Selection `json:"selection,omitempty"`
	Tooltip    *interaction.Tooltip   `json:"tooltip,omitempty"`
	Stats      Stats                  `json:"stats"`
}

// Count returns how many commands of the given kind the frame holds
func (f *Frame) Count(kind string) int {
	n := 0
	for _, c := range f.Commands {
		if c.Kind() == kind {
			n++
		}
	}
	return n
}

type commandEnvelope struct {
	Type string  `json:"type"`
	Data Command `json:"data"`
}

// MarshalJSON tags each command with its kind
func (f *Frame) MarshalJSON() ([]byte, error) {
	type frameAlias Frame
	envelopes := make([]commandEnvelope, len(f.Commands))
	for i, c := range f.Commands {
		envelopes[i] = commandEnvelope{Type: c.Kind(), Data: c}
	}
	return json.Marshal(struct {
		*frameAlias
		Commands []commandEnvelope `json:"commands"`
	}{
		frameAlias: (*frameAlias)(f),
		Commands:   envelopes,
	})
}
