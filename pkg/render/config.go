// Package render turns the simulated graph and the camera transform into
// draw commands for an external surface.
package render

import (
	"fmt"
	"math"
	"sort"

	"github.com/dd0wney/cluso-flowviz/pkg/flowgraph"
	"github.com/dd0wney/cluso-flowviz/pkg/validation"
)

// VisualConfig holds every visual-encoding threshold. All sizes are in world
// units and scale with the camera.
type VisualConfig struct {
	// Node radius is clamp(sqrt((in+out)/RadiusScale), RadiusMin, RadiusMax)
	RadiusScale float64 `yaml:"radiusScale"`
	RadiusMin   float64 `yaml:"radiusMin"`
	RadiusMax   float64 `yaml:"radiusMax"`

	// Link width is max(WidthMin, sqrt(value/WidthScale))
	WidthScale float64 `yaml:"widthScale"`
	WidthMin   float64 `yaml:"widthMin"`

	CategoryColors map[flowgraph.Category]string `yaml:"categoryColors"`
	NeutralColor   string                        `yaml:"neutralColor"`
	FlowColors     map[flowgraph.FlowKind]string `yaml:"flowColors"`
	NeutralFlow    string                        `yaml:"neutralFlowColor"`

	DimOpacity float64 `yaml:"dimOpacity"`

	LabelMaxRunes int     `yaml:"labelMaxRunes"`
	Ellipsis      string  `yaml:"ellipsis"`
	LabelSize     float64 `yaml:"labelSize"`
	LabelOffset   float64 `yaml:"labelOffset"`
	LabelColor    string  `yaml:"labelColor"`
	ShowLabels    bool    `yaml:"showLabels"`

	ArrowSize           float64 `yaml:"arrowSize"`
	ParallelEdgeSpacing float64 `yaml:"parallelEdgeSpacing"`

	NodeStroke           string  `yaml:"nodeStroke"`
	NodeStrokeWidth      float64 `yaml:"nodeStrokeWidth"`
	SelectionStroke      string  `yaml:"selectionStroke"`
	SelectionStrokeWidth float64 `yaml:"selectionStrokeWidth"`

	Background string `yaml:"background"`
	// HitSlop widens link hit regions, in screen pixels
	HitSlop float64 `yaml:"hitSlop"`
}

// DefaultVisualConfig returns the reference encoding
func DefaultVisualConfig() VisualConfig {
	return VisualConfig{
		RadiusScale: 1_000_000,
		RadiusMin:   10,
		RadiusMax:   40,
		WidthScale:  5_000_000,
		WidthMin:    2,
		CategoryColors: map[flowgraph.Category]string{
			flowgraph.CategoryDonor:       "#1f77b4",
			flowgraph.CategoryRecipient:   "#2ca02c",
			flowgraph.CategoryImplementer: "#ff7f0e",
			flowgraph.CategorySector:      "#9467bd",
		},
		NeutralColor: "#9e9e9e",
		FlowColors: map[flowgraph.FlowKind]string{
			flowgraph.FlowCommitment:   "#6baed6",
			flowgraph.FlowDisbursement: "#31a354",
			flowgraph.FlowExpenditure:  "#e6550d",
		},
		NeutralFlow:          "#bdbdbd",
		DimOpacity:           0.2,
		LabelMaxRunes:        20,
		Ellipsis:             "...",
		LabelSize:            12,
		LabelOffset:          4,
		LabelColor:           "#333333",
		ShowLabels:           true,
		ArrowSize:            6,
		ParallelEdgeSpacing:  8,
		NodeStroke:           "#ffffff",
		NodeStrokeWidth:      1.5,
		SelectionStroke:      "#212121",
		SelectionStrokeWidth: 3,
		Background:           "#ffffff",
		HitSlop:              3,
	}
}

// Validate checks the encoding thresholds and colours
func (c VisualConfig) Validate() error {
	cv := validation.NewConfigValidator("VisualConfig").
		PositiveFloat("RadiusScale", c.RadiusScale).
		PositiveFloat("RadiusMin", c.RadiusMin).
		LessFloat("RadiusMin", c.RadiusMin, "RadiusMax", c.RadiusMax+1e-9).
		Finite("RadiusMax", c.RadiusMax).
		PositiveFloat("WidthScale", c.WidthScale).
		NonNegativeFloat("WidthMin", c.WidthMin).
		RangeFloat("DimOpacity", c.DimOpacity, 0, 1).
		Positive("LabelMaxRunes", c.LabelMaxRunes).
		PositiveFloat("LabelSize", c.LabelSize).
		NonNegativeFloat("ArrowSize", c.ArrowSize).
		NonNegativeFloat("ParallelEdgeSpacing", c.ParallelEdgeSpacing).
		NonNegativeFloat("NodeStrokeWidth", c.NodeStrokeWidth).
		NonNegativeFloat("SelectionStrokeWidth", c.SelectionStrokeWidth).
		NonNegativeFloat("HitSlop", c.HitSlop)

	colors := map[string]string{
		"NeutralColor":     c.NeutralColor,
		"NeutralFlowColor": c.NeutralFlow,
		"LabelColor":       c.LabelColor,
		"NodeStroke":       c.NodeStroke,
		"SelectionStroke":  c.SelectionStroke,
		"Background":       c.Background,
	}
	for k, v := range c.CategoryColors {
		colors[fmt.Sprintf("CategoryColors[%s]", k)] = v
	}
	for k, v := range c.FlowColors {
		colors[fmt.Sprintf("FlowColors[%s]", k)] = v
	}
	fields := make([]string, 0, len(colors))
	for field := range colors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		value := colors[field]
		cv.Custom(field, func() error {
			_, err := ParseColor(value)
			return err
		})
	}
	return cv.Validate()
}

// NodeRadius encodes a node's combined flow as a radius. Non-finite or
// negative totals collapse to the minimum.
func (c VisualConfig) NodeRadius(n *flowgraph.Node) float64 {
	return c.radiusFor(n.TotalInflow + n.TotalOutflow)
}

func (c VisualConfig) radiusFor(total float64) float64 {
	return flowgraph.Clamp(math.Sqrt(total/c.RadiusScale), c.RadiusMin, c.RadiusMax)
}

// LinkWidth encodes a link's value as a stroke width
func (c VisualConfig) LinkWidth(value float64) float64 {
	w := math.Sqrt(value / c.WidthScale)
	if !(w >= c.WidthMin) {
		return c.WidthMin
	}
	return w
}

// NodeColor returns the fill for a category, neutral when unknown
func (c VisualConfig) NodeColor(cat flowgraph.Category) string {
	if col, ok := c.CategoryColors[cat]; ok {
		return col
	}
	return c.NeutralColor
}

// FlowColor returns the stroke for a flow kind, neutral when unset or unknown
func (c VisualConfig) FlowColor(kind flowgraph.FlowKind) string {
	if col, ok := c.FlowColors[kind]; ok {
		return col
	}
	return c.NeutralFlow
}

// MarkerID names the arrow marker for a flow kind
func (c VisualConfig) MarkerID(kind flowgraph.FlowKind) string {
	if _, ok := c.FlowColors[kind]; ok {
		return "arrow-" + string(kind)
	}
	return markerNeutral
}

const markerNeutral = "arrow-neutral"

// Truncate shortens a display name to LabelMaxRunes runes plus the ellipsis
func (c VisualConfig) Truncate(name string) string {
	runes := []rune(name)
	if len(runes) <= c.LabelMaxRunes {
		return name
	}
	return string(runes[:c.LabelMaxRunes]) + c.Ellipsis
}
