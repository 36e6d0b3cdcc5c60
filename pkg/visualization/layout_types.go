package visualization

import (
	"fmt"
	"math"

	"github.com/dd0wney/cluso-flowviz/pkg/flowgraph"
	"github.com/dd0wney/cluso-flowviz/pkg/validation"
)

// SeedLayout selects how nodes without a position are placed before the first tick
type SeedLayout string

const (
	SeedPhyllotaxis SeedLayout = "phyllotaxis"
	SeedCircular    SeedLayout = "circular"
	SeedLayered     SeedLayout = "layered"
)

// ForceConfig configures the force solver
type ForceConfig struct {
	// Link force. Target separation is min(LinkBaseDistance + sqrt(value/LinkValueScale), LinkMaxDistance).
	LinkBaseDistance float64 `yaml:"linkBaseDistance"`
	LinkValueScale   float64 `yaml:"linkValueScale"`
	LinkMaxDistance  float64 `yaml:"linkMaxDistance"`
	// LinkStrength overrides the per-link default of 1/min(degree(source), degree(target)) when > 0
	LinkStrength   float64 `yaml:"linkStrength"`
	LinkIterations int     `yaml:"linkIterations"`

	// Charge force. Negative strength repels.
	ChargeStrength float64 `yaml:"chargeStrength"`
	DistanceMin    float64 `yaml:"distanceMin"`
	// DistanceMax of 0 means unbounded
	DistanceMax        float64 `yaml:"distanceMax"`
	Theta              float64 `yaml:"theta"`
	BarnesHutThreshold int     `yaml:"barnesHutThreshold"`

	CenterStrength float64 `yaml:"centerStrength"`

	CollisionRadius     float64 `yaml:"collisionRadius"`
	CollisionStrength   float64 `yaml:"collisionStrength"`
	CollisionIterations int     `yaml:"collisionIterations"`

	// Friction is the share of velocity kept from one tick to the next
	Friction float64 `yaml:"friction"`

	Alpha       float64 `yaml:"alpha"`
	AlphaMin    float64 `yaml:"alphaMin"`
	AlphaDecay  float64 `yaml:"alphaDecay"`
	AlphaTarget float64 `yaml:"alphaTarget"`

	Seed       SeedLayout `yaml:"seed"`
	RandomSeed int64      `yaml:"randomSeed"`
}

// DefaultForceConfig returns the reference tuning
func DefaultForceConfig() ForceConfig {
	return ForceConfig{
		LinkBaseDistance:    50,
		LinkValueScale:      1_000_000,
		LinkMaxDistance:     200,
		LinkIterations:      1,
		ChargeStrength:      -300,
		DistanceMin:         1,
		Theta:               0.9,
		BarnesHutThreshold:  300,
		CenterStrength:      0.1,
		CollisionRadius:     30,
		CollisionStrength:   1,
		CollisionIterations: 1,
		Friction:            0.6,
		Alpha:               1,
		AlphaMin:            0.001,
		AlphaDecay:          0.0228,
		AlphaTarget:         0,
		Seed:                SeedPhyllotaxis,
		RandomSeed:          1,
	}
}

// Validate checks the force constants
func (c ForceConfig) Validate() error {
	return validation.NewConfigValidator("ForceConfig").
		NonNegativeFloat("LinkBaseDistance", c.LinkBaseDistance).
		PositiveFloat("LinkValueScale", c.LinkValueScale).
		LessFloat("LinkBaseDistance", c.LinkBaseDistance, "LinkMaxDistance", c.LinkMaxDistance+1e-9).
		NonNegativeFloat("LinkStrength", c.LinkStrength).
		Positive("LinkIterations", c.LinkIterations).
		Finite("ChargeStrength", c.ChargeStrength).
		PositiveFloat("DistanceMin", c.DistanceMin).
		NonNegativeFloat("DistanceMax", c.DistanceMax).
		When(c.DistanceMax > 0, func(cv *validation.ConfigValidator) {
			cv.LessFloat("DistanceMin", c.DistanceMin, "DistanceMax", c.DistanceMax)
		}).
		PositiveFloat("Theta", c.Theta).
		NonNegative("BarnesHutThreshold", c.BarnesHutThreshold).
		RangeFloat("CenterStrength", c.CenterStrength, 0, 1).
		NonNegativeFloat("CollisionRadius", c.CollisionRadius).
		RangeFloat("CollisionStrength", c.CollisionStrength, 0, 1).
		NonNegative("CollisionIterations", c.CollisionIterations).
		RangeFloat("Friction", c.Friction, 0, 1).
		RangeFloat("Alpha", c.Alpha, 0, 1).
		RangeFloat("AlphaMin", c.AlphaMin, 0, 1).
		RangeFloat("AlphaDecay", c.AlphaDecay, 0, 1).
		RangeFloat("AlphaTarget", c.AlphaTarget, 0, 1).
		OneOf("Seed", string(c.Seed), []string{string(SeedPhyllotaxis), string(SeedCircular), string(SeedLayered)}).
		Validate()
}

// LinkDistance returns the target separation for a link carrying value
func (c ForceConfig) LinkDistance(value float64) float64 {
	d := c.LinkBaseDistance + math.Sqrt(value/c.LinkValueScale)
	if d > c.LinkMaxDistance {
		return c.LinkMaxDistance
	}
	return d
}

// TickStats summarises one solver tick
type TickStats struct {
	// Active is false when the solver was halted and did not move anything
	Active        bool
	Alpha         float64
	KineticEnergy float64
	// Recovered lists nodes whose non-finite state was rolled back this tick
	Recovered []string
}

func (s TickStats) String() string {
	return fmt.Sprintf("active=%v alpha=%.4f energy=%.4f recovered=%d", s.Active, s.Alpha, s.KineticEnergy, len(s.Recovered))
}

// NodeViz is a node in an exported layout
type NodeViz struct {
	ID          string             `json:"id"`
	DisplayName string             `json:"displayName"`
	Category    flowgraph.Category `json:"category"`
	X           float64            `json:"x"`
	Y           float64            `json:"y"`
	Owner       string             `json:"owner"`
	Placed      bool               `json:"placed"`
}

// EdgeViz is a link in an exported layout
type EdgeViz struct {
	Source   string             `json:"source"`
	Target   string             `json:"target"`
	Value    float64            `json:"value"`
	FlowKind flowgraph.FlowKind `json:"flowKind,omitempty"`
	AuxLabel string             `json:"auxLabel,omitempty"`
}

// Visualization is a snapshot of a laid-out graph
type Visualization struct {
	Nodes  []NodeViz      `json:"nodes"`
	Edges  []EdgeViz      `json:"edges"`
	Bounds flowgraph.Rect `json:"bounds"`
	Alpha  float64        `json:"alpha"`
}
