package engine

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-flowviz/pkg/flowgraph"
	"github.com/dd0wney/cluso-flowviz/pkg/render"
)

// fundDescriptor is three donors paying $3M each into a fund that spends
// $4M and $5M on two activities
func fundDescriptor() flowgraph.Descriptor {
	return flowgraph.Aggregate([]flowgraph.Transaction{
		{Provider: "donor-1", ProviderRole: flowgraph.CategoryDonor, Receiver: "fund", ReceiverRole: flowgraph.CategoryRecipient, Type: "disbursement", Amount: 3e6},
		{Provider: "donor-2", ProviderRole: flowgraph.CategoryDonor, Receiver: "fund", ReceiverRole: flowgraph.CategoryRecipient, Type: "disbursement", Amount: 3e6},
		{Provider: "donor-3", ProviderRole: flowgraph.CategoryDonor, Receiver: "fund", ReceiverRole: flowgraph.CategoryRecipient, Type: "disbursement", Amount: 3e6},
		{Provider: "fund", Receiver: "activity-1", ReceiverRole: flowgraph.CategoryImplementer, Type: "expenditure", Amount: 4e6},
		{Provider: "fund", Receiver: "activity-2", ReceiverRole: flowgraph.CategoryImplementer, Type: "expenditure", Amount: 5e6},
	})
}

func lineWidths(frame *render.Frame) map[int]float64 {
	out := make(map[int]float64)
	for _, c := range frame.Commands {
		if l, ok := c.(render.Line); ok {
			out[l.LinkIndex] = l.Width / frame.Transform.K
		}
	}
	return out
}

func TestFundScenario(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Visual.WidthMin = 0.1
	desc := fundDescriptor()
	desc.InitialFocusNodeID = "fund"

	e, err := New(desc, Options{Config: &cfg})
	require.NoError(t, err)
	defer e.Dispose()

	frame, err := e.Settle(3000, 16)
	require.NoError(t, err)
	assert.False(t, e.Running(), "solver should settle")
	assert.False(t, e.Animating(), "initial focus should complete")

	fund, ok := e.Graph().Node("fund")
	require.True(t, ok)
	assert.Equal(t, 9e6, fund.TotalInflow)
	assert.Equal(t, 9e6, fund.TotalOutflow)
	assert.True(t, fund.Free(), "focus pin should be released")

	// sqrt(18) is below the floor
	assert.Equal(t, 10.0, cfg.Visual.NodeRadius(fund))

	widths := lineWidths(frame)
	require.Len(t, widths, 5)
	w4, w5 := widths[3], widths[4]
	assert.InDelta(t, math.Sqrt(4.0/5.0), w4, 1e-9)
	assert.InDelta(t, 1.0, w5, 1e-9)
	assert.Less(t, w4, w5)

	for _, n := range e.Graph().Nodes {
		assert.True(t, n.Position.IsFinite(), "%s has a non-finite position", n.ID)
	}
	for i, a := range e.Graph().Nodes {
		for _, b := range e.Graph().Nodes[i+1:] {
			assert.Greater(t, a.Position.Sub(b.Position).Len(), 40.0, "%s and %s overlap", a.ID, b.ID)
		}
	}

	assert.Equal(t, 1.5, frame.Transform.K, "camera should end at the focus scale")

	data, err := json.Marshal(frame)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"circle"`)
}

func TestFundScenarioDefaultWidthsFloor(t *testing.T) {
	e, err := New(fundDescriptor(), Options{})
	require.NoError(t, err)
	defer e.Dispose()

	frame, err := e.Tick(16)
	require.NoError(t, err)

	for idx, w := range lineWidths(frame) {
		assert.Equal(t, 2.0, w, "link %d should sit on the width floor", idx)
	}
}

func TestFundScenarioHover(t *testing.T) {
	e, err := New(fundDescriptor(), Options{})
	require.NoError(t, err)
	defer e.Dispose()

	_, err = e.Settle(3000, 16)
	require.NoError(t, err)

	donor, _ := e.Graph().Node("donor-1")
	at := e.Transform().Apply(donor.Position)
	require.NoError(t, e.OnPointerMove(at, e.HitTest(at)))

	assert.True(t, e.IsConnected("donor-1"))
	assert.True(t, e.IsConnected("fund"))
	assert.False(t, e.IsConnected("donor-2"))
	assert.False(t, e.IsConnected("activity-1"))
}
