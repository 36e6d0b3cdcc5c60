package flowgraph

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func threeNodeDescriptor() Descriptor {
	return Descriptor{
		Nodes: []NodeSpec{
			{ID: "A", DisplayName: "Alpha", Category: CategoryDonor, TotalOutflow: 10},
			{ID: "B", DisplayName: "Beta", Category: CategoryRecipient, TotalInflow: 10},
			{ID: "C", DisplayName: "Gamma", Category: CategorySector},
		},
		Links: []LinkSpec{
			{Source: "A", Target: "B", Value: 10, FlowKind: FlowDisbursement},
		},
	}
}

func TestBuildResolvesLinks(t *testing.T) {
	g, err := Build(threeNodeDescriptor())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if g.Len() != 3 {
		t.Errorf("Expected 3 nodes, got %d", g.Len())
	}
	if len(g.Links) != 1 {
		t.Fatalf("Expected 1 link, got %d", len(g.Links))
	}

	l := g.Links[0]
	if l.Source.ID != "A" || l.Target.ID != "B" {
		t.Errorf("Link resolved to %s->%s, want A->B", l.Source.ID, l.Target.ID)
	}
	if l.ParallelCount != 1 || l.Parallel != 0 {
		t.Errorf("Single link parallel rank = %d/%d, want 0/1", l.Parallel, l.ParallelCount)
	}

	a, _ := g.Node("A")
	c, _ := g.Node("C")
	if g.Degree(a) != 1 {
		t.Errorf("Degree(A) = %d, want 1", g.Degree(a))
	}
	if g.Degree(c) != 0 {
		t.Errorf("Degree(C) = %d, want 0", g.Degree(c))
	}
	for _, n := range g.Nodes {
		if n.Placed {
			t.Errorf("Node %s should have no position before the first tick", n.ID)
		}
		if !n.Free() {
			t.Errorf("Node %s should start free", n.ID)
		}
	}
}

func TestBuildRejectsDanglingLink(t *testing.T) {
	desc := Descriptor{
		Nodes: []NodeSpec{{ID: "X"}},
		Links: []LinkSpec{{Source: "X", Target: "Y", Value: 1}},
	}

	g, err := Build(desc)
	if err == nil {
		t.Fatal("Expected construction to fail for a dangling target")
	}
	if g != nil {
		t.Error("A rejected descriptor must not yield a graph")
	}
	if !errors.Is(err, ErrDanglingLink) {
		t.Errorf("Expected ErrDanglingLink, got %v", err)
	}

	var ce *ConstructionError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected a *ConstructionError in %v", err)
	}
	if ce.Field != "target" || ce.ID != "X->Y" {
		t.Errorf("Error points at %s field %s, want X->Y field target", ce.ID, ce.Field)
	}
}

func TestBuildCollectsEveryDefect(t *testing.T) {
	desc := Descriptor{
		Nodes: []NodeSpec{
			{ID: "A"},
			{ID: "A"},
			{ID: "", TotalInflow: 1},
			{ID: "B", TotalOutflow: -5},
			{ID: "C", TotalInflow: math.NaN()},
		},
		Links: []LinkSpec{
			{Source: "A", Target: "B", Value: -1},
			{Source: "Q", Target: "A", Value: 1},
			{Source: "A", Target: "B", Value: math.Inf(1)},
		},
	}

	_, err := Build(desc)
	if err == nil {
		t.Fatal("Expected construction to fail")
	}

	var errs ConstructionErrors
	if !errors.As(err, &errs) {
		t.Fatalf("Expected ConstructionErrors, got %T", err)
	}

	want := map[string]int{
		"duplicate_node":   1,
		"empty_id":         1,
		"negative_value":   2,
		"non_finite_value": 2,
		"dangling_link":    1,
	}
	got := make(map[string]int)
	for _, r := range errs.Reasons() {
		got[r]++
	}
	for reason, n := range want {
		if got[reason] != n {
			t.Errorf("reason %s: got %d errors, want %d (all: %v)", reason, got[reason], n, err)
		}
	}
}

func TestBuildEmptyGraph(t *testing.T) {
	g, err := Build(Descriptor{})
	if err != nil {
		t.Fatalf("An empty graph is valid, got %v", err)
	}
	if g.Len() != 0 {
		t.Errorf("Expected no nodes, got %d", g.Len())
	}
}

func TestParallelLinksKept(t *testing.T) {
	desc := Descriptor{
		Nodes: []NodeSpec{{ID: "A"}, {ID: "B"}},
		Links: []LinkSpec{
			{Source: "A", Target: "B", Value: 1, FlowKind: FlowCommitment},
			{Source: "A", Target: "B", Value: 2, FlowKind: FlowDisbursement},
			{Source: "B", Target: "A", Value: 3},
		},
	}

	g, err := Build(desc)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(g.Links) != 3 {
		t.Fatalf("Parallel links must not be merged, got %d links", len(g.Links))
	}

	seen := make(map[int]bool)
	for _, l := range g.Links {
		if l.ParallelCount != 3 {
			t.Errorf("Link %d ParallelCount = %d, want 3", l.Index, l.ParallelCount)
		}
		if seen[l.Parallel] {
			t.Errorf("Duplicate parallel rank %d", l.Parallel)
		}
		seen[l.Parallel] = true
	}
}

func TestIsConnected(t *testing.T) {
	g, err := Build(threeNodeDescriptor())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	tests := []struct {
		hovered string
		id      string
		want    bool
	}{
		{"A", "A", true},
		{"A", "B", true},
		{"A", "C", false},
		{"B", "A", true},
		{"C", "C", true},
		{"C", "A", false},
		{"C", "B", false},
		{"missing", "A", false},
	}

	for _, tt := range tests {
		if got := g.IsConnected(tt.hovered, tt.id); got != tt.want {
			t.Errorf("IsConnected(%s, %s) = %v, want %v", tt.hovered, tt.id, got, tt.want)
		}
	}

	set := g.ConnectedSet("A")
	if len(set) != 2 {
		t.Errorf("ConnectedSet(A) has %d members, want 2", len(set))
	}
	if got := g.Neighbors("B"); len(got) != 1 || got[0] != "A" {
		t.Errorf("Neighbors(B) = %v, want [A]", got)
	}
}

func TestDescriptorPinnedNode(t *testing.T) {
	desc := threeNodeDescriptor()
	desc.Nodes[0].Pinned = &Vec{X: 100, Y: 100}

	g, err := Build(desc)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	a, _ := g.Node("A")
	if a.Owner != OwnerPinned {
		t.Errorf("Owner = %v, want %v", a.Owner, OwnerPinned)
	}
	if a.Position != (Vec{X: 100, Y: 100}) || !a.Placed {
		t.Errorf("Pinned node position = %+v placed=%v", a.Position, a.Placed)
	}
	if a.Release(OwnerDragged) || a.Release(OwnerPinned) {
		t.Error("A descriptor pin must never be released")
	}
}

func TestPinPrecedence(t *testing.T) {
	n := &Node{ID: "n"}

	if !n.PinAt(OwnerFocused, Vec{X: 1, Y: 1}) {
		t.Fatal("Focus pin on a free node should succeed")
	}
	if !n.PinAt(OwnerDragged, Vec{X: 2, Y: 2}) {
		t.Fatal("Drag should take over a focus pin")
	}
	if n.PinAt(OwnerFocused, Vec{X: 3, Y: 3}) {
		t.Error("Focus must not displace a drag")
	}
	if n.Release(OwnerFocused) {
		t.Error("Focus cannot release a node it does not own")
	}
	if !n.Release(OwnerDragged) || !n.Free() {
		t.Error("Drag release should free the node")
	}
}

func TestDecodeDescriptorYAML(t *testing.T) {
	src := `
nodes:
  - id: gov
    displayName: Government
    category: donor
    totalOutflow: 5000000
  - id: ngo
    displayName: Field NGO
    category: implementer
    totalInflow: 5000000
links:
  - source: gov
    target: ngo
    value: 5000000
    flowKind: disbursement
    auxLabel: C01
initialFocusNodeId: ngo
`
	desc, err := DecodeDescriptor(strings.NewReader(src), FormatYAML)
	if err != nil {
		t.Fatalf("DecodeDescriptor failed: %v", err)
	}
	if len(desc.Nodes) != 2 || len(desc.Links) != 1 {
		t.Fatalf("Decoded %d nodes / %d links", len(desc.Nodes), len(desc.Links))
	}
	if desc.Links[0].FlowKind != FlowDisbursement || desc.Links[0].AuxLabel != "C01" {
		t.Errorf("Link decoded as %+v", desc.Links[0])
	}
	if desc.InitialFocusNodeID != "ngo" {
		t.Errorf("InitialFocusNodeID = %q", desc.InitialFocusNodeID)
	}
}

func TestDecodeDescriptorJSONRejectsUnknownFields(t *testing.T) {
	_, err := DecodeDescriptor(strings.NewReader(`{"nodes":[],"edges":[]}`), FormatJSON)
	if err == nil {
		t.Error("Expected unknown field to be rejected")
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]Format{
		"graph.yaml": FormatYAML,
		"graph.YML":  FormatYAML,
		"graph.json": FormatJSON,
		"graph":      FormatJSON,
	}
	for path, want := range tests {
		if got := FormatFromPath(path); got != want {
			t.Errorf("FormatFromPath(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestAggregate(t *testing.T) {
	txs := []Transaction{
		{Provider: "d1", ProviderRole: CategoryDonor, Receiver: "fund", ReceiverRole: CategoryRecipient, Type: "commitment", Amount: 3e6},
		{Provider: "d1", ProviderRole: CategoryDonor, Receiver: "fund", Type: "disbursement", Amount: 2e6, AidType: "C01"},
		{Provider: "fund", Receiver: "act", ReceiverRole: CategoryImplementer, Sector: "Health", Type: "expenditure", Amount: 1e6},
		{Provider: "", Receiver: "act", Amount: 9},
	}

	desc := Aggregate(txs)
	g, err := Build(desc)
	if err != nil {
		t.Fatalf("Aggregated descriptor should build: %v", err)
	}
	if g.Len() != 3 || len(g.Links) != 3 {
		t.Fatalf("Got %d nodes / %d links, want 3/3", g.Len(), len(g.Links))
	}

	fund, _ := g.Node("fund")
	if fund.TotalInflow != 5e6 || fund.TotalOutflow != 1e6 {
		t.Errorf("fund totals = %v in / %v out", fund.TotalInflow, fund.TotalOutflow)
	}
	if fund.Category != CategoryRecipient {
		t.Errorf("fund category = %q", fund.Category)
	}

	act, _ := g.Node("act")
	if act.Sector != "Health" {
		t.Errorf("act sector = %q", act.Sector)
	}

	kinds := []FlowKind{FlowCommitment, FlowDisbursement, FlowExpenditure}
	for i, l := range g.Links {
		if l.FlowKind != kinds[i] {
			t.Errorf("link %d kind = %q, want %q", i, l.FlowKind, kinds[i])
		}
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(5.0, 10, 40); got != 10 {
		t.Errorf("Clamp below = %v", got)
	}
	if got := Clamp(50.0, 10, 40); got != 40 {
		t.Errorf("Clamp above = %v", got)
	}
	if got := Clamp(math.NaN(), 10, 40); got != 10 {
		t.Errorf("Clamp NaN = %v", got)
	}
}
