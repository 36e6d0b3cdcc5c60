package flowgraph

import (
	"strings"
)

// Transaction is one financial record between two organisations, as held by
// the dashboard's project ledger.
type Transaction struct {
	Provider     string   `json:"provider" yaml:"provider"`
	ProviderName string   `json:"providerName,omitempty" yaml:"providerName,omitempty"`
	ProviderRole Category `json:"providerRole,omitempty" yaml:"providerRole,omitempty"`
	Receiver     string   `json:"receiver" yaml:"receiver"`
	ReceiverName string   `json:"receiverName,omitempty" yaml:"receiverName,omitempty"`
	ReceiverRole Category `json:"receiverRole,omitempty" yaml:"receiverRole,omitempty"`
	Sector       string   `json:"sector,omitempty" yaml:"sector,omitempty"`
	Type         string   `json:"type" yaml:"type"`
	Amount       float64  `json:"amount" yaml:"amount"`
	AidType      string   `json:"aidType,omitempty" yaml:"aidType,omitempty"`
}

// FlowKindForTransaction maps a ledger transaction type to a flow kind.
// Unrecognised types stay unset.
func FlowKindForTransaction(txType string) FlowKind {
	switch strings.ToLower(strings.TrimSpace(txType)) {
	case "commitment", "total_commitment", "annual_commitment", "conditional_commitment":
		return FlowCommitment
	case "disbursement":
		return FlowDisbursement
	case "expenditure":
		return FlowExpenditure
	default:
		return FlowUnset
	}
}

// Aggregate turns ledger transactions into a descriptor. Each organisation
// becomes one node whose inflow and outflow totals sum its transactions; each
// transaction becomes its own link, so repeated flows between the same pair
// are kept as parallel links. Transactions missing either party are skipped.
// The result still has to pass Build.
func Aggregate(txs []Transaction) Descriptor {
	var desc Descriptor
	index := make(map[string]int)

	upsert := func(id, name string, role Category, sector string) int {
		if i, ok := index[id]; ok {
			spec := &desc.Nodes[i]
			if spec.Category == "" {
				spec.Category = role
			}
			if spec.Sector == "" {
				spec.Sector = sector
			}
			return i
		}
		if name == "" {
			name = id
		}
		desc.Nodes = append(desc.Nodes, NodeSpec{
			ID:          id,
			DisplayName: name,
			Category:    role,
			Sector:      sector,
		})
		index[id] = len(desc.Nodes) - 1
		return index[id]
	}

	for _, tx := range txs {
		if tx.Provider == "" || tx.Receiver == "" {
			continue
		}
		src := upsert(tx.Provider, tx.ProviderName, tx.ProviderRole, "")
		dst := upsert(tx.Receiver, tx.ReceiverName, tx.ReceiverRole, tx.Sector)
		desc.Nodes[src].TotalOutflow += tx.Amount
		desc.Nodes[dst].TotalInflow += tx.Amount
		desc.Links = append(desc.Links, LinkSpec{
			Source:   tx.Provider,
			Target:   tx.Receiver,
			Value:    tx.Amount,
			FlowKind: FlowKindForTransaction(tx.Type),
			AuxLabel: tx.AidType,
		})
	}
	return desc
}
