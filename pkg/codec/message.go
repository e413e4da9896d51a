package codec

import "github.com/aretw0/tableau/pkg/domain"

// Kind discriminates transport messages.
type Kind string

const (
	KindSnapshot Kind = "snapshot"
	KindBatch    Kind = "batch"
	KindGUI      Kind = "gui"
)

// Message is the envelope every transport sends. Exactly one of the payload
// fields is set, according to Kind.
type Message struct {
	Kind     Kind                  `json:"kind"`
	Seq      uint64                `json:"seq"`
	Nodes    []domain.Node         `json:"nodes,omitempty"`
	Mutation []domain.Mutation     `json:"mutations,omitempty"`
	Controls []domain.ControlState `json:"controls,omitempty"`
}

// SnapshotMessage wraps a full scene snapshot.
func SnapshotMessage(s domain.Snapshot) Message {
	return Message{Kind: KindSnapshot, Seq: s.Seq, Nodes: s.Nodes}
}

// BatchMessage wraps one committed transaction.
func BatchMessage(b domain.Batch) Message {
	return Message{Kind: KindBatch, Seq: b.Seq, Mutation: b.Mutations}
}

// GUIMessage wraps control states.
func GUIMessage(controls ...domain.ControlState) Message {
	return Message{Kind: KindGUI, Controls: controls}
}
