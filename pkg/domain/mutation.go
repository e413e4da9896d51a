package domain

// Op is the kind of a mutation.
type Op string

const (
	// OpUpsert creates or replaces the node at Path; Value holds the full Node.
	OpUpsert Op = "upsert"
	// OpSet assigns Value to Field of the node at Path.
	OpSet Op = "set"
	// OpRemove deletes the node at Path and its subtree.
	OpRemove Op = "remove"
)

// Mutation is one entry of a transaction.
type Mutation struct {
	Op    Op     `json:"op"`
	Path  string `json:"path"`
	Field Field  `json:"field,omitempty"`
	Value any    `json:"value,omitempty"`
}

// Batch is the unit handed to a Sink: every mutation of one committed
// transaction, in the order they were queued.
type Batch struct {
	// Seq increases by one with every committed transaction of a registry.
	Seq       uint64     `json:"seq"`
	Mutations []Mutation `json:"mutations"`
}

// Snapshot is the full committed state of a registry at Seq.
// Nodes are ordered parents-first so that replaying them as upserts
// never violates the parent invariant.
type Snapshot struct {
	Seq   uint64 `json:"seq"`
	Nodes []Node `json:"nodes"`
}
