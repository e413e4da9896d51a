package domain

import (
	"context"
	"time"
)

// TransactionEvent describes a finished transaction.
type TransactionEvent struct {
	Seq       uint64        `json:"seq,omitempty"`
	Mutations int           `json:"mutations"`
	Duration  time.Duration `json:"duration"`
	Err       error         `json:"-"`
}

// TransitionEvent describes a committed playback frame change.
type TransitionEvent struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// ViewerEvent describes a viewer connecting to or leaving a transport.
type ViewerEvent struct {
	ViewerID  string `json:"viewer_id"`
	Transport string `json:"transport"`
	// Evicted is set when the viewer was dropped for falling behind.
	Evicted bool `json:"evicted,omitempty"`
}

// LifecycleHooks defines callbacks for observability. Nil members are skipped.
type LifecycleHooks struct {
	OnCommit      func(context.Context, *TransactionEvent)
	OnRollback    func(context.Context, *TransactionEvent)
	OnTransition  func(context.Context, *TransitionEvent)
	OnTick        func(context.Context)
	OnViewerJoin  func(context.Context, *ViewerEvent)
	OnViewerLeave func(context.Context, *ViewerEvent)
}
