package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/tableau/pkg/domain"
)

// LoggingHooks logs lifecycle events. Commits and ticks are logged at Debug
// level since playback produces one per frame.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCommit: func(ctx context.Context, e *domain.TransactionEvent) {
			logger.DebugContext(ctx, "tx_commit", "seq", e.Seq, "mutations", e.Mutations, "duration", e.Duration)
		},
		OnRollback: func(ctx context.Context, e *domain.TransactionEvent) {
			logger.WarnContext(ctx, "tx_rollback", "mutations", e.Mutations, "error", e.Err)
		},
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.DebugContext(ctx, "frame_transition", "from", e.From, "to", e.To)
		},
		OnViewerJoin: func(ctx context.Context, e *domain.ViewerEvent) {
			logger.InfoContext(ctx, "viewer_join", "viewer_id", e.ViewerID, "transport", e.Transport)
		},
		OnViewerLeave: func(ctx context.Context, e *domain.ViewerEvent) {
			logger.InfoContext(ctx, "viewer_leave", "viewer_id", e.ViewerID, "transport", e.Transport, "evicted", e.Evicted)
		},
	}
}

// Merge returns hooks that call every non-nil member of each argument, in
// argument order.
func Merge(all ...domain.LifecycleHooks) domain.LifecycleHooks {
	var merged domain.LifecycleHooks
	for _, h := range all {
		merged.OnCommit = chain(merged.OnCommit, h.OnCommit)
		merged.OnRollback = chain(merged.OnRollback, h.OnRollback)
		merged.OnTransition = chain(merged.OnTransition, h.OnTransition)
		merged.OnViewerJoin = chain(merged.OnViewerJoin, h.OnViewerJoin)
		merged.OnViewerLeave = chain(merged.OnViewerLeave, h.OnViewerLeave)
		if h.OnTick != nil {
			prev, next := merged.OnTick, h.OnTick
			merged.OnTick = func(ctx context.Context) {
				if prev != nil {
					prev(ctx)
				}
				next(ctx)
			}
		}
	}
	return merged
}

func chain[E any](prev, next func(context.Context, E)) func(context.Context, E) {
	switch {
	case next == nil:
		return prev
	case prev == nil:
		return next
	}
	return func(ctx context.Context, e E) {
		prev(ctx, e)
		next(ctx, e)
	}
}
