package scene

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aretw0/tableau/internal/logging"
	"github.com/aretw0/tableau/pkg/domain"
	"github.com/aretw0/tableau/pkg/ports"
)

// Fanout publishes every batch to each sink in order.
// Every sink is attempted; the joined errors of the failing ones are returned,
// which aborts the commit. Wrap sinks whose delivery is optional in BestEffort.
func Fanout(sinks ...ports.Sink) ports.Sink {
	return ports.SinkFunc(func(ctx context.Context, b domain.Batch) error {
		var errs []error
		for _, s := range sinks {
			if s == nil {
				continue
			}
			if err := s.Publish(ctx, b); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// BestEffort logs publish failures of sink instead of returning them.
func BestEffort(sink ports.Sink, logger *slog.Logger) ports.Sink {
	if logger == nil {
		logger = logging.NewNop()
	}
	return ports.SinkFunc(func(ctx context.Context, b domain.Batch) error {
		if err := sink.Publish(ctx, b); err != nil {
			logger.Warn("Best-effort sink failed", "seq", b.Seq, "err", err)
		}
		return nil
	})
}
