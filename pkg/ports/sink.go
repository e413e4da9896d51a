package ports

import (
	"context"

	"github.com/aretw0/tableau/pkg/domain"
)

// Sink receives committed transactions.
// Publish is called exactly once per committed transaction, with every
// mutation of that transaction, while the transaction scope is still held.
// An error aborts the commit: the registry is rolled back and the error is
// returned to the caller that opened the transaction.
type Sink interface {
	Publish(ctx context.Context, batch domain.Batch) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, batch domain.Batch) error

// Publish calls f.
func (f SinkFunc) Publish(ctx context.Context, batch domain.Batch) error {
	return f(ctx, batch)
}
