package memory

import (
	"context"
	"sync"

	"github.com/aretw0/tableau/pkg/domain"
)

// Recorder implements ports.Sink by keeping every published batch.
// Safe for concurrent use.
type Recorder struct {
	mu      sync.RWMutex
	batches []domain.Batch
	err     error
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish records b, or returns the error set with FailWith.
func (r *Recorder) Publish(ctx context.Context, b domain.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	b.Mutations = append([]domain.Mutation(nil), b.Mutations...)
	r.batches = append(r.batches, b)
	return nil
}

// FailWith makes subsequent publishes fail with err; nil restores success.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Batches returns a copy of the recorded batches, oldest first.
func (r *Recorder) Batches() []domain.Batch {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Batch(nil), r.batches...)
}

// Last returns the most recent batch.
func (r *Recorder) Last() (domain.Batch, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.batches) == 0 {
		return domain.Batch{}, false
	}
	return r.batches[len(r.batches)-1], true
}

// Reset forgets the recorded batches.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = nil
}
