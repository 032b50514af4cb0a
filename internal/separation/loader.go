package separation

import (
	"context"
	"sync"
)

// Factory creates the process-wide model instance. Expected to be expensive;
// it runs at most once successfully.
type Factory func(ctx context.Context) (Model, error)

// Loader lazily initializes the shared separation model. The loaded instance
// is read-only and shared by every concurrent job; a failed load is retried
// on the next call.
type Loader struct {
	mu      sync.Mutex
	factory Factory
	model   Model
}

func NewLoader(factory Factory) *Loader {
	return &Loader{factory: factory}
}

// Get returns the shared model, loading it on first use. Concurrent callers
// block until the in-flight load finishes and then share its result.
func (l *Loader) Get(ctx context.Context) (Model, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.model != nil {
		return l.model, nil
	}

	model, err := l.factory(ctx)
	if err != nil {
		return nil, err
	}
	l.model = model
	return model, nil
}
