package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// FanoutLoader writes each batch to every loader in order, stopping at the
// first failure. A retried batch is replayed to all loaders, so loaders must
// tolerate duplicates.
type FanoutLoader struct {
	loaders []BatchLoader
}

// NewFanoutLoader creates a FanoutLoader. Nil loaders are dropped.
func NewFanoutLoader(loaders ...BatchLoader) *FanoutLoader {
	f := &FanoutLoader{}
	for _, l := range loaders {
		if l != nil {
			f.loaders = append(f.loaders, l)
		}
	}
	return f
}

func (f *FanoutLoader) LoadBatch(ctx context.Context, events []domain.QuakeEvent) error {
	for i, l := range f.loaders {
		if err := l.LoadBatch(ctx, events); err != nil {
			return fmt.Errorf("fanout loader %d: %w", i, err)
		}
	}
	return nil
}
