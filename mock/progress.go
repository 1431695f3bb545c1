package mock

import (
	"context"

	"github.com/fwojciec/propcrawl"
)

var _ propcrawl.ProgressStore = (*ProgressStore)(nil)

// ProgressStore is a mock implementation of propcrawl.ProgressStore.
type ProgressStore struct {
	LoadFn         func(ctx context.Context, key string) (*propcrawl.ShardProgress, error)
	SaveFn         func(ctx context.Context, progress *propcrawl.ShardProgress) error
	MarkCompleteFn func(ctx context.Context, key string) error
	CompletedFn    func(ctx context.Context) ([]string, error)
	ListFn         func(ctx context.Context) ([]*propcrawl.ShardProgress, error)
}

func (s *ProgressStore) Load(ctx context.Context, key string) (*propcrawl.ShardProgress, error) {
	return s.LoadFn(ctx, key)
}

func (s *ProgressStore) Save(ctx context.Context, progress *propcrawl.ShardProgress) error {
	return s.SaveFn(ctx, progress)
}

func (s *ProgressStore) MarkComplete(ctx context.Context, key string) error {
	return s.MarkCompleteFn(ctx, key)
}

func (s *ProgressStore) Completed(ctx context.Context) ([]string, error) {
	return s.CompletedFn(ctx)
}

func (s *ProgressStore) List(ctx context.Context) ([]*propcrawl.ShardProgress, error) {
	return s.ListFn(ctx)
}
