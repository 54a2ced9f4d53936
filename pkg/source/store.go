package source

import (
	"context"

	"github.com/otienoanyango/hansard-tales-sub004/pkg/hansard"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/store"
)

// StoreProvider serves documents already persisted to the engine's store,
// for reprocessing runs that need no upstream fetch.
type StoreProvider struct {
	docs interface {
		store.DocumentStore
		store.SourceStore
	}
}

func NewStoreProvider(docs interface {
	store.DocumentStore
	store.SourceStore
}) *StoreProvider {
	return &StoreProvider{docs: docs}
}

var _ Provider = (*StoreProvider)(nil)

func (p *StoreProvider) Document(ctx context.Context, id string) (*hansard.RawDocument, error) {
	return p.docs.DocumentByID(ctx, id)
}

func (p *StoreProvider) Window(ctx context.Context, ref hansard.SourceRef, marginLines int) (string, error) {
	return p.docs.Window(ctx, ref, marginLines)
}
