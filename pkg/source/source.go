package source

import (
	"context"

	"github.com/otienoanyango/hansard-tales-sub004/pkg/hansard"
)

// Provider hands pre-extracted transcript text to the engine. Extraction
// itself happens upstream; providers only serve what was already extracted.
// Window offsets must be stable across calls.
type Provider interface {
	Document(ctx context.Context, id string) (*hansard.RawDocument, error)
	Window(ctx context.Context, ref hansard.SourceRef, marginLines int) (string, error)
}
