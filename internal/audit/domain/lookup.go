package domain

import (
	"context"
	"errors"
)

// Resolution is the outcome of a live invite check. MemberCount is approximate.
type Resolution struct {
	Valid       bool
	MemberCount int
	ErrorDetail string
}

// DirectoryLookup checks whether an invite reference still resolves.
// Implementations report dead or malformed invites as Valid=false rather than
// returning an error; a returned error is treated the same way by the engine,
// except ErrDirectoryUnavailable, which aborts the run.
type DirectoryLookup interface {
	Resolve(ctx context.Context, inviteReference string) (Resolution, error)
}

// ErrDirectoryUnavailable means no invite can be checked at all, so no
// partner may be judged on the lookup.
var ErrDirectoryUnavailable = errors.New("directory_unavailable")

// DirectoryLookupFunc adapts a function to DirectoryLookup.
type DirectoryLookupFunc func(ctx context.Context, inviteReference string) (Resolution, error)

func (f DirectoryLookupFunc) Resolve(ctx context.Context, inviteReference string) (Resolution, error) {
	return f(ctx, inviteReference)
}
