package storage

import (
	"context"
	"errors"
	"log/slog"
	"sort"
)

// FallbackObserver is told each time a call is served by the secondary backend.
type FallbackObserver interface {
	ObserveCacheFallback(op string)
}

// Fallback tries primary first and serves the call from secondary when the
// primary fails. A primary miss also consults secondary so writes made during
// an outage stay readable.
type Fallback struct {
	primary   Backend
	secondary Backend
	observer  FallbackObserver
}

func NewFallback(primary, secondary Backend, observer FallbackObserver) *Fallback {
	return &Fallback{primary: primary, secondary: secondary, observer: observer}
}

func (f *Fallback) degrade(op, key string, err error) {
	slog.Warn("primary cache backend failed, using local", "op", op, "key", key, "error", err)
	if f.observer != nil {
		f.observer.ObserveCacheFallback(op)
	}
}

func (f *Fallback) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := f.primary.Get(ctx, key)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, ErrNotFound) {
		f.degrade("get", key, err)
	}
	return f.secondary.Get(ctx, key)
}

func (f *Fallback) Put(ctx context.Context, key string, data []byte) error {
	err := f.primary.Put(ctx, key, data)
	if err == nil {
		return nil
	}
	f.degrade("put", key, err)
	return f.secondary.Put(ctx, key, data)
}

// Delete removes key from both backends. It reports ErrNotFound only when
// neither held the key.
func (f *Fallback) Delete(ctx context.Context, key string) error {
	perr := f.primary.Delete(ctx, key)
	if perr != nil && !errors.Is(perr, ErrNotFound) {
		f.degrade("delete", key, perr)
	}
	serr := f.secondary.Delete(ctx, key)
	switch {
	case perr == nil || serr == nil:
		return nil
	case errors.Is(perr, ErrNotFound) && errors.Is(serr, ErrNotFound):
		return ErrNotFound
	case !errors.Is(serr, ErrNotFound):
		return serr
	default:
		return ErrNotFound
	}
}

// List merges the key sets of both backends.
func (f *Fallback) List(ctx context.Context, prefix string) ([]string, error) {
	seen := map[string]struct{}{}
	keys, err := f.primary.List(ctx, prefix)
	if err != nil {
		f.degrade("list", prefix, err)
	}
	local, lerr := f.secondary.List(ctx, prefix)
	if err != nil && lerr != nil {
		return nil, lerr
	}

	var out []string
	for _, k := range append(keys, local...) {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

// Ping succeeds when either backend is reachable.
func (f *Fallback) Ping(ctx context.Context) error {
	if err := f.primary.Ping(ctx); err != nil {
		f.degrade("ping", "", err)
		return f.secondary.Ping(ctx)
	}
	return nil
}
