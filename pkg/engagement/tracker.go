package engagement

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/Justvicky153/ratplacecopy/internal/store"
)

// Resolver obtains a best-effort caller identity, usually an IP address.
type Resolver interface {
	Resolve(ctx context.Context) (string, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context) (string, error)

func (f ResolverFunc) Resolve(ctx context.Context) (string, error) { return f(ctx) }

// lastFallback guards against two fallback identities sharing a clock
// reading. Fallbacks are not stable across restarts; that is accepted.
var lastFallback int64

// FallbackIdentity synthesizes a unique-enough identity for when the
// resolver fails. Consecutive calls always return distinct tokens.
func FallbackIdentity() string {
	now := time.Now().UnixNano()
	for {
		last := atomic.LoadInt64(&lastFallback)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastFallback, last, now) {
			break
		}
	}
	return "user-" + strconv.FormatInt(now, 36)
}

// Tracker manages the site-wide like toggle and visit/download event
// logging. Every operation is best-effort: failures never block or fail
// the user action that triggered them.
type Tracker struct {
	store    store.Store
	resolver Resolver
}

// NewTracker creates an engagement tracker.
func NewTracker(s store.Store, r Resolver) *Tracker {
	return &Tracker{store: s, resolver: r}
}

// ResolveIdentity returns an identity for the caller. The resolver is
// asked first; on failure a synthetic fallback is returned, so the
// caller always receives some identity.
func (t *Tracker) ResolveIdentity(ctx context.Context) string {
	if t.resolver != nil {
		if id, err := t.resolver.Resolve(ctx); err == nil && id != "" {
			return id
		}
	}
	return FallbackIdentity()
}

// LikeState returns the total like count and whether identity has
// already liked.
func (t *Tracker) LikeState(ctx context.Context, identity string) (count int, liked bool, err error) {
	count, err = t.store.LikeCount(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("like state: %w", err)
	}
	liked, err = t.store.HasLiked(ctx, identity)
	if err != nil {
		return 0, false, fmt.Errorf("like state: %w", err)
	}
	return count, liked, nil
}

// Like records a like for identity. Idempotent: a repeat like is a no-op
// that returns the current state. The count comes back from the same
// transaction as the insert, so no optimistic local increment is needed.
func (t *Tracker) Like(ctx context.Context, identity string) (count int, liked bool, err error) {
	count, _, err = t.store.AddLike(ctx, identity)
	if err != nil {
		return 0, false, fmt.Errorf("like: %w", err)
	}
	return count, true, nil
}

// RecordVisit logs a program detail view. Fire-and-forget.
func (t *Tracker) RecordVisit(ctx context.Context, programID, identity string) {
	if err := t.store.AddVisit(ctx, programID, identity); err != nil {
		fmt.Fprintf(os.Stderr, "record visit %s: %v\n", programID, err)
	}
}

// RecordDownload logs a program download. Fire-and-forget.
func (t *Tracker) RecordDownload(ctx context.Context, programID, identity string) {
	if err := t.store.AddDownload(ctx, programID, identity); err != nil {
		fmt.Fprintf(os.Stderr, "record download %s: %v\n", programID, err)
	}
}
