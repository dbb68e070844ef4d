package storefront

import (
	"context"

	"github.com/gamedex/gamedex/pkg/games"
)

// Adapter enumerates one storefront's ownership and resolves it against
// the canonical catalog.
//
// Fetch fails with errors.ErrNotConfigured when no credential is present
// and errors.ErrAuthExpired when a refreshable credential can no longer be
// refreshed. With forceUpdate false, items whose storefront-native id is
// already persisted are skipped; the adapter re-emits the stored record
// with playtime raised to the larger value and the platform set unioned,
// which keeps repeat syncs idempotent.
type Adapter interface {
	// Name is the storefront's constant identifier ("Steam", "GOG", ...).
	Name() string

	// Fetch enumerates ownership and emits the event stream.
	Fetch(ctx context.Context, forceUpdate bool, emit EmitFunc) error

	// AdoptNativeID copies the storefront-specific id field from incoming
	// onto existing. The engine calls it when merging a resolved record
	// into a persisted one.
	AdoptNativeID(existing, incoming *games.Game)

	// InjectNativeID attaches a storefront-native id to a record. The
	// bulk resolver calls it so it can stay storefront-agnostic.
	InjectNativeID(g *games.Game, nativeID string)
}

// RefreshKnown produces the updated record for an already-imported game:
// playtime is raised monotonically and PC is unioned into the platforms.
// The second return reports whether anything actually changed, so callers
// can skip emitting no-op updates.
func RefreshKnown(existing *games.Game, playTime int64) (games.Game, bool) {
	updated := *existing
	updated.Platforms = games.Union(existing.Platforms, []string{"PC"})
	updated.PlayTime = max(existing.PlayTime, playTime)
	changed := updated.PlayTime != existing.PlayTime || len(updated.Platforms) != len(existing.Platforms)
	return updated, changed
}
