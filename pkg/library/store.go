// Package library defines the narrow contracts the synchronization core
// consumes from its collaborators: the persisted game catalog and the
// per-storefront credential sources. Implementations live under
// internal/store and internal/config.
package library

import (
	"context"

	"github.com/gamedex/gamedex/pkg/games"
)

// Store is the keyed record store holding the user's collection.
//
// Lookups that find nothing return errors.ErrNotFound. The reconciliation
// engine is the only writer during a sync run; reads and writes are
// individual operations with no surrounding transaction.
type Store interface {
	// GameByIGDBID returns the record resolved to the given canonical
	// catalog id.
	GameByIGDBID(ctx context.Context, igdbID int64) (*games.Game, error)

	// GameByNativeID returns the record carrying the given
	// storefront-native id. The storefront argument is an adapter name
	// as returned by Adapter.Name.
	GameByNativeID(ctx context.Context, storefront, nativeID string) (*games.Game, error)

	// Insert adds a new record and assigns its store key.
	Insert(ctx context.Context, g *games.Game) error

	// Update overwrites the record with the same store key.
	Update(ctx context.Context, g *games.Game) error

	// Games lists all records.
	Games(ctx context.Context) ([]games.Game, error)

	// Genres lists the cached IGDB genres.
	Genres(ctx context.Context) ([]games.Genre, error)

	// PutGenre inserts or refreshes one cached genre.
	PutGenre(ctx context.Context, g *games.Genre) error
}
