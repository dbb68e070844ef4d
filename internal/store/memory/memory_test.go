package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamedex/gamedex/internal/store/memory"
	"github.com/gamedex/gamedex/pkg/errors"
	"github.com/gamedex/gamedex/pkg/games"
)

func TestInsertAndLookup(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	g := games.Game{Title: "Portal 2", IGDBID: 71, SteamID: 400}
	require.NoError(t, store.Insert(ctx, &g))
	assert.NotZero(t, g.ID)

	t.Run("by igdb id", func(t *testing.T) {
		got, err := store.GameByIGDBID(ctx, 71)
		require.NoError(t, err)
		assert.Equal(t, "Portal 2", got.Title)
	})

	t.Run("by native id", func(t *testing.T) {
		got, err := store.GameByNativeID(ctx, "Steam", "400")
		require.NoError(t, err)
		assert.Equal(t, int64(71), got.IGDBID)
	})

	t.Run("miss is not found", func(t *testing.T) {
		_, err := store.GameByIGDBID(ctx, 9999)
		assert.True(t, errors.IsNotFound(err))

		_, err = store.GameByNativeID(ctx, "Steam", "500")
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("unset sentinel never matches", func(t *testing.T) {
		unresolved := games.Game{Title: "Placeholder"}
		require.NoError(t, store.Insert(ctx, &unresolved))

		_, err := store.GameByIGDBID(ctx, 0)
		assert.True(t, errors.IsNotFound(err))

		_, err = store.GameByNativeID(ctx, "Epic Games", "")
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestNativeIDPerStorefront(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	g := games.Game{
		Title:  "Rocket League",
		IGDBID: 11069,
		EpicID: "ns catalog1",
		GogID:  "https://www.gog.com/game/rocket_league",
		ItchID: "12345",
	}
	require.NoError(t, store.Insert(ctx, &g))

	for storefront, nativeID := range map[string]string{
		"Epic Games": "ns catalog1",
		"GOG":        "https://www.gog.com/game/rocket_league",
		"Itch":       "12345",
	} {
		got, err := store.GameByNativeID(ctx, storefront, nativeID)
		require.NoError(t, err, storefront)
		assert.Equal(t, int64(11069), got.IGDBID)
	}

	_, err := store.GameByNativeID(ctx, "Steam", "12345")
	assert.True(t, errors.IsNotFound(err))
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	g := games.Game{Title: "Hades", IGDBID: 113112}
	require.NoError(t, store.Insert(ctx, &g))

	g.PlayTime = 300
	require.NoError(t, store.Update(ctx, &g))

	got, err := store.GameByIGDBID(ctx, 113112)
	require.NoError(t, err)
	assert.Equal(t, int64(300), got.PlayTime)

	missing := games.Game{ID: 999, Title: "Ghost"}
	assert.True(t, errors.IsNotFound(store.Update(ctx, &missing)))
}

func TestLookupReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	g := games.Game{Title: "Celeste", IGDBID: 26226}
	require.NoError(t, store.Insert(ctx, &g))

	got, err := store.GameByIGDBID(ctx, 26226)
	require.NoError(t, err)
	got.Title = "Mutated"

	again, err := store.GameByIGDBID(ctx, 26226)
	require.NoError(t, err)
	assert.Equal(t, "Celeste", again.Title)
}

func TestGenres(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	empty, err := store.Genres(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, store.PutGenre(ctx, &games.Genre{IGDBID: 31, Name: "Adventure"}))
	require.NoError(t, store.PutGenre(ctx, &games.Genre{IGDBID: 9, Name: "Puzzle"}))
	// Upsert replaces by catalog id.
	require.NoError(t, store.PutGenre(ctx, &games.Genre{IGDBID: 31, Name: "Adventure!"}))

	genres, err := store.Genres(ctx)
	require.NoError(t, err)
	require.Len(t, genres, 2)
	assert.Equal(t, "Puzzle", genres[0].Name)
	assert.Equal(t, "Adventure!", genres[1].Name)
}
