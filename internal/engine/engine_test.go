package engine_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamedex/gamedex/internal/engine"
	"github.com/gamedex/gamedex/internal/igdb"
	"github.com/gamedex/gamedex/internal/ratelimit"
	"github.com/gamedex/gamedex/internal/store/memory"
	"github.com/gamedex/gamedex/internal/storefront"
	"github.com/gamedex/gamedex/pkg/errors"
	"github.com/gamedex/gamedex/pkg/games"
)

// fakeAdapter scripts one storefront for engine tests.
type fakeAdapter struct {
	name  string
	fetch func(ctx context.Context, forceUpdate bool, emit storefront.EmitFunc) error
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Fetch(ctx context.Context, forceUpdate bool, emit storefront.EmitFunc) error {
	return f.fetch(ctx, forceUpdate, emit)
}

func (f *fakeAdapter) AdoptNativeID(existing, incoming *games.Game) {
	if incoming.SteamID != 0 {
		existing.SteamID = incoming.SteamID
	}
}

func (f *fakeAdapter) InjectNativeID(g *games.Game, nativeID string) {}

// recorder collects run events and progress fractions.
type recorder struct {
	events    []engine.RunEvent
	fractions []float64
}

func (r *recorder) options() []engine.Option {
	return []engine.Option{
		engine.WithEvents(func(ev engine.RunEvent) { r.events = append(r.events, ev) }),
		engine.WithProgress(func(f float64) { r.fractions = append(r.fractions, f) }),
		engine.WithRetryPolicy(3, time.Millisecond),
	}
}

func (r *recorder) count(match func(engine.RunEvent) bool) int {
	n := 0
	for _, ev := range r.events {
		if match(ev) {
			n++
		}
	}
	return n
}

func resolvedGame(igdbID int64, title string, playTime int64, source string) games.Game {
	return games.Game{
		Title:        title,
		SortingTitle: games.SortingTitle(title),
		IGDBID:       igdbID,
		PlayTime:     playTime,
		Sources:      []string{source},
		Platforms:    []string{"PC"},
	}
}

func TestSyncInsertsNewGames(t *testing.T) {
	store := memory.New()
	rec := &recorder{}
	adapter := &fakeAdapter{name: "Steam", fetch: func(ctx context.Context, _ bool, emit storefront.EmitFunc) error {
		emit(storefront.ExpectedCount{N: 1})
		emit(storefront.Loaded(resolvedGame(71, "Portal 2", 30, "Steam")))
		emit(storefront.FinishCount{})
		return nil
	}}

	eng := engine.New(store, []storefront.Adapter{adapter}, rec.options()...)
	require.NoError(t, eng.Sync(context.Background(), false))

	all, err := store.Games(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Portal 2", all[0].Title)
	assert.Equal(t, games.StatusPlayed, all[0].Status)

	assert.Contains(t, rec.events, engine.Info{Message: "Imported 1 new games"})
	assert.Contains(t, rec.events, engine.Finished{})
	assert.Equal(t, engine.NotLoading, rec.fractions[len(rec.fractions)-1])
}

func TestSyncMergesExistingGame(t *testing.T) {
	store := memory.New()
	existing := resolvedGame(71, "Portal 2", 100, "Steam")
	existing.Status = games.StatusPlayed
	require.NoError(t, store.Insert(context.Background(), &existing))

	adapter := &fakeAdapter{name: "Epic Games", fetch: func(ctx context.Context, _ bool, emit storefront.EmitFunc) error {
		incoming := resolvedGame(71, "Portal 2", 60, "Epic Games")
		incoming.SteamID = 400
		emit(storefront.Loaded(incoming))
		return nil
	}}

	rec := &recorder{}
	eng := engine.New(store, []storefront.Adapter{adapter}, rec.options()...)
	require.NoError(t, eng.Sync(context.Background(), false))

	all, err := store.Games(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	merged := all[0]
	// Playtime keeps the maximum, sources union, native id adopted.
	assert.Equal(t, int64(100), merged.PlayTime)
	assert.Equal(t, []string{"Epic Games", "Steam"}, merged.Sources)
	assert.Equal(t, int64(400), merged.SteamID)
	assert.Equal(t, games.StatusPlayed, merged.Status)
}

func TestSyncIdempotent(t *testing.T) {
	store := memory.New()
	adapter := &fakeAdapter{name: "Steam", fetch: func(ctx context.Context, _ bool, emit storefront.EmitFunc) error {
		emit(storefront.Loaded(resolvedGame(71, "Portal 2", 30, "Steam")))
		emit(storefront.Loaded(resolvedGame(7, "Hades", 0, "Steam")))
		return nil
	}}

	eng := engine.New(store, []storefront.Adapter{adapter})
	require.NoError(t, eng.Sync(context.Background(), false))
	require.NoError(t, eng.Sync(context.Background(), false))

	all, err := store.Games(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSyncRetriesTransientErrors(t *testing.T) {
	store := memory.New()
	attempts := 0
	adapter := &fakeAdapter{name: "GOG", fetch: func(ctx context.Context, _ bool, emit storefront.EmitFunc) error {
		attempts++
		if attempts <= 2 {
			return errors.NewAPIError("GOG", 429, "Too Many Requests")
		}
		emit(storefront.Loaded(resolvedGame(7, "Hades", 0, "GOG")))
		return nil
	}}

	rec := &recorder{}
	eng := engine.New(store, []storefront.Adapter{adapter}, rec.options()...)
	require.NoError(t, eng.Sync(context.Background(), false))

	assert.Equal(t, 3, attempts)
	errorMessages := rec.count(func(ev engine.RunEvent) bool {
		_, ok := ev.(engine.ErrorMessage)
		return ok
	})
	assert.Equal(t, 2, errorMessages)

	all, err := store.Games(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSyncExhaustsAttemptBudget(t *testing.T) {
	attempts := 0
	adapter := &fakeAdapter{name: "GOG", fetch: func(ctx context.Context, _ bool, _ storefront.EmitFunc) error {
		attempts++
		return errors.NewProtocolError("GOG", "bad response", nil)
	}}

	rec := &recorder{}
	eng := engine.New(memory.New(), []storefront.Adapter{adapter}, rec.options()...)
	// A storefront that never recovers does not abort the run.
	require.NoError(t, eng.Sync(context.Background(), false))
	assert.Equal(t, 3, attempts)
}

func TestSyncAuthExpired(t *testing.T) {
	attempts := 0
	adapter := &fakeAdapter{name: "Epic Games", fetch: func(ctx context.Context, _ bool, _ storefront.EmitFunc) error {
		attempts++
		return errors.NewAuthExpiredError("Epic Games", "refresh token expired")
	}}

	rec := &recorder{}
	eng := engine.New(memory.New(), []storefront.Adapter{adapter}, rec.options()...)
	require.NoError(t, eng.Sync(context.Background(), false))

	// No retry, exactly one logged-out notice.
	assert.Equal(t, 1, attempts)
	assert.Contains(t, rec.events, engine.LoggedOut{Storefront: "Epic Games"})
	assert.Zero(t, rec.count(func(ev engine.RunEvent) bool {
		_, ok := ev.(engine.ErrorMessage)
		return ok
	}))
}

func TestSyncNotConfiguredIsSilent(t *testing.T) {
	adapter := &fakeAdapter{name: "Itch", fetch: func(ctx context.Context, _ bool, _ storefront.EmitFunc) error {
		return errors.NewNotConfiguredError("Itch")
	}}

	rec := &recorder{}
	eng := engine.New(memory.New(), []storefront.Adapter{adapter}, rec.options()...)
	require.NoError(t, eng.Sync(context.Background(), false))

	// Only the summary events, no error or logged-out notices.
	assert.Contains(t, rec.events, engine.Info{Message: "Imported 0 new games"})
	assert.Len(t, rec.events, 2)
}

func TestSyncUnclassifiedErrorAborts(t *testing.T) {
	boom := errors.New("database locked")
	first := &fakeAdapter{name: "Steam", fetch: func(ctx context.Context, _ bool, _ storefront.EmitFunc) error {
		return boom
	}}
	second := &fakeAdapter{name: "GOG", fetch: func(ctx context.Context, _ bool, _ storefront.EmitFunc) error {
		t.Fatal("second adapter must not run after an abort")
		return nil
	}}

	rec := &recorder{}
	eng := engine.New(memory.New(), []storefront.Adapter{first, second}, rec.options()...)
	err := eng.Sync(context.Background(), false)
	assert.ErrorIs(t, err, boom)

	// An aborted run still closes out: Finished, progress reset, no summary.
	assert.Contains(t, rec.events, engine.Finished{})
	assert.Len(t, rec.events, 1)
	assert.Equal(t, engine.NotLoading, rec.fractions[len(rec.fractions)-1])
}

func TestSyncProgress(t *testing.T) {
	adapter := &fakeAdapter{name: "Steam", fetch: func(ctx context.Context, _ bool, emit storefront.EmitFunc) error {
		emit(storefront.ExpectedCount{N: 4})
		emit(storefront.Loaded(resolvedGame(1, "One", 0, "Steam")))
		emit(storefront.Loaded(resolvedGame(2, "Two", 0, "Steam")))
		emit(storefront.IncrementCount{})
		emit(storefront.FinishCount{})
		return nil
	}}

	rec := &recorder{}
	eng := engine.New(memory.New(), []storefront.Adapter{adapter}, rec.options()...)
	require.NoError(t, eng.Sync(context.Background(), false))

	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75, 1, engine.NotLoading}, rec.fractions)
}

func TestSyncMissingGamesSummary(t *testing.T) {
	placeholders := []games.Game{{Title: "Obscure Indie", PlayTime: 12}}
	adapter := &fakeAdapter{name: "Itch", fetch: func(ctx context.Context, _ bool, emit storefront.EmitFunc) error {
		emit(storefront.NonImported{Games: placeholders})
		return nil
	}}

	rec := &recorder{}
	eng := engine.New(memory.New(), []storefront.Adapter{adapter}, rec.options()...)
	require.NoError(t, eng.Sync(context.Background(), false))

	// The missing-games report replaces the new-game count.
	assert.Contains(t, rec.events, engine.MissingGames{
		ByStorefront: map[string][]games.Game{"Itch": placeholders},
	})
	assert.Zero(t, rec.count(func(ev engine.RunEvent) bool {
		_, ok := ev.(engine.Info)
		return ok
	}))
}

func TestSeedGenres(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		io.WriteString(w, `[{"id": 9, "name": "Puzzle"}, {"id": 31, "name": "Adventure"}]`)
	}))
	defer srv.Close()
	catalog := igdb.NewClient(ratelimit.NewGate(time.Millisecond), "test", igdb.WithBaseURL(srv.URL))

	store := memory.New()
	eng := engine.New(store, nil, engine.WithCatalog(catalog))
	require.NoError(t, eng.SeedGenres(context.Background()))

	genres, err := store.Genres(context.Background())
	require.NoError(t, err)
	require.Len(t, genres, 2)
	assert.Equal(t, "Puzzle", genres[0].Name)

	// A populated cache is not refetched.
	require.NoError(t, eng.SeedGenres(context.Background()))
	assert.Equal(t, 1, calls)
}
