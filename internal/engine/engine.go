// Package engine drives the reconciliation run: it executes the
// storefront adapters in sequence, merges their event streams into the
// persisted catalog, tracks progress, classifies failures, and reports
// the run summary.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/gamedex/gamedex/internal/igdb"
	"github.com/gamedex/gamedex/internal/storefront"
	"github.com/gamedex/gamedex/pkg/errors"
	"github.com/gamedex/gamedex/pkg/games"
	"github.com/gamedex/gamedex/pkg/library"
	"github.com/gamedex/gamedex/pkg/logging"
)

// Defaults for the retry policy.
const (
	defaultAttempts   = 3
	defaultRetryDelay = 5 * time.Second
)

// Engine reconciles adapter event streams into the persisted catalog.
// Adapters run strictly one at a time; the engine is the catalog's only
// writer during a run.
type Engine struct {
	store    library.Store
	adapters []storefront.Adapter
	catalog  *igdb.Client

	progress   ProgressFunc
	events     EventFunc
	attempts   int
	retryDelay time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithProgress sets the progress sink.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Engine) { e.progress = fn }
}

// WithEvents sets the run-event sink.
func WithEvents(fn EventFunc) Option {
	return func(e *Engine) { e.events = fn }
}

// WithCatalog attaches a catalog client, enabling genre seeding.
func WithCatalog(c *igdb.Client) Option {
	return func(e *Engine) { e.catalog = c }
}

// WithRetryPolicy overrides the per-adapter attempt budget and the delay
// between attempts. Used by tests.
func WithRetryPolicy(attempts int, delay time.Duration) Option {
	return func(e *Engine) {
		e.attempts = attempts
		e.retryDelay = delay
	}
}

// New creates an Engine over the given store and adapters.
func New(store library.Store, adapters []storefront.Adapter, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		adapters:   adapters,
		attempts:   defaultAttempts,
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// run accumulates state across the whole reconciliation pass.
type run struct {
	newGames int
	missing  map[string][]games.Game
}

// adapterRun accumulates per-attempt state for one adapter.
type adapterRun struct {
	adapter  storefront.Adapter
	expected int
	actual   int
	err      error // first store failure; sticks and aborts the attempt
}

// Sync performs one full reconciliation pass over every configured
// adapter. Transient API failures are retried per adapter up to the
// attempt budget; account problems abandon the adapter; anything
// unclassified aborts the whole run.
func (e *Engine) Sync(ctx context.Context, forceUpdate bool) error {
	r := &run{missing: make(map[string][]games.Game)}

	for _, adapter := range e.adapters {
		logging.Debug().Str("storefront", adapter.Name()).Msg("Starting import")
		if err := e.syncAdapter(ctx, adapter, forceUpdate, r); err != nil {
			e.finish(r, true)
			return err
		}
	}

	logging.Debug().Msg("Finished importing all storefronts")
	e.finish(r, false)
	return nil
}

// syncAdapter runs one adapter with the retry policy. A non-nil return
// aborts the whole run.
func (e *Engine) syncAdapter(ctx context.Context, adapter storefront.Adapter, forceUpdate bool, r *run) error {
	for attempt := 1; attempt <= e.attempts; attempt++ {
		state := &adapterRun{adapter: adapter, expected: -1}
		e.setProgress(0)

		err := adapter.Fetch(ctx, forceUpdate, func(ev storefront.Event) {
			e.handle(ctx, state, r, ev)
		})
		if err == nil {
			err = state.err
		}
		if err == nil {
			return nil
		}

		switch {
		case errors.IsAuthExpired(err):
			logging.Warn().Str("storefront", adapter.Name()).Err(err).Msg("Credential expired")
			e.emit(LoggedOut{Storefront: adapter.Name()})
			return nil
		case errors.IsNotConfigured(err):
			// Expected steady state for storefronts the user never enabled.
			logging.Debug().Str("storefront", adapter.Name()).Msg("Not configured, skipped")
			return nil
		case errors.IsTransient(err):
			logging.Error().Str("storefront", adapter.Name()).Err(err).Msg("Fetch attempt failed")
			e.emit(errorMessage(err))
			if attempt < e.attempts {
				select {
				case <-time.After(e.retryDelay):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		default:
			// Unknown conditions fail loudly rather than mask corruption.
			return err
		}
	}
	// Attempt budget exhausted; move on to the next adapter.
	return nil
}

// handle processes one adapter event in emission order.
func (e *Engine) handle(ctx context.Context, state *adapterRun, r *run, ev storefront.Event) {
	if state.err != nil {
		return
	}
	switch ev := ev.(type) {
	case storefront.GameLoaded:
		if ev.Counts {
			state.bump(e)
		}
		if err := e.merge(ctx, state.adapter, r, ev.Game); err != nil {
			state.err = err
		}
	case storefront.ExpectedCount:
		if state.expected == -1 {
			state.expected = ev.N
		} else {
			logging.Debug().Int("count", ev.N).Msg("Extra expected-count ignored")
		}
	case storefront.IncrementCount:
		state.bump(e)
	case storefront.FinishCount:
		e.setProgress(1)
	case storefront.NonImported:
		if len(ev.Games) > 0 {
			r.missing[state.adapter.Name()] = ev.Games
		}
	}
}

// bump advances the actual-progress counter and recomputes the fraction
// once an expected count is known.
func (s *adapterRun) bump(e *Engine) {
	s.actual++
	if s.expected > 0 {
		e.setProgress(float64(s.actual) / float64(s.expected))
	}
}

// merge reconciles one resolved record into the store: an existing record
// with the same catalog id is updated field-wise (max playtime, unioned
// sources and platforms, adopted native id), otherwise the record is
// inserted as new. Play status defaults by playtime when unset.
func (e *Engine) merge(ctx context.Context, adapter storefront.Adapter, r *run, g games.Game) error {
	if !g.Resolved() {
		logging.Warn().Str("title", g.Title).Msg("Unresolved record reached the merge path, skipped")
		return nil
	}

	existing, err := e.store.GameByIGDBID(ctx, g.IGDBID)
	if err != nil && !errors.IsNotFound(err) {
		return err
	}

	if existing != nil {
		merged := *existing
		merged.PlayTime = max(existing.PlayTime, g.PlayTime)
		merged.Sources = games.Union(existing.Sources, g.Sources)
		merged.Platforms = games.Union(existing.Platforms, g.Platforms)
		adapter.AdoptNativeID(&merged, &g)
		if merged.Status == games.StatusUnset {
			merged.Status = games.ForPlayTime(g.PlayTime)
		}
		if err := e.store.Update(ctx, &merged); err != nil {
			return err
		}
		logging.Info().Str("title", merged.Title).Int64("igdbID", merged.IGDBID).Msg("Game updated")
		return nil
	}

	if g.Status == games.StatusUnset {
		g.Status = games.ForPlayTime(g.PlayTime)
	}
	if err := e.store.Insert(ctx, &g); err != nil {
		return err
	}
	r.newGames++
	logging.Info().Str("title", g.Title).Int64("igdbID", g.IGDBID).Msg("Game added")
	return nil
}

// finish reports the run summary and resets progress. The summary is
// either the missing-games map or the new-game count, never both; an
// aborted run still reports Finished and resets progress.
func (e *Engine) finish(r *run, aborted bool) {
	if !aborted {
		if len(r.missing) > 0 {
			e.emit(MissingGames{ByStorefront: r.missing})
		} else {
			e.emit(Info{Message: fmt.Sprintf("Imported %d new games", r.newGames)})
		}
	}
	e.emit(Finished{})
	e.setProgress(NotLoading)
}

// SeedGenres fills the store's genre cache from the catalog when it is
// empty. Requires WithCatalog.
func (e *Engine) SeedGenres(ctx context.Context) error {
	if e.catalog == nil {
		return nil
	}
	existing, err := e.store.Genres(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	genres, err := e.catalog.Genres(ctx)
	if err != nil {
		return err
	}
	for i := range genres {
		if err := e.store.PutGenre(ctx, &genres[i]); err != nil {
			return err
		}
		logging.Info().Str("genre", genres[i].Name).Msg("Genre cached")
	}
	return nil
}

func (e *Engine) setProgress(fraction float64) {
	if e.progress != nil {
		e.progress(fraction)
	}
}

func (e *Engine) emit(ev RunEvent) {
	if e.events != nil {
		e.events(ev)
	}
}

// errorMessage formats a failed attempt for the event sink.
func errorMessage(err error) ErrorMessage {
	var apiErr *errors.APIError
	if errors.As(err, &apiErr) {
		return ErrorMessage{
			Title:  fmt.Sprintf("HTTP error %d from %s", apiErr.StatusCode, apiErr.Source),
			Detail: apiErr.Message,
		}
	}
	return ErrorMessage{Title: "API error", Detail: err.Error()}
}
