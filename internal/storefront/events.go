// Package storefront defines the contract every storefront adapter
// implements and the event stream adapters emit while enumerating a
// user's ownership.
package storefront

import "github.com/gamedex/gamedex/pkg/games"

// Event is one item of an adapter's sync stream. Events are delivered to
// the engine in emission order through an EmitFunc; the engine is the only
// reader and processes each event before the adapter continues.
type Event interface {
	event()
}

// GameLoaded carries one resolved or updated record. Counts controls
// whether the event bumps the progress counter; passes whose totals were
// never part of the expected count emit with Counts false.
type GameLoaded struct {
	Game   games.Game
	Counts bool
}

// ExpectedCount declares the approximate total items the adapter will
// process. Emitted at most once, early; the engine honors the first one.
type ExpectedCount struct {
	N int
}

// IncrementCount signals one unit of progress without a record, used when
// catalog lookups happen outside the main loaded-record path.
type IncrementCount struct{}

// FinishCount signals the adapter's work is done; progress should read as
// complete.
type FinishCount struct{}

// NonImported carries the end-of-run list of unresolved placeholder
// records (title, native id, playtime only) for user review.
type NonImported struct {
	Games []games.Game
}

func (GameLoaded) event()     {}
func (ExpectedCount) event()  {}
func (IncrementCount) event() {}
func (FinishCount) event()    {}
func (NonImported) event()    {}

// EmitFunc receives adapter events in emission order.
type EmitFunc func(Event)

// Loaded is shorthand for a counting GameLoaded event.
func Loaded(g games.Game) GameLoaded {
	return GameLoaded{Game: g, Counts: true}
}
