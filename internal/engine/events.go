package engine

import "github.com/gamedex/gamedex/pkg/games"

// NotLoading is the progress sentinel reported outside a sync run.
const NotLoading = -1.0

// ProgressFunc receives the load fraction in [0,1], or NotLoading.
// The engine overwrites it freely; nil disables progress reporting.
type ProgressFunc func(fraction float64)

// RunEvent is one summary event of a reconciliation run, surfaced for
// presentation elsewhere.
type RunEvent interface {
	runEvent()
}

// MissingGames reports the unresolved placeholders of the whole run,
// keyed by storefront name.
type MissingGames struct {
	ByStorefront map[string][]games.Game
}

// ErrorMessage reports one failed fetch attempt. A retried adapter emits
// one ErrorMessage per failed attempt.
type ErrorMessage struct {
	Title  string
	Detail string
}

// LoggedOut reports a storefront whose credential needs re-authentication.
type LoggedOut struct {
	Storefront string
}

// Info carries a human-readable notice, e.g. the new-game count.
type Info struct {
	Message string
}

// Finished marks the end of a run, successful or not.
type Finished struct{}

func (MissingGames) runEvent() {}
func (ErrorMessage) runEvent() {}
func (LoggedOut) runEvent()    {}
func (Info) runEvent()         {}
func (Finished) runEvent()     {}

// EventFunc receives run events. nil disables event reporting.
type EventFunc func(RunEvent)
