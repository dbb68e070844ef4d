package games

// PlayStatus describes how far along the user is with a game.
type PlayStatus string

// Play status values. Unplayed and Played are assigned automatically on
// import based on playtime; the rest are set by the user.
const (
	StatusUnset     PlayStatus = ""
	StatusUnplayed  PlayStatus = "Unplayed"
	StatusPlayed    PlayStatus = "Played"
	StatusPlaying   PlayStatus = "Playing"
	StatusPlanned   PlayStatus = "Plan to Play"
	StatusCompleted PlayStatus = "Completed"
	StatusBeaten    PlayStatus = "Beaten"
	StatusAbandoned PlayStatus = "Abandoned"
)

// String returns the string representation of a play status.
func (s PlayStatus) String() string {
	return string(s)
}

// ForPlayTime returns the automatic status for a freshly imported record:
// Played when any playtime has accrued, Unplayed otherwise.
func ForPlayTime(minutes int64) PlayStatus {
	if minutes > 0 {
		return StatusPlayed
	}
	return StatusUnplayed
}
