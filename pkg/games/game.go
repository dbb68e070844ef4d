// Package games defines the canonical game record shared by the storefront
// adapters, the bulk metadata resolver, and the reconciliation engine.
package games

// Game is the canonical, persisted record for one owned title.
//
// A record is uniquely identified for merge purposes by its IGDB id; a
// record with IGDBID zero is unresolved and only exists transiently as a
// non-imported placeholder surfaced for user review.
//
// Storefront-native ids are flat optional fields with zero-value
// sentinels (0 for SteamID, "" for the rest) rather than pointers, so the
// record round-trips through the store without null handling.
type Game struct {
	// ID is the store-assigned key. Zero until inserted.
	ID int64 `json:"id"`

	Title string `json:"title"`

	// SortingTitle is Title with a leading article stripped. See SortingTitle.
	SortingTitle string `json:"sorting_title"`

	// Description is sourced from IGDB but cached locally.
	Description string `json:"description,omitempty"`

	// Platforms the user owns the game on (PC, PS5, Switch, ...).
	Platforms []string `json:"platforms,omitempty"`

	// Genres holds IGDB genre ids.
	Genres []int64 `json:"genres,omitempty"`

	// Sources lists the storefronts this record was imported from.
	Sources []string `json:"sources,omitempty"`

	// Status is the play status, set by the engine on first import and
	// manually afterwards. Empty means unset.
	Status PlayStatus `json:"status,omitempty"`

	// IGDBID is the canonical catalog id. Zero means unresolved.
	IGDBID int64 `json:"igdb_id,omitempty"`

	CoverURL      string `json:"cover_url,omitempty"`
	BackgroundURL string `json:"background_url,omitempty"`

	// PlayTime is the playtime in minutes of the version with the highest count.
	PlayTime int64 `json:"play_time"`

	// Storefront-native identifiers.
	SteamID int64  `json:"steam_id,omitempty"`
	EpicID  string `json:"epic_id,omitempty"`
	GogID   string `json:"gog_id,omitempty"`
	ItchID  string `json:"itch_id,omitempty"`

	// Screenshots holds up to five IGDB screenshot URLs.
	Screenshots []string `json:"screenshots,omitempty"`

	Developers []string `json:"developers,omitempty"`
	Publishers []string `json:"publishers,omitempty"`

	Favorite bool `json:"favorite,omitempty"`
}

// Resolved reports whether the record has been matched to a canonical
// catalog entry.
func (g *Game) Resolved() bool {
	return g.IGDBID != 0
}

// Genre is one IGDB genre, cached locally so records can render genre
// names without a catalog round trip.
type Genre struct {
	ID     int64  `json:"id"`
	IGDBID int64  `json:"igdb_id"`
	Name   string `json:"name"`
}
