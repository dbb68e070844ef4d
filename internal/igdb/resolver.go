package igdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/gamedex/gamedex/pkg/games"
	"github.com/gamedex/gamedex/pkg/logging"
)

// chunkSize is the maximum number of identifiers sent in one catalog query.
const chunkSize = 500

// Image URL templates for IGDB image ids.
const (
	coverURLTemplate      = "https://images.igdb.com/igdb/image/upload/t_cover_big/%s.jpg"
	screenshotURLTemplate = "https://images.igdb.com/igdb/image/upload/t_720p/%s.jpg"
)

const maxScreenshots = 5

// game_type codes marking DLC, season, bundle, and expansion entries,
// excluded whenever a caller asks for updates to be included.
const dlcTypeCodes = "(1, 5, 13, 2)"

// Entry is the per-identifier payload: the playtime captured at
// enumeration time and the storefront-native id.
type Entry struct {
	PlayTime int64
	NativeID string
}

// Request describes one bulk resolution.
//
// Identifiers maps literal match values to their entries; keys must
// already be escaped exactly as the catalog query will filter on them, and
// duplicate keys silently overwrite. The caller removes matched keys from
// its own pending set after resolution.
type Request struct {
	Identifiers map[string]Entry

	// MatchField is the field the where-clause filters on
	// (e.g. "uid", "game.slug", "url", "name", "alternative_names.name").
	MatchField string

	// Endpoint is the catalog endpoint queried (games, external_games,
	// websites).
	Endpoint string

	// GamePath is a gjson path projecting each response item onto the
	// game object. Empty means the item is the game object itself.
	GamePath string

	// KeyField is the field the original identifier is read back from.
	// KeyOnGame selects whether it is read off the projected game object
	// or the raw response item.
	KeyField  string
	KeyOnGame bool

	// KeyFunc overrides KeyField with caller-defined resolution: it
	// inspects the game object and returns a key present in Identifiers,
	// or "" when none applies.
	KeyFunc func(game gjson.Result) string

	// ExtraFilter is an optional additional where-clause conjunct.
	ExtraFilter string

	// IncludeUpdates widens the query to editions and updates while still
	// excluding DLC-typed entries; when false, anything with a parent
	// game is excluded instead.
	IncludeUpdates bool

	// Platform recorded on resolved records. Defaults to "PC".
	Platform string

	// Source is the calling storefront's name.
	Source string

	// Inject attaches the storefront-native id to a resolved record.
	Inject func(g *games.Game, nativeID string)
}

// Resolver maps storefront identifiers to canonical catalog records.
type Resolver struct {
	client *Client
}

// NewResolver creates a Resolver on top of a catalog client.
func NewResolver(client *Client) *Resolver {
	return &Resolver{client: client}
}

// Resolve splits req.Identifiers into chunks, issues one templated query
// per chunk, and returns the normalized records for every item the catalog
// matched. Items without a name, and keys the catalog echoes back that are
// not in the identifier map, are logged and skipped rather than failed.
func (r *Resolver) Resolve(ctx context.Context, req Request) ([]games.Game, error) {
	if req.Platform == "" {
		req.Platform = "PC"
	}

	keys := make([]string, 0, len(req.Identifiers))
	for k := range req.Identifiers {
		keys = append(keys, k)
	}

	var resolved []games.Game
	for start := 0; start < len(keys); start += chunkSize {
		end := min(start+chunkSize, len(keys))
		body := r.buildQuery(req, keys[start:end])
		logging.Debug().Str("endpoint", req.Endpoint).Str("query", body).Msg("IGDB bulk query")

		response, err := r.client.Query(ctx, req.Endpoint, body)
		if err != nil {
			return nil, err
		}
		for _, item := range response.Array() {
			if g, ok := r.buildGame(req, item); ok {
				resolved = append(resolved, g)
			}
		}
	}
	return resolved, nil
}

// buildQuery assembles the APIcalypse body for one chunk of identifiers.
func (r *Resolver) buildQuery(req Request, keys []string) string {
	prefix := ""
	if req.Endpoint != "games" {
		prefix = "game."
	}

	keyField := req.KeyField
	if req.KeyOnGame && req.Endpoint != "games" {
		keyField = "game." + req.KeyField
	}

	fields := []string{
		keyField,
		prefix + "id",
		prefix + "summary",
		prefix + "name",
		prefix + "websites.type.type",
		prefix + "parent_game",
		prefix + "genres.name",
		prefix + "artworks.image_id",
		prefix + "screenshots.image_id",
		prefix + "involved_companies.company.name",
		prefix + "involved_companies.developer",
		prefix + "involved_companies.publisher",
		prefix + "cover.image_id",
	}

	exclusion := prefix + "parent_game = null"
	if req.IncludeUpdates {
		exclusion = prefix + "game_type != " + dlcTypeCodes
	}

	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = `"` + k + `"`
	}

	var b strings.Builder
	fmt.Fprintf(&b, "fields %s;\n", strings.Join(fields, ", "))
	fmt.Fprintf(&b, "where %s = (%s) & %s", req.MatchField, strings.Join(quoted, ","), exclusion)
	if req.ExtraFilter != "" {
		fmt.Fprintf(&b, " & %s", req.ExtraFilter)
	}
	fmt.Fprintf(&b, ";\nlimit %d;", chunkSize)
	return b.String()
}

// buildGame turns one response item into a normalized record.
func (r *Resolver) buildGame(req Request, item gjson.Result) (games.Game, bool) {
	game := item
	if req.GamePath != "" {
		game = item.Get(req.GamePath)
	}
	if !game.Get("name").Exists() {
		logging.Warn().Str("endpoint", req.Endpoint).Str("item", item.Raw).Msg("Catalog item missing name, skipped")
		return games.Game{}, false
	}

	key := r.resolveKey(req, item, game)
	var playTime int64
	var nativeID string
	if key != "" {
		if entry, ok := req.Identifiers[key]; ok {
			playTime = entry.PlayTime
			nativeID = entry.NativeID
		} else {
			logging.Warn().Str("key", key).Msg("Catalog key not in identifier map")
		}
	}

	title := game.Get("name").String()

	var screenshots []string
	for i, shot := range game.Get("screenshots").Array() {
		if i >= maxScreenshots {
			break
		}
		screenshots = append(screenshots, fmt.Sprintf(screenshotURLTemplate, shot.Get("image_id").String()))
	}

	var genres []int64
	for _, genre := range game.Get("genres").Array() {
		if genre.Get("name").Exists() {
			genres = append(genres, genre.Get("id").Int())
		}
	}

	var developers, publishers []string
	for _, company := range game.Get("involved_companies").Array() {
		name := company.Get("company.name").String()
		if company.Get("developer").Bool() {
			developers = append(developers, name)
		}
		if company.Get("publisher").Bool() {
			publishers = append(publishers, name)
		}
	}

	coverURL := ""
	if cover := game.Get("cover"); cover.Exists() {
		coverURL = fmt.Sprintf(coverURLTemplate, cover.Get("image_id").String())
	}
	backgroundURL := ""
	if artworks := game.Get("artworks").Array(); len(artworks) > 0 {
		backgroundURL = fmt.Sprintf(screenshotURLTemplate, artworks[0].Get("image_id").String())
	}

	g := games.Game{
		Title:         title,
		SortingTitle:  games.SortingTitle(title),
		Description:   game.Get("summary").String(),
		Platforms:     []string{req.Platform},
		Genres:        genres,
		Sources:       []string{req.Source},
		IGDBID:        game.Get("id").Int(),
		CoverURL:      coverURL,
		BackgroundURL: backgroundURL,
		PlayTime:      playTime,
		Screenshots:   screenshots,
		Developers:    developers,
		Publishers:    publishers,
	}
	if req.Inject != nil {
		req.Inject(&g, nativeID)
	}
	return g, true
}

// resolveKey recovers the identifier-map key a response item matched on.
func (r *Resolver) resolveKey(req Request, item, game gjson.Result) string {
	if req.KeyFunc != nil {
		return req.KeyFunc(game)
	}
	if req.KeyField == "" {
		return ""
	}
	if req.KeyOnGame && req.Endpoint != "games" {
		return game.Get(req.KeyField).String()
	}
	return item.Get(req.KeyField).String()
}
