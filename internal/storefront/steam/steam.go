// Package steam imports the user's Steam library. Steam is the simple
// case: one GetOwnedGames call keyed by appid, resolved in bulk against
// the catalog's external-game cross-reference table.
package steam

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/gamedex/gamedex/internal/igdb"
	"github.com/gamedex/gamedex/internal/storefront"
	"github.com/gamedex/gamedex/pkg/errors"
	"github.com/gamedex/gamedex/pkg/games"
	"github.com/gamedex/gamedex/pkg/library"
	"github.com/gamedex/gamedex/pkg/logging"
)

// Name is the storefront identifier recorded on imported games.
const Name = "Steam"

// DefaultBaseURL is the Steam Web API host.
const DefaultBaseURL = "https://api.steampowered.com"

// Adapter imports the Steam library for one user.
type Adapter struct {
	client   *storefront.Client
	resolver *igdb.Resolver
	store    library.Store
	creds    library.CredentialSource
	apiKey   string
	baseURL  string
}

// New creates a Steam adapter. creds supplies the user's Steam id.
func New(client *storefront.Client, resolver *igdb.Resolver, store library.Store, creds library.CredentialSource, apiKey string) *Adapter {
	return &Adapter{
		client:   client,
		resolver: resolver,
		store:    store,
		creds:    creds,
		apiKey:   apiKey,
		baseURL:  DefaultBaseURL,
	}
}

// WithBaseURL overrides the Steam API host. Used by tests.
func (a *Adapter) WithBaseURL(u string) *Adapter {
	a.baseURL = u
	return a
}

// Name implements storefront.Adapter.
func (a *Adapter) Name() string { return Name }

// AdoptNativeID implements storefront.Adapter.
func (a *Adapter) AdoptNativeID(existing, incoming *games.Game) {
	existing.SteamID = incoming.SteamID
}

// InjectNativeID implements storefront.Adapter.
func (a *Adapter) InjectNativeID(g *games.Game, nativeID string) {
	id, err := strconv.ParseInt(nativeID, 10, 64)
	if err != nil {
		logging.Warn().Str("nativeID", nativeID).Msg("Steam native id is not numeric")
		return
	}
	g.SteamID = id
}

// Fetch implements storefront.Adapter.
func (a *Adapter) Fetch(ctx context.Context, forceUpdate bool, emit storefront.EmitFunc) error {
	userID, err := a.creds.Credential(ctx)
	if err != nil {
		return err
	}
	if userID == "" {
		return errors.NewNotConfiguredError(Name)
	}

	params := url.Values{}
	params.Set("key", a.apiKey)
	params.Set("steamid", userID)
	params.Set("include_played_free_games", "true")
	params.Set("skip_unvetted_apps", "false")

	response, err := a.client.Get(ctx, a.baseURL+"/IPlayerService/GetOwnedGames/v1/", nil, params, false)
	if err != nil {
		return err
	}
	owned := response.Get("response.games").Array()
	logging.Info().Int("owned", len(owned)).Msg("Steam games fetched")
	emit(storefront.ExpectedCount{N: len(owned)})

	// appid string -> (playtime, appid)
	identifiers := make(map[string]igdb.Entry, len(owned))
	for _, item := range owned {
		appID := item.Get("appid").Int()
		playTime := item.Get("playtime_forever").Int()
		key := strconv.FormatInt(appID, 10)

		existing, err := a.store.GameByNativeID(ctx, Name, key)
		if err != nil && !errors.IsNotFound(err) {
			return err
		}
		if !forceUpdate && existing != nil {
			if updated, changed := storefront.RefreshKnown(existing, playTime); changed {
				emit(storefront.Loaded(updated))
			}
			continue
		}
		identifiers[key] = igdb.Entry{PlayTime: playTime, NativeID: key}
	}

	resolved, err := a.resolver.Resolve(ctx, igdb.Request{
		Identifiers:    identifiers,
		MatchField:     "uid",
		Endpoint:       "external_games",
		GamePath:       "game",
		KeyField:       "uid",
		IncludeUpdates: true,
		ExtraFilter:    `external_game_source.name = "Steam"`,
		Source:         Name,
		Inject:         a.InjectNativeID,
	})
	if err != nil {
		return err
	}
	for _, g := range resolved {
		emit(storefront.Loaded(g))
		delete(identifiers, strconv.FormatInt(g.SteamID, 10))
	}

	emit(storefront.FinishCount{})

	// Non-public catalog entries (e.g. delisted complete editions) end up
	// here as placeholders carrying only the appid and playtime.
	var missing []games.Game
	for key, entry := range identifiers {
		id, _ := strconv.ParseInt(key, 10, 64)
		missing = append(missing, games.Game{
			Title:    fmt.Sprintf("Steam app %s", key),
			SteamID:  id,
			PlayTime: entry.PlayTime,
		})
	}
	emit(storefront.NonImported{Games: missing})
	return nil
}
