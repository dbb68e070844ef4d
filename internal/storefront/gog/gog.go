// Package gog imports the user's GOG library from the public per-user
// games/stats endpoint, keyed by store page URL against the catalog's
// website cross-references.
package gog

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/gamedex/gamedex/internal/igdb"
	"github.com/gamedex/gamedex/internal/storefront"
	"github.com/gamedex/gamedex/pkg/errors"
	"github.com/gamedex/gamedex/pkg/games"
	"github.com/gamedex/gamedex/pkg/library"
)

// Name is the storefront identifier recorded on imported games.
const Name = "GOG"

// DefaultBaseURL is the GOG site host.
const DefaultBaseURL = "https://www.gog.com"

// Adapter imports the GOG library for one user.
type Adapter struct {
	client   *storefront.Client
	resolver *igdb.Resolver
	store    library.Store
	creds    library.CredentialSource
	baseURL  string
}

// New creates a GOG adapter. creds supplies the user's public profile name.
func New(client *storefront.Client, resolver *igdb.Resolver, store library.Store, creds library.CredentialSource) *Adapter {
	return &Adapter{
		client:   client,
		resolver: resolver,
		store:    store,
		creds:    creds,
		baseURL:  DefaultBaseURL,
	}
}

// WithBaseURL overrides the GOG host. Used by tests.
func (a *Adapter) WithBaseURL(u string) *Adapter {
	a.baseURL = u
	return a
}

// Name implements storefront.Adapter.
func (a *Adapter) Name() string { return Name }

// AdoptNativeID implements storefront.Adapter.
func (a *Adapter) AdoptNativeID(existing, incoming *games.Game) {
	existing.GogID = incoming.GogID
}

// InjectNativeID implements storefront.Adapter.
func (a *Adapter) InjectNativeID(g *games.Game, nativeID string) {
	g.GogID = nativeID
}

// Fetch implements storefront.Adapter.
func (a *Adapter) Fetch(ctx context.Context, forceUpdate bool, emit storefront.EmitFunc) error {
	username, err := a.creds.Credential(ctx)
	if err != nil {
		return err
	}
	if username == "" {
		return errors.NewNotConfiguredError(Name)
	}

	// store page URL -> (playtime, gog id)
	identifiers := make(map[string]igdb.Entry)
	// interim titles for the non-imported report
	titles := make(map[string]string)

	page := 1
	pages := 1
	countEmitted := false
	for page <= pages {
		u := fmt.Sprintf("%s/u/%s/games/stats?sort=recent_playtime&order=desc&page=%d", a.baseURL, username, page)
		response, err := a.client.Get(ctx, u, nil, nil, false)
		if err != nil {
			return err
		}
		if !countEmitted {
			emit(storefront.ExpectedCount{N: int(response.Get("total").Int())})
			countEmitted = true
		}
		pages = int(response.Get("pages").Int())

		for _, item := range response.Get("_embedded.items").Array() {
			game := item.Get("game")
			var playTime int64
			// stats is keyed by user id; each value holds that user's playtime
			if stats := item.Get("stats"); stats.IsObject() {
				stats.ForEach(func(_, value gjson.Result) bool {
					playTime = value.Get("playtime").Int()
					return true
				})
			}
			id := game.Get("id").String()

			existing, err := a.store.GameByNativeID(ctx, Name, id)
			if err != nil && !errors.IsNotFound(err) {
				return err
			}
			if !forceUpdate && existing != nil {
				if updated, changed := storefront.RefreshKnown(existing, playTime); changed {
					emit(storefront.Loaded(updated))
				}
				continue
			}

			// Store URLs come back with a language segment; the catalog
			// cross-references the language-neutral form.
			pageURL := game.Get("url").String()
			if pageURL == "" {
				return errors.NewProtocolError(Name,
					fmt.Sprintf("library item %s has no store URL", id), nil)
			}
			if idx := strings.Index(pageURL[1:], "/"); idx >= 0 {
				pageURL = pageURL[idx+1:]
			}
			key := "https://www.gog.com" + pageURL
			identifiers[key] = igdb.Entry{PlayTime: playTime, NativeID: id}
			titles[key] = game.Get("title").String()
		}
		page++
	}

	resolved, err := a.resolver.Resolve(ctx, igdb.Request{
		Identifiers:    identifiers,
		MatchField:     "url",
		Endpoint:       "websites",
		GamePath:       "game",
		KeyField:       "url",
		IncludeUpdates: true,
		Source:         Name,
		Inject:         a.InjectNativeID,
	})
	if err != nil {
		return err
	}
	matched := make(map[string]struct{}, len(resolved))
	for _, g := range resolved {
		emit(storefront.Loaded(g))
		matched[g.GogID] = struct{}{}
	}

	emit(storefront.FinishCount{})

	var missing []games.Game
	for key, entry := range identifiers {
		if _, ok := matched[entry.NativeID]; ok {
			continue
		}
		missing = append(missing, games.Game{
			Title:    titles[key],
			GogID:    entry.NativeID,
			PlayTime: entry.PlayTime,
		})
	}
	emit(storefront.NonImported{Games: missing})
	return nil
}
