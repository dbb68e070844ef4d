// Package itch imports the user's itch.io library. Ownership comes from
// the owned-keys endpoint; resolution is by store URL with a name-match
// fallback, since many itch titles have no catalog cross-reference.
package itch

import (
	"context"
	"net/url"
	"strconv"

	"github.com/gamedex/gamedex/internal/igdb"
	"github.com/gamedex/gamedex/internal/storefront"
	"github.com/gamedex/gamedex/pkg/errors"
	"github.com/gamedex/gamedex/pkg/games"
	"github.com/gamedex/gamedex/pkg/library"
)

// Name is the storefront identifier recorded on imported games.
const Name = "Itch"

// DefaultBaseURL is the itch.io API host.
const DefaultBaseURL = "https://api.itch.io"

// Adapter imports the itch.io library for one user.
type Adapter struct {
	client   *storefront.Client
	resolver *igdb.Resolver
	store    library.Store
	creds    library.CredentialSource
	baseURL  string
}

// New creates an itch.io adapter. creds supplies the API secret.
func New(client *storefront.Client, resolver *igdb.Resolver, store library.Store, creds library.CredentialSource) *Adapter {
	return &Adapter{
		client:   client,
		resolver: resolver,
		store:    store,
		creds:    creds,
		baseURL:  DefaultBaseURL,
	}
}

// WithBaseURL overrides the itch.io API host. Used by tests.
func (a *Adapter) WithBaseURL(u string) *Adapter {
	a.baseURL = u
	return a
}

// Name implements storefront.Adapter.
func (a *Adapter) Name() string { return Name }

// AdoptNativeID implements storefront.Adapter.
func (a *Adapter) AdoptNativeID(existing, incoming *games.Game) {
	existing.ItchID = incoming.ItchID
}

// InjectNativeID implements storefront.Adapter.
func (a *Adapter) InjectNativeID(g *games.Game, nativeID string) {
	g.ItchID = nativeID
}

// Fetch implements storefront.Adapter.
func (a *Adapter) Fetch(ctx context.Context, forceUpdate bool, emit storefront.EmitFunc) error {
	secret, err := a.creds.Credential(ctx)
	if err != nil {
		return err
	}
	if secret == "" {
		return errors.NewNotConfiguredError(Name)
	}
	headers := map[string]string{"Authorization": "Bearer " + secret}

	// store URL -> (playtime, itch id); itch reports no playtime.
	identifiers := make(map[string]igdb.Entry)
	// itch id -> title, for the fallback pass and the non-imported report
	titles := make(map[string]string)

	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("page", strconv.Itoa(page))
		response, err := a.client.Get(ctx, a.baseURL+"/profile/owned-keys", headers, params, false)
		if err != nil {
			return err
		}
		owned := response.Get("owned_keys")
		if !owned.IsArray() || len(owned.Array()) == 0 {
			break
		}
		for _, item := range owned.Array() {
			game := item.Get("game")
			if game.Get("classification").String() != "game" {
				continue
			}
			id := game.Get("id").String()

			existing, err := a.store.GameByNativeID(ctx, Name, id)
			if err != nil && !errors.IsNotFound(err) {
				return err
			}
			if !forceUpdate && existing != nil {
				if updated, changed := storefront.RefreshKnown(existing, 0); changed {
					emit(storefront.Loaded(updated))
				}
				continue
			}

			identifiers[game.Get("url").String()] = igdb.Entry{NativeID: id}
			titles[id] = game.Get("title").String()
		}
	}

	emit(storefront.ExpectedCount{N: len(identifiers)})

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
	for _, g := range resolved {
		emit(storefront.Loaded(g))
		delete(titles, g.ItchID)
	}

	emit(storefront.FinishCount{})

	// Fallback: try matching the leftovers by title.
	fallback := make(map[string]igdb.Entry, len(titles))
	for id, title := range titles {
		fallback[title] = igdb.Entry{NativeID: id}
	}
	resolved, err = a.resolver.Resolve(ctx, igdb.Request{
		Identifiers:    fallback,
		MatchField:     "name",
		Endpoint:       "games",
		KeyField:       "name",
		IncludeUpdates: true,
		ExtraFilter:    `websites.type.type = "Itch"`,
		Source:         Name,
		Inject:         a.InjectNativeID,
	})
	if err != nil {
		return err
	}
	for _, g := range resolved {
		emit(storefront.Loaded(g))
		delete(titles, g.ItchID)
	}

	var missing []games.Game
	for id, title := range titles {
		missing = append(missing, games.Game{Title: title, ItchID: id})
	}
	emit(storefront.NonImported{Games: missing})
	return nil
}
