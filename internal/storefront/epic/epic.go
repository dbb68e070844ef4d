// Package epic imports the user's Epic Games Store library. Epic exposes
// no reliable catalog join key, so resolution runs an ordered cascade:
// bulk slug match, per-item catalog detail fallback, exact-name match,
// title-slug match, and finally alternate-name match. Each pass only
// touches what the previous passes left unresolved.
package epic

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/gamedex/gamedex/internal/igdb"
	"github.com/gamedex/gamedex/internal/storefront"
	"github.com/gamedex/gamedex/pkg/errors"
	"github.com/gamedex/gamedex/pkg/games"
	"github.com/gamedex/gamedex/pkg/library"
	"github.com/gamedex/gamedex/pkg/logging"
)

// Name is the storefront identifier recorded on imported games.
const Name = "Epic Games"

// Default service hosts.
const (
	DefaultLibraryURL = "https://library-service.live.use1a.on.epicgames.com"
	DefaultCatalogURL = "https://catalog-public-service-prod06.ol.epicgames.com"
	DefaultAuthURL    = "https://account-public-service-prod03.ol.epicgames.com"
)

// referenceSourceID is the catalog's id for this storefront in its
// external-game cross-reference table.
const referenceSourceID = 26

// Adapter imports the Epic Games Store library for one user.
type Adapter struct {
	client   *storefront.Client
	resolver *igdb.Resolver
	store    library.Store
	creds    library.CredentialSource

	libraryURL string
	catalogURL string
	authURL    string
}

// New creates an Epic adapter. creds supplies the OAuth credential blob
// and persists refreshed blobs.
func New(client *storefront.Client, resolver *igdb.Resolver, store library.Store, creds library.CredentialSource) *Adapter {
	return &Adapter{
		client:     client,
		resolver:   resolver,
		store:      store,
		creds:      creds,
		libraryURL: DefaultLibraryURL,
		catalogURL: DefaultCatalogURL,
		authURL:    DefaultAuthURL,
	}
}

// WithBaseURLs overrides the service hosts. Used by tests.
func (a *Adapter) WithBaseURLs(libraryURL, catalogURL, authURL string) *Adapter {
	a.libraryURL = libraryURL
	a.catalogURL = catalogURL
	a.authURL = authURL
	return a
}

// Name implements storefront.Adapter.
func (a *Adapter) Name() string { return Name }

// AdoptNativeID implements storefront.Adapter.
func (a *Adapter) AdoptNativeID(existing, incoming *games.Game) {
	existing.EpicID = incoming.EpicID
}

// InjectNativeID implements storefront.Adapter.
func (a *Adapter) InjectNativeID(g *games.Game, nativeID string) {
	if nativeID == "" {
		logging.Warn().Str("title", g.Title).Msg("Resolved Epic game has no native id")
		return
	}
	g.EpicID = nativeID
}

// Fetch implements storefront.Adapter. See the package comment for the
// cascade structure.
func (a *Adapter) Fetch(ctx context.Context, forceUpdate bool, emit storefront.EmitFunc) error {
	blob, err := a.creds.Credential(ctx)
	if err != nil {
		return err
	}
	if blob == "" {
		return errors.NewNotConfiguredError(Name)
	}
	sess, err := a.refreshLogin(ctx, blob)
	if err != nil {
		return err
	}
	auth := map[string]string{"Authorization": sess.authorization()}

	ws := newWorkingSet()
	if err := a.enumerate(ctx, auth, ws); err != nil {
		return err
	}

	// Playtime feed, joined back by artifact id.
	playtimes, err := a.client.Get(ctx,
		a.libraryURL+"/library/api/public/playtime/account/"+sess.accountID+"/all",
		auth, nil, true)
	if err != nil {
		return err
	}

	// Approximate: DLC and diverted duplicates shift the real total.
	emit(storefront.ExpectedCount{N: len(ws.artifactSlug)})

	for _, entry := range playtimes.Array() {
		minutes := entry.Get("totalTime").Int() / 60
		artifactID := entry.Get("artifactId").String()
		slug, diverted := ws.recordPlayTime(artifactID, minutes)
		if diverted {
			// Diverted items wait for the detail fallback pass.
			continue
		}
		it := ws.items[slug]
		if it == nil {
			continue
		}

		existing, err := a.store.GameByNativeID(ctx, Name, it.epicID())
		if err != nil && !errors.IsNotFound(err) {
			return err
		}
		if !forceUpdate && existing != nil {
			if updated, changed := storefront.RefreshKnown(existing, minutes); changed {
				emit(storefront.Loaded(updated))
			}
			ws.drop(slug, artifactID)
			logging.Debug().Str("slug", slug).Msg("Skipped, already in the library")
			continue
		}
		ws.identifiers[slug] = igdb.Entry{PlayTime: minutes, NativeID: it.epicID()}
	}

	// Unplayed games never appear in the playtime feed; sweep those for
	// already-known native ids too.
	for slug, entry := range ws.identifiers {
		existing, err := a.store.GameByNativeID(ctx, Name, entry.NativeID)
		if err != nil && !errors.IsNotFound(err) {
			return err
		}
		if !forceUpdate && existing != nil {
			it := ws.items[slug]
			appName := ""
			if it != nil {
				appName = it.appName
			}
			ws.drop(slug, appName)
			logging.Debug().Str("slug", slug).Msg("Unplayed game skipped, already in the library")
		}
	}

	// Pass two: bulk match the unambiguous slugs against the catalog's
	// cross-reference table, filtered to this storefront.
	resolved, err := a.resolver.Resolve(ctx, igdb.Request{
		Identifiers: ws.identifiers,
		MatchField:  "game.slug",
		Endpoint:    "external_games",
		GamePath:    "game",
		KeyField:    "slug",
		KeyOnGame:   true,
		ExtraFilter: fmt.Sprintf("external_game_source = %d", referenceSourceID),
		Source:      Name,
		Inject:      a.InjectNativeID,
	})
	if err != nil {
		return err
	}
	for _, g := range resolved {
		if !ws.markEmitted(g.IGDBID) {
			continue
		}
		emit(storefront.Loaded(g))
		slug := Slugify(g.Title)
		if _, ok := ws.items[slug]; ok {
			delete(ws.items, slug)
		} else {
			logging.Debug().Str("slug", slug).Msg("Matched slug not present in pending set")
		}
	}

	// Pass three: per-item detail fallback for diverted duplicates and
	// everything the slug match missed.
	if err := a.detailFallback(ctx, auth, ws, forceUpdate, emit); err != nil {
		return err
	}

	// Pass four: exact title, with store attribution to avoid matching a
	// different edition sold elsewhere.
	resolved, err = a.resolver.Resolve(ctx, igdb.Request{
		Identifiers:    ws.byTitle,
		MatchField:     "name",
		Endpoint:       "games",
		KeyField:       "name",
		ExtraFilter:    `websites.type.type = "Epic"`,
		IncludeUpdates: true,
		Source:         Name,
		Inject:         a.InjectNativeID,
	})
	if err != nil {
		return err
	}
	for _, g := range resolved {
		if !ws.markEmitted(g.IGDBID) {
			continue
		}
		// This pass's items were never part of the expected count.
		emit(storefront.GameLoaded{Game: g})
		if _, ok := ws.byTitle[g.Title]; ok {
			delete(ws.byTitle, g.Title)
			delete(ws.bySlug, Slugify(g.Title))
		}
	}

	// Pass four-b: the same fallback titles by derived slug, unfiltered.
	resolved, err = a.resolver.Resolve(ctx, igdb.Request{
		Identifiers:    ws.bySlug,
		MatchField:     "game.slug",
		Endpoint:       "external_games",
		GamePath:       "game",
		KeyField:       "slug",
		KeyOnGame:      true,
		IncludeUpdates: true,
		Source:         Name,
		Inject:         a.InjectNativeID,
	})
	if err != nil {
		return err
	}
	for _, g := range resolved {
		if !ws.markEmitted(g.IGDBID) {
			continue
		}
		emit(storefront.Loaded(g))
		slug := Slugify(g.Title)
		if _, ok := ws.bySlug[slug]; ok {
			delete(ws.bySlug, slug)
			delete(ws.byTitle, g.Title)
		}
	}

	// Pass five: alternate names, the last automated attempt. Restrict the
	// title map to entries the slug pass also failed to clear.
	for title := range ws.byTitle {
		if _, ok := ws.bySlug[Slugify(title)]; !ok {
			delete(ws.byTitle, title)
		}
	}
	caught := make(map[string]struct{})
	resolved, err = a.resolver.Resolve(ctx, igdb.Request{
		Identifiers: ws.byTitle,
		MatchField:  "alternative_names.name",
		Endpoint:    "games",
		KeyFunc: func(game gjson.Result) string {
			for _, alt := range game.Get("alternative_names").Array() {
				name := alt.Get("name").String()
				if _, ok := ws.byTitle[name]; ok {
					caught[name] = struct{}{}
					return name
				}
			}
			logging.Warn().Str("game", game.Get("name").String()).Msg("No alternate name matched a pending title")
			return ""
		},
		IncludeUpdates: true,
		Source:         Name,
		Inject:         a.InjectNativeID,
	})
	if err != nil {
		return err
	}
	for _, g := range resolved {
		if ws.markEmitted(g.IGDBID) {
			emit(storefront.Loaded(g))
		}
	}

	emit(storefront.FinishCount{})

	// Whatever survived every pass (often unreleased or beta entries) is
	// reported for manual review, never retried within this run.
	var missing []games.Game
	for title, entry := range ws.byTitle {
		if _, ok := caught[title]; ok {
			continue
		}
		missing = append(missing, games.Game{
			Title:    strings.ReplaceAll(title, `\"`, `"`),
			EpicID:   entry.NativeID,
			PlayTime: entry.PlayTime,
		})
	}
	emit(storefront.NonImported{Games: missing})
	return nil
}

// enumerate pages through the library service and fills the working set,
// diverting slug collisions as it goes.
func (a *Adapter) enumerate(ctx context.Context, auth map[string]string, ws *workingSet) error {
	cursor := ""
	for {
		params := url.Values{}
		params.Set("includeMetadata", "true")
		params.Set("includeCategories", "applications")
		if cursor != "" {
			params.Set("cursor", cursor)
		}
		response, err := a.client.Get(ctx, a.libraryURL+"/library/api/public/items", auth, params, false)
		if err != nil {
			return err
		}

		for _, record := range response.Get("records").Array() {
			it := &item{
				appName:       record.Get("appName").String(),
				namespace:     record.Get("namespace").String(),
				catalogItemID: record.Get("catalogItemId").String(),
			}
			slug := Slugify(record.Get("sandboxName").String())
			// Entries published under the shared "live" sandbox would all
			// collide; key them by catalog item id instead.
			if slug == "live" {
				slug += it.catalogItemID
			}
			ws.add(slug, it)
		}

		cursor = response.Get("responseMetadata.nextCursor").String()
		if cursor == "" {
			return nil
		}
	}
}

// detailFallback issues one catalog detail request per unresolved item,
// filters out non-game entries, and fills the exact-title and
// title-derived-slug maps for the remaining passes.
func (a *Adapter) detailFallback(ctx context.Context, auth map[string]string, ws *workingSet, forceUpdate bool, emit storefront.EmitFunc) error {
	for slug, duplicates := range ws.duplicates {
		for _, it := range duplicates {
			existing, err := a.store.GameByNativeID(ctx, Name, it.epicID())
			if err != nil && !errors.IsNotFound(err) {
				return err
			}
			if !forceUpdate && existing != nil {
				if updated, changed := storefront.RefreshKnown(existing, it.playTime); changed {
					emit(storefront.Loaded(updated))
				}
				logging.Debug().Str("slug", slug).Msg("Duplicate skipped, already in the library")
				continue
			}
			if err := a.detailItem(ctx, auth, ws, it, it.playTime, emit); err != nil {
				return err
			}
		}
	}

	for slug, it := range ws.items {
		playTime := ws.identifiers[slug].PlayTime
		if err := a.detailItem(ctx, auth, ws, it, playTime, emit); err != nil {
			return err
		}
	}
	return nil
}

// detailItem fetches one catalog entry and, when it is a real game, files
// its exact title and derived slug into the fallback maps.
func (a *Adapter) detailItem(ctx context.Context, auth map[string]string, ws *workingSet, it *item, playTime int64, emit storefront.EmitFunc) error {
	detailURL := fmt.Sprintf("%s/catalog/api/shared/namespace/%s/bulk/items?id=%s&country=US&locale=en-US&includeMainGameDetails=true",
		a.catalogURL, it.namespace, it.catalogItemID)
	response, err := a.client.Get(ctx, detailURL, auth, nil, false)
	if err != nil {
		return err
	}
	emit(storefront.IncrementCount{})

	detail := response.Get(it.catalogItemID)
	if isExtra(detail) {
		return nil
	}

	title := detail.Get("title").String()
	// Quotes must be escaped in the key because the catalog query quotes it.
	escapedTitle := strings.ReplaceAll(title, `"`, `\"`)
	derivedSlug := Slugify(strings.ReplaceAll(title, `"`, ""))
	logging.Debug().Str("title", escapedTitle).Msg("Detail fallback title")
	ws.addDetail(escapedTitle, derivedSlug, igdb.Entry{PlayTime: playTime, NativeID: it.epicID()})
	return nil
}
