package epic

import (
	"github.com/gamedex/gamedex/internal/igdb"
	"github.com/gamedex/gamedex/pkg/logging"
)

// item is one owned entry as enumerated from the library service. The
// playtime recorded here at enumeration time follows the item through
// every later pass, so a title resolving on pass four still carries it.
type item struct {
	appName       string
	namespace     string
	catalogItemID string
	playTime      int64
}

// epicID is the persisted storefront-native id: namespace and catalog
// item id joined by a space.
func (it *item) epicID() string {
	return it.namespace + " " + it.catalogItemID
}

// workingSet is the mutable state threaded through the cascade's passes.
// Passes remove what they resolve; whatever survives all of them becomes
// the non-imported report.
type workingSet struct {
	// identifiers is the primary slug-keyed map fed to the first bulk
	// match. A slug key in here is never ambiguous.
	identifiers map[string]igdb.Entry

	// items tracks entries still pending resolution, keyed by slug.
	items map[string]*item

	// artifactSlug joins the playtime feed (keyed by artifact id, which
	// equals appName) back to slugs.
	artifactSlug map[string]string

	// duplicates holds items diverted because their slug collided,
	// keyed by the ambiguous slug.
	duplicates map[string][]*item

	// duplicateSlug joins diverted items' appNames back to their slug.
	duplicateSlug map[string]string

	// byTitle and bySlug are populated by the per-item detail fallback:
	// exact title and title-derived slug, each mapped to the entry.
	byTitle map[string]igdb.Entry
	bySlug  map[string]igdb.Entry

	// emitted guards against emitting one catalog id twice within a run
	// even when it is reachable through two matching passes.
	emitted map[int64]struct{}
}

func newWorkingSet() *workingSet {
	return &workingSet{
		identifiers:   make(map[string]igdb.Entry),
		items:         make(map[string]*item),
		artifactSlug:  make(map[string]string),
		duplicates:    make(map[string][]*item),
		duplicateSlug: make(map[string]string),
		byTitle:       make(map[string]igdb.Entry),
		bySlug:        make(map[string]igdb.Entry),
		emitted:       make(map[int64]struct{}),
	}
}

// add records one enumerated item under slug. When the slug collides with
// an already-mapped item, both the previous item and the new one are
// diverted into the duplicates structure: an ambiguous slug must not stay
// in the primary map, or the bulk match would attach one catalog record
// to the wrong purchase.
func (ws *workingSet) add(slug string, it *item) {
	_, inPrimary := ws.identifiers[slug]
	_, inDuplicates := ws.duplicates[slug]
	if !inPrimary && !inDuplicates {
		ws.identifiers[slug] = igdb.Entry{NativeID: it.epicID()}
		ws.items[slug] = it
		ws.artifactSlug[it.appName] = slug
		return
	}

	logging.Debug().Str("slug", slug).Str("epicID", it.epicID()).Msg("Duplicate slug diverted")
	if inPrimary {
		// Move the provisionally-mapped first item over as well.
		previous := ws.items[slug]
		delete(ws.identifiers, slug)
		delete(ws.items, slug)
		if previous != nil {
			delete(ws.artifactSlug, previous.appName)
			ws.duplicates[slug] = append(ws.duplicates[slug], previous)
			ws.duplicateSlug[previous.appName] = slug
		}
	}
	ws.duplicates[slug] = append(ws.duplicates[slug], it)
	ws.duplicateSlug[it.appName] = slug
}

// recordPlayTime attaches a playtime figure from the playtime feed to the
// item owning artifactID, wherever the item currently lives.
func (ws *workingSet) recordPlayTime(artifactID string, minutes int64) (slug string, diverted bool) {
	if slug, ok := ws.artifactSlug[artifactID]; ok {
		if it := ws.items[slug]; it != nil {
			it.playTime = minutes
		}
		return slug, false
	}
	// Not in the primary map: the item was diverted.
	slug, ok := ws.duplicateSlug[artifactID]
	if !ok {
		return "", true
	}
	for _, it := range ws.duplicates[slug] {
		if it.appName == artifactID {
			it.playTime = minutes
			break
		}
	}
	return slug, true
}

// drop removes every trace of the item mapped under slug. Used when a
// known native id is skipped on a non-forced run.
func (ws *workingSet) drop(slug, appName string) {
	delete(ws.identifiers, slug)
	delete(ws.items, slug)
	delete(ws.artifactSlug, appName)
	delete(ws.duplicates, slug)
	delete(ws.duplicateSlug, appName)
}

// markEmitted records a catalog id and reports whether it was new.
func (ws *workingSet) markEmitted(igdbID int64) bool {
	if _, ok := ws.emitted[igdbID]; ok {
		return false
	}
	ws.emitted[igdbID] = struct{}{}
	return true
}

// addDetail files a detail-derived title under both fallback maps.
func (ws *workingSet) addDetail(title, slug string, entry igdb.Entry) {
	ws.byTitle[title] = entry
	ws.bySlug[slug] = entry
}
