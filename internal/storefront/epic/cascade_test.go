package epic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamedex/gamedex/internal/igdb"
)

func TestWorkingSetAdd(t *testing.T) {
	t.Run("unique slugs stay primary", func(t *testing.T) {
		ws := newWorkingSet()
		ws.add("rocket-league", &item{appName: "Sugar", namespace: "ns1", catalogItemID: "c1"})
		ws.add("hades", &item{appName: "Min", namespace: "ns2", catalogItemID: "c2"})

		assert.Len(t, ws.identifiers, 2)
		assert.Empty(t, ws.duplicates)
		assert.Equal(t, "rocket-league", ws.artifactSlug["Sugar"])
		assert.Equal(t, igdb.Entry{NativeID: "ns1 c1"}, ws.identifiers["rocket-league"])
	})

	t.Run("collision diverts both items", func(t *testing.T) {
		ws := newWorkingSet()
		first := &item{appName: "First", namespace: "ns1", catalogItemID: "c1"}
		second := &item{appName: "Second", namespace: "ns2", catalogItemID: "c2"}
		ws.add("unreal-engine", first)
		ws.add("unreal-engine", second)

		assert.NotContains(t, ws.identifiers, "unreal-engine")
		assert.NotContains(t, ws.items, "unreal-engine")
		assert.NotContains(t, ws.artifactSlug, "First")
		require.Len(t, ws.duplicates["unreal-engine"], 2)
		assert.Equal(t, "unreal-engine", ws.duplicateSlug["First"])
		assert.Equal(t, "unreal-engine", ws.duplicateSlug["Second"])
	})

	t.Run("third collision appends", func(t *testing.T) {
		ws := newWorkingSet()
		ws.add("twin", &item{appName: "A"})
		ws.add("twin", &item{appName: "B"})
		ws.add("twin", &item{appName: "C"})

		assert.Len(t, ws.duplicates["twin"], 3)
		assert.Equal(t, "twin", ws.duplicateSlug["C"])
	})
}

func TestWorkingSetRecordPlayTime(t *testing.T) {
	t.Run("primary item", func(t *testing.T) {
		ws := newWorkingSet()
		it := &item{appName: "Sugar"}
		ws.add("rocket-league", it)

		slug, diverted := ws.recordPlayTime("Sugar", 240)
		assert.Equal(t, "rocket-league", slug)
		assert.False(t, diverted)
		assert.Equal(t, int64(240), it.playTime)
	})

	t.Run("diverted item", func(t *testing.T) {
		ws := newWorkingSet()
		first := &item{appName: "First"}
		second := &item{appName: "Second"}
		ws.add("twin", first)
		ws.add("twin", second)

		slug, diverted := ws.recordPlayTime("Second", 61)
		assert.Equal(t, "twin", slug)
		assert.True(t, diverted)
		assert.Equal(t, int64(61), second.playTime)
		assert.Zero(t, first.playTime)
	})

	t.Run("unknown artifact", func(t *testing.T) {
		ws := newWorkingSet()
		slug, diverted := ws.recordPlayTime("Ghost", 5)
		assert.Empty(t, slug)
		assert.True(t, diverted)
	})
}

func TestWorkingSetDrop(t *testing.T) {
	ws := newWorkingSet()
	ws.add("hades", &item{appName: "Min", namespace: "ns", catalogItemID: "c"})
	ws.drop("hades", "Min")

	assert.Empty(t, ws.identifiers)
	assert.Empty(t, ws.items)
	assert.Empty(t, ws.artifactSlug)
}

func TestWorkingSetMarkEmitted(t *testing.T) {
	ws := newWorkingSet()
	assert.True(t, ws.markEmitted(119171))
	assert.False(t, ws.markEmitted(119171))
	assert.True(t, ws.markEmitted(71))
}

func TestItemEpicID(t *testing.T) {
	it := &item{namespace: "fn", catalogItemID: "4fe75bbc5a674f4f9b356b5c90567da5"}
	assert.Equal(t, "fn 4fe75bbc5a674f4f9b356b5c90567da5", it.epicID())
}
