package igdb_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamedex/gamedex/internal/igdb"
	"github.com/gamedex/gamedex/internal/ratelimit"
	"github.com/gamedex/gamedex/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *igdb.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return igdb.NewClient(ratelimit.NewGate(time.Millisecond), "test-client",
		igdb.WithBaseURL(srv.URL))
}

func TestQuery(t *testing.T) {
	t.Run("posts body with client id", func(t *testing.T) {
		var gotPath, gotClientID, gotBody string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotClientID = r.Header.Get("Client-ID")
			raw, _ := io.ReadAll(r.Body)
			gotBody = string(raw)
			io.WriteString(w, `[{"id": 1942, "name": "The Witness"}]`)
		})

		result, err := client.Query(context.Background(), "games", "fields id, name;")
		require.NoError(t, err)
		assert.Equal(t, "/games", gotPath)
		assert.Equal(t, "test-client", gotClientID)
		assert.Equal(t, "fields id, name;", gotBody)
		assert.Equal(t, int64(1942), result.Array()[0].Get("id").Int())
	})

	t.Run("rate limit marker", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "429 Too Many Requests")
		})

		_, err := client.Query(context.Background(), "games", "fields id;")
		require.Error(t, err)
		assert.True(t, errors.IsRateLimited(err))
		assert.True(t, errors.IsTransient(err))
	})

	t.Run("forbidden marker", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "Forbidden")
		})

		_, err := client.Query(context.Background(), "games", "fields id;")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrForbidden))
	})

	t.Run("non-array body", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"message": "oops"}`)
		})

		_, err := client.Query(context.Background(), "games", "fields id;")
		require.Error(t, err)
		var pe *errors.ProtocolError
		assert.True(t, errors.As(err, &pe))
	})
}

func TestGenres(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/genres", r.URL.Path)
		io.WriteString(w, `[{"id": 12, "name": "Role-playing (RPG)"}, {"id": 31, "name": "Adventure"}]`)
	})

	genres, err := client.Genres(context.Background())
	require.NoError(t, err)
	require.Len(t, genres, 2)
	assert.Equal(t, int64(12), genres[0].IGDBID)
	assert.Equal(t, "Role-playing (RPG)", genres[0].Name)
	assert.Equal(t, "Adventure", genres[1].Name)
}
