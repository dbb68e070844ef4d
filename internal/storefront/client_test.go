package storefront_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamedex/gamedex/internal/ratelimit"
	"github.com/gamedex/gamedex/internal/storefront"
	"github.com/gamedex/gamedex/pkg/errors"
	"github.com/gamedex/gamedex/pkg/games"
)

func newClient() *storefront.Client {
	return storefront.NewClient("Steam", ratelimit.NewGate(time.Millisecond))
}

func TestClientGet(t *testing.T) {
	t.Run("appends params and parses object", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "value", r.URL.Query().Get("key"))
			assert.Equal(t, "yes", r.URL.Query().Get("existing"))
			io.WriteString(w, `{"total": 3}`)
		}))
		defer srv.Close()

		params := url.Values{}
		params.Set("key", "value")
		result, err := newClient().Get(context.Background(), srv.URL+"/path?existing=yes", nil, params, false)
		require.NoError(t, err)
		assert.Equal(t, int64(3), result.Get("total").Int())
	})

	t.Run("sends headers", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			io.WriteString(w, `{}`)
		}))
		defer srv.Close()

		_, err := newClient().Get(context.Background(), srv.URL,
			map[string]string{"Authorization": "Bearer tok"}, nil, false)
		require.NoError(t, err)
	})

	t.Run("wrong shape is a protocol error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `<html>login required</html>`)
		}))
		defer srv.Close()

		_, err := newClient().Get(context.Background(), srv.URL, nil, nil, false)
		require.Error(t, err)
		var pe *errors.ProtocolError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, "Steam", pe.Source)
	})

	t.Run("array wanted", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"not": "an array"}`)
		}))
		defer srv.Close()

		_, err := newClient().Get(context.Background(), srv.URL, nil, nil, true)
		require.Error(t, err)
		assert.True(t, errors.IsTransient(err))
	})
}

func TestClientPostForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		io.WriteString(w, `{"access_token": "tok"}`)
	}))
	defer srv.Close()

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	result, err := newClient().PostForm(context.Background(), srv.URL, nil, form, false)
	require.NoError(t, err)
	assert.Equal(t, "tok", result.Get("access_token").String())
}

func TestRefreshKnown(t *testing.T) {
	t.Run("raises playtime and unions platform", func(t *testing.T) {
		existing := games.Game{PlayTime: 100, Platforms: []string{"Mac"}}
		updated, changed := storefront.RefreshKnown(&existing, 250)
		assert.True(t, changed)
		assert.Equal(t, int64(250), updated.PlayTime)
		assert.Equal(t, []string{"Mac", "PC"}, updated.Platforms)
	})

	t.Run("playtime never decreases", func(t *testing.T) {
		existing := games.Game{PlayTime: 500, Platforms: []string{"PC"}}
		updated, changed := storefront.RefreshKnown(&existing, 100)
		assert.False(t, changed)
		assert.Equal(t, int64(500), updated.PlayTime)
	})
}
