package epic

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/gamedex/gamedex/pkg/errors"
)

// launcherAuth is the public basic-auth credential of the desktop
// launcher client, required by the OAuth token endpoint.
const launcherAuth = "basic MzRhMDJjZjhmNDQxNGUyOWIxNTkyMTg3NmRhMzZmOWE6ZGFhZmJjY2M3Mzc3NDUwMzlkZmZlNTNkOTRmYzc2Y2Y="

// expirySlack is subtracted from the access-token expiry so the token
// cannot lapse midway through a long enumeration.
const expirySlack = time.Hour

// session carries the OAuth fields the adapter needs from the stored
// credential blob.
type session struct {
	tokenType   string
	accessToken string
	accountID   string
}

func (s session) authorization() string {
	return s.tokenType + " " + s.accessToken
}

// refreshLogin validates the stored credential blob and refreshes it when
// the access token is expired. A refresh token that is itself expired
// fails with errors.ErrAuthExpired. The refreshed blob is persisted back
// through the credential source.
func (a *Adapter) refreshLogin(ctx context.Context, blob string) (session, error) {
	creds := gjson.Parse(blob)

	expiry, err := time.Parse(time.RFC3339, creds.Get("expires_at").String())
	if err != nil {
		return session{}, errors.NewProtocolError(Name, "credential blob has no parsable expires_at", err)
	}
	now := time.Now()
	if now.Before(expiry.Add(-expirySlack)) {
		return sessionFrom(creds), nil
	}

	refreshExpiry, err := time.Parse(time.RFC3339, creds.Get("refresh_expires_at").String())
	if err != nil {
		return session{}, errors.NewProtocolError(Name, "credential blob has no parsable refresh_expires_at", err)
	}
	if !now.Before(refreshExpiry) {
		return session{}, errors.NewAuthExpiredError(Name, "refresh token expired, log in again")
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", creds.Get("refresh_token").String())
	form.Set("token_type", "eg1")
	refreshed, err := a.client.PostForm(ctx, a.authURL+"/account/api/oauth/token",
		map[string]string{"Authorization": launcherAuth}, form, false)
	if err != nil {
		return session{}, err
	}

	// Persist the refreshed blob so the next run starts from it.
	compact, err := json.Marshal(json.RawMessage(refreshed.Raw))
	if err != nil {
		return session{}, errors.NewProtocolError(Name, "re-encoding refreshed credentials", err)
	}
	if err := a.creds.SetCredential(ctx, string(compact)); err != nil {
		return session{}, err
	}
	return sessionFrom(refreshed), nil
}

func sessionFrom(creds gjson.Result) session {
	return session{
		tokenType:   creds.Get("token_type").String(),
		accessToken: creds.Get("access_token").String(),
		accountID:   creds.Get("account_id").String(),
	}
}
