package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"schedshare/core/errors"
	accountEntity "schedshare/modules/account/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func newTestTokenProvider(accounts *fakeAccountRepo, tokenURL string, now time.Time) *googleTokenProvider {
	return &googleTokenProvider{
		accounts: accounts,
		oauth: oauth2.Config{
			ClientID:     "client",
			ClientSecret: "secret",
			Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
		},
		now: func() time.Time { return now },
	}
}

func TestGetAccessTokenReturnsCachedWhenFresh(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	accounts := &fakeAccountRepo{account: &accountEntity.LinkedAccount{
		Provider:       "google",
		AccessToken:    strPtr("cached-token"),
		RefreshToken:   strPtr("refresh"),
		TokenExpiresAt: timePtr(now.Add(time.Hour)),
		IsActive:       true,
	}}
	p := newTestTokenProvider(accounts, "http://invalid.test/token", now)

	token, err := p.GetAccessToken(context.Background(), uuid.New())

	require.NoError(t, err)
	assert.Equal(t, "cached-token", token)
	assert.Zero(t, accounts.updateCalls)
}

func TestGetAccessTokenRefreshesNearExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "my-refresh", r.Form.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"fresh-token","token_type":"Bearer","expires_in":3600}`))
	}))
	defer ts.Close()

	accounts := &fakeAccountRepo{account: &accountEntity.LinkedAccount{
		Provider:       "google",
		AccessToken:    strPtr("stale-token"),
		RefreshToken:   strPtr("my-refresh"),
		TokenExpiresAt: timePtr(now.Add(2 * time.Minute)),
		IsActive:       true,
	}}
	p := newTestTokenProvider(accounts, ts.URL, now)

	token, err := p.GetAccessToken(context.Background(), uuid.New())

	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)
	assert.Equal(t, 1, accounts.updateCalls)
	require.NotNil(t, accounts.account.AccessToken)
	assert.Equal(t, "fresh-token", *accounts.account.AccessToken)
}

func TestGetAccessTokenNoLinkedAccount(t *testing.T) {
	p := newTestTokenProvider(&fakeAccountRepo{}, "http://invalid.test/token", time.Now())

	_, err := p.GetAccessToken(context.Background(), uuid.New())

	require.Error(t, err)
	assert.Equal(t, errors.ErrNoLinkedAccount, errors.CodeOf(err))
}

func TestGetAccessTokenExpiredWithoutRefreshToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	accounts := &fakeAccountRepo{account: &accountEntity.LinkedAccount{
		Provider:       "google",
		AccessToken:    strPtr("stale-token"),
		TokenExpiresAt: timePtr(now.Add(-time.Minute)),
		IsActive:       true,
	}}
	p := newTestTokenProvider(accounts, "http://invalid.test/token", now)

	_, err := p.GetAccessToken(context.Background(), uuid.New())

	require.Error(t, err)
	assert.Equal(t, errors.ErrNoRefreshToken, errors.CodeOf(err))
}

func TestGetAccessTokenRefreshFailureRequiresReauth(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer ts.Close()

	accounts := &fakeAccountRepo{account: &accountEntity.LinkedAccount{
		Provider:       "google",
		AccessToken:    strPtr("stale-token"),
		RefreshToken:   strPtr("revoked"),
		TokenExpiresAt: timePtr(now.Add(-time.Minute)),
		IsActive:       true,
	}}
	p := newTestTokenProvider(accounts, ts.URL, now)

	_, err := p.GetAccessToken(context.Background(), uuid.New())

	require.Error(t, err)
	assert.Equal(t, errors.ErrNoRefreshToken, errors.CodeOf(err))
	assert.Zero(t, accounts.updateCalls)
}

func TestGetAccessTokenSharesConcurrentRefresh(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var hits atomic.Int32
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"shared-token","token_type":"Bearer","expires_in":3600}`))
	}))
	defer ts.Close()

	accounts := &fakeAccountRepo{account: &accountEntity.LinkedAccount{
		Provider:       "google",
		AccessToken:    strPtr("stale-token"),
		RefreshToken:   strPtr("my-refresh"),
		TokenExpiresAt: timePtr(now.Add(-time.Minute)),
		IsActive:       true,
	}}
	p := newTestTokenProvider(accounts, ts.URL, now)
	userID := uuid.New()

	const callers = 5
	results := make(chan string, callers)
	for i := 0; i < callers; i++ {
		go func() {
			token, err := p.GetAccessToken(context.Background(), userID)
			if err != nil {
				results <- "error: " + err.Error()
				return
			}
			results <- token
		}()
	}

	// Give the goroutines time to pile up on the in-flight refresh.
	time.Sleep(50 * time.Millisecond)
	close(release)

	for i := 0; i < callers; i++ {
		assert.Equal(t, "shared-token", <-results)
	}
	assert.Equal(t, int32(1), hits.Load())
}
