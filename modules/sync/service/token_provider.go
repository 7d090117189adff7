package service

import (
	"context"
	"time"

	"schedshare/core/constants"
	"schedshare/core/errors"
	"schedshare/core/logger"
	accountRepo "schedshare/modules/account/repository"
	"schedshare/modules/sync/dto"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"
)

// TokenProvider yields a valid OAuth access token for the user's linked
// calendar account, refreshing it when it is about to expire.
type TokenProvider interface {
	GetAccessToken(ctx context.Context, userID uuid.UUID) (string, error)
}

type googleTokenProvider struct {
	accounts accountRepo.Repository
	oauth    oauth2.Config
	// Concurrent callers for the same user share a single refresh.
	group singleflight.Group
	now   func() time.Time
}

func NewGoogleTokenProvider(accounts accountRepo.Repository, clientID, clientSecret string) TokenProvider {
	return &googleTokenProvider{
		accounts: accounts,
		oauth: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
		},
		now: time.Now,
	}
}

func (p *googleTokenProvider) GetAccessToken(ctx context.Context, userID uuid.UUID) (string, error) {
	v, err, _ := p.group.Do(userID.String(), func() (any, error) {
		return p.fetchOrRefresh(ctx, userID)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (p *googleTokenProvider) fetchOrRefresh(ctx context.Context, userID uuid.UUID) (string, error) {
	acct, err := p.accounts.GetByUserAndProvider(ctx, userID, dto.ProviderGoogle)
	if err != nil {
		return "", errors.NewAppError(errors.ErrInternalServer, "failed to load linked account", err)
	}
	if acct == nil || acct.AccessToken == nil {
		return "", errors.NewAppError(errors.ErrNoLinkedAccount, "no linked Google account", nil)
	}

	if acct.TokenExpiresAt != nil && p.now().Before(acct.TokenExpiresAt.Add(-constants.TokenExpiryBuffer)) {
		return *acct.AccessToken, nil
	}

	if acct.RefreshToken == nil || *acct.RefreshToken == "" {
		return "", errors.NewAppError(errors.ErrNoRefreshToken, "Google token expired and no refresh token stored; re-authorization required", nil)
	}

	logger.Info("TokenProvider:Refreshing", "user_id", userID)

	source := p.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: *acct.RefreshToken})
	token, err := source.Token()
	if err != nil {
		logger.Error("TokenProvider:Refresh:Error", "error", err, "user_id", userID)
		return "", errors.NewAppError(errors.ErrNoRefreshToken, "failed to refresh Google token; re-authorization required", err)
	}

	if err := p.accounts.UpdateAccessToken(ctx, userID, dto.ProviderGoogle, token.AccessToken, token.Expiry); err != nil {
		logger.Error("TokenProvider:Persist:Error", "error", err, "user_id", userID)
		return "", errors.NewAppError(errors.ErrInternalServer, "failed to persist refreshed token", err)
	}

	logger.Info("TokenProvider:Refreshed", "user_id", userID, "expires_at", token.Expiry)
	return token.AccessToken, nil
}
