package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"schedshare/core/cache"
	"schedshare/core/constants"
	"schedshare/core/errors"
	"schedshare/core/logger"
	"schedshare/core/utils"
	"schedshare/modules/account/entity"
	accountRepo "schedshare/modules/account/repository"
	syncEntity "schedshare/modules/sync/entity"
	syncRepo "schedshare/modules/sync/repository"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	oauthStateKeyPrefix = "oauth:state:"
	oauthStateTTL       = 10 * time.Minute
	calendarScope       = "https://www.googleapis.com/auth/calendar.events"
	defaultUserinfoURL  = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// LinkService runs the Google OAuth consent flow and stores the linked
// account's credentials.
type LinkService interface {
	// AuthURL returns the consent URL for the user to visit. The embedded
	// state expires after a few minutes.
	AuthURL(ctx context.Context, userID uuid.UUID) (string, error)
	// HandleCallback exchanges the authorization code, stores the linked
	// account and creates the default sync connection.
	HandleCallback(ctx context.Context, state, code string) error
	Unlink(ctx context.Context, userID uuid.UUID) error
}

type googleLinkService struct {
	accounts    accountRepo.Repository
	connections syncRepo.ConnectionRepository
	states      cache.Cache
	oauth       oauth2.Config
	client      *http.Client
	userinfoURL string
}

func NewGoogleLinkService(
	accounts accountRepo.Repository,
	connections syncRepo.ConnectionRepository,
	states cache.Cache,
	clientID, clientSecret, redirectURI string,
) LinkService {
	return &googleLinkService{
		accounts:    accounts,
		connections: connections,
		states:      states,
		oauth: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       []string{calendarScope, "email"},
			Endpoint:     google.Endpoint,
		},
		client:      &http.Client{Timeout: constants.HTTPClientTimeout},
		userinfoURL: defaultUserinfoURL,
	}
}

func (s *googleLinkService) AuthURL(ctx context.Context, userID uuid.UUID) (string, error) {
	state := utils.GenerateRandomString(32)
	if err := s.states.Set(ctx, oauthStateKeyPrefix+state, userID.String(), oauthStateTTL); err != nil {
		logger.Error("LinkService:SaveState:Error", "error", err, "user_id", userID)
		return "", errors.NewAppError(errors.ErrInternalServer, "failed to store oauth state", err)
	}

	// prompt=consent forces Google to reissue a refresh token even for
	// users who already granted access once.
	url := s.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
	return url, nil
}

func (s *googleLinkService) HandleCallback(ctx context.Context, state, code string) error {
	stored, err := s.states.Get(ctx, oauthStateKeyPrefix+state)
	if err != nil || stored == "" {
		return errors.NewAppError(errors.ErrUnauthorized, "unknown or expired oauth state", err)
	}
	userID, err := uuid.Parse(stored)
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "corrupt oauth state", err)
	}
	if err := s.states.Delete(ctx, oauthStateKeyPrefix+state); err != nil {
		logger.Warn("LinkService:DeleteState:Error", "error", err)
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		logger.Error("LinkService:Exchange:Error", "error", err, "user_id", userID)
		return errors.NewAppError(errors.ErrUnauthorized, "failed to exchange authorization code", err)
	}

	email, err := s.fetchEmail(ctx, token.AccessToken)
	if err != nil {
		logger.Warn("LinkService:FetchEmail:Error", "error", err, "user_id", userID)
	}

	acct := &entity.LinkedAccount{
		UserID:      userID,
		Provider:    "google",
		Email:       email,
		AccessToken: &token.AccessToken,
		IsActive:    true,
	}
	if token.RefreshToken != "" {
		acct.RefreshToken = &token.RefreshToken
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		acct.TokenExpiresAt = &expiry
	}
	if err := s.accounts.Upsert(ctx, acct); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to store linked account", err)
	}

	// First linkage creates the sync connection with default settings.
	existing, err := s.connections.GetByUserID(ctx, userID)
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to load sync connection", err)
	}
	if existing == nil {
		conn := &syncEntity.CalendarConnection{
			UserID:               userID,
			Enabled:              true,
			SyncWindowPastDays:   constants.DefaultSyncWindowPastDays,
			SyncWindowFutureDays: constants.DefaultSyncWindowFutureDays,
		}
		if err := s.connections.Upsert(ctx, conn); err != nil {
			return errors.NewAppError(errors.ErrInternalServer, "failed to create sync connection", err)
		}
	}

	logger.Info("LinkService:Linked", "user_id", userID, "email", email)
	return nil
}

func (s *googleLinkService) Unlink(ctx context.Context, userID uuid.UUID) error {
	if err := s.accounts.Deactivate(ctx, userID, "google"); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to unlink account", err)
	}
	logger.Info("LinkService:Unlinked", "user_id", userID)
	return nil
}

func (s *googleLinkService) fetchEmail(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userinfoURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo request failed: status %d", resp.StatusCode)
	}

	var info struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return "", err
	}
	return info.Email, nil
}
