package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"schedshare/core/constants"
	"schedshare/core/logger"
	"schedshare/modules/sync/dto"

	"github.com/google/uuid"
)

const (
	googleCalendarAPIBase = "https://www.googleapis.com/calendar/v3"
	defaultPageSize       = 250
)

// RemoteAPIError is a non-2xx response from the remote calendar API.
type RemoteAPIError struct {
	Status int
	Body   string
}

func (e *RemoteAPIError) Error() string {
	return fmt.Sprintf("remote calendar API error: status %d: %s", e.Status, e.Body)
}

// CalendarClient is the typed wrapper over the remote calendar HTTP API.
type CalendarClient interface {
	ListEventsPage(ctx context.Context, userID uuid.UUID, timeMin, timeMax time.Time, pageToken string) ([]dto.RemoteEvent, string, error)
	ListAllEvents(ctx context.Context, userID uuid.UUID, timeMin, timeMax time.Time) ([]dto.RemoteEvent, error)
	InsertEvent(ctx context.Context, userID uuid.UUID, payload *dto.EventPayload) (*dto.RemoteEvent, error)
	UpdateEvent(ctx context.Context, userID uuid.UUID, externalID string, payload *dto.EventPayload) (*dto.RemoteEvent, error)
	// DeleteEvent is idempotent: a resource-already-gone response counts
	// as success.
	DeleteEvent(ctx context.Context, userID uuid.UUID, externalID string) error
}

type googleCalendarClient struct {
	tokens  TokenProvider
	client  *http.Client
	baseURL string
}

func NewGoogleCalendarClient(tokens TokenProvider) CalendarClient {
	return &googleCalendarClient{
		tokens:  tokens,
		client:  &http.Client{Timeout: constants.HTTPClientTimeout},
		baseURL: googleCalendarAPIBase,
	}
}

func (c *googleCalendarClient) eventsURL() string {
	return c.baseURL + "/calendars/primary/events"
}

func (c *googleCalendarClient) ListEventsPage(ctx context.Context, userID uuid.UUID, timeMin, timeMax time.Time, pageToken string) ([]dto.RemoteEvent, string, error) {
	params := url.Values{}
	params.Set("timeMin", timeMin.Format(time.RFC3339))
	params.Set("timeMax", timeMax.Format(time.RFC3339))
	params.Set("singleEvents", "true")
	params.Set("orderBy", "startTime")
	params.Set("maxResults", fmt.Sprintf("%d", defaultPageSize))
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	body, err := c.do(ctx, userID, http.MethodGet, c.eventsURL()+"?"+params.Encode(), nil)
	if err != nil {
		return nil, "", err
	}

	var page dto.ListEventsResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, "", fmt.Errorf("failed to parse events page: %w", err)
	}
	return page.Items, page.NextPageToken, nil
}

func (c *googleCalendarClient) ListAllEvents(ctx context.Context, userID uuid.UUID, timeMin, timeMax time.Time) ([]dto.RemoteEvent, error) {
	var all []dto.RemoteEvent
	pageToken := ""
	for {
		events, next, err := c.ListEventsPage(ctx, userID, timeMin, timeMax, pageToken)
		if err != nil {
			return nil, err
		}
		all = append(all, events...)
		if next == "" {
			return all, nil
		}
		pageToken = next
	}
}

func (c *googleCalendarClient) InsertEvent(ctx context.Context, userID uuid.UUID, payload *dto.EventPayload) (*dto.RemoteEvent, error) {
	body, err := c.do(ctx, userID, http.MethodPost, c.eventsURL(), payload)
	if err != nil {
		return nil, err
	}

	var created dto.RemoteEvent
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("failed to parse created event: %w", err)
	}
	return &created, nil
}

func (c *googleCalendarClient) UpdateEvent(ctx context.Context, userID uuid.UUID, externalID string, payload *dto.EventPayload) (*dto.RemoteEvent, error) {
	body, err := c.do(ctx, userID, http.MethodPut, c.eventsURL()+"/"+url.PathEscape(externalID), payload)
	if err != nil {
		return nil, err
	}

	var updated dto.RemoteEvent
	if err := json.Unmarshal(body, &updated); err != nil {
		return nil, fmt.Errorf("failed to parse updated event: %w", err)
	}
	return &updated, nil
}

func (c *googleCalendarClient) DeleteEvent(ctx context.Context, userID uuid.UUID, externalID string) error {
	_, err := c.do(ctx, userID, http.MethodDelete, c.eventsURL()+"/"+url.PathEscape(externalID), nil)
	if rerr, ok := err.(*RemoteAPIError); ok {
		// Already gone on the remote side; deletion is idempotent.
		if rerr.Status == http.StatusNotFound || rerr.Status == http.StatusGone {
			return nil
		}
	}
	return err
}

// do issues one authenticated request and returns the response body, or a
// *RemoteAPIError on a non-2xx status.
func (c *googleCalendarClient) do(ctx context.Context, userID uuid.UUID, method, rawURL string, payload any) ([]byte, error) {
	token, err := c.tokens.GetAccessToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		logger.Error("CalendarClient:Request:Error", "error", err, "method", method, "user_id", userID)
		return nil, &RemoteAPIError{Status: 0, Body: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Error("CalendarClient:APIError", "status", resp.StatusCode, "body", string(body), "method", method, "user_id", userID)
		return nil, &RemoteAPIError{Status: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}
