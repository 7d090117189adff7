package service

import (
	"context"
	"testing"
	"time"

	"schedshare/core/errors"
	eventEntity "schedshare/modules/event/entity"
	"schedshare/modules/sync/dto"
	"schedshare/modules/sync/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pushFixture struct {
	engine      *PushEngine
	client      *fakeCalendarClient
	connections *fakeConnectionRepo
	mappings    *fakeMappingRepo
	events      *fakeEventRepo
	userID      uuid.UUID
	now         time.Time
}

func newPushFixture() *pushFixture {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	client := newFakeCalendarClient()
	connections := &fakeConnectionRepo{conn: &entity.CalendarConnection{
		Enabled:     true,
		PushEnabled: true,
	}}
	mappings := &fakeMappingRepo{}
	events := newFakeEventRepo(func() time.Time { return now })

	engine := NewPushEngine(client, connections, mappings, events)
	engine.now = func() time.Time { return now }

	return &pushFixture{
		engine:      engine,
		client:      client,
		connections: connections,
		mappings:    mappings,
		events:      events,
		userID:      uuid.New(),
		now:         now,
	}
}

func (f *pushFixture) addLocalEvent(t *testing.T, title string, source eventEntity.EventSource) *eventEntity.Event {
	t.Helper()
	ev, err := f.events.Create(context.Background(), &eventEntity.Event{
		OwnerID:  f.userID,
		Title:    title,
		StartAt:  time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC),
		EndAt:    time.Date(2026, 3, 12, 11, 0, 0, 0, time.UTC),
		Timezone: "UTC",
		Source:   source,
	})
	require.NoError(t, err)
	return ev
}

func TestPushInsertsUnmappedLocalEvent(t *testing.T) {
	f := newPushFixture()
	ev := f.addLocalEvent(t, "Standup", eventEntity.SourceLocal)

	summary, err := f.engine.Push(context.Background(), f.userID)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Pushed)
	require.Len(t, f.client.inserted, 1)
	assert.Equal(t, "Standup", f.client.inserted[0].Summary)

	m, err := f.mappings.GetByLocalEventID(context.Background(), ev.ID)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "remote-1", m.ExternalEventID)
	require.NotNil(t, m.ExternalEtag)
	assert.Equal(t, `"etag-new"`, *m.ExternalEtag)
	require.NotNil(t, m.LastPushedAt)

	stored, err := f.events.GetByID(context.Background(), ev.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ExternalID)
	assert.Equal(t, "remote-1", *stored.ExternalID)
}

func TestPushIsIdempotentWithoutLocalChanges(t *testing.T) {
	f := newPushFixture()
	f.addLocalEvent(t, "Standup", eventEntity.SourceLocal)

	_, err := f.engine.Push(context.Background(), f.userID)
	require.NoError(t, err)

	summary, err := f.engine.Push(context.Background(), f.userID)

	require.NoError(t, err)
	assert.Zero(t, summary.Pushed)
	assert.Len(t, f.client.inserted, 1)
	assert.Empty(t, f.client.updated)
}

func TestPushUpdatesModifiedEvent(t *testing.T) {
	f := newPushFixture()
	ev := f.addLocalEvent(t, "Standup", eventEntity.SourceLocal)
	_, err := f.engine.Push(context.Background(), f.userID)
	require.NoError(t, err)

	// Local edit after the first push.
	f.events.now = func() time.Time { return f.now.Add(time.Hour) }
	ev.Title = "Standup (moved)"
	require.NoError(t, f.events.Update(context.Background(), ev))

	summary, err := f.engine.Push(context.Background(), f.userID)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)
	assert.Zero(t, summary.Pushed)
	payload, ok := f.client.updated["remote-1"]
	require.True(t, ok)
	assert.Equal(t, "Standup (moved)", payload.Summary)

	m, err := f.mappings.GetByLocalEventID(context.Background(), ev.ID)
	require.NoError(t, err)
	require.NotNil(t, m.ExternalEtag)
	assert.Equal(t, `"etag-upd"`, *m.ExternalEtag)
}

func TestPushNeverExportsRemoteEvents(t *testing.T) {
	f := newPushFixture()
	f.addLocalEvent(t, "Imported", eventEntity.SourceRemote)

	summary, err := f.engine.Push(context.Background(), f.userID)

	require.NoError(t, err)
	assert.Zero(t, summary.Pushed)
	assert.Empty(t, f.client.inserted)
}

func TestPushDisabledSkipsExceptOptIns(t *testing.T) {
	f := newPushFixture()
	f.connections.conn.PushEnabled = false
	f.addLocalEvent(t, "Not exported", eventEntity.SourceLocal)
	optIn := f.addLocalEvent(t, "Exported anyway", eventEntity.SourceLocal)
	optIn.SyncToGoogle = true
	require.NoError(t, f.events.Update(context.Background(), optIn))

	summary, err := f.engine.Push(context.Background(), f.userID)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Pushed)
	require.Len(t, f.client.inserted, 1)
	assert.Equal(t, "Exported anyway", f.client.inserted[0].Summary)
}

func TestPushContainsPerEventFailures(t *testing.T) {
	f := newPushFixture()
	f.addLocalEvent(t, "First", eventEntity.SourceLocal)
	f.addLocalEvent(t, "Second", eventEntity.SourceLocal)
	f.client.insertErr = &RemoteAPIError{Status: 500, Body: "boom"}

	summary, err := f.engine.Push(context.Background(), f.userID)

	require.NoError(t, err)
	assert.Zero(t, summary.Pushed)
	require.Len(t, summary.Errors, 2)
	for _, e := range summary.Errors {
		assert.Equal(t, dto.ErrorKindRemoteAPI, e.Kind)
	}
}

func TestPushAbortsOnAuthFailure(t *testing.T) {
	f := newPushFixture()
	f.addLocalEvent(t, "First", eventEntity.SourceLocal)
	f.addLocalEvent(t, "Second", eventEntity.SourceLocal)
	f.client.insertErr = errors.NewAppError(errors.ErrNoRefreshToken, "re-auth required", nil)

	summary, err := f.engine.Push(context.Background(), f.userID)

	require.Error(t, err)
	assert.Equal(t, errors.ErrNoRefreshToken, errors.CodeOf(err))
	// The first failure stops the run; the second event is never attempted.
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, dto.ErrorKindAuth, summary.Errors[0].Kind)
}
