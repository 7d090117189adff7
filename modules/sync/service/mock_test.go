package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	accountEntity "schedshare/modules/account/entity"
	eventEntity "schedshare/modules/event/entity"
	"schedshare/modules/sync/dto"
	"schedshare/modules/sync/entity"

	"github.com/google/uuid"
)

// In-memory fakes for the stores and clients the engines depend on.

type fakeAccountRepo struct {
	mu          sync.Mutex
	account     *accountEntity.LinkedAccount
	getErr      error
	updateErr   error
	updateCalls int
}

func (f *fakeAccountRepo) GetByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (*accountEntity.LinkedAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.account == nil {
		return nil, nil
	}
	cp := *f.account
	return &cp, nil
}

func (f *fakeAccountRepo) Upsert(ctx context.Context, acct *accountEntity.LinkedAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *acct
	f.account = &cp
	return nil
}

func (f *fakeAccountRepo) UpdateAccessToken(ctx context.Context, userID uuid.UUID, provider, accessToken string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	if f.account != nil {
		f.account.AccessToken = &accessToken
		f.account.TokenExpiresAt = &expiresAt
	}
	return nil
}

func (f *fakeAccountRepo) Deactivate(ctx context.Context, userID uuid.UUID, provider string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.account != nil {
		f.account.IsActive = false
	}
	return nil
}

type fakeConnectionRepo struct {
	conn            *entity.CalendarConnection
	getErr          error
	upsertErr       error
	lastSyncedAt    []time.Time
	lastSyncedErr   error
	dueUserIDs      []uuid.UUID
	deletedUserIDs  []uuid.UUID
	upsertedConfigs []entity.CalendarConnection
}

func (f *fakeConnectionRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.CalendarConnection, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.conn == nil {
		return nil, nil
	}
	cp := *f.conn
	return &cp, nil
}

func (f *fakeConnectionRepo) Upsert(ctx context.Context, conn *entity.CalendarConnection) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	cp := *conn
	f.conn = &cp
	f.upsertedConfigs = append(f.upsertedConfigs, cp)
	return nil
}

func (f *fakeConnectionRepo) UpsertLastSyncedAt(ctx context.Context, userID uuid.UUID, at time.Time) error {
	if f.lastSyncedErr != nil {
		return f.lastSyncedErr
	}
	f.lastSyncedAt = append(f.lastSyncedAt, at)
	if f.conn != nil {
		f.conn.LastSyncedAt = &at
	}
	return nil
}

func (f *fakeConnectionRepo) ListDueForSync(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	return f.dueUserIDs, nil
}

func (f *fakeConnectionRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	f.deletedUserIDs = append(f.deletedUserIDs, userID)
	f.conn = nil
	return nil
}

type fakeMappingRepo struct {
	mappings  []*entity.EventMapping
	getErr    error
	createErr error
	updateErr error

	deletedAll []uuid.UUID
}

func (f *fakeMappingRepo) GetByExternalID(ctx context.Context, userID uuid.UUID, externalEventID string) (*entity.EventMapping, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, m := range f.mappings {
		if m.UserID == userID && m.ExternalEventID == externalEventID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeMappingRepo) GetByLocalEventID(ctx context.Context, localEventID uuid.UUID) (*entity.EventMapping, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, m := range f.mappings {
		if m.LocalEventID == localEventID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeMappingRepo) Create(ctx context.Context, m *entity.EventMapping) (*entity.EventMapping, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	m.ID = uuid.New()
	cp := *m
	f.mappings = append(f.mappings, &cp)
	return m, nil
}

func (f *fakeMappingRepo) Update(ctx context.Context, m *entity.EventMapping) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	for i, existing := range f.mappings {
		if existing.ID == m.ID {
			cp := *m
			f.mappings[i] = &cp
			return nil
		}
	}
	return fmt.Errorf("mapping %s not found", m.ID)
}

func (f *fakeMappingRepo) Delete(ctx context.Context, id uuid.UUID) error {
	for i, m := range f.mappings {
		if m.ID == id {
			f.mappings = append(f.mappings[:i], f.mappings[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeMappingRepo) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	f.deletedAll = append(f.deletedAll, userID)
	kept := f.mappings[:0]
	for _, m := range f.mappings {
		if m.UserID != userID {
			kept = append(kept, m)
		}
	}
	f.mappings = kept
	return nil
}

func (f *fakeMappingRepo) byExternalID(externalEventID string) *entity.EventMapping {
	for _, m := range f.mappings {
		if m.ExternalEventID == externalEventID {
			return m
		}
	}
	return nil
}

type fakeEventRepo struct {
	events    map[uuid.UUID]*eventEntity.Event
	order     []uuid.UUID
	now       func() time.Time
	createErr error
	updateErr error
	deleteErr error
	// createErrFor fails Create for events with a matching title.
	createErrFor map[string]error
}

func newFakeEventRepo(now func() time.Time) *fakeEventRepo {
	return &fakeEventRepo{
		events: make(map[uuid.UUID]*eventEntity.Event),
		now:    now,
	}
}

func (f *fakeEventRepo) Create(ctx context.Context, ev *eventEntity.Event) (*eventEntity.Event, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if err, ok := f.createErrFor[ev.Title]; ok {
		return nil, err
	}
	ev.ID = uuid.New()
	ev.CreatedAt = f.now()
	ev.UpdatedAt = f.now()
	cp := *ev
	f.events[ev.ID] = &cp
	f.order = append(f.order, ev.ID)
	return ev, nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id uuid.UUID) (*eventEntity.Event, error) {
	ev, ok := f.events[id]
	if !ok {
		return nil, nil
	}
	cp := *ev
	return &cp, nil
}

func (f *fakeEventRepo) ListByOwnerAndSource(ctx context.Context, ownerID uuid.UUID, source eventEntity.EventSource) ([]eventEntity.Event, error) {
	var out []eventEntity.Event
	for _, id := range f.order {
		ev, ok := f.events[id]
		if ok && ev.OwnerID == ownerID && ev.Source == source {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (f *fakeEventRepo) Update(ctx context.Context, ev *eventEntity.Event) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	existing, ok := f.events[ev.ID]
	if !ok {
		return fmt.Errorf("event %s not found", ev.ID)
	}
	cp := *ev
	cp.UpdatedAt = f.now()
	cp.CreatedAt = existing.CreatedAt
	f.events[ev.ID] = &cp
	return nil
}

func (f *fakeEventRepo) SetExternalID(ctx context.Context, id uuid.UUID, externalID string) error {
	ev, ok := f.events[id]
	if !ok {
		return fmt.Errorf("event %s not found", id)
	}
	// Mirrors the SQL behavior: external_id changes, updated_at does not.
	ev.ExternalID = &externalID
	return nil
}

func (f *fakeEventRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.events, id)
	for i, existing := range f.order {
		if existing == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

type fakeCalendarClient struct {
	remote    []dto.RemoteEvent
	listErr   error
	insertErr error
	updateErr error

	listedMin time.Time
	listedMax time.Time

	inserted  []dto.EventPayload
	updated   map[string]dto.EventPayload
	deleted   []string
	insertSeq int
	// insertEtag and updateEtag are stamped onto returned events.
	insertEtag string
	updateEtag string
}

func newFakeCalendarClient() *fakeCalendarClient {
	return &fakeCalendarClient{
		updated:    make(map[string]dto.EventPayload),
		insertEtag: `"etag-new"`,
		updateEtag: `"etag-upd"`,
	}
}

func (f *fakeCalendarClient) ListEventsPage(ctx context.Context, userID uuid.UUID, timeMin, timeMax time.Time, pageToken string) ([]dto.RemoteEvent, string, error) {
	if f.listErr != nil {
		return nil, "", f.listErr
	}
	return f.remote, "", nil
}

func (f *fakeCalendarClient) ListAllEvents(ctx context.Context, userID uuid.UUID, timeMin, timeMax time.Time) ([]dto.RemoteEvent, error) {
	f.listedMin = timeMin
	f.listedMax = timeMax
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.remote, nil
}

func (f *fakeCalendarClient) InsertEvent(ctx context.Context, userID uuid.UUID, payload *dto.EventPayload) (*dto.RemoteEvent, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.insertSeq++
	f.inserted = append(f.inserted, *payload)
	return &dto.RemoteEvent{
		ID:      fmt.Sprintf("remote-%d", f.insertSeq),
		Summary: payload.Summary,
		Start:   payload.Start,
		End:     payload.End,
		Etag:    f.insertEtag,
		Updated: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func (f *fakeCalendarClient) UpdateEvent(ctx context.Context, userID uuid.UUID, externalID string, payload *dto.EventPayload) (*dto.RemoteEvent, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updated[externalID] = *payload
	return &dto.RemoteEvent{
		ID:      externalID,
		Summary: payload.Summary,
		Start:   payload.Start,
		End:     payload.End,
		Etag:    f.updateEtag,
		Updated: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func (f *fakeCalendarClient) DeleteEvent(ctx context.Context, userID uuid.UUID, externalID string) error {
	f.deleted = append(f.deleted, externalID)
	return nil
}

type fakeCache struct {
	mu         sync.Mutex
	locks      map[string]bool
	values     map[string]string
	acquireErr error
	denyLock   bool

	acquired []string
	released []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		locks:  make(map[string]bool),
		values: make(map[string]string),
	}
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[key], nil
}

func (f *fakeCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	return nil
}

func (f *fakeCache) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.acquireErr != nil {
		return false, f.acquireErr
	}
	if f.denyLock || f.locks[key] {
		return false, nil
	}
	f.locks[key] = true
	f.acquired = append(f.acquired, key)
	return true, nil
}

func (f *fakeCache) ReleaseLock(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.locks, key)
	f.released = append(f.released, key)
	return nil
}

type fakeTokenProvider struct {
	token string
	err   error
	calls int
}

func (f *fakeTokenProvider) GetAccessToken(ctx context.Context, userID uuid.UUID) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}

type archivedCall struct {
	userID     uuid.UUID
	summary    dto.SyncSummary
	finishedAt time.Time
}

type fakeArchiver struct {
	calls []archivedCall
	err   error
}

func (f *fakeArchiver) ArchiveRun(ctx context.Context, userID uuid.UUID, summary dto.SyncSummary, finishedAt time.Time) error {
	f.calls = append(f.calls, archivedCall{userID: userID, summary: summary, finishedAt: finishedAt})
	return f.err
}
