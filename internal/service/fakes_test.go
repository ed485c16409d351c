package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"example.com/planner/services/calendar/internal/models"
	"example.com/planner/services/calendar/internal/repository"
)

// fakeRepo is an in-memory Repository used by the service tests
type fakeRepo struct {
	mu            sync.Mutex
	nextID        uint
	events        map[uint]*models.Event
	permissions   map[uint]*models.EventPermission
	versions      map[uint]*models.EventVersion
	notifications map[uint]*models.Notification
	users         map[uint]*models.User
	tokens        map[uint]*models.APIToken
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		events:        make(map[uint]*models.Event),
		permissions:   make(map[uint]*models.EventPermission),
		versions:      make(map[uint]*models.EventVersion),
		notifications: make(map[uint]*models.Notification),
		users:         make(map[uint]*models.User),
		tokens:        make(map[uint]*models.APIToken),
	}
}

func (f *fakeRepo) allocID() uint {
	f.nextID++
	return f.nextID
}

func (f *fakeRepo) WithTransaction(ctx context.Context, fn func(ctx context.Context, txRepo repository.Repository) error) error {
	return fn(ctx, f)
}

func (f *fakeRepo) CreateEvent(ctx context.Context, event *models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	event.ID = f.allocID()
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt
	f.events[event.ID] = event
	return nil
}

func (f *fakeRepo) SaveEvent(ctx context.Context, event *models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[event.ID]; !ok {
		return repository.ErrNotFound
	}
	event.UpdatedAt = time.Now()
	f.events[event.ID] = event
	return nil
}

func (f *fakeRepo) FindEventByID(ctx context.Context, id uint) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[id]
	if !ok || event.IsDeleted {
		return nil, repository.ErrNotFound
	}
	return event, nil
}

func (f *fakeRepo) FindEventByIDAny(ctx context.Context, id uint) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return event, nil
}

func (f *fakeRepo) FindEventByIDForUpdate(ctx context.Context, id uint) (*models.Event, error) {
	return f.FindEventByIDAny(ctx, id)
}

func (f *fakeRepo) ListEventsByOwner(ctx context.Context, ownerID uint, offset, limit int) ([]*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var events []*models.Event
	for _, e := range f.events {
		if e.OwnerID == ownerID && !e.IsDeleted {
			events = append(events, e)
		}
	}
	sortEventsByStart(events)
	return paginate(events, offset, limit), nil
}

func (f *fakeRepo) ListAccessibleEvents(ctx context.Context, userID uint) ([]*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var events []*models.Event
	for _, e := range f.events {
		if e.IsDeleted {
			continue
		}
		if e.OwnerID == userID || f.hasPermissionLocked(e.ID, userID) {
			events = append(events, e)
		}
	}
	sortEventsByStart(events)
	return events, nil
}

func (f *fakeRepo) FindConflictCandidates(ctx context.Context, start, end time.Time, excludeEventID uint) ([]*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var events []*models.Event
	for _, e := range f.events {
		if e.IsDeleted || e.ID == excludeEventID {
			continue
		}
		if e.StartTime.Before(end) && e.EndTime.After(start) {
			events = append(events, e)
		}
	}
	sortEventsByStart(events)
	return events, nil
}

func (f *fakeRepo) HardDeleteEvent(ctx context.Context, eventID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.events, eventID)
	for id, p := range f.permissions {
		if p.EventID == eventID {
			delete(f.permissions, id)
		}
	}
	for id, v := range f.versions {
		if v.EventID == eventID {
			delete(f.versions, id)
		}
	}
	for id, n := range f.notifications {
		if n.EventID == eventID {
			delete(f.notifications, id)
		}
	}
	return nil
}

func (f *fakeRepo) hasPermissionLocked(eventID, userID uint) bool {
	for _, p := range f.permissions {
		if p.EventID == eventID && p.UserID == userID {
			return true
		}
	}
	return false
}

func (f *fakeRepo) CreatePermission(ctx context.Context, permission *models.EventPermission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hasPermissionLocked(permission.EventID, permission.UserID) {
		return repository.ErrDuplicateKey
	}
	permission.ID = f.allocID()
	permission.CreatedAt = time.Now()
	f.permissions[permission.ID] = permission
	return nil
}

func (f *fakeRepo) SavePermission(ctx context.Context, permission *models.EventPermission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.permissions[permission.ID] = permission
	return nil
}

func (f *fakeRepo) DeletePermission(ctx context.Context, permission *models.EventPermission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.permissions, permission.ID)
	return nil
}

func (f *fakeRepo) FindPermission(ctx context.Context, eventID, userID uint) (*models.EventPermission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.permissions {
		if p.EventID == eventID && p.UserID == userID {
			return p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRepo) ListPermissions(ctx context.Context, eventID uint) ([]*models.EventPermission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var perms []*models.EventPermission
	for _, p := range f.permissions {
		if p.EventID == eventID {
			perms = append(perms, p)
		}
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].ID < perms[j].ID })
	return perms, nil
}

func (f *fakeRepo) CreateVersion(ctx context.Context, version *models.EventVersion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.versions {
		if v.EventID == version.EventID && v.VersionNumber == version.VersionNumber {
			return repository.ErrDuplicateKey
		}
	}
	version.ID = f.allocID()
	version.CreatedAt = time.Now()
	f.versions[version.ID] = version
	return nil
}

func (f *fakeRepo) FindVersion(ctx context.Context, eventID uint, versionNumber int) (*models.EventVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.versions {
		if v.EventID == eventID && v.VersionNumber == versionNumber {
			return v, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRepo) ListVersions(ctx context.Context, eventID uint, offset, limit int) ([]*models.EventVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var versions []*models.EventVersion
	for _, v := range f.versions {
		if v.EventID == eventID {
			versions = append(versions, v)
		}
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].VersionNumber > versions[j].VersionNumber })
	return paginate(versions, offset, limit), nil
}

func (f *fakeRepo) CreateNotificationBatch(ctx context.Context, notifications []*models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range notifications {
		n.ID = f.allocID()
		n.CreatedAt = time.Now()
		f.notifications[n.ID] = n
	}
	return nil
}

func (f *fakeRepo) FindNotification(ctx context.Context, id, userID uint) (*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notifications[id]
	if !ok || n.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return n, nil
}

func (f *fakeRepo) ListNotifications(ctx context.Context, userID uint, unreadOnly bool) ([]*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Notification
	for _, n := range f.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) SaveNotification(ctx context.Context, notification *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications[notification.ID] = notification
	return nil
}

func (f *fakeRepo) DeleteNotification(ctx context.Context, notification *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.notifications, notification.ID)
	return nil
}

func (f *fakeRepo) MarkAllNotificationsRead(ctx context.Context, userID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, n := range f.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) DeleteNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for id, n := range f.notifications {
		if n.CreatedAt.Before(cutoff) {
			delete(f.notifications, id)
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) CreateUser(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.ID = f.allocID()
	f.users[user.ID] = user
	return nil
}

func (f *fakeRepo) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return user, nil
}

func (f *fakeRepo) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRepo) CreateAPIToken(ctx context.Context, token *models.APIToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	token.ID = f.allocID()
	f.tokens[token.ID] = token
	return nil
}

func (f *fakeRepo) FindAPIToken(ctx context.Context, token string) (*models.APIToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.Token == token {
			return t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRepo) SaveAPIToken(ctx context.Context, token *models.APIToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token.ID] = token
	return nil
}

func (f *fakeRepo) ListAPITokens(ctx context.Context) ([]*models.APIToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.APIToken
	for _, t := range f.tokens {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) DeleteAPIToken(ctx context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, id)
	return nil
}

func sortEventsByStart(events []*models.Event) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].StartTime.Equal(events[j].StartTime) {
			return events[i].ID < events[j].ID
		}
		return events[i].StartTime.Before(events[j].StartTime)
	})
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > len(items) {
		offset = len(items)
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// fakeCache is an in-memory cache.RedisClient
type fakeCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]string)}
}

func (c *fakeCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key], nil
}

func (c *fakeCache) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *fakeCache) Close() error { return nil }

// fakeHub records pushed messages per user
type fakeHub struct {
	mu     sync.Mutex
	pushes map[uint][]interface{}
}

func newFakeHub() *fakeHub {
	return &fakeHub{pushes: make(map[uint][]interface{})}
}

func (h *fakeHub) PushToUser(userID uint, message interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pushes[userID] = append(h.pushes[userID], message)
}

func (h *fakeHub) pushCount(userID uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pushes[userID])
}

// fakeBus records change feed publishes
type fakeBus struct {
	mu       sync.Mutex
	messages []interface{}
}

func (b *fakeBus) SendMessage(ctx context.Context, body interface{}, sessionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, body)
	return nil
}

func (b *fakeBus) Close() error { return nil }
