package notification

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/fixpoint-io/fixpoint-api/internal/apperr"
	"github.com/fixpoint-io/fixpoint-api/internal/cache"
	"github.com/fixpoint-io/fixpoint-api/internal/models"
	"github.com/fixpoint-io/fixpoint-api/internal/repository"
	"github.com/fixpoint-io/fixpoint-api/internal/scope"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fakes
// ==========================

type fakeNotificationRepo struct {
	types      map[string]models.NotificationType
	prefs      map[string]models.NotificationPreference
	created    []models.Notification
	failCreate bool
	listCalls  int
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{
		types: map[string]models.NotificationType{},
		prefs: map[string]models.NotificationPreference{},
	}
}

func (f *fakeNotificationRepo) addType(name string, active bool) models.NotificationType {
	typ := models.NotificationType{ID: uuid.NewString(), Name: name, Category: "test", IsActive: active}
	f.types[name] = typ
	return typ
}

func prefKey(userID, typeID string) string { return userID + "|" + typeID }

func (f *fakeNotificationRepo) GetTypeByName(_ context.Context, name string) (models.NotificationType, error) {
	typ, ok := f.types[name]
	if !ok {
		return models.NotificationType{}, sql.ErrNoRows
	}
	return typ, nil
}

func (f *fakeNotificationRepo) ListTypes(_ context.Context) ([]models.NotificationType, error) {
	f.listCalls++
	var types []models.NotificationType
	for _, typ := range f.types {
		types = append(types, typ)
	}
	return types, nil
}

func (f *fakeNotificationRepo) CreateBatch(_ context.Context, batch []repository.CreateNotificationParams) ([]models.Notification, error) {
	if f.failCreate {
		return nil, errors.New("insert failed")
	}
	var created []models.Notification
	for _, params := range batch {
		priority := params.Priority
		if priority == "" {
			priority = models.NotificationPriorityNormal
		}
		notif := models.Notification{
			ID:          uuid.NewString(),
			RecipientID: params.RecipientID,
			TypeID:      params.TypeID,
			Title:       params.Title,
			Message:     params.Message,
			Priority:    priority,
			Status:      models.NotificationStatusUnread,
			ExpiresAt:   params.ExpiresAt,
			CreatedAt:   time.Now(),
		}
		created = append(created, notif)
	}
	// All-or-nothing: rows are only visible once the whole batch succeeded.
	f.created = append(f.created, created...)
	return created, nil
}

func (f *fakeNotificationRepo) ListByRecipient(_ context.Context, recipientID string, unreadOnly bool, _ int) ([]models.Notification, error) {
	var out []models.Notification
	for _, notif := range f.created {
		if notif.RecipientID != recipientID {
			continue
		}
		if unreadOnly && notif.Status != models.NotificationStatusUnread {
			continue
		}
		out = append(out, notif)
	}
	return out, nil
}

func (f *fakeNotificationRepo) UnreadCount(_ context.Context, recipientID string) (int, error) {
	count := 0
	for _, notif := range f.created {
		if notif.RecipientID == recipientID && notif.Status == models.NotificationStatusUnread {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationRepo) MarkRead(_ context.Context, recipientID, notificationID string) (models.Notification, error) {
	for i, notif := range f.created {
		if notif.ID == notificationID && notif.RecipientID == recipientID {
			now := time.Now()
			f.created[i].Status = models.NotificationStatusRead
			f.created[i].ReadAt = &now
			return f.created[i], nil
		}
	}
	return models.Notification{}, sql.ErrNoRows
}

func (f *fakeNotificationRepo) MarkAllRead(_ context.Context, recipientID string) (int64, error) {
	var n int64
	for i, notif := range f.created {
		if notif.RecipientID == recipientID && notif.Status == models.NotificationStatusUnread {
			f.created[i].Status = models.NotificationStatusRead
			n++
		}
	}
	return n, nil
}

func (f *fakeNotificationRepo) GetPreference(_ context.Context, userID, typeID string) (models.NotificationPreference, error) {
	pref, ok := f.prefs[prefKey(userID, typeID)]
	if !ok {
		return models.NotificationPreference{}, sql.ErrNoRows
	}
	return pref, nil
}

func (f *fakeNotificationRepo) UpsertPreference(_ context.Context, pref models.NotificationPreference) (models.NotificationPreference, error) {
	f.prefs[prefKey(pref.UserID, pref.TypeID)] = pref
	return pref, nil
}

func (f *fakeNotificationRepo) ListPreferences(_ context.Context, userID string) ([]models.NotificationPreference, error) {
	var out []models.NotificationPreference
	for _, pref := range f.prefs {
		if pref.UserID == userID {
			out = append(out, pref)
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	users map[string]models.User
}

func newFakeUserRepo(users ...models.User) *fakeUserRepo {
	f := &fakeUserRepo{users: map[string]models.User{}}
	for _, user := range users {
		f.users[user.ID] = user
	}
	return f
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, userID string) (models.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return models.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeUserRepo) ListRecipientsByRole(_ context.Context, role models.UserRole) ([]models.User, error) {
	var out []models.User
	for _, user := range f.users {
		if user.Role == role && user.IsActive {
			out = append(out, user)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) ListRecipientsByLocation(_ context.Context, locationID string) ([]models.User, error) {
	var out []models.User
	for _, user := range f.users {
		if user.IsActive && user.LocationID != nil && *user.LocationID == locationID {
			out = append(out, user)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) ListActiveRecipients(_ context.Context) ([]models.User, error) {
	var out []models.User
	for _, user := range f.users {
		if user.IsActive {
			out = append(out, user)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) CreateUser(context.Context, string, string, string, models.UserRole, []string, *string) (models.User, error) {
	panic("not used")
}
func (f *fakeUserRepo) AuthenticateUser(context.Context, string, string) (models.User, error) {
	panic("not used")
}
func (f *fakeUserRepo) ListUsers(context.Context, scope.Filter) ([]models.User, error) {
	panic("not used")
}
func (f *fakeUserRepo) UpdateUserAccess(context.Context, string, models.UserRole, []string, *string) (models.User, error) {
	panic("not used")
}
func (f *fakeUserRepo) DeactivateUser(context.Context, string) error { panic("not used") }

type recordingNotifier struct {
	channel    string
	deliveries []Delivery
	err        error
}

func (n *recordingNotifier) Channel() string { return n.channel }
func (n *recordingNotifier) Notify(_ context.Context, d Delivery) error {
	n.deliveries = append(n.deliveries, d)
	return n.err
}

// ==========================
// Helpers
// ==========================

func testUser(role models.UserRole) models.User {
	return models.User{ID: uuid.NewString(), Email: string(role) + "@fixpoint.test", Role: role, IsActive: true}
}

func newTestService(repo *fakeNotificationRepo, users *fakeUserRepo, notifiers ...Notifier) Service {
	return NewService(repo, users, cache.New(), time.Minute, zerolog.Nop(), notifiers...)
}

// ==========================
// Tests
// ==========================

func TestPublish_UnknownTypeIsNotFound(t *testing.T) {
	svc := newTestService(newFakeNotificationRepo(), newFakeUserRepo(testUser(models.RoleAdmin)))

	_, err := svc.Publish(context.Background(), Event{
		Type:       "no_such_type",
		Recipients: Recipients{Role: models.RoleAdmin},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestPublish_InactiveTypeIsNotFound(t *testing.T) {
	repo := newFakeNotificationRepo()
	repo.addType(models.NotificationTypeLowStock, false)
	svc := newTestService(repo, newFakeUserRepo(testUser(models.RoleAdmin)))

	_, err := svc.Publish(context.Background(), Event{
		Type:       models.NotificationTypeLowStock,
		Recipients: Recipients{Role: models.RoleAdmin},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestPublish_MissingRecipientRuleIsValidation(t *testing.T) {
	repo := newFakeNotificationRepo()
	repo.addType(models.NotificationTypeLowStock, true)
	svc := newTestService(repo, newFakeUserRepo())

	_, err := svc.Publish(context.Background(), Event{Type: models.NotificationTypeLowStock})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestPublish_DefaultPreferenceCreatesInAppRow(t *testing.T) {
	repo := newFakeNotificationRepo()
	repo.addType(models.NotificationTypeLowStock, true)
	admin := testUser(models.RoleAdmin)
	svc := newTestService(repo, newFakeUserRepo(admin))

	created, err := svc.Publish(context.Background(), Event{
		Type:       models.NotificationTypeLowStock,
		Recipients: Recipients{Role: models.RoleAdmin},
		Title:      "Low stock",
		Message:    "Screen kits are low.",
	})
	require.NoError(t, err)
	require.Len(t, created, 1, "no preference row means in-app defaults to enabled")
	assert.Equal(t, admin.ID, created[0].RecipientID)
	assert.Equal(t, models.NotificationStatusUnread, created[0].Status)
}

func TestPublish_InAppDisabledSkipsRowButKeepsSideChannels(t *testing.T) {
	repo := newFakeNotificationRepo()
	typ := repo.addType(models.NotificationTypeLowStock, true)
	optedOut := testUser(models.RoleAdmin)
	optedIn := testUser(models.RoleAdmin)
	repo.prefs[prefKey(optedOut.ID, typ.ID)] = models.NotificationPreference{
		UserID: optedOut.ID, TypeID: typ.ID, Email: true, InApp: false, Push: true,
	}

	recorder := &recordingNotifier{channel: "test"}
	svc := newTestService(repo, newFakeUserRepo(optedOut, optedIn), recorder)

	created, err := svc.Publish(context.Background(), Event{
		Type:       models.NotificationTypeLowStock,
		Recipients: Recipients{Role: models.RoleAdmin},
	})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, optedIn.ID, created[0].RecipientID)

	// Both recipients still reach the side channels; the opted-out one with
	// a transient (unpersisted) notification.
	require.Len(t, recorder.deliveries, 2)
	byRecipient := map[string]Delivery{}
	for _, delivery := range recorder.deliveries {
		byRecipient[delivery.Recipient.ID] = delivery
	}
	assert.Empty(t, byRecipient[optedOut.ID].Notification.ID)
	assert.NotEmpty(t, byRecipient[optedIn.ID].Notification.ID)
}

func TestPublish_SameEventTwiceCreatesIndependentRows(t *testing.T) {
	repo := newFakeNotificationRepo()
	repo.addType(models.NotificationTypeDeviceRegistered, true)
	admin := testUser(models.RoleAdmin)
	svc := newTestService(repo, newFakeUserRepo(admin))

	evt := Event{
		Type:       models.NotificationTypeDeviceRegistered,
		Recipients: Recipients{Role: models.RoleAdmin},
	}
	first, err := svc.Publish(context.Background(), evt)
	require.NoError(t, err)
	second, err := svc.Publish(context.Background(), evt)
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.NotEqual(t, first[0].ID, second[0].ID, "no deduplication across events")
	assert.Len(t, repo.created, 2)
}

func TestPublish_PersistenceFailureIsInternalAndSkipsNotifiers(t *testing.T) {
	repo := newFakeNotificationRepo()
	repo.addType(models.NotificationTypeLowStock, true)
	repo.failCreate = true
	recorder := &recordingNotifier{channel: "test"}
	svc := newTestService(repo, newFakeUserRepo(testUser(models.RoleAdmin)), recorder)

	_, err := svc.Publish(context.Background(), Event{
		Type:       models.NotificationTypeLowStock,
		Recipients: Recipients{Role: models.RoleAdmin},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Empty(t, repo.created)
	assert.Empty(t, recorder.deliveries, "side channels must not fire when persistence failed")
}

func TestPublish_NotifierFailureDoesNotFailPublish(t *testing.T) {
	repo := newFakeNotificationRepo()
	repo.addType(models.NotificationTypeLowStock, true)
	failing := &recordingNotifier{channel: "flaky", err: errors.New("smtp down")}
	svc := newTestService(repo, newFakeUserRepo(testUser(models.RoleAdmin)), failing)

	created, err := svc.Publish(context.Background(), Event{
		Type:       models.NotificationTypeLowStock,
		Recipients: Recipients{Role: models.RoleAdmin},
	})
	require.NoError(t, err)
	assert.Len(t, created, 1)
}

func TestPublish_RecipientsAreDeduplicated(t *testing.T) {
	repo := newFakeNotificationRepo()
	repo.addType(models.NotificationTypeLowStock, true)
	admin := testUser(models.RoleAdmin)
	svc := newTestService(repo, newFakeUserRepo(admin))

	created, err := svc.Publish(context.Background(), Event{
		Type: models.NotificationTypeLowStock,
		Recipients: Recipients{
			UserIDs: []string{admin.ID},
			Role:    models.RoleAdmin,
		},
	})
	require.NoError(t, err)
	assert.Len(t, created, 1)
}

func TestPublish_UnknownExplicitRecipientIsNotFound(t *testing.T) {
	repo := newFakeNotificationRepo()
	repo.addType(models.NotificationTypeLowStock, true)
	svc := newTestService(repo, newFakeUserRepo())

	_, err := svc.Publish(context.Background(), Event{
		Type:       models.NotificationTypeLowStock,
		Recipients: Recipients{UserIDs: []string{"ghost"}},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestListTypes_ServedFromCacheWithinTTL(t *testing.T) {
	repo := newFakeNotificationRepo()
	repo.addType(models.NotificationTypeLowStock, true)
	svc := newTestService(repo, newFakeUserRepo())

	_, err := svc.ListTypes(context.Background())
	require.NoError(t, err)
	_, err = svc.ListTypes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)
}

func TestEffectivePreference_DefaultsWhenAbsent(t *testing.T) {
	repo := newFakeNotificationRepo()
	typ := repo.addType(models.NotificationTypeLowStock, true)
	svc := newTestService(repo, newFakeUserRepo())

	pref, err := svc.EffectivePreference(context.Background(), "user-1", typ.ID)
	require.NoError(t, err)
	assert.True(t, pref.Email)
	assert.False(t, pref.SMS)
	assert.True(t, pref.Push)
	assert.True(t, pref.InApp)
}
