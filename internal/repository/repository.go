package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"example.com/planner/services/calendar/internal/database"
	"example.com/planner/services/calendar/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides data access methods
type Repository interface {
	// Transaction support
	WithTransaction(ctx context.Context, fn func(ctx context.Context, txRepo Repository) error) error

	// Event operations
	CreateEvent(ctx context.Context, event *models.Event) error
	SaveEvent(ctx context.Context, event *models.Event) error
	FindEventByID(ctx context.Context, id uint) (*models.Event, error)
	FindEventByIDAny(ctx context.Context, id uint) (*models.Event, error)
	FindEventByIDForUpdate(ctx context.Context, id uint) (*models.Event, error)
	ListEventsByOwner(ctx context.Context, ownerID uint, offset, limit int) ([]*models.Event, error)
	ListAccessibleEvents(ctx context.Context, userID uint) ([]*models.Event, error)
	FindConflictCandidates(ctx context.Context, start, end time.Time, excludeEventID uint) ([]*models.Event, error)
	HardDeleteEvent(ctx context.Context, eventID uint) error

	// Permission operations
	CreatePermission(ctx context.Context, permission *models.EventPermission) error
	SavePermission(ctx context.Context, permission *models.EventPermission) error
	DeletePermission(ctx context.Context, permission *models.EventPermission) error
	FindPermission(ctx context.Context, eventID, userID uint) (*models.EventPermission, error)
	ListPermissions(ctx context.Context, eventID uint) ([]*models.EventPermission, error)

	// Version operations
	CreateVersion(ctx context.Context, version *models.EventVersion) error
	FindVersion(ctx context.Context, eventID uint, versionNumber int) (*models.EventVersion, error)
	ListVersions(ctx context.Context, eventID uint, offset, limit int) ([]*models.EventVersion, error)

	// Notification operations
	CreateNotificationBatch(ctx context.Context, notifications []*models.Notification) error
	FindNotification(ctx context.Context, id, userID uint) (*models.Notification, error)
	ListNotifications(ctx context.Context, userID uint, unreadOnly bool) ([]*models.Notification, error)
	SaveNotification(ctx context.Context, notification *models.Notification) error
	DeleteNotification(ctx context.Context, notification *models.Notification) error
	MarkAllNotificationsRead(ctx context.Context, userID uint) (int64, error)
	DeleteNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)

	// APIToken operations
	CreateAPIToken(ctx context.Context, token *models.APIToken) error
	FindAPIToken(ctx context.Context, token string) (*models.APIToken, error)
	SaveAPIToken(ctx context.Context, token *models.APIToken) error
	ListAPITokens(ctx context.Context) ([]*models.APIToken, error)
	DeleteAPIToken(ctx context.Context, id uint) error
}

// repo is an implementation of the Repository interface
type repo struct {
	db database.DB
}

// Helper type for transaction support
type dbWrapper struct {
	db *gorm.DB
}

func (w *dbWrapper) DB() (*gorm.DB, error) {
	return w.db, nil
}

func (w *dbWrapper) Close() error {
	return nil
}

// NewRepository creates a new repository instance
func NewRepository(db database.DB) Repository {
	return &repo{
		db: db,
	}
}

// WithTransaction executes the given function within a database transaction
func (r *repo) WithTransaction(ctx context.Context, fn func(ctx context.Context, txRepo Repository) error) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &repo{
			db: &dbWrapper{db: tx},
		}
		return fn(ctx, txRepo)
	})
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "duplicate key") {
		return ErrDuplicateKey
	}
	return err
}

// Event operations implementation

func (r *repo) CreateEvent(ctx context.Context, event *models.Event) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	if err := gormDB.WithContext(ctx).Create(event).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *repo) SaveEvent(ctx context.Context, event *models.Event) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	if err := gormDB.WithContext(ctx).Save(event).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *repo) FindEventByID(ctx context.Context, id uint) (*models.Event, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var event models.Event
	if err := gormDB.WithContext(ctx).
		Where("is_deleted = ?", false).
		First(&event, id).Error; err != nil {
		return nil, translate(err)
	}

	return &event, nil
}

// FindEventByIDAny looks up an event regardless of its soft-delete flag.
// Hard deletion and version inspection need to reach soft-deleted rows.
func (r *repo) FindEventByIDAny(ctx context.Context, id uint) (*models.Event, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var event models.Event
	if err := gormDB.WithContext(ctx).First(&event, id).Error; err != nil {
		return nil, translate(err)
	}

	return &event, nil
}

// FindEventByIDForUpdate locks the event row for the duration of the
// enclosing transaction so concurrent mutators serialize on current_version.
func (r *repo) FindEventByIDForUpdate(ctx context.Context, id uint) (*models.Event, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var event models.Event
	if err := gormDB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&event, id).Error; err != nil {
		return nil, translate(err)
	}

	return &event, nil
}

func (r *repo) ListEventsByOwner(ctx context.Context, ownerID uint, offset, limit int) ([]*models.Event, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var events []*models.Event
	query := gormDB.WithContext(ctx).
		Where("owner_id = ? AND is_deleted = ?", ownerID, false).
		Order("start_time ASC").
		Offset(offset)

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&events).Error; err != nil {
		return nil, translate(err)
	}

	return events, nil
}

// ListAccessibleEvents returns events the user owns plus events shared with
// them through a permission row, deduplicated.
func (r *repo) ListAccessibleEvents(ctx context.Context, userID uint) ([]*models.Event, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var events []*models.Event
	if err := gormDB.WithContext(ctx).
		Distinct("events.*").
		Joins("LEFT JOIN event_permissions ON event_permissions.event_id = events.id").
		Where("events.is_deleted = ?", false).
		Where("events.owner_id = ? OR event_permissions.user_id = ?", userID, userID).
		Order("events.start_time ASC").
		Find(&events).Error; err != nil {
		return nil, translate(err)
	}

	return events, nil
}

// FindConflictCandidates applies the half-open interval overlap predicate to
// stored anchor ranges: candidate.start < end AND candidate.end > start.
func (r *repo) FindConflictCandidates(ctx context.Context, start, end time.Time, excludeEventID uint) ([]*models.Event, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	query := gormDB.WithContext(ctx).
		Where("is_deleted = ?", false).
		Where("start_time < ? AND end_time > ?", end, start)

	if excludeEventID > 0 {
		query = query.Where("id <> ?", excludeEventID)
	}

	var events []*models.Event
	if err := query.Find(&events).Error; err != nil {
		return nil, translate(err)
	}

	return events, nil
}

// HardDeleteEvent removes the event and all its permissions, versions and
// notifications in one transaction.
func (r *repo) HardDeleteEvent(ctx context.Context, eventID uint) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", eventID).Delete(&models.EventPermission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("event_id = ?", eventID).Delete(&models.EventVersion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("event_id = ?", eventID).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Event{}, eventID).Error
	})
}

// Permission operations implementation

func (r *repo) CreatePermission(ctx context.Context, permission *models.EventPermission) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	if err := gormDB.WithContext(ctx).Create(permission).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *repo) SavePermission(ctx context.Context, permission *models.EventPermission) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	if err := gormDB.WithContext(ctx).Save(permission).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *repo) DeletePermission(ctx context.Context, permission *models.EventPermission) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	if err := gormDB.WithContext(ctx).Delete(permission).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *repo) FindPermission(ctx context.Context, eventID, userID uint) (*models.EventPermission, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var permission models.EventPermission
	if err := gormDB.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		First(&permission).Error; err != nil {
		return nil, translate(err)
	}

	return &permission, nil
}

func (r *repo) ListPermissions(ctx context.Context, eventID uint) ([]*models.EventPermission, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var permissions []*models.EventPermission
	if err := gormDB.WithContext(ctx).
		Where("event_id = ?", eventID).
		Find(&permissions).Error; err != nil {
		return nil, translate(err)
	}

	return permissions, nil
}

// Version operations implementation

func (r *repo) CreateVersion(ctx context.Context, version *models.EventVersion) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	if err := gormDB.WithContext(ctx).Create(version).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *repo) FindVersion(ctx context.Context, eventID uint, versionNumber int) (*models.EventVersion, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var version models.EventVersion
	if err := gormDB.WithContext(ctx).
		Where("event_id = ? AND version_number = ?", eventID, versionNumber).
		First(&version).Error; err != nil {
		return nil, translate(err)
	}

	return &version, nil
}

func (r *repo) ListVersions(ctx context.Context, eventID uint, offset, limit int) ([]*models.EventVersion, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var versions []*models.EventVersion
	query := gormDB.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("version_number DESC").
		Offset(offset)

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&versions).Error; err != nil {
		return nil, translate(err)
	}

	return versions, nil
}

// Notification operations implementation

func (r *repo) CreateNotificationBatch(ctx context.Context, notifications []*models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	if err := gormDB.WithContext(ctx).Create(notifications).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *repo) FindNotification(ctx context.Context, id, userID uint) (*models.Notification, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var notification models.Notification
	if err := gormDB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&notification).Error; err != nil {
		return nil, translate(err)
	}

	return &notification, nil
}

// ListNotifications preserves per-recipient creation order (oldest first).
func (r *repo) ListNotifications(ctx context.Context, userID uint, unreadOnly bool) ([]*models.Notification, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	query := gormDB.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var notifications []*models.Notification
	if err := query.Order("id ASC").Find(&notifications).Error; err != nil {
		return nil, translate(err)
	}

	return notifications, nil
}

func (r *repo) SaveNotification(ctx context.Context, notification *models.Notification) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	if err := gormDB.WithContext(ctx).Save(notification).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *repo) DeleteNotification(ctx context.Context, notification *models.Notification) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	if err := gormDB.WithContext(ctx).Delete(notification).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *repo) MarkAllNotificationsRead(ctx context.Context, userID uint) (int64, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return 0, err
	}

	result := gormDB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{
			"is_read":    true,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, translate(result.Error)
	}

	return result.RowsAffected, nil
}

func (r *repo) DeleteNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return 0, err
	}

	result := gormDB.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, translate(result.Error)
	}

	return result.RowsAffected, nil
}

// User operations implementation

func (r *repo) CreateUser(ctx context.Context, user *models.User) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	if err := gormDB.WithContext(ctx).Create(user).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *repo) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := gormDB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}

	return &user, nil
}

func (r *repo) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := gormDB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}

	return &user, nil
}

// APIToken operations implementation

func (r *repo) CreateAPIToken(ctx context.Context, token *models.APIToken) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	if err := gormDB.WithContext(ctx).Create(token).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *repo) FindAPIToken(ctx context.Context, token string) (*models.APIToken, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var apiToken models.APIToken
	if err := gormDB.WithContext(ctx).
		Preload("User").
		Where("token = ?", token).
		First(&apiToken).Error; err != nil {
		return nil, translate(err)
	}

	return &apiToken, nil
}

func (r *repo) SaveAPIToken(ctx context.Context, token *models.APIToken) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	if err := gormDB.WithContext(ctx).Save(token).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *repo) ListAPITokens(ctx context.Context) ([]*models.APIToken, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var tokens []*models.APIToken
	if err := gormDB.WithContext(ctx).Find(&tokens).Error; err != nil {
		return nil, translate(err)
	}

	return tokens, nil
}

func (r *repo) DeleteAPIToken(ctx context.Context, id uint) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	if err := gormDB.WithContext(ctx).Delete(&models.APIToken{}, id).Error; err != nil {
		return translate(err)
	}
	return nil
}
