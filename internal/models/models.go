package models

import (
	"time"

	"gorm.io/datatypes"
)

// Model is the base model with common fields for all database entities
type Model struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Role represents a user's permission level on an event
type Role string

const (
	// RoleNone means the user has no access to the event
	RoleNone Role = ""
	// RoleViewer grants read-only access
	RoleViewer Role = "VIEWER"
	// RoleEditor grants read-write access
	RoleEditor Role = "EDITOR"
	// RoleOwner grants full control; exactly one per event
	RoleOwner Role = "OWNER"
)

// Rank returns the numeric rank of the role for authorization comparisons.
// Higher ranks include all capabilities of lower ones.
func (r Role) Rank() int {
	switch r {
	case RoleViewer:
		return 1
	case RoleEditor:
		return 2
	case RoleOwner:
		return 3
	default:
		return 0
	}
}

// Assignable reports whether the role can be granted through the sharing API.
func (r Role) Assignable() bool {
	switch r {
	case RoleViewer, RoleEditor, RoleOwner:
		return true
	}
	return false
}

// User model represents an authenticated account. Credential handling lives
// outside this service; users arrive here already authenticated.
type User struct {
	Model
	Email       string `json:"email" gorm:"uniqueIndex;Column:email"`
	Username    string `json:"username" gorm:"uniqueIndex;Column:username"`
	FullName    string `json:"full_name" gorm:"Column:full_name"`
	IsActive    bool   `json:"is_active" gorm:"Column:is_active;default:true"`
	IsSuperuser bool   `json:"is_superuser" gorm:"Column:is_superuser;default:false"`
}

// APIToken represents a bearer token mapped to a user account
type APIToken struct {
	Model
	Token      string     `json:"token" gorm:"uniqueIndex;Column:token"`
	Name       string     `json:"name" gorm:"Column:name"`
	User       *User      `json:"user" gorm:"foreignKey:UserID"`
	UserID     uint       `json:"user_id" gorm:"Column:user_id"`
	ExpiresAt  *time.Time `json:"expires_at" gorm:"Column:expires_at"`
	LastUsedAt *time.Time `json:"last_used_at" gorm:"Column:last_used_at"`
}

// Event model represents a calendar event, singular or recurring
type Event struct {
	Model
	Title          string    `json:"title" gorm:"Column:title;size:200"`
	Description    string    `json:"description" gorm:"Column:description;size:1000"`
	Location       string    `json:"location" gorm:"Column:location;size:200"`
	StartTime      time.Time `json:"start_time" gorm:"Column:start_time;index:ix_event_date_range"`
	EndTime        time.Time `json:"end_time" gorm:"Column:end_time;index:ix_event_date_range"`
	IsRecurring    bool      `json:"is_recurring" gorm:"Column:is_recurring;default:false"`
	RecurrenceRule string    `json:"recurrence_rule" gorm:"Column:recurrence_rule;size:500"`
	Owner          *User     `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	OwnerID        uint      `json:"owner_id" gorm:"Column:owner_id;index:ix_event_owner_dates"`
	CurrentVersion int       `json:"current_version" gorm:"Column:current_version;default:1"`
	IsDeleted      bool      `json:"is_deleted" gorm:"Column:is_deleted;default:false"`
}

// Duration returns the length of a single occurrence of the event.
func (e *Event) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}

// Snapshot serializes the event's attributes for version storage. Datetimes
// are rendered as ISO-8601 strings with explicit offset so snapshots survive
// JSON round-trips unchanged.
func (e *Event) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"id":              e.ID,
		"title":           e.Title,
		"description":     e.Description,
		"location":        e.Location,
		"start_time":      SerializeTime(e.StartTime),
		"end_time":        SerializeTime(e.EndTime),
		"is_recurring":    e.IsRecurring,
		"recurrence_rule": e.RecurrenceRule,
		"owner_id":        e.OwnerID,
		"current_version": e.CurrentVersion,
		"is_deleted":      e.IsDeleted,
		"created_at":      SerializeTime(e.CreatedAt),
		"updated_at":      SerializeTime(e.UpdatedAt),
	}
}

// SerializeTime renders an instant in the stable form used by version
// snapshots and change maps: RFC 3339 with explicit offset.
func SerializeTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

// ParseSnapshotTime parses a datetime serialized by SerializeTime.
func ParseSnapshotTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// EventPermission is a per-user grant on an event. At most one row exists per
// (event, user) pair, and the OWNER row always belongs to the event's owner.
type EventPermission struct {
	Model
	Event   *Event `json:"-" gorm:"foreignKey:EventID"`
	EventID uint   `json:"event_id" gorm:"Column:event_id;uniqueIndex:uq_event_user_permission"`
	User    *User  `json:"-" gorm:"foreignKey:UserID"`
	UserID  uint   `json:"user_id" gorm:"Column:user_id;uniqueIndex:uq_event_user_permission"`
	Role    Role   `json:"role" gorm:"Column:role;size:20"`
}

// EventVersion is an immutable snapshot of an event at a version number.
// Version numbers per event are gapless and start at 1; rows are write-once.
type EventVersion struct {
	Model
	Event             *Event            `json:"-" gorm:"foreignKey:EventID"`
	EventID           uint              `json:"event_id" gorm:"Column:event_id;uniqueIndex:uq_event_version_number"`
	VersionNumber     int               `json:"version_number" gorm:"Column:version_number;uniqueIndex:uq_event_version_number"`
	ChangedBy         *User             `json:"-" gorm:"foreignKey:ChangedByID"`
	ChangedByID       uint              `json:"changed_by_id" gorm:"Column:changed_by_id"`
	EventData         datatypes.JSONMap `json:"event_data" gorm:"Column:event_data"`
	Changes           datatypes.JSONMap `json:"changes" gorm:"Column:changes"`
	ChangeDescription string            `json:"change_description" gorm:"Column:change_description;size:500"`
}

// Notification is a per-recipient change record produced by fan-out
type Notification struct {
	Model
	User    *User             `json:"-" gorm:"foreignKey:UserID"`
	UserID  uint              `json:"user_id" gorm:"Column:user_id;index"`
	Event   *Event            `json:"-" gorm:"foreignKey:EventID"`
	EventID uint              `json:"event_id" gorm:"Column:event_id;index"`
	Type    string            `json:"type" gorm:"Column:type;size:50"`
	Message string            `json:"message" gorm:"Column:message;size:500"`
	Data    datatypes.JSONMap `json:"data" gorm:"Column:data"`
	IsRead  bool              `json:"is_read" gorm:"Column:is_read;default:false"`
}

// Notification types emitted by the event service
const (
	NotificationEventUpdated     = "EVENT_UPDATED"
	NotificationEventDeleted     = "event.delete"
	NotificationPermissionGrant  = "permission.grant"
	NotificationPermissionUpdate = "permission.update"
	NotificationPermissionRevoke = "permission.revoke"
)
