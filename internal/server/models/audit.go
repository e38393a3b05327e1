package models

import "time"

// AuditKind enumerates audit event types.
type AuditKind string

const (
	AuditUserRegistered   AuditKind = "USER_REGISTERED"
	AuditLogin            AuditKind = "LOGIN"
	AuditNoteCreated      AuditKind = "NOTE_CREATED"
	AuditNoteDeleted      AuditKind = "NOTE_DELETED"
	AuditReminderCreated  AuditKind = "REMINDER_CREATED"
	AuditReminderDeleted  AuditKind = "REMINDER_DELETED"
	AuditSettingsChanged  AuditKind = "SETTINGS_CHANGED"
	AuditGDPRConsent      AuditKind = "GDPR_CONSENT"
	AuditSecondFactorOn   AuditKind = "2FA_ENROLLED"
	AuditSecondFactorOff  AuditKind = "2FA_DISABLED"
	AuditTestCodeShown    AuditKind = "2FA_TEST_CODE_REQUESTED"
	AuditErasureRequested AuditKind = "GDPR_DELETE_REQUEST"
)

// AuditDetail is the structured payload of an event, stored as JSON.
type AuditDetail map[string]any

// AuditEvent is append-only.
type AuditEvent struct {
	ID        int64
	UserID    int64
	Kind      AuditKind
	Detail    AuditDetail
	CreatedAt time.Time
}
