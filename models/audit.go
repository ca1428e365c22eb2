package models

import "time"

type AuditAction string

const (
	AuditLogin          AuditAction = "login"
	AuditLoginDenied    AuditAction = "login_denied"
	AuditLogout         AuditAction = "logout"
	AuditTokenRefreshed AuditAction = "token_refreshed"
	AuditPasswordChange AuditAction = "password_changed"
	AuditSessionsRevoke AuditAction = "sessions_revoked"
	AuditInvoiceCreate  AuditAction = "invoice_created"
	AuditInvoiceUpdate  AuditAction = "invoice_updated"
	AuditInvoiceDelete  AuditAction = "invoice_deleted"
	AuditInvoiceStatus  AuditAction = "invoice_status_changed"
	AuditPayment        AuditAction = "payment_recorded"
	AuditUserCreate     AuditAction = "user_created"
	AuditUserUpdate     AuditAction = "user_updated"
	AuditUserDelete     AuditAction = "user_deleted"
)

// AuditEvent is one entry of a user's activity log, stored in MongoDB.
type AuditEvent struct {
	ID         string            `bson:"_id" json:"id"`
	UserID     string            `bson:"user_id" json:"user_id"`
	Action     AuditAction       `bson:"action" json:"action"`
	EntityType string            `bson:"entity_type,omitempty" json:"entity_type,omitempty"`
	EntityID   string            `bson:"entity_id,omitempty" json:"entity_id,omitempty"`
	IPAddress  string            `bson:"ip_address,omitempty" json:"ip_address,omitempty"`
	Details    map[string]string `bson:"details,omitempty" json:"details,omitempty"`
	CreatedAt  time.Time         `bson:"created_at" json:"created_at"`
}
