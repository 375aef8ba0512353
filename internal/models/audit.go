package models

import "time"

// Audit actions recorded for portal mutations.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionLogout         = "LOGOUT"
	AuditActionAccountLink    = "ACCOUNT_LINK"
	AuditActionSpaceInit      = "SPACE_INITIALIZE"
	AuditActionSpaceDelete    = "SPACE_DELETE"
	AuditActionMemberAdd      = "MEMBER_ADD"
	AuditActionMemberRemove   = "MEMBER_REMOVE"
	AuditActionMemberCreate   = "MEMBER_CREATE"
	AuditActionFileUpload     = "FILE_UPLOAD"
	AuditActionFileDelete     = "FILE_DELETE"
	AuditActionEntrySubmit    = "ENTRY_SUBMIT"
	AuditActionEntryUpdate    = "ENTRY_UPDATE"
	AuditActionEntryResolve   = "ENTRY_RESOLVE"
	AuditActionFileCompleted  = "FILE_COMPLETED"
	AuditActionCursorAdvanced = "CURSOR_ADVANCED"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
