package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction is an admin-side change worth keeping a trail of.
type AuditAction string

const (
	AuditActionLogin            AuditAction = "LOGIN"
	AuditActionSaveCredential   AuditAction = "SAVE_CREDENTIAL"
	AuditActionDeactivateCred   AuditAction = "DEACTIVATE_CREDENTIAL"
	AuditActionDeleteCredential AuditAction = "DELETE_CREDENTIAL"
	AuditActionAssignOwnership  AuditAction = "ASSIGN_OWNERSHIP"
	AuditActionRemoveOwnership  AuditAction = "REMOVE_OWNERSHIP"
	AuditActionRefund           AuditAction = "REFUND"
	AuditActionManualSync       AuditAction = "MANUAL_SYNC"
	AuditActionCleanupSales     AuditAction = "CLEANUP_SALES"
)

// AuditLog records a single audited admin action.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	Actor        string      `json:"actor"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
