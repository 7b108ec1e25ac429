package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AuditActionType string

const (
	ActionCreate  AuditActionType = "CREATE"
	ActionUpdate  AuditActionType = "UPDATE"
	ActionDelete  AuditActionType = "DELETE"
	ActionApprove AuditActionType = "APPROVE"
	ActionMatch   AuditActionType = "MATCH"
	ActionUnmatch AuditActionType = "UNMATCH"
	ActionImport  AuditActionType = "IMPORT"
	ActionExport  AuditActionType = "EXPORT"
	ActionLogin   AuditActionType = "LOGIN"
	ActionLogout  AuditActionType = "LOGOUT"
)

const (
	EntityTransaction = "Transaction"
	EntityMatchGroup  = "MatchGroup"
)

// AuditLogEntry is one append-only line in the hash-chained audit trail.
// Seq is the chain position, assigned under the chain-tail lock so the
// append order is explicit and gap-free. PreviousHash is empty only for the
// first entry; CurrentHash covers the entry's identifying fields plus
// PreviousHash, so editing any stored entry breaks verification from that
// point on.
type AuditLogEntry struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	Seq               int64     `gorm:"uniqueIndex"`
	UserID            string    `gorm:"index"`
	SessionID         string
	IPAddress         string
	DeviceFingerprint string
	Geolocation       string
	ActionType        AuditActionType `gorm:"type:varchar(16);index"`
	EntityType        string          `gorm:"index:idx_audit_entity"`
	EntityID          string          `gorm:"index:idx_audit_entity"`
	BeforeState       datatypes.JSON
	AfterState        datatypes.JSON
	ChangeSummary     string
	Justification     string
	PreviousHash      string
	CurrentHash       string
	CreatedAt         time.Time `gorm:"index"`
}
