package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MatchStatus string

const (
	MatchApproved        MatchStatus = "APPROVED"
	MatchPendingApproval MatchStatus = "PENDING_APPROVAL"
)

// MatchGroup asserts that a set of left-side and right-side transactions
// represent the same economic event. Totals are the sums of the member
// transactions' absolute amounts at creation time; Difference is always
// |TotalLeft - TotalRight|. Adjustment is set only when Difference > 0.
type MatchGroup struct {
	ID         uuid.UUID        `gorm:"type:uuid;primaryKey"`
	TotalLeft  decimal.Decimal  `gorm:"type:numeric(18,2)"`
	TotalRight decimal.Decimal  `gorm:"type:numeric(18,2)"`
	Difference decimal.Decimal  `gorm:"type:numeric(18,2)"`
	Adjustment *decimal.Decimal `gorm:"type:numeric(18,2)"`
	Comment    string
	Status     MatchStatus `gorm:"type:varchar(24);index"`
	MatchedBy  string      `gorm:"index"`
	ApprovedBy *string
	ApprovedAt *time.Time
	Version    int
	CreatedAt  time.Time `gorm:"index"`

	// Loaded from match_group_members, not columns.
	LeftIDs  []uuid.UUID `gorm:"-"`
	RightIDs []uuid.UUID `gorm:"-"`
}

// MatchGroupMember is the membership row between a match group and one
// transaction. Kept as an explicit join table so referential integrity stays
// in the storage layer.
type MatchGroupMember struct {
	MatchID       uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TransactionID uuid.UUID       `gorm:"type:uuid;primaryKey;index"`
	Side          TransactionSide `gorm:"type:varchar(8)"`
}
