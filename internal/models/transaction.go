package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionSide string

type TransactionStatus string

const (
	// SideLeft is the internal ledger side, SideRight the external statement side.
	SideLeft  TransactionSide = "LEFT"
	SideRight TransactionSide = "RIGHT"

	StatusUnmatched TransactionStatus = "UNMATCHED"
	StatusMatched   TransactionStatus = "MATCHED"
)

// Transaction is one imported ledger or statement row. Rows are created
// UNMATCHED by the import collaborator and only the match engine moves them
// between UNMATCHED and MATCHED.
type Transaction struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	TransactionDate time.Time `gorm:"column:transaction_date"`
	Description     string
	Amount          decimal.Decimal   `gorm:"type:numeric(18,2)"`
	Side            TransactionSide   `gorm:"type:varchar(8);index"`
	Status          TransactionStatus `gorm:"type:varchar(16);index"`
	MatchID         *uuid.UUID        `gorm:"index"`
	ImportedBy      string
	CreatedAt       time.Time
}
