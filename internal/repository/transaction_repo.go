package repository

import (
	"reconciliation-ledger-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// WithTx returns a repository bound to the given transaction handle so
// callers can compose repository calls into one atomic unit.
func (r *TransactionRepository) WithTx(tx *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: tx}
}

func (r *TransactionRepository) DB() *gorm.DB {
	return r.db
}

func (r *TransactionRepository) Create(txs []models.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	return r.db.Create(&txs).Error
}

// FetchByIDs loads every referenced transaction and fails with
// TransactionNotFoundError for the first id that does not resolve. It does
// not filter by status; callers must check.
func (r *TransactionRepository) FetchByIDs(ids []uuid.UUID) ([]models.Transaction, error) {
	var txs []models.Transaction
	if err := r.db.Where("id IN ?", ids).Find(&txs).Error; err != nil {
		return nil, err
	}
	if len(txs) != len(ids) {
		found := make(map[uuid.UUID]bool, len(txs))
		for _, t := range txs {
			found[t.ID] = true
		}
		for _, id := range ids {
			if !found[id] {
				return nil, &models.TransactionNotFoundError{ID: id}
			}
		}
	}
	return txs, nil
}

// SetStatus flips the status of the given transactions, guarded by the
// expected current status so a concurrent match on an overlapping id set
// shows up as a row count short of len(ids). Only ever called inside the
// enclosing match transaction.
func (r *TransactionRepository) SetStatus(ids []uuid.UUID, from, to models.TransactionStatus, matchID *uuid.UUID) (int64, error) {
	res := r.db.Model(&models.Transaction{}).
		Where("id IN ? AND status = ?", ids, from).
		Updates(map[string]interface{}{
			"status":   to,
			"match_id": matchID,
		})
	return res.RowsAffected, res.Error
}

// List returns transactions filtered by optional status and side, newest
// first.
func (r *TransactionRepository) List(status models.TransactionStatus, side models.TransactionSide, limit int) ([]models.Transaction, error) {
	query := r.db.Order("transaction_date DESC, id").Limit(limit)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if side != "" {
		query = query.Where("side = ?", side)
	}
	var txs []models.Transaction
	err := query.Find(&txs).Error
	return txs, err
}

type SideTotals struct {
	LeftCount  int64
	RightCount int64
	LeftTotal  decimal.Decimal
	RightTotal decimal.Decimal
}

// UnmatchedTotals sums the absolute amounts still awaiting a match per side.
func (r *TransactionRepository) UnmatchedTotals() (SideTotals, error) {
	totals := SideTotals{LeftTotal: decimal.Zero, RightTotal: decimal.Zero}
	var txs []models.Transaction
	if err := r.db.Where("status = ?", models.StatusUnmatched).Find(&txs).Error; err != nil {
		return totals, err
	}
	for _, t := range txs {
		switch t.Side {
		case models.SideLeft:
			totals.LeftCount++
			totals.LeftTotal = totals.LeftTotal.Add(t.Amount.Abs())
		case models.SideRight:
			totals.RightCount++
			totals.RightTotal = totals.RightTotal.Add(t.Amount.Abs())
		}
	}
	return totals, nil
}
