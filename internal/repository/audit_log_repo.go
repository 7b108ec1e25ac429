package repository

import (
	"errors"
	"time"

	"reconciliation-ledger-backend/internal/models"

	"gorm.io/gorm"
)

type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) WithTx(tx *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: tx}
}

// Last returns the chain tail, or nil when the log is empty.
func (r *AuditLogRepository) Last() (*models.AuditLogEntry, error) {
	var entry models.AuditLogEntry
	err := r.db.Order("seq DESC").First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *AuditLogRepository) Append(entry *models.AuditLogEntry) error {
	return r.db.Create(entry).Error
}

// All returns every entry in chain order.
func (r *AuditLogRepository) All() ([]models.AuditLogEntry, error) {
	var entries []models.AuditLogEntry
	err := r.db.Order("seq ASC").Find(&entries).Error
	return entries, err
}

// ByEntity returns the full trail for one entity, oldest first.
func (r *AuditLogRepository) ByEntity(entityType, entityID string) ([]models.AuditLogEntry, error) {
	var entries []models.AuditLogEntry
	err := r.db.
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("seq ASC").
		Find(&entries).Error
	return entries, err
}

// AuditFilter narrows an audit-log query. Zero values mean "any".
type AuditFilter struct {
	UserID     string
	ActionType models.AuditActionType
	EntityType string
	EntityID   string
	From       time.Time
	To         time.Time
	Limit      int
}

// Query returns matching entries, newest first.
func (r *AuditLogRepository) Query(f AuditFilter) ([]models.AuditLogEntry, error) {
	query := r.db.Order("seq DESC")
	if f.UserID != "" {
		query = query.Where("user_id = ?", f.UserID)
	}
	if f.ActionType != "" {
		query = query.Where("action_type = ?", f.ActionType)
	}
	if f.EntityType != "" {
		query = query.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != "" {
		query = query.Where("entity_id = ?", f.EntityID)
	}
	if !f.From.IsZero() {
		query = query.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		query = query.Where("created_at <= ?", f.To)
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}
	var entries []models.AuditLogEntry
	err := query.Find(&entries).Error
	return entries, err
}
