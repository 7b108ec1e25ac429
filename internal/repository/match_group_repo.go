package repository

import (
	"errors"
	"time"

	"reconciliation-ledger-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MatchGroupRepository struct {
	db *gorm.DB
}

func NewMatchGroupRepository(db *gorm.DB) *MatchGroupRepository {
	return &MatchGroupRepository{db: db}
}

func (r *MatchGroupRepository) WithTx(tx *gorm.DB) *MatchGroupRepository {
	return &MatchGroupRepository{db: tx}
}

// Insert writes the group row and its membership rows.
func (r *MatchGroupRepository) Insert(group *models.MatchGroup) error {
	if err := r.db.Create(group).Error; err != nil {
		return err
	}
	members := make([]models.MatchGroupMember, 0, len(group.LeftIDs)+len(group.RightIDs))
	for _, id := range group.LeftIDs {
		members = append(members, models.MatchGroupMember{MatchID: group.ID, TransactionID: id, Side: models.SideLeft})
	}
	for _, id := range group.RightIDs {
		members = append(members, models.MatchGroupMember{MatchID: group.ID, TransactionID: id, Side: models.SideRight})
	}
	return r.db.Create(&members).Error
}

// Get loads one group with its member id lists.
func (r *MatchGroupRepository) Get(id uuid.UUID) (*models.MatchGroup, error) {
	var group models.MatchGroup
	if err := r.db.First(&group, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrMatchNotFound
		}
		return nil, err
	}
	if err := r.loadMembers([]*models.MatchGroup{&group}); err != nil {
		return nil, err
	}
	return &group, nil
}

// List returns groups newest first, optionally filtered by status.
func (r *MatchGroupRepository) List(status models.MatchStatus) ([]models.MatchGroup, error) {
	query := r.db.Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var groups []models.MatchGroup
	if err := query.Find(&groups).Error; err != nil {
		return nil, err
	}
	refs := make([]*models.MatchGroup, len(groups))
	for i := range groups {
		refs[i] = &groups[i]
	}
	if err := r.loadMembers(refs); err != nil {
		return nil, err
	}
	return groups, nil
}

// Approve performs the compare-and-swap on version. A zero row count means
// the group changed (or vanished) since it was read.
func (r *MatchGroupRepository) Approve(id uuid.UUID, version int, approvedBy string, approvedAt time.Time) error {
	res := r.db.Model(&models.MatchGroup{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]interface{}{
			"status":      models.MatchApproved,
			"approved_by": approvedBy,
			"approved_at": approvedAt,
			"version":     version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &models.StaleVersionError{MatchID: id, Version: version}
	}
	return nil
}

// Delete removes the group row and its membership rows.
func (r *MatchGroupRepository) Delete(id uuid.UUID) error {
	if err := r.db.Where("match_id = ?", id).Delete(&models.MatchGroupMember{}).Error; err != nil {
		return err
	}
	return r.db.Delete(&models.MatchGroup{}, "id = ?", id).Error
}

func (r *MatchGroupRepository) loadMembers(groups []*models.MatchGroup) error {
	if len(groups) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(groups))
	byID := make(map[uuid.UUID]*models.MatchGroup, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
		byID[g.ID] = g
		g.LeftIDs = nil
		g.RightIDs = nil
	}
	var members []models.MatchGroupMember
	if err := r.db.Where("match_id IN ?", ids).Order("transaction_id").Find(&members).Error; err != nil {
		return err
	}
	for _, m := range members {
		g := byID[m.MatchID]
		if g == nil {
			continue
		}
		if m.Side == models.SideLeft {
			g.LeftIDs = append(g.LeftIDs, m.TransactionID)
		} else {
			g.RightIDs = append(g.RightIDs, m.TransactionID)
		}
	}
	return nil
}
