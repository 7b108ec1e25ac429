package matching

import (
	"fmt"
	"time"

	"reconciliation-ledger-backend/internal/models"
	"reconciliation-ledger-backend/internal/repository"
	"reconciliation-ledger-backend/internal/services/audit"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Engine is the state-machine authority for matching. Every mutating
// operation runs its storage writes and its audit append in one database
// transaction, wrapped in the audit chain-tail lock.
type Engine struct {
	db           *gorm.DB
	transactions *repository.TransactionRepository
	matches      *repository.MatchGroupRepository
	audit        *audit.Service
}

func NewEngine(db *gorm.DB, auditSvc *audit.Service) *Engine {
	return &Engine{
		db:           db,
		transactions: repository.NewTransactionRepository(db),
		matches:      repository.NewMatchGroupRepository(db),
		audit:        auditSvc,
	}
}

// CreateMatchParams carries one create-match request. AdjustmentLimit is the
// creating actor's approval limit, resolved by the permission collaborator.
type CreateMatchParams struct {
	LeftIDs         []uuid.UUID
	RightIDs        []uuid.UUID
	Comment         string
	Actor           audit.Actor
	AdjustmentLimit decimal.Decimal
}

// CreateMatch validates the selection, computes totals, routes approval by
// the difference against the actor's limit, and atomically creates the group
// while flipping every member transaction to MATCHED.
func (e *Engine) CreateMatch(p CreateMatchParams) (*models.MatchGroup, error) {
	if len(p.LeftIDs) == 0 || len(p.RightIDs) == 0 {
		return nil, models.ErrEmptySelection
	}
	allIDs := make([]uuid.UUID, 0, len(p.LeftIDs)+len(p.RightIDs))
	seen := make(map[uuid.UUID]bool, cap(allIDs))
	for _, id := range append(append([]uuid.UUID{}, p.LeftIDs...), p.RightIDs...) {
		if seen[id] {
			return nil, fmt.Errorf("%w: %s", models.ErrDuplicateSelection, id)
		}
		seen[id] = true
		allIDs = append(allIDs, id)
	}

	var group *models.MatchGroup
	err := e.audit.WithChainTail(func() error {
		return e.db.Transaction(func(tx *gorm.DB) error {
			txs, err := e.transactions.WithTx(tx).FetchByIDs(allIDs)
			if err != nil {
				return err
			}
			byID := make(map[uuid.UUID]*models.Transaction, len(txs))
			for i := range txs {
				t := &txs[i]
				if t.Status == models.StatusMatched {
					matchID := uuid.Nil
					if t.MatchID != nil {
						matchID = *t.MatchID
					}
					return &models.AlreadyMatchedError{ID: t.ID, MatchID: matchID}
				}
				byID[t.ID] = t
			}

			totalLeft, err := sideTotal(byID, p.LeftIDs, models.SideLeft)
			if err != nil {
				return err
			}
			totalRight, err := sideTotal(byID, p.RightIDs, models.SideRight)
			if err != nil {
				return err
			}
			difference := totalLeft.Sub(totalRight).Abs()

			group = &models.MatchGroup{
				ID:         uuid.New(),
				TotalLeft:  totalLeft,
				TotalRight: totalRight,
				Difference: difference,
				Comment:    p.Comment,
				MatchedBy:  p.Actor.UserID,
				Version:    1,
				CreatedAt:  time.Now().UTC(),
				LeftIDs:    p.LeftIDs,
				RightIDs:   p.RightIDs,
			}
			switch {
			case difference.IsZero():
				group.Status = models.MatchApproved
			case difference.LessThanOrEqual(p.AdjustmentLimit):
				// Small variance the actor may absorb without sign-off.
				adj := difference
				group.Status = models.MatchApproved
				group.Adjustment = &adj
			default:
				adj := difference
				group.Status = models.MatchPendingApproval
				group.Adjustment = &adj
			}

			if err := e.matches.WithTx(tx).Insert(group); err != nil {
				return fmt.Errorf("%w: inserting match group: %v", models.ErrStorage, err)
			}
			updated, err := e.transactions.WithTx(tx).SetStatus(allIDs, models.StatusUnmatched, models.StatusMatched, &group.ID)
			if err != nil {
				return fmt.Errorf("%w: updating transaction status: %v", models.ErrStorage, err)
			}
			if updated != int64(len(allIDs)) {
				// A concurrent match claimed an overlapping transaction
				// after our read; roll everything back.
				return models.ErrAlreadyMatched
			}

			_, err = e.audit.Append(tx, audit.Record{
				Actor:      p.Actor,
				ActionType: models.ActionMatch,
				EntityType: models.EntityMatchGroup,
				EntityID:   group.ID.String(),
				AfterState: group,
				ChangeSummary: fmt.Sprintf(
					"matched %d left / %d right transactions: total_left=%s total_right=%s difference=%s status=%s",
					len(p.LeftIDs), len(p.RightIDs), totalLeft, totalRight, difference, group.Status),
			})
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// ApproveMatch moves a pending group to APPROVED. The creator may not
// approve their own match unless the permission collaborator asserted an
// override via allowSelfApproval. Version is compare-and-swapped so a
// concurrent approval surfaces as StaleVersion instead of a lost update.
func (e *Engine) ApproveMatch(matchID uuid.UUID, approver audit.Actor, allowSelfApproval bool) (*models.MatchGroup, error) {
	var group *models.MatchGroup
	err := e.audit.WithChainTail(func() error {
		return e.db.Transaction(func(tx *gorm.DB) error {
			var err error
			group, err = e.matches.WithTx(tx).Get(matchID)
			if err != nil {
				return err
			}
			if group.Status == models.MatchApproved {
				return models.ErrAlreadyApproved
			}
			if approver.UserID == group.MatchedBy && !allowSelfApproval {
				return models.ErrConflictOfInterest
			}

			now := time.Now().UTC()
			if err := e.matches.WithTx(tx).Approve(group.ID, group.Version, approver.UserID, now); err != nil {
				return err
			}
			group.Status = models.MatchApproved
			group.ApprovedBy = &approver.UserID
			group.ApprovedAt = &now
			group.Version++

			_, err = e.audit.Append(tx, audit.Record{
				Actor:      approver,
				ActionType: models.ActionApprove,
				EntityType: models.EntityMatchGroup,
				EntityID:   group.ID.String(),
				AfterState: group,
				ChangeSummary: fmt.Sprintf(
					"approved match with difference=%s adjustment=%s",
					group.Difference, adjustmentString(group.Adjustment)),
			})
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// Unmatch reverses a match: every member transaction goes back to UNMATCHED
// and the group row is deleted. The audit entry captures the before-state
// since the row ceases to exist afterward.
func (e *Engine) Unmatch(matchID uuid.UUID, actor audit.Actor) error {
	return e.audit.WithChainTail(func() error {
		return e.db.Transaction(func(tx *gorm.DB) error {
			group, err := e.matches.WithTx(tx).Get(matchID)
			if err != nil {
				return err
			}
			memberIDs := append(append([]uuid.UUID{}, group.LeftIDs...), group.RightIDs...)

			if _, err := e.transactions.WithTx(tx).SetStatus(memberIDs, models.StatusMatched, models.StatusUnmatched, nil); err != nil {
				return fmt.Errorf("%w: reverting transaction status: %v", models.ErrStorage, err)
			}
			if err := e.matches.WithTx(tx).Delete(group.ID); err != nil {
				return fmt.Errorf("%w: deleting match group: %v", models.ErrStorage, err)
			}

			_, err = e.audit.Append(tx, audit.Record{
				Actor:       actor,
				ActionType:  models.ActionUnmatch,
				EntityType:  models.EntityMatchGroup,
				EntityID:    group.ID.String(),
				BeforeState: group,
				ChangeSummary: fmt.Sprintf(
					"unmatched %d left / %d right transactions: total_left=%s total_right=%s",
					len(group.LeftIDs), len(group.RightIDs), group.TotalLeft, group.TotalRight),
			})
			return err
		})
	})
}

// GetMatches is a pure read of match groups, newest first, optionally
// filtered by status.
func (e *Engine) GetMatches(status models.MatchStatus) ([]models.MatchGroup, error) {
	return e.matches.List(status)
}

func sideTotal(byID map[uuid.UUID]*models.Transaction, ids []uuid.UUID, side models.TransactionSide) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, id := range ids {
		t := byID[id]
		if t.Side != side {
			return decimal.Zero, &models.SideMismatchError{ID: id, Want: side}
		}
		total = total.Add(t.Amount.Abs())
	}
	return total, nil
}

func adjustmentString(adj *decimal.Decimal) string {
	if adj == nil {
		return "none"
	}
	return adj.String()
}
