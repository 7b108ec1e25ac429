package reconciliation

import (
	"fmt"
	"time"

	"reconciliation-ledger-backend/internal/models"
	"reconciliation-ledger-backend/internal/repository"
	"reconciliation-ledger-backend/internal/services/audit"
	"reconciliation-ledger-backend/internal/services/matching"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service is the operation surface external collaborators (HTTP layer, UI)
// call into. It wires the match engine, the audit chain service, and the
// transaction store together; no business rules live here.
type Service struct {
	db           *gorm.DB
	engine       *matching.Engine
	audit        *audit.Service
	transactions *repository.TransactionRepository
}

func NewService(db *gorm.DB) *Service {
	auditSvc := audit.NewService(db)
	return &Service{
		db:           db,
		engine:       matching.NewEngine(db, auditSvc),
		audit:        auditSvc,
		transactions: repository.NewTransactionRepository(db),
	}
}

func (s *Service) CreateMatch(p matching.CreateMatchParams) (*models.MatchGroup, error) {
	return s.engine.CreateMatch(p)
}

func (s *Service) ApproveMatch(matchID uuid.UUID, approver audit.Actor, allowSelfApproval bool) (*models.MatchGroup, error) {
	return s.engine.ApproveMatch(matchID, approver, allowSelfApproval)
}

func (s *Service) Unmatch(matchID uuid.UUID, actor audit.Actor) error {
	return s.engine.Unmatch(matchID, actor)
}

func (s *Service) GetMatches(status models.MatchStatus) ([]models.MatchGroup, error) {
	return s.engine.GetMatches(status)
}

// CreateAuditLog appends an entry on behalf of another mutating subsystem
// (login, export, imports done elsewhere). Audit content is recorded as
// given.
func (s *Service) CreateAuditLog(rec audit.Record) (*models.AuditLogEntry, error) {
	return s.audit.Log(rec)
}

func (s *Service) GetAuditLogs(f repository.AuditFilter) ([]models.AuditLogEntry, error) {
	return s.audit.Query(f)
}

func (s *Service) GetEntityAuditTrail(entityType, entityID string) ([]models.AuditLogEntry, error) {
	return s.audit.EntityTrail(entityType, entityID)
}

func (s *Service) GetUserActivitySummary(userID string, start, end time.Time) (audit.ActivitySummary, error) {
	return s.audit.UserActivitySummary(userID, start, end)
}

func (s *Service) VerifyAuditChain() (audit.VerifyResult, error) {
	return s.audit.VerifyChain()
}

// TransactionRecord is one validated row handed over by the import
// collaborator. Parsing and validation happen upstream.
type TransactionRecord struct {
	TransactionDate time.Time
	Description     string
	Amount          decimal.Decimal
	Side            models.TransactionSide
}

// ImportTransactions persists validated records UNMATCHED and writes one
// IMPORT audit entry for the batch, atomically.
func (s *Service) ImportTransactions(records []TransactionRecord, actor audit.Actor) ([]models.Transaction, error) {
	txs := make([]models.Transaction, len(records))
	now := time.Now().UTC()
	for i, rec := range records {
		txs[i] = models.Transaction{
			ID:              uuid.New(),
			TransactionDate: rec.TransactionDate,
			Description:     rec.Description,
			Amount:          rec.Amount,
			Side:            rec.Side,
			Status:          models.StatusUnmatched,
			ImportedBy:      actor.UserID,
			CreatedAt:       now,
		}
	}
	err := s.audit.WithChainTail(func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			if err := s.transactions.WithTx(tx).Create(txs); err != nil {
				return fmt.Errorf("%w: inserting transactions: %v", models.ErrStorage, err)
			}
			_, err := s.audit.Append(tx, audit.Record{
				Actor:         actor,
				ActionType:    models.ActionImport,
				EntityType:    models.EntityTransaction,
				ChangeSummary: fmt.Sprintf("imported %d transactions", len(txs)),
			})
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return txs, nil
}

func (s *Service) ListTransactions(status models.TransactionStatus, side models.TransactionSide, limit int) ([]models.Transaction, error) {
	return s.transactions.List(status, side, limit)
}

// UnmatchedTotals reports reconciliation progress: per-side counts and
// absolute-amount sums of everything still awaiting a match.
func (s *Service) UnmatchedTotals() (repository.SideTotals, error) {
	return s.transactions.UnmatchedTotals()
}
