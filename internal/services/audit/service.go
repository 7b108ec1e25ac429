package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"reconciliation-ledger-backend/internal/models"
	"reconciliation-ledger-backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Actor is the authenticated identity plus request metadata attached to
// every audit entry. Resolved by the auth/session collaborator; this core
// only records it.
type Actor struct {
	UserID            string
	SessionID         string
	IPAddress         string
	DeviceFingerprint string
	Geolocation       string
}

// Record is everything a caller supplies for one audit entry. BeforeState
// and AfterState are serialized as JSON snapshots when non-nil. There is no
// business validation here: auditability must not depend on audit content
// being "correct".
type Record struct {
	Actor         Actor
	ActionType    models.AuditActionType
	EntityType    string
	EntityID      string
	BeforeState   interface{}
	AfterState    interface{}
	ChangeSummary string
	Justification string
}

// Service writes and verifies the tamper-evident log. All appends funnel
// through the chain-tail mutex: reading the tail hash and writing the next
// entry must never interleave with another writer, or the chain forks.
type Service struct {
	db      *gorm.DB
	entries *repository.AuditLogRepository
	mu      sync.Mutex
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, entries: repository.NewAuditLogRepository(db)}
}

// WithChainTail runs fn while holding the chain-tail lock. Any caller that
// appends inside its own database transaction must wrap the whole
// transaction (through commit) in WithChainTail; releasing the lock before
// commit would let a second writer read a stale tail.
func (s *Service) WithChainTail(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// Log appends a standalone entry in its own transaction.
func (s *Service) Log(rec Record) (*models.AuditLogEntry, error) {
	var entry *models.AuditLogEntry
	err := s.WithChainTail(func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			var err error
			entry, err = s.Append(tx, rec)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Append writes one entry inside tx. The caller must hold the chain-tail
// lock via WithChainTail for the lifetime of tx.
func (s *Service) Append(tx *gorm.DB, rec Record) (*models.AuditLogEntry, error) {
	last, err := s.entries.WithTx(tx).Last()
	if err != nil {
		return nil, fmt.Errorf("%w: reading chain tail: %v", models.ErrStorage, err)
	}
	prevHash := ""
	seq := int64(1)
	if last != nil {
		prevHash = last.CurrentHash
		seq = last.Seq + 1
	}

	entry := &models.AuditLogEntry{
		ID:                uuid.New(),
		Seq:               seq,
		UserID:            rec.Actor.UserID,
		SessionID:         rec.Actor.SessionID,
		IPAddress:         rec.Actor.IPAddress,
		DeviceFingerprint: rec.Actor.DeviceFingerprint,
		Geolocation:       rec.Actor.Geolocation,
		ActionType:        rec.ActionType,
		EntityType:        rec.EntityType,
		EntityID:          rec.EntityID,
		ChangeSummary:     rec.ChangeSummary,
		Justification:     rec.Justification,
		PreviousHash:      prevHash,
		// Postgres keeps microseconds; truncate so the stored row
		// re-hashes to the same value during verification.
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	if rec.BeforeState != nil {
		if entry.BeforeState, err = json.Marshal(rec.BeforeState); err != nil {
			return nil, fmt.Errorf("serializing before state: %w", err)
		}
	}
	if rec.AfterState != nil {
		if entry.AfterState, err = json.Marshal(rec.AfterState); err != nil {
			return nil, fmt.Errorf("serializing after state: %w", err)
		}
	}
	entry.CurrentHash = ChainHash(entry)

	if err := s.entries.WithTx(tx).Append(entry); err != nil {
		return nil, fmt.Errorf("%w: appending audit entry: %v", models.ErrStorage, err)
	}
	return entry, nil
}

// ChainHash computes the deterministic hash over an entry's identifying
// fields plus its PreviousHash. Fields are written in a fixed order with a
// separator byte so no two field combinations collide.
func ChainHash(e *models.AuditLogEntry) string {
	h := sha256.New()
	for _, field := range []string{
		e.UserID,
		string(e.ActionType),
		e.EntityType,
		e.EntityID,
		e.ChangeSummary,
		e.PreviousHash,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	} {
		h.Write([]byte(field))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyResult is the outcome of a full chain scan. Violations are data,
// not errors: finding tampering is a normal outcome of the check.
type VerifyResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// VerifyChain re-walks the whole log in chain order and reports every
// violated entry, not just the first, so one scan yields a full damage
// report. Read-only and idempotent.
func (s *Service) VerifyChain() (VerifyResult, error) {
	entries, err := s.entries.All()
	if err != nil {
		return VerifyResult{}, fmt.Errorf("%w: loading audit log: %v", models.ErrStorage, err)
	}

	result := VerifyResult{Valid: true, Errors: []string{}}
	prevHash := ""
	for i := range entries {
		e := &entries[i]
		if e.PreviousHash != prevHash {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf(
				"entry %d (%s): previous_hash mismatch: expected %q, got %q",
				e.Seq, e.ID, prevHash, e.PreviousHash))
		}
		if recomputed := ChainHash(e); recomputed != e.CurrentHash {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf(
				"entry %d (%s): current_hash mismatch: recomputed %q, stored %q",
				e.Seq, e.ID, recomputed, e.CurrentHash))
		}
		// Link against the stored hash even when the entry is bad, so a
		// single corrupt entry reports two findings, not a cascade.
		prevHash = e.CurrentHash
	}
	return result, nil
}

// EntityTrail returns every entry for one entity, oldest first.
func (s *Service) EntityTrail(entityType, entityID string) ([]models.AuditLogEntry, error) {
	return s.entries.ByEntity(entityType, entityID)
}

// Query returns entries matching the filter, newest first.
func (s *Service) Query(f repository.AuditFilter) ([]models.AuditLogEntry, error) {
	return s.entries.Query(f)
}

// ActivitySummary aggregates one user's actions inside a window.
type ActivitySummary struct {
	TotalActions  int64                            `json:"total_actions"`
	ActionsByType map[models.AuditActionType]int64 `json:"actions_by_type"`
	RecentActions []models.AuditLogEntry           `json:"recent_actions"`
}

// UserActivitySummary is a read-only aggregation over one actor's entries
// between start and end.
func (s *Service) UserActivitySummary(userID string, start, end time.Time) (ActivitySummary, error) {
	entries, err := s.entries.Query(repository.AuditFilter{UserID: userID, From: start, To: end})
	if err != nil {
		return ActivitySummary{}, err
	}
	summary := ActivitySummary{ActionsByType: map[models.AuditActionType]int64{}}
	summary.TotalActions = int64(len(entries))
	for _, e := range entries {
		summary.ActionsByType[e.ActionType]++
	}
	recent := entries
	if len(recent) > 10 {
		recent = recent[:10]
	}
	summary.RecentActions = recent
	return summary, nil
}
