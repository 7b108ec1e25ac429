package handler

import (
	"errors"
	"net/http"
	"time"

	"reconciliation-ledger-backend/internal/models"
	"reconciliation-ledger-backend/internal/services/audit"
	"reconciliation-ledger-backend/internal/services/matching"
	service "reconciliation-ledger-backend/internal/services/reconciliation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MatchHandler struct {
	service *service.Service
}

func NewMatchHandler(s *service.Service) *MatchHandler {
	return &MatchHandler{service: s}
}

// actorFromRequest pulls the authenticated identity and request metadata the
// auth collaborator attached to the request. This core does not validate
// sessions; it records attribution.
func actorFromRequest(c *gin.Context) audit.Actor {
	return audit.Actor{
		UserID:            c.GetHeader("X-User-ID"),
		SessionID:         c.GetHeader("X-Session-ID"),
		IPAddress:         c.ClientIP(),
		DeviceFingerprint: c.GetHeader("X-Device-Fingerprint"),
	}
}

// respondError maps the error taxonomy onto HTTP status codes so the UI can
// distinguish retryable input problems from state conflicts.
func respondError(c *gin.Context, err error) {
	switch {
	case models.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case models.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case models.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrConflictOfInterest):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *MatchHandler) CreateMatch(c *gin.Context) {
	var payload struct {
		LeftIDs         []uuid.UUID `json:"left_ids" binding:"required"`
		RightIDs        []uuid.UUID `json:"right_ids" binding:"required"`
		Comment         string      `json:"comment"`
		AdjustmentLimit string      `json:"adjustment_limit"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	limit := decimal.Zero
	if payload.AdjustmentLimit != "" {
		var err error
		limit, err = decimal.NewFromString(payload.AdjustmentLimit)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid adjustment limit"})
			return
		}
	}

	group, err := h.service.CreateMatch(matching.CreateMatchParams{
		LeftIDs:         payload.LeftIDs,
		RightIDs:        payload.RightIDs,
		Comment:         payload.Comment,
		Actor:           actorFromRequest(c),
		AdjustmentLimit: limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"match": group})
}

func (h *MatchHandler) ApproveMatch(c *gin.Context) {
	matchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid match ID"})
		return
	}

	var payload struct {
		AllowSelfApproval bool `json:"allow_self_approval"`
	}
	// Body is optional; a missing body means no override.
	_ = c.ShouldBindJSON(&payload)

	group, err := h.service.ApproveMatch(matchID, actorFromRequest(c), payload.AllowSelfApproval)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"match": group})
}

func (h *MatchHandler) Unmatch(c *gin.Context) {
	matchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid match ID"})
		return
	}

	if err := h.service.Unmatch(matchID, actorFromRequest(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "match removed"})
}

func (h *MatchHandler) GetMatches(c *gin.Context) {
	status := models.MatchStatus(c.Query("status"))
	groups, err := h.service.GetMatches(status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": groups})
}

func (h *MatchHandler) ImportTransactions(c *gin.Context) {
	var payload struct {
		Transactions []struct {
			TransactionDate string `json:"transaction_date" binding:"required"`
			Description     string `json:"description"`
			Amount          string `json:"amount" binding:"required"`
			Side            string `json:"side" binding:"required"`
		} `json:"transactions" binding:"required"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	records := make([]service.TransactionRecord, 0, len(payload.Transactions))
	for i, t := range payload.Transactions {
		date, err := time.Parse("2006-01-02", t.TransactionDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction date", "row": i})
			return
		}
		amount, err := decimal.NewFromString(t.Amount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount", "row": i})
			return
		}
		side := models.TransactionSide(t.Side)
		if side != models.SideLeft && side != models.SideRight {
			c.JSON(http.StatusBadRequest, gin.H{"error": "side must be LEFT or RIGHT", "row": i})
			return
		}
		records = append(records, service.TransactionRecord{
			TransactionDate: date,
			Description:     t.Description,
			Amount:          amount,
			Side:            side,
		})
	}

	txs, err := h.service.ImportTransactions(records, actorFromRequest(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"imported": len(txs), "transactions": txs})
}

func (h *MatchHandler) ListTransactions(c *gin.Context) {
	limit := 100
	txs, err := h.service.ListTransactions(
		models.TransactionStatus(c.Query("status")),
		models.TransactionSide(c.Query("side")),
		limit,
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

func (h *MatchHandler) UnmatchedSummary(c *gin.Context) {
	totals, err := h.service.UnmatchedTotals()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"left_count":  totals.LeftCount,
		"right_count": totals.RightCount,
		"left_total":  totals.LeftTotal,
		"right_total": totals.RightTotal,
	})
}
