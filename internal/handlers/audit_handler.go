package handler

import (
	"net/http"
	"time"

	"reconciliation-ledger-backend/internal/models"
	"reconciliation-ledger-backend/internal/repository"
	"reconciliation-ledger-backend/internal/services/audit"
	service "reconciliation-ledger-backend/internal/services/reconciliation"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	service *service.Service
}

func NewAuditHandler(s *service.Service) *AuditHandler {
	return &AuditHandler{service: s}
}

// CreateAuditLog lets other mutating subsystems (login, export, uploads)
// record their actions on the same chain.
func (h *AuditHandler) CreateAuditLog(c *gin.Context) {
	var payload struct {
		ActionType    string      `json:"action_type" binding:"required"`
		EntityType    string      `json:"entity_type" binding:"required"`
		EntityID      string      `json:"entity_id"`
		BeforeState   interface{} `json:"before_state"`
		AfterState    interface{} `json:"after_state"`
		ChangeSummary string      `json:"change_summary" binding:"required"`
		Justification string      `json:"justification"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	entry, err := h.service.CreateAuditLog(audit.Record{
		Actor:         actorFromRequest(c),
		ActionType:    models.AuditActionType(payload.ActionType),
		EntityType:    payload.EntityType,
		EntityID:      payload.EntityID,
		BeforeState:   payload.BeforeState,
		AfterState:    payload.AfterState,
		ChangeSummary: payload.ChangeSummary,
		Justification: payload.Justification,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	filter := repository.AuditFilter{
		UserID:     c.Query("user_id"),
		ActionType: models.AuditActionType(c.Query("action_type")),
		EntityType: c.Query("entity_type"),
		EntityID:   c.Query("entity_id"),
		Limit:      100,
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
			return
		}
		filter.From = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
			return
		}
		filter.To = t
	}

	entries, err := h.service.GetAuditLogs(filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *AuditHandler) GetEntityAuditTrail(c *gin.Context) {
	entries, err := h.service.GetEntityAuditTrail(c.Param("entityType"), c.Param("entityId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *AuditHandler) GetUserActivitySummary(c *gin.Context) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -30)
	if v := c.Query("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start date"})
			return
		}
		start = t
	}
	if v := c.Query("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end date"})
			return
		}
		end = t
	}

	summary, err := h.service.GetUserActivitySummary(c.Param("userId"), start, end)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *AuditHandler) VerifyAuditChain(c *gin.Context) {
	result, err := h.service.VerifyAuditChain()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
