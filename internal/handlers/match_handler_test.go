package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"reconciliation-ledger-backend/internal/models"
	"reconciliation-ledger-backend/internal/routes"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.Transaction{},
		&models.MatchGroup{},
		&models.MatchGroupMember{},
		&models.AuditLogEntry{},
	))

	r := gin.New()
	routes.RegisterRoutes(r, db)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, user string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", user)
	req.Header.Set("X-Session-ID", "sess-"+user)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func importPair(t *testing.T, r *gin.Engine) (leftID, rightID string) {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/transactions/import", "carol", gin.H{
		"transactions": []gin.H{
			{"transaction_date": "2025-04-01", "description": "wire", "amount": "200.00", "side": "LEFT"},
			{"transaction_date": "2025-04-02", "description": "stmt", "amount": "150.00", "side": "RIGHT"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Transactions []struct {
			ID   string `json:"ID"`
			Side string `json:"Side"`
		} `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Transactions, 2)
	for _, tx := range resp.Transactions {
		if tx.Side == "LEFT" {
			leftID = tx.ID
		} else {
			rightID = tx.ID
		}
	}
	require.NotEmpty(t, leftID)
	require.NotEmpty(t, rightID)
	return leftID, rightID
}

func TestMatchLifecycleOverHTTP(t *testing.T) {
	r := newTestRouter(t)
	leftID, rightID := importPair(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/matches", "alice", gin.H{
		"left_ids":  []string{leftID},
		"right_ids": []string{rightID},
		"comment":   "month-end",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Match struct {
			ID     string `json:"ID"`
			Status string `json:"Status"`
		} `json:"match"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, string(models.MatchPendingApproval), created.Match.Status)

	// Creator may not approve their own match.
	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/matches/%s/approve", created.Match.ID), "alice", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// A different approver succeeds.
	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/matches/%s/approve", created.Match.ID), "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Matching the same transactions again is a conflict.
	w = doJSON(t, r, http.MethodPost, "/api/matches", "alice", gin.H{
		"left_ids":  []string{leftID},
		"right_ids": []string{rightID},
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Unmatch, then the group is gone.
	w = doJSON(t, r, http.MethodDelete, "/api/matches/"+created.Match.ID, "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, http.MethodDelete, "/api/matches/"+created.Match.ID, "bob", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// The whole lifecycle left a verifiable chain.
	w = doJSON(t, r, http.MethodGet, "/api/audit/verify", "auditor", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var verify struct {
		Valid  bool     `json:"valid"`
		Errors []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verify))
	assert.True(t, verify.Valid)
	assert.Empty(t, verify.Errors)
}

func TestCreateMatch_BadPayloadOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/matches", "alice", gin.H{"left_ids": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/matches/not-a-uuid/approve", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuditEndpointsOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/audit/logs", "alice", gin.H{
		"action_type":    "LOGIN",
		"entity_type":    "Session",
		"entity_id":      "sess-alice",
		"change_summary": "user logged in",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/audit/logs?user_id=alice", "auditor", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var logs struct {
		Entries []struct {
			ActionType string `json:"ActionType"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
	require.Len(t, logs.Entries, 1)
	assert.Equal(t, "LOGIN", logs.Entries[0].ActionType)

	w = doJSON(t, r, http.MethodGet, "/api/audit/trail/Session/sess-alice", "auditor", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/audit/activity/alice", "auditor", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary struct {
		TotalActions int64 `json:"total_actions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, int64(1), summary.TotalActions)
}
