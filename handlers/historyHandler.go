package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"luchaserver/middlewares"
	"luchaserver/models"
)

const (
	historyDefault = 20
	historyMax     = 100
)

// AuditReader reads the mutation audit log, normally database.AuditRepository.
type AuditReader interface {
	Recent(ctx context.Context, sessionID string, limit int) ([]models.MutationAudit, error)
}

// HistoryEntry is one past action as shown to the user.
type HistoryEntry struct {
	Action  string    `json:"action"`
	Target  string    `json:"target,omitempty"`
	Outcome string    `json:"outcome"`
	Message string    `json:"message"`
	Status  int       `json:"status"`
	At      time.Time `json:"at"`
}

// 自分のセッションで行った操作の履歴（新しい順）
func History(audit AuditReader, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := middlewares.SessionFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No autorizado"})
			return
		}
		limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(historyDefault)))
		if err != nil || limit <= 0 {
			limit = historyDefault
		}
		if limit > historyMax {
			limit = historyMax
		}

		rows, err := audit.Recent(c.Request.Context(), sess.SID, limit)
		if err != nil {
			logger.Error("Failed to read action history", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al cargar el historial"})
			return
		}
		entries := make([]HistoryEntry, 0, len(rows))
		for _, r := range rows {
			entries = append(entries, HistoryEntry{
				Action:  r.Action,
				Target:  r.Target,
				Outcome: r.Outcome,
				Message: r.Message,
				Status:  r.HTTPStatus,
				At:      r.CreatedAt,
			})
		}
		c.JSON(http.StatusOK, gin.H{"entries": entries})
	}
}
