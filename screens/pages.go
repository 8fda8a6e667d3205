package screens

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"luchaserver/apiclient"
	"luchaserver/middlewares"
	"luchaserver/models"
	"luchaserver/mutations"
	"luchaserver/normalize"
	"luchaserver/planner"
)

// Invalidator ends the caller's session, normally auth.Provider.
type Invalidator interface {
	Invalidate(c *gin.Context)
}

// Performer runs actions, normally mutations.Coordinator.
type Performer interface {
	Perform(ctx context.Context, sess *models.Session, name string, in mutations.Input, confirmed bool) mutations.Result
}

const sessionExpired = "Tu sesión ha expirado. Inicia sesión nuevamente."

// ページ表示
func ViewHandler(reg *Registry, inv Invalidator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := middlewares.SessionFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No autorizado"})
			return
		}
		page, id := c.Param("page"), c.Param("id")

		view, err := reg.Load(c.Request.Context(), sess, page, id)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{"page": page, "role": sess.Role, "view": view})
		case errors.Is(err, planner.ErrUnknownPage):
			c.JSON(http.StatusNotFound, gin.H{"error": "Página no encontrada"})
		case errors.Is(err, planner.ErrMissingID):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Falta el identificador"})
		case errors.Is(err, ErrStale):
			// 最新の確定済みビューがあれば一緒に返す
			body := gin.H{"error": "Respuesta descartada por una carga más reciente", "stale": true}
			if latest, ok := reg.Latest(sess.SID, PageKey(page, id)); ok {
				body["view"] = latest
			}
			c.JSON(http.StatusConflict, body)
		case errors.Is(err, apiclient.ErrAuthExpired):
			inv.Invalidate(c)
			c.JSON(http.StatusUnauthorized, gin.H{"error": sessionExpired})
		case errors.Is(err, context.DeadlineExceeded):
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "El servidor tardó demasiado en responder"})
		default:
			logger.Error("Failed to load page", zap.String("page", page), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al cargar la página"})
		}
	}
}

// ActionHandler runs POST /{role}/actions/:action. The body is the action
// input; ?confirm=true or "confirmed": true confirms destructive actions.
func ActionHandler(coord Performer, inv Invalidator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := middlewares.SessionFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No autorizado"})
			return
		}

		in := mutations.Input{}
		if err := c.ShouldBindJSON(&in); err != nil && !errors.Is(err, io.EOF) {
			logger.Info("Invalid action body", zap.String("action", c.Param("action")), zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Solicitud inválida"})
			return
		}
		confirmed := c.Query("confirm") == "true" || normalize.Bool(in["confirmed"])
		delete(in, "confirmed")

		res := coord.Perform(c.Request.Context(), sess, c.Param("action"), in, confirmed)
		if res.AuthExpired() {
			inv.Invalidate(c)
			c.JSON(http.StatusUnauthorized, gin.H{"error": sessionExpired})
			return
		}
		if res.Kind == mutations.KindError {
			c.JSON(res.Status, gin.H{"error": res.Message, "action": res.Action})
			return
		}
		c.JSON(res.Status, res)
	}
}

// UnmountHandler handles DELETE /{role}/:page, sent when a page closes.
func UnmountHandler(reg *Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := middlewares.SessionFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No autorizado"})
			return
		}
		reg.Unmount(sess.SID, PageKey(c.Param("page"), c.Param("id")))
		c.Status(http.StatusNoContent)
	}
}
