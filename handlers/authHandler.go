package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"luchaserver/apiclient"
	"luchaserver/auth"
	"luchaserver/middlewares"
	"luchaserver/models"
	"luchaserver/mutations"
	"luchaserver/normalize"
)

// Sender is the write half of the game API client.
type Sender interface {
	Send(ctx context.Context, token, method, path string, payload any) (map[string]any, error)
}

// Sessions is the part of auth.Provider the auth handlers use.
type Sessions interface {
	Resolve(c *gin.Context, allowed ...models.Role) (*models.Session, error)
	Establish(c *gin.Context, token string) (*models.Session, error)
	Invalidate(c *gin.Context)
}

// Performer runs actions, normally mutations.Coordinator.
type Performer interface {
	Perform(ctx context.Context, sess *models.Session, name string, in mutations.Input, confirmed bool) mutations.Result
}

const (
	loginFailed    = "Error al iniciar sesión"
	activateFailed = "Error al activar cuenta"
)

// ログインリクエストの構造体
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges credentials for a game API token and starts a session.
// A reply message mentioning activation sends the user to /activate.
func Login(api Sender, sessions Sessions, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Usuario y contraseña son requeridos"})
			return
		}

		reply, err := api.Send(c.Request.Context(), "", http.MethodPost, "/auth/login",
			gin.H{"username": req.Username, "password": req.Password})
		if err != nil {
			status := apiclient.StatusOf(err)
			if status == 0 {
				status = http.StatusBadGateway
			}
			msg := apiclient.ServerMessage(err)
			if msg == "" {
				msg = loginFailed
			}
			logger.Info("Login rejected", zap.String("username", req.Username), zap.Int("status", status))
			c.JSON(status, gin.H{"error": msg})
			return
		}

		token := normalize.Str(reply["token"])
		if token == "" {
			logger.Error("Login reply without token", zap.String("username", req.Username))
			c.JSON(http.StatusBadGateway, gin.H{"error": loginFailed})
			return
		}
		sess, err := sessions.Establish(c, token)
		if err != nil {
			if auth.IsAuthError(err) {
				// ゲームAPIが読めないトークンを返した
				logger.Error("Login reply carried an unusable token", zap.String("username", req.Username), zap.Error(err))
				c.JSON(http.StatusBadGateway, gin.H{"error": loginFailed})
				return
			}
			logger.Error("Failed to store session token", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": loginFailed})
			return
		}

		message := normalize.Str(reply["message"])
		redirect := "/welcome"
		if strings.Contains(strings.ToLower(message), "activar") {
			redirect = "/activate"
		}
		c.JSON(http.StatusOK, gin.H{
			"message":  message,
			"redirect": redirect,
			"role":     sess.Role,
			"username": sess.Username,
		})
	}
}

// Logout clears the session everywhere, including the user's other tabs.
// It works without a valid session so a stale cookie can always be cleared.
func Logout(sessions Sessions, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sess, err := sessions.Resolve(c); err == nil {
			logger.Info("logout", zap.String("userID", sess.ID), zap.String("role", string(sess.Role)))
		}
		sessions.Invalidate(c)
		c.JSON(http.StatusOK, gin.H{"redirect": middlewares.LoginPath})
	}
}

// ActivateForm describes the fields the activation page asks for.
func ActivateForm(c *gin.Context) {
	sess, ok := middlewares.SessionFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No autorizado"})
		return
	}
	fields := []string{"name", "territory"}
	if sess.Role == models.RoleSponsor {
		fields = []string{"company_name"}
	}
	c.JSON(http.StatusOK, gin.H{"role": sess.Role, "fields": fields})
}

// Activate completes a dictator or sponsor profile. Only those two roles
// reach it; the route is gated.
func Activate(coord Performer, sessions Sessions, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := middlewares.SessionFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No autorizado"})
			return
		}
		in := mutations.Input{}
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": activateFailed})
			return
		}

		res := coord.Perform(c.Request.Context(), sess, "activate", in, true)
		switch {
		case res.AuthExpired():
			sessions.Invalidate(c)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Tu sesión ha expirado. Inicia sesión nuevamente."})
		case !res.OK:
			c.JSON(res.Status, gin.H{"error": res.Message})
		default:
			// some deployments reissue the token once the profile is complete
			if token := normalize.Str(res.Reply["token"]); token != "" {
				if _, err := sessions.Establish(c, token); err != nil {
					logger.Warn("Ignoring reissued token", zap.Error(err))
				}
			}
			c.JSON(http.StatusOK, gin.H{"message": res.Message, "redirect": "/welcome"})
		}
	}
}
