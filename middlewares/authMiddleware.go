package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"luchaserver/auth"
	"luchaserver/models"
)

// LoginPath is where rejected page requests are sent.
const LoginPath = "/login"

// Resolver is the part of auth.Provider the gate needs.
type Resolver interface {
	Resolve(c *gin.Context, allowed ...models.Role) (*models.Session, error)
}

// RequireRole はロールに合わないセッションを弾くミドルウェア
func RequireRole(p Resolver, logger *zap.Logger, roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := resolve(c, p, roles)
		if err != nil {
			reject(c, logger, err)
			return
		}
		c.Set(sessionKey, sess)
		c.Next()
	}
}

// RequireSession accepts any recognized role.
func RequireSession(p Resolver, logger *zap.Logger) gin.HandlerFunc {
	return RequireRole(p, logger, models.Roles...)
}

// RedirectIfAuthenticated sends callers that already have a valid session
// away from the login page.
func RedirectIfAuthenticated(p Resolver, target string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := p.Resolve(c, models.Roles...); err == nil {
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		}
		c.Next()
	}
}

// resolve prefers a bearer header (non-browser callers) over cookies. Header
// tokens are decoded as-is and never stored.
func resolve(c *gin.Context, p Resolver, roles []models.Role) (*models.Session, error) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return p.Resolve(c, roles...)
	}
	token := strings.TrimPrefix(header, "Bearer ")
	sess, err := auth.Decode(token, roles...)
	if err != nil {
		return nil, err
	}
	sess.SID = "bearer:" + sess.ID
	return sess, nil
}

func reject(c *gin.Context, logger *zap.Logger, err error) {
	if !errors.Is(err, auth.ErrNoToken) {
		logger.Info("session rejected", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	if WantsJSON(c) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No autorizado"})
		return
	}
	c.Redirect(http.StatusFound, LoginPath)
	c.Abort()
}

// WantsJSON tells API calls apart from page navigations.
func WantsJSON(c *gin.Context) bool {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		return true
	}
	if strings.HasPrefix(c.GetHeader("Authorization"), "Bearer ") {
		return true
	}
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	if c.GetHeader("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}
