package middlewares

import (
	"github.com/gin-gonic/gin"

	"luchaserver/models"
)

const sessionKey = "session"

// SessionFrom returns the session RequireRole stored on the context.
func SessionFrom(c *gin.Context) (*models.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*models.Session)
	return sess, ok && sess != nil
}
