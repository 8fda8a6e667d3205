package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"luchaserver/middlewares"
)

// Subscriber serves a websocket for one browser session.
type Subscriber interface {
	Serve(w http.ResponseWriter, r *http.Request, sid string)
}

// WebSocket接続へのアップグレードを行うハンドラー
func WebSocket(hub Subscriber) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := middlewares.SessionFrom(c)
		// Bearerヘッダーのセッションはストアに無いのでログアウト通知が届かない
		if !ok || sess.SID == "" || strings.HasPrefix(sess.SID, "bearer:") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No autorizado"})
			return
		}
		hub.Serve(c.Writer, c.Request, sess.SID)
	}
}
