package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"luchaserver/middlewares"
	"luchaserver/mutations"
	"luchaserver/planner"
)

// NavLink is one entry of the role navigation.
type NavLink struct {
	Page string `json:"page"`
	Path string `json:"path"`
}

// Welcome greets the logged-in user.
func Welcome(c *gin.Context) {
	sess, ok := middlewares.SessionFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No autorizado"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Bienvenido, " + sess.Username,
		"username": sess.Username,
		"role":     sess.Role,
		"next":     "/dashboard",
	})
}

// Dashboard lists the pages and actions of the user's role.
func Dashboard(c *gin.Context) {
	sess, ok := middlewares.SessionFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No autorizado"})
		return
	}
	capab, _ := planner.For(sess.Role)
	links := make([]NavLink, 0, len(capab.Pages))
	for _, page := range capab.Pages {
		// detail pages are reached from a list, not the menu
		if page == planner.PageContestant {
			continue
		}
		links = append(links, NavLink{Page: page, Path: "/" + sess.Role.Path() + "/" + page})
	}

	resp := gin.H{
		"username": sess.Username,
		"role":     sess.Role,
		"pages":    links,
		"actions":  mutations.Names(sess.Role),
	}
	if sess.ExpiresAt != nil {
		resp["expiresAt"] = sess.ExpiresAt
	}
	c.JSON(http.StatusOK, resp)
}

// LoginPage is served to callers without a valid session.
func LoginPage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"page": "login", "fields": []string{"username", "password"}})
}
