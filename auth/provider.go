package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"luchaserver/models"
)

const (
	SessionCookie = "sid"
	TokenCookie   = "token"
)

// Notifier is told when a browser session is invalidated so other open
// tabs of the same session can react.
type Notifier interface {
	SessionInvalidated(sid string)
}

// Provider is the single owner of session state. Handlers ask it for the
// current session instead of reading cookies themselves.
type Provider struct {
	store     TokenStore
	logger    *zap.Logger
	secure    bool
	notifiers []Notifier
}

func NewProvider(store TokenStore, logger *zap.Logger, secureCookies bool) *Provider {
	return &Provider{store: store, logger: logger, secure: secureCookies}
}

// AddNotifier registers a listener for invalidated sessions. Not safe to
// call once requests are being served.
func (p *Provider) AddNotifier(n Notifier) {
	p.notifiers = append(p.notifiers, n)
}

// Resolve returns the caller's session. The token store is read first; the
// token cookie is the fallback and is copied into the store when it decodes.
// Any rejected token is cleared from both places.
func (p *Provider) Resolve(c *gin.Context, allowed ...models.Role) (*models.Session, error) {
	ctx := c.Request.Context()
	sid, _ := c.Cookie(SessionCookie)

	var token string
	if sid != "" {
		stored, err := p.store.Get(ctx, sid)
		if err != nil {
			p.logger.Warn("token store read failed, falling back to cookie", zap.Error(err))
		}
		token = stored
	}

	fromCookie := false
	if token == "" {
		if cookieToken, err := c.Cookie(TokenCookie); err == nil && cookieToken != "" {
			token = cookieToken
			fromCookie = true
		}
	}
	if token == "" {
		return nil, ErrNoToken
	}

	sess, err := Decode(token, allowed...)
	if err != nil {
		p.clear(c, sid)
		return nil, err
	}

	if fromCookie {
		if sid == "" {
			sid = uuid.New().String()
			p.setCookie(c, SessionCookie, sid, int(TokenTTL.Seconds()))
		}
		if err := p.store.Set(ctx, sid, token, TokenTTL); err != nil {
			p.logger.Warn("failed to sync cookie token into store", zap.Error(err))
		}
	}
	sess.SID = sid
	return sess, nil
}

// Establish stores a freshly issued token in both the store and the cookie.
func (p *Provider) Establish(c *gin.Context, token string) (*models.Session, error) {
	sess, err := Decode(token)
	if err != nil {
		return nil, err
	}

	sid, _ := c.Cookie(SessionCookie)
	if sid == "" {
		sid = uuid.New().String()
	}
	if err := p.store.Set(c.Request.Context(), sid, token, TokenTTL); err != nil {
		return nil, err
	}
	maxAge := int(TokenTTL.Seconds())
	p.setCookie(c, SessionCookie, sid, maxAge)
	p.setCookie(c, TokenCookie, token, maxAge)

	sess.SID = sid
	p.logger.Info("session established", zap.String("userID", sess.ID), zap.String("role", string(sess.Role)))
	return sess, nil
}

// Invalidate clears the token everywhere and tells the session's other tabs.
func (p *Provider) Invalidate(c *gin.Context) {
	sid, _ := c.Cookie(SessionCookie)
	p.clear(c, sid)
	if sid == "" {
		return
	}
	for _, n := range p.notifiers {
		n.SessionInvalidated(sid)
	}
}

func (p *Provider) clear(c *gin.Context, sid string) {
	if sid != "" {
		if err := p.store.Delete(c.Request.Context(), sid); err != nil {
			p.logger.Warn("failed to delete stored token", zap.Error(err))
		}
	}
	p.setCookie(c, TokenCookie, "", -1)
}

func (p *Provider) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, value, maxAge, "/", "", p.secure, true)
}

// IsAuthError reports whether err means "send the user back to login".
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNoToken) || errors.Is(err, ErrDecode) ||
		errors.Is(err, ErrExpired) || errors.Is(err, ErrRole)
}
