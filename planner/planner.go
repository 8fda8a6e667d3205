// Package planner loads the data behind each page. Every page is a fixed
// set of game API calls, run in parallel when independent, joined through
// the enricher into one view model.
package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"luchaserver/apiclient"
	"luchaserver/models"
)

// Page names, as they appear in URLs.
const (
	PageBattles     = "batallas"
	PageUsers       = "usuarios"
	PageBets        = "apuestas"
	PageInventory   = "inventario"
	PageBlackMarket = "blackmarket"
	PageContestants = "contestants"
	PageContestant  = "contestant"
)

var (
	ErrUnknownPage = errors.New("page not available for this role")
	ErrMissingID   = errors.New("page needs an id")
)

// API is the part of the game API client the planner reads through.
type API interface {
	List(ctx context.Context, token, path string, keys ...string) ([]map[string]any, error)
	Object(ctx context.Context, token, path string) (map[string]any, error)
}

// Planner is stateless apart from its dependencies.
type Planner struct {
	api    API
	logger *zap.Logger
}

func New(api API, logger *zap.Logger) *Planner {
	return &Planner{api: api, logger: logger}
}

// Notice carries the non-fatal outcome of a load. Error is the page-level
// banner; Warnings are soft notes about secondary data that is missing.
type Notice struct {
	Error    string   `json:"error,omitempty"`
	Warnings []string `json:"warnings,omitempty"`

	mu sync.Mutex
}

func (n *Notice) warn(msg string) {
	n.mu.Lock()
	n.Warnings = append(n.Warnings, msg)
	n.mu.Unlock()
}

func (n *Notice) fail(msg string) {
	n.mu.Lock()
	if n.Error == "" {
		n.Error = msg
	}
	n.mu.Unlock()
}

// Load dispatches to the page operation for the session's role. Only
// session loss and cancellation are returned as errors; everything else
// ends up in the view's Notice.
func (p *Planner) Load(ctx context.Context, sess *models.Session, page, id string) (any, error) {
	capab, ok := For(sess.Role)
	if !ok || !capab.HasPage(page) {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownPage, sess.Role.Path(), page)
	}

	switch sess.Role {
	case models.RoleAdmin:
		switch page {
		case PageBattles:
			return p.AdminBattles(ctx, sess)
		case PageUsers:
			return p.AdminUsers(ctx, sess)
		}
	case models.RoleDictator, models.RoleSponsor:
		switch page {
		case PageBets:
			return p.Bets(ctx, sess)
		case PageInventory:
			return p.Inventory(ctx, sess)
		case PageBlackMarket:
			return p.BlackMarket(ctx, sess)
		case PageContestants:
			return p.Contestants(ctx, sess)
		case PageContestant:
			if id == "" {
				return nil, ErrMissingID
			}
			return p.ContestantDetail(ctx, sess, id)
		case PageBattles:
			if sess.Role == models.RoleDictator {
				return p.Opponents(ctx, sess)
			}
			return p.SponsorBattles(ctx, sess)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownPage, page)
}

// settle classifies a call failure. Session loss and cancellation abort the
// whole load; any other failure is recorded through record and absorbed.
func settle(err error, record func(string), msg string) error {
	if err == nil {
		return nil
	}
	if Fatal(err) {
		return err
	}
	if server := apiclient.ServerMessage(err); server != "" && msg == "" {
		msg = server
	}
	record(msg)
	return nil
}

// optional is settle for reads whose 404 means "nothing yet" (a sponsor
// with no balance row, a user with no bets).
func optional(err error, record func(string), msg string) error {
	if errors.Is(err, apiclient.ErrNotFound) {
		return nil
	}
	return settle(err, record, msg)
}

// Fatal reports errors that must abort a page load instead of degrading it.
func Fatal(err error) bool {
	return errors.Is(err, apiclient.ErrAuthExpired) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// primaryMessage prefers the server's own text over the fallback.
func primaryMessage(err error, fallback string) string {
	if m := apiclient.ServerMessage(err); m != "" {
		return m
	}
	return fallback
}
