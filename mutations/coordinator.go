// Package mutations runs user-initiated writes against the game API. Every
// write is one call followed by a fresh read of the page it affects; the
// coordinator never patches a view locally.
package mutations

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"luchaserver/apiclient"
	"luchaserver/models"
)

// ErrUnknownAction is returned for names missing from the role's table.
var ErrUnknownAction = errors.New("unknown action")

// Kind tells the page which notification to show.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindConfirm Kind = "confirm"
)

// Result is what the page gets back from one action.
type Result struct {
	OK                   bool   `json:"ok"`
	Action               string `json:"action"`
	Kind                 Kind   `json:"type"`
	Message              string `json:"message"`
	ConfirmationRequired bool   `json:"confirmationRequired,omitempty"`
	Page                 string `json:"page,omitempty"`
	View                 any    `json:"view,omitempty"`

	Status int            `json:"-"`
	Reply  map[string]any `json:"-"`
	Err    error          `json:"-"`
}

// AuthExpired reports whether the game API rejected the session.
func (r Result) AuthExpired() bool {
	return errors.Is(r.Err, apiclient.ErrAuthExpired)
}

// Sender is the write half of the game API client.
type Sender interface {
	Send(ctx context.Context, token, method, path string, payload any) (map[string]any, error)
}

// Refresher reloads a page after a write.
type Refresher interface {
	Refresh(ctx context.Context, sess *models.Session, page, id string) (any, error)
}

// RefresherFunc adapts a plain load function, such as Planner.Load.
type RefresherFunc func(ctx context.Context, sess *models.Session, page, id string) (any, error)

func (f RefresherFunc) Refresh(ctx context.Context, sess *models.Session, page, id string) (any, error) {
	return f(ctx, sess, page, id)
}

// Auditor persists one row per action outcome.
type Auditor interface {
	Record(ctx context.Context, entry *models.MutationAudit) error
}

// Notifier tells a session's other open pages that page changed.
type Notifier interface {
	Refreshed(sid, page string)
}

type Coordinator struct {
	api      Sender
	refresh  Refresher
	auditor  Auditor
	notifier Notifier
	logger   *zap.Logger
}

func NewCoordinator(api Sender, refresh Refresher, logger *zap.Logger) *Coordinator {
	return &Coordinator{api: api, refresh: refresh, logger: logger}
}

func (c *Coordinator) SetAuditor(a Auditor)    { c.auditor = a }
func (c *Coordinator) SetNotifier(n Notifier) { c.notifier = n }

// Perform validates the input, asks for confirmation when the action needs
// it, issues the call and, on success, rereads the dependent page.
func (c *Coordinator) Perform(ctx context.Context, sess *models.Session, name string, in Input, confirmed bool) Result {
	act, ok := Lookup(sess.Role, name)
	if !ok {
		return Result{
			Action:  name,
			Kind:    KindError,
			Message: "Acción no disponible",
			Status:  http.StatusNotFound,
			Err:     ErrUnknownAction,
		}
	}
	if in == nil {
		in = Input{}
	}

	res := c.perform(ctx, sess, act, in, confirmed)
	c.record(ctx, sess, act, in, res)
	return res
}

func (c *Coordinator) perform(ctx context.Context, sess *models.Session, act Action, in Input, confirmed bool) Result {
	res := Result{Action: act.Name, Page: act.Page}

	payload, err := act.Body(in)
	if err != nil {
		res.Kind = KindError
		res.Message = err.Error()
		res.Status = http.StatusUnprocessableEntity
		return res
	}

	if act.Confirm && !confirmed {
		res.Kind = KindConfirm
		res.Message = act.Prompt
		res.ConfirmationRequired = true
		res.Status = http.StatusPreconditionRequired
		return res
	}

	reply, err := c.api.Send(ctx, sess.Token, act.Method, act.Path(in), payload)
	if err != nil {
		res.Kind = KindError
		res.Err = err
		res.Status, res.Message = failure(err, act.Failure)
		c.logger.Warn("action failed",
			zap.String("action", act.Name),
			zap.String("role", string(sess.Role)),
			zap.Int("status", res.Status),
			zap.Error(err),
		)
		return res
	}

	res.OK = true
	res.Kind = KindSuccess
	res.Status = http.StatusOK
	res.Reply = reply
	res.Message = act.Success(in)

	if act.Page == "" || c.refresh == nil {
		return res
	}
	view, err := c.refresh.Refresh(ctx, sess, act.Page, in.Str(act.PageID))
	if err != nil {
		// the write went through; only the reread is lost
		if errors.Is(err, apiclient.ErrAuthExpired) {
			res.Err = err
		}
		c.logger.Warn("reread after action failed", zap.String("action", act.Name), zap.String("page", act.Page), zap.Error(err))
	} else {
		res.View = view
	}
	if c.notifier != nil && sess.SID != "" {
		c.notifier.Refreshed(sess.SID, act.Page)
	}
	return res
}

// failure maps a call error to the edge status and the message shown. The
// server's own error text wins over the fallback; its "message" field is
// used when "error" is absent.
func failure(err error, fallback string) (int, string) {
	switch {
	case errors.Is(err, apiclient.ErrAuthExpired):
		return http.StatusUnauthorized, "Tu sesión ha expirado. Inicia sesión nuevamente."
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, fallback
	case errors.Is(err, apiclient.ErrNetwork), errors.Is(err, context.Canceled):
		return http.StatusBadGateway, fallback
	}
	status := apiclient.StatusOf(err)
	if status == 0 {
		status = http.StatusBadGateway
	}
	if msg := apiclient.ServerDetail(err); msg != "" {
		return status, msg
	}
	return status, fallback
}

func (c *Coordinator) record(ctx context.Context, sess *models.Session, act Action, in Input, res Result) {
	if c.auditor == nil {
		return
	}
	outcome := string(res.Kind)
	if res.Kind == KindError && res.Err == nil {
		outcome = "rejected"
	}
	entry := &models.MutationAudit{
		SessionID:  sess.SID,
		UserID:     sess.ID,
		Role:       string(sess.Role),
		Action:     act.Name,
		Target:     in.Str(act.Target),
		Outcome:    outcome,
		Message:    res.Message,
		HTTPStatus: res.Status,
	}
	// the audit row must not depend on the request surviving
	if err := c.auditor.Record(context.WithoutCancel(ctx), entry); err != nil {
		c.logger.Error("failed to record action", zap.String("action", act.Name), zap.Error(err))
	}
}
