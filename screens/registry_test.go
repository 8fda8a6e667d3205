package screens

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"luchaserver/apiclient"
	"luchaserver/models"
	"luchaserver/mutations"
	"luchaserver/planner"
)

// gatedLoader blocks each load until its release channel is closed.
type gatedLoader struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
	err   error
}

func newGatedLoader() *gatedLoader {
	return &gatedLoader{gates: map[string]chan struct{}{}}
}

func (l *gatedLoader) gate(tag string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.gates[tag]
	if !ok {
		ch = make(chan struct{})
		l.gates[tag] = ch
	}
	return ch
}

func (l *gatedLoader) Load(ctx context.Context, sess *models.Session, page, id string) (any, error) {
	tag := sess.Username
	select {
	case <-l.gate(tag):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if l.err != nil {
		return nil, l.err
	}
	return tag, nil
}

type loadResult struct {
	view any
	err  error
}

func load(reg *Registry, tag string) chan loadResult {
	out := make(chan loadResult, 1)
	go func() {
		v, err := reg.Load(context.Background(), &models.Session{SID: "s1", Username: tag, Role: models.RoleDictator}, "batallas", "")
		out <- loadResult{v, err}
	}()
	return out
}

func waitInflight(t *testing.T, reg *Registry, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		reg.mu.Lock()
		defer reg.mu.Unlock()
		s, ok := reg.slots[slotKey{sid: "s1", page: "batallas"}]
		return ok && len(s.inflight) == n
	}, time.Second, 5*time.Millisecond)
}

func TestRegistry_OlderResponseArrivingLastIsDropped(t *testing.T) {
	loader := newGatedLoader()
	reg := NewRegistry(loader, time.Second, zap.NewNop())

	first := load(reg, "first")
	waitInflight(t, reg, 1)
	second := load(reg, "second")
	waitInflight(t, reg, 2)

	close(loader.gate("second"))
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "second", got.view)

	close(loader.gate("first"))
	got = <-first
	assert.ErrorIs(t, got.err, ErrStale)

	latest, ok := reg.Latest("s1", "batallas")
	require.True(t, ok)
	assert.Equal(t, "second", latest)
}

func TestRegistry_UnmountCancelsAndDiscards(t *testing.T) {
	loader := newGatedLoader()
	reg := NewRegistry(loader, time.Second, zap.NewNop())

	pending := load(reg, "slow")
	waitInflight(t, reg, 1)

	reg.Unmount("s1", "batallas")
	got := <-pending
	assert.ErrorIs(t, got.err, ErrStale)
	assert.Zero(t, reg.Len())
}

func TestRegistry_TicketFromBeforeUnmountCannotCommit(t *testing.T) {
	reg := NewRegistry(newGatedLoader(), time.Second, zap.NewNop())

	old := reg.Begin(context.Background(), "s1", "inventario")
	reg.Unmount("s1", "inventario")
	fresh := reg.Begin(context.Background(), "s1", "inventario")
	defer reg.Done(fresh)
	defer reg.Done(old)

	assert.False(t, reg.Commit(old, "old"))
	assert.True(t, reg.Commit(fresh, "fresh"))
}

func TestRegistry_SessionInvalidatedDropsAllPages(t *testing.T) {
	reg := NewRegistry(newGatedLoader(), time.Second, zap.NewNop())
	for _, page := range []string{"batallas", "inventario"} {
		tk := reg.Begin(context.Background(), "s1", page)
		reg.Commit(tk, page)
		reg.Done(tk)
	}
	tk := reg.Begin(context.Background(), "s2", "batallas")
	reg.Done(tk)

	reg.SessionInvalidated("s1")
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_Prune(t *testing.T) {
	reg := NewRegistry(newGatedLoader(), time.Second, zap.NewNop())
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	idle := reg.Begin(context.Background(), "s1", "batallas")
	reg.Done(idle)
	busy := reg.Begin(context.Background(), "s1", "inventario")

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 1, reg.Prune(time.Hour))
	assert.Equal(t, 1, reg.Len())
	reg.Done(busy)
}

func TestRegistry_LoadPassesErrorsThrough(t *testing.T) {
	loader := newGatedLoader()
	loader.err = apiclient.ErrAuthExpired
	close(loader.gate("x"))
	reg := NewRegistry(loader, time.Second, zap.NewNop())

	_, err := reg.Load(context.Background(), &models.Session{SID: "s1", Username: "x"}, "batallas", "")
	assert.ErrorIs(t, err, apiclient.ErrAuthExpired)
}

type stubLoader struct {
	view any
	err  error
}

func (s stubLoader) Load(context.Context, *models.Session, string, string) (any, error) {
	return s.view, s.err
}

type countingInvalidator struct{ n int }

func (c *countingInvalidator) Invalidate(*gin.Context) { c.n++ }

type stubPerformer struct {
	res       mutations.Result
	confirmed bool
	input     mutations.Input
}

func (s *stubPerformer) Perform(_ context.Context, _ *models.Session, _ string, in mutations.Input, confirmed bool) mutations.Result {
	s.confirmed = confirmed
	s.input = in
	return s.res
}

func withSession(c *gin.Context) {
	c.Set("session", &models.Session{ID: "1", SID: "s1", Role: models.RoleDictator})
}

func pageRouter(reg *Registry, inv Invalidator, perf Performer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/dictator", withSession)
	g.GET("/:page", ViewHandler(reg, inv, zap.NewNop()))
	g.GET("/:page/:id", ViewHandler(reg, inv, zap.NewNop()))
	g.DELETE("/:page", UnmountHandler(reg))
	g.POST("/actions/:action", ActionHandler(perf, inv, zap.NewNop()))
	return r
}

func TestViewHandler(t *testing.T) {
	tests := []struct {
		name       string
		loader     stubLoader
		path       string
		wantStatus int
		wantInv    int
	}{
		{"ok", stubLoader{view: map[string]any{"items": []any{}}}, "/dictator/inventario", http.StatusOK, 0},
		{"unknown page", stubLoader{err: planner.ErrUnknownPage}, "/dictator/usuarios", http.StatusNotFound, 0},
		{"auth expired", stubLoader{err: apiclient.ErrAuthExpired}, "/dictator/batallas", http.StatusUnauthorized, 1},
		{"timeout", stubLoader{err: context.DeadlineExceeded}, "/dictator/batallas", http.StatusGatewayTimeout, 0},
		{"other", stubLoader{err: errors.New("boom")}, "/dictator/contestant/c1", http.StatusInternalServerError, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &countingInvalidator{}
			r := pageRouter(NewRegistry(tt.loader, time.Second, zap.NewNop()), inv, &stubPerformer{})

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantInv, inv.n)
		})
	}
}

// overtakingLoader commits a newer load of the same page while the current
// one is still running, so the current one comes back stale.
type overtakingLoader struct{ reg *Registry }

func (o overtakingLoader) Load(ctx context.Context, sess *models.Session, page, id string) (any, error) {
	newer := o.reg.Begin(ctx, sess.SID, PageKey(page, id))
	o.reg.Commit(newer, "newer")
	o.reg.Done(newer)
	return "older", nil
}

func TestViewHandler_StaleReturnsLatestView(t *testing.T) {
	reg := NewRegistry(nil, time.Second, zap.NewNop())
	reg.loader = overtakingLoader{reg: reg}
	r := pageRouter(reg, &countingInvalidator{}, &stubPerformer{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dictator/batallas", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"Respuesta descartada por una carga más reciente","stale":true,"view":"newer"}`, rec.Body.String())
}

func TestActionHandler_ConfirmFlagAndErrors(t *testing.T) {
	perf := &stubPerformer{res: mutations.Result{OK: true, Kind: mutations.KindSuccess, Message: "hecho", Status: http.StatusOK}}
	inv := &countingInvalidator{}
	r := pageRouter(NewRegistry(stubLoader{}, time.Second, zap.NewNop()), inv, perf)

	req := httptest.NewRequest(http.MethodPost, "/dictator/actions/delete-item", strings.NewReader(`{"item_id":"i1","confirmed":true}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, perf.confirmed)
	assert.Equal(t, mutations.Input{"item_id": "i1"}, perf.input)
	assert.Contains(t, rec.Body.String(), `"message":"hecho"`)

	perf.res = mutations.Result{Kind: mutations.KindError, Message: "Saldo insuficiente", Status: http.StatusBadRequest}
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/dictator/actions/place-bet?confirm=true", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"Saldo insuficiente"`)
	assert.True(t, perf.confirmed)

	perf.res = mutations.Result{Kind: mutations.KindError, Status: http.StatusUnauthorized, Err: apiclient.ErrAuthExpired}
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/dictator/actions/place-bet", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 1, inv.n)
}

func TestUnmountHandler(t *testing.T) {
	reg := NewRegistry(stubLoader{view: "v"}, time.Second, zap.NewNop())
	r := pageRouter(reg, &countingInvalidator{}, &stubPerformer{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dictator/inventario", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, reg.Len())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/dictator/inventario", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, reg.Len())
}
