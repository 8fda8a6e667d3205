package mutations

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"luchaserver/apiclient"
	"luchaserver/models"
	"luchaserver/planner"
)

type sentCall struct {
	Method  string
	Path    string
	Payload any
}

type fakeSender struct {
	mu    sync.Mutex
	calls []sentCall
	errs  map[string]error
}

func (f *fakeSender) Send(_ context.Context, _, method, path string, payload any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sentCall{Method: method, Path: path, Payload: payload})
	if err := f.errs[path]; err != nil {
		return nil, err
	}
	return map[string]any{"message": "ok"}, nil
}

type fakeAuditor struct {
	entries []*models.MutationAudit
}

func (f *fakeAuditor) Record(_ context.Context, e *models.MutationAudit) error {
	f.entries = append(f.entries, e)
	return nil
}

type fakeNotifier struct {
	pages []string
}

func (f *fakeNotifier) Refreshed(sid, page string) {
	f.pages = append(f.pages, sid+":"+page)
}

type fixture struct {
	api      *fakeSender
	audit    *fakeAuditor
	notify   *fakeNotifier
	reloads  []string
	reloadFn RefresherFunc
	coord    *Coordinator
}

func newFixture() *fixture {
	f := &fixture{
		api:    &fakeSender{errs: map[string]error{}},
		audit:  &fakeAuditor{},
		notify: &fakeNotifier{},
	}
	f.reloadFn = func(_ context.Context, _ *models.Session, page, id string) (any, error) {
		f.reloads = append(f.reloads, page+"/"+id)
		return map[string]any{"page": page}, nil
	}
	f.coord = NewCoordinator(f.api, f.reloadFn, zap.NewNop())
	f.coord.SetAuditor(f.audit)
	f.coord.SetNotifier(f.notify)
	return f
}

func session(role models.Role) *models.Session {
	return &models.Session{ID: "u1", Role: role, SID: "sid-1", Token: "tok"}
}

func TestPerform_SuccessRereadsPage(t *testing.T) {
	f := newFixture()

	res := f.coord.Perform(context.Background(), session(models.RoleAdmin), "approve-battle", Input{"battleId": "b1"}, false)

	require.True(t, res.OK)
	assert.Equal(t, KindSuccess, res.Kind)
	assert.Equal(t, "Batalla aprobada exitosamente", res.Message)
	assert.Equal(t, http.StatusOK, res.Status)
	require.Len(t, f.api.calls, 1)
	assert.Equal(t, sentCall{Method: http.MethodPost, Path: "/admin/Aprove-Battles", Payload: map[string]any{"battleId": "b1"}}, f.api.calls[0])
	assert.Equal(t, []string{planner.PageBattles + "/"}, f.reloads)
	assert.Equal(t, map[string]any{"page": planner.PageBattles}, res.View)
	assert.Equal(t, []string{"sid-1:" + planner.PageBattles}, f.notify.pages)

	require.Len(t, f.audit.entries, 1)
	entry := f.audit.entries[0]
	assert.Equal(t, "approve-battle", entry.Action)
	assert.Equal(t, "b1", entry.Target)
	assert.Equal(t, "success", entry.Outcome)
	assert.Equal(t, "Admin", entry.Role)
}

func TestPerform_BetBelowMinimumNeverCallsAPI(t *testing.T) {
	f := newFixture()

	res := f.coord.Perform(context.Background(), session(models.RoleSponsor), "place-bet",
		Input{"battleId": "B2", "predictedWinner": "C3", "amount": 25}, false)

	assert.False(t, res.OK)
	assert.Equal(t, "La apuesta mínima es $50", res.Message)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)
	assert.Empty(t, f.api.calls)
	assert.Empty(t, f.reloads)
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, "rejected", f.audit.entries[0].Outcome)
}

func TestPerform_BetAmounts(t *testing.T) {
	tests := []struct {
		amount  any
		want    int
		message string
	}{
		{amount: 50, want: 50},
		{amount: "120", want: 100},
		{amount: 5000, want: 5000},
		{amount: 5001, message: "La apuesta máxima es $5000"},
		{amount: nil, message: "La apuesta mínima es $50"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.amount), func(t *testing.T) {
			f := newFixture()
			res := f.coord.Perform(context.Background(), session(models.RoleDictator), "place-bet",
				Input{"battleId": "B1", "predictedWinner": "C1", "amount": tt.amount}, false)
			if tt.message != "" {
				assert.Equal(t, tt.message, res.Message)
				assert.Empty(t, f.api.calls)
				return
			}
			require.True(t, res.OK)
			require.Len(t, f.api.calls, 1)
			assert.Equal(t, "/dictator/place-bet", f.api.calls[0].Path)
			assert.Equal(t, tt.want, f.api.calls[0].Payload.(map[string]any)["amount"])
		})
	}
}

func TestPerform_ServerErrorVerbatim(t *testing.T) {
	f := newFixture()
	f.api.errs["/sponsor/place-bet"] = &apiclient.APIError{Status: http.StatusBadRequest, Message: "Saldo insuficiente", Path: "/sponsor/place-bet"}

	res := f.coord.Perform(context.Background(), session(models.RoleSponsor), "place-bet",
		Input{"battleId": "B2", "predictedWinner": "C3", "amount": 100}, false)

	assert.False(t, res.OK)
	assert.Equal(t, "Saldo insuficiente", res.Message)
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Empty(t, f.reloads, "a failed write must not touch the view")
	assert.Empty(t, f.notify.pages)
	assert.Equal(t, "error", f.audit.entries[0].Outcome)
}

func TestPerform_ServerMessageFieldWhenErrorMissing(t *testing.T) {
	f := newFixture()
	f.api.errs["/dictator/delete-item"] = &apiclient.APIError{Status: http.StatusNotFound, Detail: "Item no encontrado", Path: "/dictator/delete-item"}

	res := f.coord.Perform(context.Background(), session(models.RoleDictator), "delete-item",
		Input{"item_id": "i1", "itemName": "Red"}, true)

	assert.False(t, res.OK)
	assert.Equal(t, "Item no encontrado", res.Message)
	assert.Equal(t, http.StatusNotFound, res.Status)
}

func TestPerform_FallbackMessageWithoutServerText(t *testing.T) {
	f := newFixture()
	f.api.errs["/admin/start/b9"] = fmt.Errorf("%w: boom", apiclient.ErrNetwork)

	res := f.coord.Perform(context.Background(), session(models.RoleAdmin), "start-battle", Input{"battleId": "b9"}, false)

	assert.Equal(t, "Error al iniciar batalla", res.Message)
	assert.Equal(t, http.StatusBadGateway, res.Status)
}

func TestPerform_AuthExpired(t *testing.T) {
	f := newFixture()
	f.api.errs["/dictator/add-item"] = &apiclient.APIError{Status: http.StatusUnauthorized, Path: "/dictator/add-item"}

	res := f.coord.Perform(context.Background(), session(models.RoleDictator), "add-item",
		Input{"itemName": "Espada", "quantity": 1}, false)

	assert.True(t, res.AuthExpired())
	assert.Equal(t, http.StatusUnauthorized, res.Status)
}

func TestPerform_DestructiveActionsNeedConfirmation(t *testing.T) {
	tests := []struct {
		role   models.Role
		action string
		input  Input
		path   string
	}{
		{models.RoleAdmin, "delete-user", Input{"userId": "u7", "username": "maximo"}, "/admin/users/u7"},
		{models.RoleDictator, "delete-item", Input{"item_id": "i1", "itemName": "Red"}, "/dictator/delete-item"},
		{models.RoleDictator, "release-contestant", Input{"contestantId": "c1", "contestantName": "Spartacus"}, "/dictator/Release-contestants/c1"},
		{models.RoleSponsor, "buy-item", Input{"item_id": "m1"}, "/sponsor/blackmarket/buy-item"},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			f := newFixture()
			sess := session(tt.role)

			res := f.coord.Perform(context.Background(), sess, tt.action, tt.input, false)
			assert.True(t, res.ConfirmationRequired)
			assert.Equal(t, http.StatusPreconditionRequired, res.Status)
			assert.NotEmpty(t, res.Message)
			assert.Empty(t, f.api.calls)

			res = f.coord.Perform(context.Background(), sess, tt.action, tt.input, true)
			require.True(t, res.OK)
			require.Len(t, f.api.calls, 1)
			assert.Equal(t, tt.path, f.api.calls[0].Path)
		})
	}
}

func TestPerform_SuccessMessagesNameTheEntity(t *testing.T) {
	tests := []struct {
		role   models.Role
		action string
		input  Input
		want   string
	}{
		{models.RoleDictator, "release-contestant", Input{"contestantId": "c1", "contestantName": "Spartacus"}, `Contestant "Spartacus" ha sido liberado exitosamente.`},
		{models.RoleDictator, "create-contestant", Input{"name": "Crixus"}, `Contestant "Crixus" creado exitosamente.`},
		{models.RoleDictator, "add-item", Input{"itemName": "Red", "quantity": 2, "category": "weapon"}, `2 unidad(es) de "Red" añadida(s) a tu inventario.`},
		{models.RoleSponsor, "add-item", Input{"itemName": "Red", "quantity": 2}, `¡Éxito! 2 unidad(es) de "Red" añadida(s) a tu inventario.`},
		{models.RoleDictator, "apply-buff", Input{"contestantId": "c12345678", "item_name": "Poción"}, `Buff "Poción" aplicado exitosamente a Gladiador 345678.`},
		{models.RoleSponsor, "apply-buff", Input{"contestantId": "c1", "battleId": "b1", "item_name": "Poción", "strength_boost": 5, "agility_boost": "3", "duration": 2}, "Buff aplicado: Poción (+5 fuerza, +3 agilidad, 2 turnos)"},
		{models.RoleSponsor, "offer-item", Input{"item_id": "i1", "itemName": "Daga", "price": 150, "quantity": 2, "owned": 3}, `¡Éxito! 2 unidad(es) de "Daga" puesta(s) en venta por $150 cada una.`},
		{models.RoleAdmin, "create-sponsor", Input{"username": "acme", "password": "x", "confirmPassword": "x"}, `Sponsor "acme" creado exitosamente`},
		{models.RoleDictator, "propose-battle", Input{"contestant1": "a", "contestant2": "b", "opponentName": "Flamma"}, "¡Batalla propuesta exitosamente! Tu gladiador se enfrentará a Flamma en la arena."},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+tt.action, func(t *testing.T) {
			f := newFixture()
			res := f.coord.Perform(context.Background(), session(tt.role), tt.action, tt.input, true)
			require.True(t, res.OK, res.Message)
			assert.Equal(t, tt.want, res.Message)
		})
	}
}

func TestPerform_Validation(t *testing.T) {
	tests := []struct {
		role   models.Role
		action string
		input  Input
		want   string
	}{
		{models.RoleAdmin, "create-dictator", Input{"username": "a", "password": "x", "confirmPassword": "y"}, "Las contraseñas no coinciden"},
		{models.RoleAdmin, "close-battle", Input{"battleId": "b1"}, "Debes seleccionar un ganador"},
		{models.RoleDictator, "propose-battle", Input{"contestant1": "a", "contestant2": "a"}, "Un gladiador no puede enfrentarse a sí mismo"},
		{models.RoleDictator, "add-item", Input{"itemName": "Red", "quantity": 0}, "La cantidad debe ser mayor a 0"},
		{models.RoleSponsor, "offer-item", Input{"item_id": "i1", "price": 0}, "El precio debe ser mayor a 0"},
		{models.RoleSponsor, "offer-item", Input{"item_id": "i1", "price": 10, "owned": 0}, "No tienes unidades de este item para vender"},
		{models.RoleSponsor, "buy-item", Input{"item_id": "m1", "stock": 0}, "Este item está agotado"},
		{models.RoleSponsor, "buy-item", Input{"item_id": "m1", "price": 300, "balance": 100}, "No tienes suficiente dinero para comprar este item"},
		{models.RoleSponsor, "give-item", Input{"contestantId": "c1", "itemName": "Poción", "category": "buff"}, "Solo se pueden entregar armas"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			f := newFixture()
			res := f.coord.Perform(context.Background(), session(tt.role), tt.action, tt.input, true)
			assert.False(t, res.OK)
			assert.Equal(t, tt.want, res.Message)
			assert.Empty(t, f.api.calls)
		})
	}
}

func TestPerform_PayloadKeyCasing(t *testing.T) {
	f := newFixture()

	f.coord.Perform(context.Background(), session(models.RoleSponsor), "sponsor-contestant",
		Input{"contestant_id": "c1", "item_id": "i1", "amount": 2}, false)
	f.coord.Perform(context.Background(), session(models.RoleAdmin), "close-battle",
		Input{"battleId": "b1", "winnerId": "c1", "deathOccurred": true}, false)
	f.coord.Perform(context.Background(), session(models.RoleDictator), "buy-item",
		Input{"transactionId": "t1"}, true)

	require.Len(t, f.api.calls, 3)
	assert.Equal(t, map[string]any{"contestant_id": "c1", "item_id": "i1", "amount": 2}, f.api.calls[0].Payload)
	assert.Equal(t, "/admin/Close/b1", f.api.calls[1].Path)
	assert.Equal(t, map[string]any{"winnerId": "c1", "deathOccurred": true}, f.api.calls[1].Payload)
	assert.Equal(t, map[string]any{"transactionId": "t1"}, f.api.calls[2].Payload)
}

func TestPerform_DetailPageRereadUsesContestantID(t *testing.T) {
	f := newFixture()

	res := f.coord.Perform(context.Background(), session(models.RoleDictator), "give-item",
		Input{"contestantId": "c1", "itemName": "Espada"}, false)

	require.True(t, res.OK)
	assert.Equal(t, []string{planner.PageContestant + "/c1"}, f.reloads)
}

func TestPerform_UnknownActionForRole(t *testing.T) {
	f := newFixture()

	res := f.coord.Perform(context.Background(), session(models.RoleSponsor), "delete-user", Input{"userId": "u1"}, true)

	assert.ErrorIs(t, res.Err, ErrUnknownAction)
	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Empty(t, f.api.calls)
	assert.Empty(t, f.audit.entries)
}

func TestNames(t *testing.T) {
	assert.Contains(t, Names(models.RoleAdmin), "delete-user")
	assert.NotContains(t, Names(models.RoleSponsor), "propose-battle")
	assert.Contains(t, Names(models.RoleSponsor), "offer-item")
	assert.Contains(t, Names(models.RoleDictator), "release-contestant")
}
