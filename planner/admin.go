package planner

import (
	"context"

	"golang.org/x/sync/errgroup"

	"luchaserver/enrich"
	"luchaserver/models"
	"luchaserver/normalize"
)

// AdminBattlesView backs /admin/batallas.
type AdminBattlesView struct {
	Notice
	Pending    []models.EnrichedBattle `json:"pending"`
	InProgress []models.EnrichedBattle `json:"inProgress"`
	All        []models.EnrichedBattle `json:"all"`
}

const errAllBattles = "Error al cargar todas las batallas. Mostrando solo batallas pendientes."

// AdminBattles loads pending and all battles side by side. A failed pending
// call degrades to an empty list; a failed all-battles call shows the
// pending list in its place.
func (p *Planner) AdminBattles(ctx context.Context, sess *models.Session) (*AdminBattlesView, error) {
	view := &AdminBattlesView{}
	var pendingRaw, allRaw []map[string]any
	allFailed := false

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := p.api.List(gctx, sess.Token, AdminPendingBattles, "battles", "data")
		if err != nil {
			return settle(err, view.warn, "No se pudieron cargar las batallas pendientes")
		}
		pendingRaw = list
		return nil
	})
	g.Go(func() error {
		list, err := p.api.List(gctx, sess.Token, AdminAllBattles)
		if err != nil {
			allFailed = true
			return settle(err, view.fail, errAllBattles)
		}
		allRaw = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	lookup := enrich.NewLookup(normalize.BattleContestants(pendingRaw), normalize.BattleContestants(allRaw))
	opts := enrich.Options{Prefix: enrich.ContestantPrefix}

	view.Pending = enrich.Battles(normalize.Battles(pendingRaw), lookup, opts)
	if allFailed {
		view.All = view.Pending
		view.InProgress = []models.EnrichedBattle{}
		return view, nil
	}
	view.All = enrich.Battles(normalize.Battles(allRaw), lookup, opts)
	view.InProgress = filterBattles(view.All, models.BattleInProgress, models.BattleStart, models.BattleApproved)
	return view, nil
}

// AdminUsersView backs /admin/usuarios.
type AdminUsersView struct {
	Notice
	Users     []models.User `json:"users"`
	Dictators int           `json:"dictators"`
	Sponsors  int           `json:"sponsors"`
	Admins    int           `json:"admins"`
	Blocked   int           `json:"blocked"`
}

func (p *Planner) AdminUsers(ctx context.Context, sess *models.Session) (*AdminUsersView, error) {
	view := &AdminUsersView{Users: []models.User{}}
	list, err := p.api.List(ctx, sess.Token, AdminUsers, "users", "data")
	if err != nil {
		if Fatal(err) {
			return nil, err
		}
		view.fail(primaryMessage(err, "Error al cargar usuarios"))
		return view, nil
	}

	view.Users = normalize.Users(list)
	for _, u := range view.Users {
		switch models.Role(u.Role) {
		case models.RoleDictator:
			view.Dictators++
		case models.RoleSponsor:
			view.Sponsors++
		case models.RoleAdmin:
			view.Admins++
		}
		if u.IsBlocked() {
			view.Blocked++
		}
	}
	return view, nil
}

func filterBattles(battles []models.EnrichedBattle, statuses ...string) []models.EnrichedBattle {
	out := []models.EnrichedBattle{}
	for _, b := range battles {
		for _, s := range statuses {
			if b.Status == s {
				out = append(out, b)
				break
			}
		}
	}
	return out
}
