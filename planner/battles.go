package planner

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"luchaserver/enrich"
	"luchaserver/models"
	"luchaserver/normalize"
)

// NoOpponents is shown instead of an error when nobody is available.
const NoOpponents = "No hay gladiadores disponibles"

// OpponentsView backs /dictator/batallas: who can be challenged, and with
// which of the dictator's own fighters.
type OpponentsView struct {
	Notice
	Opponents     []models.Opponent   `json:"opponents"`
	MyContestants []models.Contestant `json:"myContestants"`
	Empty         string              `json:"empty,omitempty"`
}

func (p *Planner) Opponents(ctx context.Context, sess *models.Session) (*OpponentsView, error) {
	capab, _ := For(sess.Role)
	view := &OpponentsView{Opponents: []models.Opponent{}, MyContestants: []models.Contestant{}}

	var opponentsRaw, rosterRaw []map[string]any
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := p.api.List(gctx, sess.Token, capab.Opponents)
		if err != nil {
			if Fatal(err) {
				return err
			}
			view.fail(primaryMessage(err, "Error al cargar oponentes"))
			return nil
		}
		opponentsRaw = list
		return nil
	})
	g.Go(func() error {
		list, err := p.api.List(gctx, sess.Token, capab.Contestants)
		if err != nil {
			return settle(err, view.warn, "No se pudieron cargar tus gladiadores")
		}
		rosterRaw = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	view.Opponents = normalize.Opponents(opponentsRaw)
	if len(view.Opponents) == 0 && view.Error == "" {
		view.Empty = NoOpponents
	}
	// only living, unreleased fighters can be put forward
	for _, c := range normalize.Contestants(rosterRaw) {
		if c.Status == models.StatusAlive && !c.Released {
			view.MyContestants = append(view.MyContestants, c)
		}
	}
	return view, nil
}

// SponsorBattlesView backs /sponsor/batallas.
type SponsorBattlesView struct {
	Notice
	Active    []models.EnrichedBattle `json:"active"`
	Live      []models.EnrichedBattle `json:"live"`
	Completed []models.EnrichedBattle `json:"completed"`
	Weapons   []models.InventoryItem  `json:"weapons"`
	Buffs     []models.InventoryItem  `json:"buffs"`
}

// Tab membership for sponsor battles.
var (
	activeStatuses    = []string{models.BattleApproved, models.BattlePending, "Scheduled"}
	liveStatuses      = []string{models.BattleInProgress, "Active", "Ongoing"}
	completedStatuses = []string{models.BattleCompleted, "Finished"}
)

func (p *Planner) SponsorBattles(ctx context.Context, sess *models.Session) (*SponsorBattlesView, error) {
	capab, _ := For(sess.Role)
	view := &SponsorBattlesView{
		Active:    []models.EnrichedBattle{},
		Live:      []models.EnrichedBattle{},
		Completed: []models.EnrichedBattle{},
		Weapons:   []models.InventoryItem{},
		Buffs:     []models.InventoryItem{},
	}

	var battlesRaw, contestantsRaw, inventoryRaw []map[string]any
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := p.api.List(gctx, sess.Token, capab.Battles, "battles", "data")
		if err != nil {
			if Fatal(err) {
				return err
			}
			view.fail(primaryMessage(err, "Error al cargar batallas"))
			return nil
		}
		battlesRaw = list
		return nil
	})
	g.Go(func() error {
		list, err := p.api.List(gctx, sess.Token, capab.Contestants)
		if err != nil {
			return settle(err, view.warn, "No se pudieron cargar los gladiadores")
		}
		contestantsRaw = list
		return nil
	})
	g.Go(func() error {
		list, err := p.api.List(gctx, sess.Token, capab.Inventory)
		if err != nil {
			return settle(err, view.warn, "Error al cargar inventario")
		}
		inventoryRaw = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	lookup := enrich.NewLookup(normalize.Contestants(contestantsRaw))
	battles := enrich.Battles(normalize.Battles(battlesRaw), lookup, enrich.Options{Prefix: capab.Fallback})
	sortByDateDesc(battles)

	for _, b := range battles {
		if hasStatus(b, activeStatuses) {
			view.Active = append(view.Active, b)
		}
		if hasStatus(b, liveStatuses) {
			view.Live = append(view.Live, b)
		}
		if hasStatus(b, completedStatuses) || b.HasWinner() {
			view.Completed = append(view.Completed, b)
		}
	}

	for _, it := range normalize.InventoryItems(inventoryRaw) {
		if it.Quantity <= 0 {
			continue
		}
		switch it.Category {
		case "weapon":
			view.Weapons = append(view.Weapons, it)
		case "buff":
			view.Buffs = append(view.Buffs, it)
		}
	}
	return view, nil
}

func hasStatus(b models.EnrichedBattle, statuses []string) bool {
	for _, s := range statuses {
		if b.Status == s {
			return true
		}
	}
	return false
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

// ParseDate accepts the handful of formats the game API emits. Unparseable
// dates sort last.
func ParseDate(s string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func sortByDateDesc(battles []models.EnrichedBattle) {
	sort.SliceStable(battles, func(i, j int) bool {
		return ParseDate(battles[i].ProposedDate).After(ParseDate(battles[j].ProposedDate))
	})
}
