package planner

import (
	"context"
	"fmt"
	"net/url"

	"golang.org/x/sync/errgroup"

	"luchaserver/enrich"
	"luchaserver/models"
	"luchaserver/normalize"
)

// ContestantsView backs /{role}/contestants. Sponsors see every unreleased
// contestant grouped by dictator; dictators see their own roster.
type ContestantsView struct {
	Notice
	Contestants []models.Contestant            `json:"contestants"`
	ByDictator  map[string][]models.Contestant `json:"byDictator,omitempty"`
}

func (p *Planner) Contestants(ctx context.Context, sess *models.Session) (*ContestantsView, error) {
	capab, _ := For(sess.Role)
	view := &ContestantsView{Contestants: []models.Contestant{}}

	list, err := p.api.List(ctx, sess.Token, capab.Contestants, "contestants", "data")
	if err != nil {
		if Fatal(err) {
			return nil, err
		}
		view.fail(primaryMessage(err, "Error al cargar contestants"))
		return view, nil
	}

	all := normalize.Contestants(list)
	if sess.Role != models.RoleSponsor {
		view.Contestants = all
		return view, nil
	}

	view.ByDictator = map[string][]models.Contestant{}
	for _, c := range all {
		if c.Released {
			continue
		}
		if c.DictatorName == "" {
			c.DictatorName = enrich.UnknownDictator
		}
		view.Contestants = append(view.Contestants, c)
		view.ByDictator[c.DictatorName] = append(view.ByDictator[c.DictatorName], c)
	}
	return view, nil
}

// ContestantDetailView backs /dictator/contestant/:id.
type ContestantDetailView struct {
	Notice
	Contestant    *models.Contestant       `json:"contestant"`
	Details       models.ContestantDetails `json:"details"`
	StrengthBoost int                      `json:"strengthBoost"`
	AgilityBoost  int                      `json:"agilityBoost"`
	TotalPower    int                      `json:"totalPower"`
	Buffs         []models.InventoryItem   `json:"buffs"`
	Weapons       []models.InventoryItem   `json:"weapons"`
}

// ContestantDetail loads one contestant with its buffs and items, plus the
// inventory entries that could be applied to it.
func (p *Planner) ContestantDetail(ctx context.Context, sess *models.Session, id string) (*ContestantDetailView, error) {
	capab, _ := For(sess.Role)
	view := &ContestantDetailView{
		Details: models.ContestantDetails{Buffs: []models.Buff{}, Items: []models.AssignedItem{}},
		Buffs:   []models.InventoryItem{},
		Weapons: []models.InventoryItem{},
	}

	var rosterRaw, inventoryRaw []map[string]any
	var detailsRaw map[string]any

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := p.api.List(gctx, sess.Token, capab.Contestants)
		if err != nil {
			if Fatal(err) {
				return err
			}
			view.fail(primaryMessage(err, "Error al cargar contestant"))
			return nil
		}
		rosterRaw = list
		return nil
	})
	if capab.Details != "" {
		g.Go(func() error {
			m, err := p.api.Object(gctx, sess.Token, fmt.Sprintf(capab.Details, url.PathEscape(id)))
			if err != nil {
				return settle(err, view.warn, "Error al cargar detalles del contestant")
			}
			detailsRaw = m
			return nil
		})
	}
	g.Go(func() error {
		list, err := p.api.List(gctx, sess.Token, capab.Inventory)
		if err != nil {
			return settle(err, view.warn, "Error al cargar buffs disponibles")
		}
		inventoryRaw = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, c := range normalize.Contestants(rosterRaw) {
		if c.ID == id {
			found := c
			view.Contestant = &found
			break
		}
	}
	if view.Contestant == nil {
		view.fail("Contestant no encontrado")
		return view, nil
	}

	if detailsRaw != nil {
		view.Details = normalize.ContestantDetails(detailsRaw)
	}
	view.StrengthBoost, view.AgilityBoost = view.Details.BoostTotals()
	view.TotalPower = view.Contestant.Power() + view.StrengthBoost + view.AgilityBoost

	for _, it := range normalize.InventoryItems(inventoryRaw) {
		if it.Quantity <= 0 {
			continue
		}
		switch it.Category {
		case "buff":
			view.Buffs = append(view.Buffs, it)
		case "weapon":
			view.Weapons = append(view.Weapons, it)
		}
	}
	return view, nil
}
