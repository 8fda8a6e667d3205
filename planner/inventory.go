package planner

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"luchaserver/apiclient"
	"luchaserver/models"
	"luchaserver/normalize"
)

const errInventory = "Error al cargar inventario"

// InventoryView backs /{role}/inventario.
type InventoryView struct {
	Notice
	OwnerID       string                 `json:"ownerId,omitempty"`
	Items         []models.InventoryItem `json:"items"`
	TotalQuantity int                    `json:"totalQuantity"`
	Categories    map[string]int         `json:"categories"`
}

// Inventory loads the caller's items. Sponsors also read their profile and
// see only the items whose sponsor_id matches it; without the profile no
// item is shown.
func (p *Planner) Inventory(ctx context.Context, sess *models.Session) (*InventoryView, error) {
	capab, _ := For(sess.Role)
	view := &InventoryView{Items: []models.InventoryItem{}, Categories: map[string]int{}}

	var itemsRaw []map[string]any
	var profile map[string]any
	var profileErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := p.api.List(gctx, sess.Token, capab.Inventory, "items", "inventory", "data")
		if err != nil {
			if Fatal(err) {
				return err
			}
			view.fail(primaryMessage(err, errInventory))
			return nil
		}
		itemsRaw = list
		return nil
	})
	if capab.Profile != "" {
		g.Go(func() error {
			m, err := p.api.Object(gctx, sess.Token, capab.Profile)
			if err != nil {
				if Fatal(err) {
					return err
				}
				profileErr = err
				return nil
			}
			profile = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if capab.Profile != "" {
		switch {
		case errors.Is(profileErr, apiclient.ErrNotFound):
			// 在庫と同じく404は空扱い
			return view, nil
		case profileErr != nil:
			p.logger.Warn("profile read failed, hiding inventory", zap.Error(profileErr))
			view.fail(primaryMessage(profileErr, errInventory))
			return view, nil
		}
		view.OwnerID = normalize.Str(profile[capab.OwnershipField])
		if view.OwnerID == "" {
			view.fail(errInventory)
			return view, nil
		}
	}

	for i, it := range normalize.InventoryItems(itemsRaw) {
		if capab.Profile != "" && normalize.Str(itemsRaw[i][capab.OwnershipField]) != view.OwnerID {
			continue
		}
		view.Items = append(view.Items, it)
		view.TotalQuantity += it.Quantity
		view.Categories[it.Category]++
	}
	return view, nil
}

// BlackMarketView backs /{role}/blackmarket.
type BlackMarketView struct {
	Notice
	Listings    []models.MarketListing `json:"listings"`
	Purchasable []models.MarketListing `json:"purchasable"`
	Balance     *float64               `json:"balance,omitempty"`
}

func (p *Planner) BlackMarket(ctx context.Context, sess *models.Session) (*BlackMarketView, error) {
	capab, _ := For(sess.Role)
	view := &BlackMarketView{Listings: []models.MarketListing{}, Purchasable: []models.MarketListing{}}

	var listingsRaw []map[string]any
	var balance map[string]any

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := p.api.List(gctx, sess.Token, capab.Market, "listings", "items", "data")
		if err != nil {
			if Fatal(err) {
				return err
			}
			view.fail(primaryMessage(err, "Error al cargar items del mercado"))
			return nil
		}
		listingsRaw = list
		return nil
	})
	if capab.Balance != "" {
		g.Go(func() error {
			m, err := p.api.Object(gctx, sess.Token, capab.Balance)
			if err != nil {
				return optional(err, view.warn, "No se pudo cargar tu saldo")
			}
			balance = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if balance != nil {
		b := normalize.Num(balance["balance"])
		view.Balance = &b
	}
	view.Listings = normalize.MarketListings(listingsRaw)
	for _, l := range view.Listings {
		if Purchasable(sess.Role, l) {
			view.Purchasable = append(view.Purchasable, l)
		}
	}
	return view, nil
}

// Purchasable: dictators buy discovered activity entries, sponsors buy
// listings that still have stock.
func Purchasable(role models.Role, l models.MarketListing) bool {
	if role == models.RoleSponsor {
		return l.Quantity > 0
	}
	return l.Status == "Discovered"
}
