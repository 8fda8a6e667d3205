package planner

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"luchaserver/enrich"
	"luchaserver/models"
	"luchaserver/normalize"
)

// Bet limits enforced before a bet ever reaches the game API.
const (
	MinBet  = 50
	MaxBet  = 5000
	BetStep = 50
)

// BetsView backs /{role}/apuestas.
type BetsView struct {
	Notice
	Role          models.Role             `json:"role"`
	OwnerID       string                  `json:"ownerId,omitempty"`
	Available     []models.EnrichedBattle `json:"available"`
	ActiveBets    []models.Bet            `json:"activeBets"`
	CompletedBets []models.Bet            `json:"completedBets"`
	BettorType    string                  `json:"bettorType"`
	TotalBets     int                     `json:"totalBets"`
	MinBet        int                     `json:"minBet"`
	MaxBet        int                     `json:"maxBet"`
	BetStep       int                     `json:"betStep"`
}

// Bets loads the betting page: active battles, the contestants needed to
// name them, and the caller's own bets. For a dictator the owner id comes
// from its own roster and is used to hide its own battles.
func (p *Planner) Bets(ctx context.Context, sess *models.Session) (*BetsView, error) {
	capab, _ := For(sess.Role)
	view := &BetsView{
		Role:          sess.Role,
		Available:     []models.EnrichedBattle{},
		ActiveBets:    []models.Bet{},
		CompletedBets: []models.Bet{},
		MinBet:        MinBet,
		MaxBet:        MaxBet,
		BetStep:       BetStep,
	}

	var battlesRaw, rosterRaw, opponentsRaw []map[string]any
	var betsRaw map[string]any

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := p.api.List(gctx, sess.Token, capab.Battles, "battles", "data")
		if err != nil {
			return settle(err, view.fail, "Error al cargar batallas. Mostrando datos limitados.")
		}
		battlesRaw = list
		return nil
	})
	g.Go(func() error {
		list, err := p.api.List(gctx, sess.Token, capab.Contestants)
		if err != nil {
			return settle(err, view.warn, "No se pudieron cargar los gladiadores")
		}
		rosterRaw = list
		return nil
	})
	if capab.Opponents != "" {
		g.Go(func() error {
			list, err := p.api.List(gctx, sess.Token, capab.Opponents)
			if err != nil {
				return settle(err, view.warn, "No se pudieron cargar los oponentes")
			}
			opponentsRaw = list
			return nil
		})
	}
	g.Go(func() error {
		m, err := p.api.Object(gctx, sess.Token, capab.MyBets)
		if err != nil {
			return optional(err, view.warn, "No se pudieron cargar tus apuestas")
		}
		betsRaw = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	roster := normalize.Contestants(rosterRaw)
	if sess.Role == models.RoleDictator && len(roster) > 0 {
		view.OwnerID = roster[0].DictatorID
	}
	lookup := enrich.NewLookup(roster, normalize.Contestants(opponentsRaw))

	for _, b := range enrich.Battles(normalize.Battles(battlesRaw), lookup, enrich.Options{OwnerID: view.OwnerID, Prefix: capab.Fallback}) {
		if b.Status == models.BattleApproved && !b.HasWinner() {
			view.Available = append(view.Available, b)
		}
	}

	summary := normalize.BetSummary(betsRaw)
	view.BettorType = summary.BettorType
	view.TotalBets = summary.TotalBets
	for _, bet := range summary.Bets {
		switch {
		case ActiveBet(bet):
			view.ActiveBets = append(view.ActiveBets, bet)
		case CompletedBet(bet):
			view.CompletedBets = append(view.CompletedBets, bet)
		}
	}
	return view, nil
}

// ActiveBet: no status yet, pending or active.
func ActiveBet(b models.Bet) bool {
	s := strings.ToLower(b.Status)
	return s == "" || s == "pending" || s == "active"
}

// CompletedBet: settled one way or another.
func CompletedBet(b models.Bet) bool {
	switch b.Status {
	case "Won", "Lost", "Closed":
		return true
	}
	return false
}
