// Package enrich joins battles with contestant and dictator display data.
package enrich

import (
	"luchaserver/models"
	"luchaserver/normalize"
)

// Fallback name prefixes. Other views rely on these exact strings.
const (
	GladiatorPrefix  = "Gladiador "
	ContestantPrefix = "Contestant "
	UnknownGladiator = "Gladiador Desconocido"
	UnknownDictator  = "Dictador Desconocido"
)

// Lookup is an id-keyed contestant index built once per fetch cycle.
type Lookup map[string]models.Contestant

// NewLookup indexes every given set. When an id appears twice the first
// occurrence wins, so pass the caller's own roster first.
func NewLookup(sets ...[]models.Contestant) Lookup {
	l := make(Lookup)
	for _, set := range sets {
		for _, c := range set {
			if c.ID == "" {
				continue
			}
			if _, ok := l[c.ID]; !ok {
				l[c.ID] = c
			}
		}
	}
	return l
}

// Options controls ownership and naming for one enrichment pass.
type Options struct {
	// OwnerID is the acting dictator's id. Empty for admin and sponsor views.
	OwnerID string
	// Prefix is GladiatorPrefix or ContestantPrefix.
	Prefix string
}

// FallbackName builds the placeholder shown for an unknown contestant id.
func FallbackName(prefix, id string) string {
	if id == "" {
		return UnknownGladiator
	}
	if prefix == "" {
		prefix = GladiatorPrefix
	}
	return prefix + normalize.Last(id, 6)
}

// Name resolves a display name, falling back when the id is unknown.
func (l Lookup) Name(id, prefix string) string {
	if c, ok := l[id]; ok && c.Name != "" {
		return c.Name
	}
	return FallbackName(prefix, id)
}

// Battle decorates one battle.
func Battle(b models.Battle, l Lookup, opts Options) models.EnrichedBattle {
	eb := models.EnrichedBattle{Battle: b}

	c1, ok1 := l[b.Contestant1ID]
	c2, ok2 := l[b.Contestant2ID]

	eb.Contestant1Name = l.Name(b.Contestant1ID, opts.Prefix)
	eb.Contestant2Name = l.Name(b.Contestant2ID, opts.Prefix)
	eb.Contestant1DictatorName = UnknownDictator
	eb.Contestant2DictatorName = UnknownDictator
	if ok1 {
		eb.Contestant1Nickname = c1.Nickname
		eb.Contestant1DictatorID = c1.DictatorID
		if c1.DictatorName != "" {
			eb.Contestant1DictatorName = c1.DictatorName
		}
	}
	if ok2 {
		eb.Contestant2Nickname = c2.Nickname
		eb.Contestant2DictatorID = c2.DictatorID
		if c2.DictatorName != "" {
			eb.Contestant2DictatorName = c2.DictatorName
		}
	}

	if opts.OwnerID != "" {
		eb.IsOwnBattle = eb.Contestant1DictatorID == opts.OwnerID ||
			eb.Contestant2DictatorID == opts.OwnerID ||
			b.DictatorID == opts.OwnerID
	}
	eb.CanBet = !eb.IsOwnBattle && Bettable(b)
	return eb
}

// Battles decorates every battle, keeping order.
func Battles(battles []models.Battle, l Lookup, opts Options) []models.EnrichedBattle {
	out := make([]models.EnrichedBattle, 0, len(battles))
	for _, b := range battles {
		out = append(out, Battle(b, l, opts))
	}
	return out
}

// Bettable reports whether a battle accepts new bets regardless of who asks:
// it must be approved or running and have no recorded winner.
func Bettable(b models.Battle) bool {
	if b.WinnerID != "" {
		return false
	}
	switch b.Status {
	case models.BattleApproved, models.BattleInProgress, models.BattleStart:
		return true
	}
	return false
}
