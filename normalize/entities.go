package normalize

import (
	"luchaserver/models"
)

// Contestant maps a roster, opponent or admin payload onto a Contestant.
func Contestant(m map[string]any) models.Contestant {
	return models.Contestant{
		ID:           FirstStr(m, "contestant_id", "id"),
		Name:         FirstStr(m, "name", "contestant_name"),
		Nickname:     Str(m["nickname"]),
		Health:       Int(m["health"]),
		Strength:     Int(m["strength"]),
		Agility:      Int(m["agility"]),
		Wins:         Int(m["wins"]),
		Losses:       Int(m["losses"]),
		Status:       StrOr(m["status"], models.StatusAlive),
		DictatorID:   Str(m["dictator_id"]),
		DictatorName: Str(m["dictator_name"]),
		Territory:    Str(m["territory"]),
		Released:     Bool(m["released"]),
	}
}

// Contestants normalizes a whole list.
func Contestants(list []map[string]any) []models.Contestant {
	out := make([]models.Contestant, 0, len(list))
	for _, m := range list {
		out = append(out, Contestant(m))
	}
	return out
}

// Battle maps a battle payload. The proposed date is sent as either
// "date" or "proposed_date" depending on the endpoint.
func Battle(m map[string]any) models.Battle {
	return models.Battle{
		ID:            FirstStr(m, "id", "battle_id"),
		Contestant1ID: FirstStr(m, "contestant_1", "contestant1_id", "contestant1"),
		Contestant2ID: FirstStr(m, "contestant_2", "contestant2_id", "contestant2"),
		Status:        Str(m["status"]),
		ProposedDate:  FirstStr(m, "date", "proposed_date"),
		BattleDate:    Str(m["battle_date"]),
		CreatedAt:     Str(m["created_at"]),
		WinnerID:      Str(m["winner_id"]),
		DeathOccurred: Bool(m["death_occurred"]),
		CasualtyID:    Str(m["casualty_id"]),
		Injuries:      Str(m["injuries"]),
		DictatorID:    Str(m["dictator_id"]),
	}
}

// Battles normalizes a whole list.
func Battles(list []map[string]any) []models.Battle {
	out := make([]models.Battle, 0, len(list))
	for _, m := range list {
		out = append(out, Battle(m))
	}
	return out
}

// InventoryItem maps an inventory row; the owner is a dictator or a sponsor.
func InventoryItem(m map[string]any) models.InventoryItem {
	return models.InventoryItem{
		ID:       FirstStr(m, "id", "item_id"),
		ItemName: StrOr(First(m, "item_name", "itemName"), "Item sin nombre"),
		Category: StrOr(m["category"], "general"),
		Quantity: Int(m["quantity"]),
		OwnerID:  FirstStr(m, "dictator_id", "sponsor_id"),
		Price:    Num(m["price"]),
	}
}

// InventoryItems normalizes a whole list.
func InventoryItems(list []map[string]any) []models.InventoryItem {
	out := make([]models.InventoryItem, 0, len(list))
	for _, m := range list {
		out = append(out, InventoryItem(m))
	}
	return out
}

// MarketListing covers both the dictator activity feed and sponsor listings.
func MarketListing(m map[string]any) models.MarketListing {
	return models.MarketListing{
		ID:              FirstStr(m, "id", "transaction_id"),
		Item:            StrOr(First(m, "item", "item_name", "name"), "Item sin nombre"),
		Amount:          Num(First(m, "amount", "price")),
		Quantity:        IntOr(m["stock"], Int(m["quantity"])),
		Status:          StrOr(m["status"], "Discovered"),
		SellerID:        Str(m["seller_id"]),
		SellerName:      StrOr(m["seller_name"], "Anónimo"),
		TransactionDate: Str(m["transaction_date"]),
		Category:        StrOr(m["category"], "general"),
		Description:     Str(m["description"]),
	}
}

// MarketListings normalizes a whole list.
func MarketListings(list []map[string]any) []models.MarketListing {
	out := make([]models.MarketListing, 0, len(list))
	for _, m := range list {
		out = append(out, MarketListing(m))
	}
	return out
}

// Bet maps a bet row.
func Bet(m map[string]any) models.Bet {
	return models.Bet{
		ID:                Str(m["id"]),
		BattleID:          FirstStr(m, "battle_id", "battleId"),
		BettorID:          Str(m["bettor_id"]),
		BettorType:        Str(m["bettor_type"]),
		Amount:            Num(m["amount"]),
		PredictedWinnerID: FirstStr(m, "predicted_winner", "predicted_winner_id", "predictedWinner"),
		Status:            Str(m["status"]),
		Payout:            Num(m["payout"]),
	}
}

// BetSummary maps the my-bets response.
func BetSummary(m map[string]any) models.BetSummary {
	list := List(m["bets"])
	bets := make([]models.Bet, 0, len(list))
	for _, b := range list {
		bets = append(bets, Bet(b))
	}
	return models.BetSummary{
		BettorType: Str(m["bettorType"]),
		TotalBets:  IntOr(m["totalBets"], len(bets)),
		Bets:       bets,
	}
}

// User maps an admin user row.
func User(m map[string]any) models.User {
	return models.User{
		ID:             Str(m["id"]),
		Username:       Str(m["username"]),
		Role:           Str(m["role"]),
		Blocked:        Bool(m["blocked"]),
		FailedAttempts: Int(m["failed_attempts"]),
		LastLogin:      Str(m["last_login"]),
		CreatedAt:      Str(m["created_at"]),
	}
}

// Users normalizes a whole list.
func Users(list []map[string]any) []models.User {
	out := make([]models.User, 0, len(list))
	for _, m := range list {
		out = append(out, User(m))
	}
	return out
}

// Opponent maps an available-opponents row. Missing health counts as full health.
func Opponent(m map[string]any) models.Opponent {
	return models.Opponent{
		ID:           FirstStr(m, "contestant_id", "id"),
		Name:         StrOr(First(m, "contestant_name", "name"), "Sin nombre"),
		Nickname:     Str(m["nickname"]),
		Health:       IntOr(m["health"], 100),
		Strength:     Int(m["strength"]),
		Agility:      Int(m["agility"]),
		Wins:         Int(m["wins"]),
		Losses:       Int(m["losses"]),
		DictatorID:   Str(m["dictator_id"]),
		DictatorName: StrOr(m["dictator_name"], "Anónimo"),
	}
}

// Opponents normalizes a whole list.
func Opponents(list []map[string]any) []models.Opponent {
	out := make([]models.Opponent, 0, len(list))
	for _, m := range list {
		out = append(out, Opponent(m))
	}
	return out
}

// ContestantDetails maps the details endpoint. Boosts arrive as strings.
func ContestantDetails(m map[string]any) models.ContestantDetails {
	buffList := List(m["buffs"])
	buffs := make([]models.Buff, 0, len(buffList))
	for _, b := range buffList {
		buffs = append(buffs, models.Buff{
			Name:          Str(b["name"]),
			Effect:        Str(b["effect"]),
			StrengthBoost: Int(b["strength_boost"]),
			AgilityBoost:  Int(b["agility_boost"]),
			Duration:      Int(b["duration"]),
			SourceType:    Str(b["source_type"]),
		})
	}
	itemList := List(m["items"])
	items := make([]models.AssignedItem, 0, len(itemList))
	for _, it := range itemList {
		items = append(items, models.AssignedItem{
			ID:         Str(it["id"]),
			ItemName:   Str(it["item_name"]),
			Source:     Str(it["source"]),
			GiverID:    Str(it["giver_id"]),
			AssignedAt: Str(it["assigned_at"]),
		})
	}
	return models.ContestantDetails{
		Buffs:      buffs,
		Items:      items,
		TotalBuffs: IntOr(m["totalBuffs"], len(buffs)),
		TotalItems: IntOr(m["totalItems"], len(items)),
	}
}

// BattleContestants extracts the display data some endpoints embed in
// battle rows (contestant_1_name, dictator_1_name, ...). Sides without an
// embedded name are skipped so the enricher falls back.
func BattleContestants(list []map[string]any) []models.Contestant {
	out := make([]models.Contestant, 0, 2*len(list))
	for _, m := range list {
		for _, side := range []string{"1", "2"} {
			id := Str(m["contestant_"+side])
			name := Str(m["contestant_"+side+"_name"])
			if id == "" || name == "" {
				continue
			}
			out = append(out, models.Contestant{
				ID:           id,
				Name:         name,
				Nickname:     Str(m["contestant_"+side+"_nickname"]),
				DictatorName: Str(m["dictator_"+side+"_name"]),
				DictatorID:   Str(m["dictator_"+side+"_id"]),
			})
		}
	}
	return out
}
