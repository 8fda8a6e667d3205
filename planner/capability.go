package planner

import (
	"luchaserver/enrich"
	"luchaserver/models"
)

// Capability describes where a role's data lives on the game API. Dictator
// and sponsor pages share one implementation and differ only here.
type Capability struct {
	Role models.Role

	Contestants string
	Opponents   string
	Battles     string
	Inventory   string
	Profile     string
	Market      string
	Balance     string
	MyBets      string
	PlaceBet    string
	ApplyBuff   string
	GiveItem    string
	BuyItem     string
	AddItem     string
	DeleteItem  string
	Details     string // printf pattern, takes the contestant id

	// OwnershipField names the inventory field holding the owner id.
	OwnershipField string
	// Fallback is the prefix for unknown contestant names.
	Fallback string

	Pages []string
}

// Admin endpoints.
const (
	AdminPendingBattles = "/admin/get-Pending-Battles"
	AdminAllBattles     = "/admin/get-All-Battles"
	AdminUsers          = "/admin/users"
)

var capabilities = map[models.Role]Capability{
	models.RoleAdmin: {
		Role:     models.RoleAdmin,
		Battles:  AdminAllBattles,
		Fallback: enrich.ContestantPrefix,
		Pages:    []string{PageBattles, PageUsers},
	},
	models.RoleDictator: {
		Role:           models.RoleDictator,
		Contestants:    "/dictator/contestants",
		Opponents:      "/dictator/available-opponents",
		Battles:        "/dictator/battles/active",
		Inventory:      "/dictator/inventory",
		Market:         "/dictator/blackmarket/Activity",
		MyBets:         "/dictator/my-bets",
		PlaceBet:       "/dictator/place-bet",
		ApplyBuff:      "/dictator/apply-buff",
		GiveItem:       "/dictator/give-item",
		BuyItem:        "/dictator/blackmarket/buy-item",
		AddItem:        "/dictator/add-item",
		DeleteItem:     "/dictator/delete-item",
		Details:        "/dictator/contestants/%s/details",
		OwnershipField: "dictator_id",
		Fallback:       enrich.GladiatorPrefix,
		Pages:          []string{PageContestants, PageContestant, PageInventory, PageBlackMarket, PageBattles, PageBets},
	},
	models.RoleSponsor: {
		Role:           models.RoleSponsor,
		Contestants:    "/sponsor/contestants",
		Battles:        "/sponsor/battles/active",
		Inventory:      "/sponsor/inventory",
		Profile:        "/sponsor/profile",
		Market:         "/sponsor/blackmarket/listings",
		Balance:        "/sponsor/balance",
		MyBets:         "/sponsor/my-bets",
		PlaceBet:       "/sponsor/place-bet",
		ApplyBuff:      "/sponsor/apply-buff/battle",
		GiveItem:       "/sponsor/give-item",
		BuyItem:        "/sponsor/blackmarket/buy-item",
		AddItem:        "/sponsor/add-item",
		DeleteItem:     "/sponsor/delete-item",
		OwnershipField: "sponsor_id",
		Fallback:       enrich.ContestantPrefix,
		Pages:          []string{PageContestants, PageInventory, PageBlackMarket, PageBattles, PageBets},
	},
}

// For returns the capability descriptor of a role.
func For(role models.Role) (Capability, bool) {
	c, ok := capabilities[role]
	return c, ok
}

// HasPage reports whether the role has the named page.
func (c Capability) HasPage(page string) bool {
	for _, p := range c.Pages {
		if p == page {
			return true
		}
	}
	return false
}
