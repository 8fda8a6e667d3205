package models

// Contestant status values.
const (
	StatusAlive   = "Alive"
	StatusInjured = "Injured"
	StatusDead    = "Dead"
)

// Battle status values as issued by the game API.
const (
	BattlePending    = "Pending"
	BattleApproved   = "Approved"
	BattleInProgress = "In Progress"
	BattleStart      = "Start"
	BattleCompleted  = "Completed"
	BattleRejected   = "Rejected"
)

// Contestant is a combatant owned by exactly one dictator.
type Contestant struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Nickname     string `json:"nickname"`
	Health       int    `json:"health"`
	Strength     int    `json:"strength"`
	Agility      int    `json:"agility"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
	Status       string `json:"status"`
	DictatorID   string `json:"dictatorId"`
	DictatorName string `json:"dictatorName,omitempty"`
	Territory    string `json:"territory,omitempty"`
	Released     bool   `json:"released"`
}

// Power is the sum used by the pages to compare fighters.
func (c Contestant) Power() int {
	return c.Strength + c.Agility + c.Health
}

// Battle is the server's view of a fight. Status changes are imposed by the
// game API and never inferred locally.
type Battle struct {
	ID            string `json:"id"`
	Contestant1ID string `json:"contestant1Id"`
	Contestant2ID string `json:"contestant2Id"`
	Status        string `json:"status"`
	ProposedDate  string `json:"proposedDate"`
	BattleDate    string `json:"battleDate,omitempty"`
	CreatedAt     string `json:"createdAt"`
	WinnerID      string `json:"winnerId,omitempty"`
	DeathOccurred bool   `json:"deathOccurred"`
	CasualtyID    string `json:"casualtyId,omitempty"`
	Injuries      string `json:"injuries,omitempty"`
	DictatorID    string `json:"dictatorId,omitempty"`
}

// InventoryItem belongs to one dictator or sponsor. A zero quantity keeps the record.
type InventoryItem struct {
	ID       string  `json:"id"`
	ItemName string  `json:"itemName"`
	Category string  `json:"category"`
	Quantity int     `json:"quantity"`
	OwnerID  string  `json:"ownerId"`
	Price    float64 `json:"price,omitempty"`
}

// MarketListing is one black market offer or transaction.
type MarketListing struct {
	ID              string  `json:"id"`
	Item            string  `json:"item"`
	Amount          float64 `json:"amount"`
	Quantity        int     `json:"quantity"`
	Status          string  `json:"status"`
	SellerID        string  `json:"sellerId"`
	SellerName      string  `json:"sellerName"`
	TransactionDate string  `json:"transactionDate"`
	Category        string  `json:"category,omitempty"`
	Description     string  `json:"description,omitempty"`
}

// Bet is a wager by a non-participant on a battle's winner.
type Bet struct {
	ID                string  `json:"id"`
	BattleID          string  `json:"battleId"`
	BettorID          string  `json:"bettorId"`
	BettorType        string  `json:"bettorType"`
	Amount            float64 `json:"amount"`
	PredictedWinnerID string  `json:"predictedWinnerId"`
	Status            string  `json:"status"`
	Payout            float64 `json:"payout,omitempty"`
}

// BetSummary is the my-bets response.
type BetSummary struct {
	BettorType string `json:"bettorType"`
	TotalBets  int    `json:"totalBets"`
	Bets       []Bet  `json:"bets"`
}

// User is a row of the admin user list.
type User struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Role           string `json:"role"`
	Blocked        bool   `json:"blocked"`
	FailedAttempts int    `json:"failedAttempts"`
	LastLogin      string `json:"lastLogin,omitempty"`
	CreatedAt      string `json:"createdAt"`
}

// IsBlocked treats three failed logins as blocked even before the server flags it.
func (u User) IsBlocked() bool {
	return u.Blocked || u.FailedAttempts >= 3
}

// Opponent is a contestant offered by /dictator/available-opponents.
type Opponent struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Nickname     string `json:"nickname,omitempty"`
	Health       int    `json:"health"`
	Strength     int    `json:"strength"`
	Agility      int    `json:"agility"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
	DictatorID   string `json:"dictatorId"`
	DictatorName string `json:"dictatorName"`
}

// Buff is a temporary stat modifier applied to a contestant.
type Buff struct {
	Name          string `json:"name"`
	Effect        string `json:"effect"`
	StrengthBoost int    `json:"strengthBoost"`
	AgilityBoost  int    `json:"agilityBoost"`
	Duration      int    `json:"duration"`
	SourceType    string `json:"sourceType"`
}

// AssignedItem is an item given to a contestant.
type AssignedItem struct {
	ID         string `json:"id"`
	ItemName   string `json:"itemName"`
	Source     string `json:"source"`
	GiverID    string `json:"giverId"`
	AssignedAt string `json:"assignedAt"`
}

// ContestantDetails is the buffs/items breakdown of one contestant.
type ContestantDetails struct {
	Buffs      []Buff         `json:"buffs"`
	Items      []AssignedItem `json:"items"`
	TotalBuffs int            `json:"totalBuffs"`
	TotalItems int            `json:"totalItems"`
}

// BoostTotals sums strength and agility boosts across all buffs.
func (d ContestantDetails) BoostTotals() (strength, agility int) {
	for _, b := range d.Buffs {
		strength += b.StrengthBoost
		agility += b.AgilityBoost
	}
	return strength, agility
}
