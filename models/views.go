package models

// EnrichedBattle is a battle decorated with display data for both sides.
type EnrichedBattle struct {
	Battle

	Contestant1Name         string `json:"contestant1Name"`
	Contestant1Nickname     string `json:"contestant1Nickname,omitempty"`
	Contestant1DictatorName string `json:"contestant1DictatorName"`
	Contestant1DictatorID   string `json:"contestant1DictatorId,omitempty"`
	Contestant2Name         string `json:"contestant2Name"`
	Contestant2Nickname     string `json:"contestant2Nickname,omitempty"`
	Contestant2DictatorName string `json:"contestant2DictatorName"`
	Contestant2DictatorID   string `json:"contestant2DictatorId,omitempty"`

	IsOwnBattle bool `json:"isOwnBattle"`
	CanBet      bool `json:"canBet"`
}

// HasWinner reports whether the server has recorded a winner.
func (b EnrichedBattle) HasWinner() bool {
	return b.WinnerID != ""
}
