package minutes

import "fmt"

// EntrySource tags how a player came to be on the pitch.
type EntrySource int

const (
	EntryStarter EntrySource = iota
	EntrySubstitute
)

// SubstitutionEvent is one flattened substitution slot. PlayerOutID is 0
// when the sheet does not name the outgoing player.
type SubstitutionEvent struct {
	MatchID     int `json:"matchId"`
	TeamID      int `json:"teamId"`
	PlayerInID  int `json:"playerInId"`
	PlayerOutID int `json:"playerOutId,omitempty"`
	Minute      int `json:"minute"`
}

// PlayingInterval is the reconstructed per-match, per-player playing time.
// Start and End are nil for bench players who never entered; for them
// Minutes is exactly 0.
type PlayingInterval struct {
	MatchID  int  `json:"matchId"`
	TeamID   int  `json:"teamId"`
	PlayerID int  `json:"playerId"`
	Start    *int `json:"startMinute"`
	End      *int `json:"endMinute"`
	Minutes  int  `json:"minutes"`
}

// CareerMinutes is the sum of a player's minutes across the whole batch.
type CareerMinutes struct {
	PlayerID int `json:"playerId"`
	Minutes  int `json:"minutes"`
}

// PlayerRef identifies a roster row in violation and skip reports.
type PlayerRef struct {
	MatchID  int `json:"matchId"`
	PlayerID int `json:"playerId"`
}

func (r PlayerRef) String() string {
	return fmt.Sprintf("match %d player %d", r.MatchID, r.PlayerID)
}
