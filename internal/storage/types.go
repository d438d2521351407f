package storage

// Event tag IDs carried over from the upstream event coding
const (
	TagGoal       = 101
	TagOwnGoal    = 102
	TagAccurate   = 1801
	TagInaccurate = 1802
)

// PlayerRecord is a flattened player reference row for JSONL storage.
// Name is built from the source first+last name at ingest time.
type PlayerRecord struct {
	PlayerID  int    `json:"playerId"`
	Name      string `json:"name"`
	BirthArea string `json:"birthArea"`
	Role      string `json:"role"`
}

// SubSlot is one of the up-to-3 substitution slots on a team sheet.
// A nil PlayerIn means the slot was never used in the match.
type SubSlot struct {
	PlayerIn  *int `json:"playerIn"`
	PlayerOut *int `json:"playerOut"`
	Minute    int  `json:"minute"`
}

// TeamSheet covers one side of a match: starters, bench and substitutions.
type TeamSheet struct {
	TeamID int      `json:"teamId"`
	Score  int      `json:"score"`
	Lineup []int    `json:"lineup"`
	Bench  []int    `json:"bench"`
	Sub1   *SubSlot `json:"substitution1"`
	Sub2   *SubSlot `json:"substitution2"`
	Sub3   *SubSlot `json:"substitution3"`
}

// Slots returns the substitution slots in sheet order. Entries may be nil.
func (t *TeamSheet) Slots() []*SubSlot {
	return []*SubSlot{t.Sub1, t.Sub2, t.Sub3}
}

// MatchRecord is a normalized match roster row (both team sheets).
type MatchRecord struct {
	MatchID     int       `json:"matchId"`
	Competition string    `json:"competition"`
	Season      string    `json:"season"`
	Home        TeamSheet `json:"homeTeamData"`
	Away        TeamSheet `json:"awayTeamData"`
}

// EventRecord is a single play-by-play event row.
// EventSec counts seconds since the kickoff of its period.
type EventRecord struct {
	EventID     int     `json:"eventId"`
	MatchID     int     `json:"matchId"`
	TeamID      int     `json:"teamId"`
	PlayerID    int     `json:"playerId"`
	EventName   string  `json:"eventName"`
	MatchPeriod string  `json:"matchPeriod"` // "1H" or "2H"
	EventSec    float64 `json:"eventSec"`
	Tags        []int   `json:"tags,omitempty"`
}

// HasTag reports whether the event carries the given tag ID.
func (e *EventRecord) HasTag(tag int) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
