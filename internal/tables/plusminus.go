package tables

import (
	"sort"

	"match-analyzer/internal/minutes"
	"match-analyzer/internal/storage"
)

// GoalEvent is a scoring event credited to the team it counts for.
type GoalEvent struct {
	MatchID int `json:"matchId"`
	TeamID  int `json:"teamId"`
	Minute  int `json:"minute"`
}

// PlayerPlusMinus is a player's goal differential while on the pitch.
type PlayerPlusMinus struct {
	PlayerID  int `json:"playerId"`
	PlusMinus int `json:"plusMinus"`
}

// GoalEvents derives scoring events from tagged event rows. An own goal
// counts for the opposing side, resolved through the match roster.
func GoalEvents(events []storage.EventRecord, matches []storage.MatchRecord) []GoalEvent {
	opponents := make(map[int][2]int, len(matches))
	for i := range matches {
		m := &matches[i]
		opponents[m.MatchID] = [2]int{m.Home.TeamID, m.Away.TeamID}
	}

	var goals []GoalEvent
	for i := range events {
		ev := &events[i]
		switch {
		case ev.HasTag(storage.TagGoal):
			goals = append(goals, GoalEvent{
				MatchID: ev.MatchID,
				TeamID:  ev.TeamID,
				Minute:  minutes.EventMinute(ev),
			})
		case ev.HasTag(storage.TagOwnGoal):
			sides, ok := opponents[ev.MatchID]
			if !ok {
				continue
			}
			scoringTeam := sides[0]
			if ev.TeamID == sides[0] {
				scoringTeam = sides[1]
			}
			goals = append(goals, GoalEvent{
				MatchID: ev.MatchID,
				TeamID:  scoringTeam,
				Minute:  minutes.EventMinute(ev),
			})
		}
	}
	return goals
}

// PlusMinus computes each player's goal differential across the batch. A
// goal in minute m counts for a player whose interval satisfies
// Start < m <= End, so a goal in the substitution minute credits the
// outgoing player only. Bench rows never accumulate anything.
func PlusMinus(intervals []minutes.PlayingInterval, goals []GoalEvent) []PlayerPlusMinus {
	byMatch := make(map[int][]minutes.PlayingInterval)
	for _, iv := range intervals {
		if iv.Start == nil {
			continue
		}
		byMatch[iv.MatchID] = append(byMatch[iv.MatchID], iv)
	}

	// Every on-pitch player appears in the output, even at 0.
	totals := make(map[int]int)
	for _, iv := range intervals {
		if iv.Start != nil {
			if _, ok := totals[iv.PlayerID]; !ok {
				totals[iv.PlayerID] = 0
			}
		}
	}

	for _, goal := range goals {
		for _, iv := range byMatch[goal.MatchID] {
			if !(*iv.Start < goal.Minute && goal.Minute <= *iv.End) {
				continue
			}
			if iv.TeamID == goal.TeamID {
				totals[iv.PlayerID]++
			} else {
				totals[iv.PlayerID]--
			}
		}
	}

	result := make([]PlayerPlusMinus, 0, len(totals))
	for playerID, diff := range totals {
		result = append(result, PlayerPlusMinus{PlayerID: playerID, PlusMinus: diff})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PlayerID < result[j].PlayerID })
	return result
}
