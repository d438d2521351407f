package tables

import (
	"sort"

	"match-analyzer/internal/storage"
)

// TeamPassing is a team's season-averaged pass-success ratio.
type TeamPassing struct {
	Competition string  `json:"competition"`
	Season      string  `json:"season"`
	TeamID      int     `json:"teamId"`
	Matches     int     `json:"matches"`
	Ratio       float64 `json:"ratio"`
}

type passCount struct {
	accurate int
	total    int
}

// PassRatios computes, per team, the season average of its per-match
// accurate/total pass ratio. Matches where a team recorded no pass events
// contribute nothing to the average.
func PassRatios(events []storage.EventRecord, matches []storage.MatchRecord) []TeamPassing {
	type matchTeam struct{ matchID, teamID int }
	counts := make(map[matchTeam]*passCount)

	for i := range events {
		ev := &events[i]
		if ev.EventName != "Pass" {
			continue
		}
		key := matchTeam{ev.MatchID, ev.TeamID}
		c, ok := counts[key]
		if !ok {
			c = &passCount{}
			counts[key] = c
		}
		c.total++
		if ev.HasTag(storage.TagAccurate) {
			c.accurate++
		}
	}

	compSeason := make(map[int]storage.MatchRecord, len(matches))
	for _, m := range matches {
		compSeason[m.MatchID] = m
	}

	type seasonTeam struct {
		competition, season string
		teamID              int
	}
	sums := make(map[seasonTeam]*TeamPassing)
	for key, c := range counts {
		m, ok := compSeason[key.matchID]
		if !ok || c.total == 0 {
			continue
		}
		sk := seasonTeam{m.Competition, m.Season, key.teamID}
		tp, ok := sums[sk]
		if !ok {
			tp = &TeamPassing{Competition: m.Competition, Season: m.Season, TeamID: key.teamID}
			sums[sk] = tp
		}
		tp.Matches++
		tp.Ratio += float64(c.accurate) / float64(c.total)
	}

	result := make([]TeamPassing, 0, len(sums))
	for _, tp := range sums {
		tp.Ratio /= float64(tp.Matches)
		result = append(result, *tp)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Competition != b.Competition {
			return a.Competition < b.Competition
		}
		if a.Season != b.Season {
			return a.Season < b.Season
		}
		return a.TeamID < b.TeamID
	})
	return result
}

// WeakestPassers returns, per competition, the teams holding the minimum
// season-average pass ratio. Ties are all retained, matching the top-by-role
// policy.
func WeakestPassers(ratios []TeamPassing) []TeamPassing {
	minByComp := make(map[string]float64)
	for _, r := range ratios {
		cur, ok := minByComp[r.Competition]
		if !ok || r.Ratio < cur {
			minByComp[r.Competition] = r.Ratio
		}
	}

	var weakest []TeamPassing
	for _, r := range ratios {
		if r.Ratio == minByComp[r.Competition] {
			weakest = append(weakest, r)
		}
	}
	return weakest
}
