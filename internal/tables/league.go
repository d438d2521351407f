package tables

import (
	"sort"

	"match-analyzer/internal/storage"
)

// TableRow is one team's standing within a competition+season.
type TableRow struct {
	Competition  string `json:"competition"`
	Season       string `json:"season"`
	TeamID       int    `json:"teamId"`
	Position     int    `json:"position"`
	Played       int    `json:"played"`
	Wins         int    `json:"wins"`
	Draws        int    `json:"draws"`
	Losses       int    `json:"losses"`
	GoalsFor     int    `json:"goalsFor"`
	GoalsAgainst int    `json:"goalsAgainst"`
	GoalDiff     int    `json:"goalDiff"`
	Points       int    `json:"points"`
}

type tableKey struct {
	competition string
	season      string
	teamID      int
}

// LeagueTables builds one standings table per competition+season, summing
// wins, draws, losses, points and goals across home and away appearances.
// Teams are ordered by points, then goal difference, then goals scored;
// remaining ties fall back to team ID so positions are stable across runs.
func LeagueTables(matches []storage.MatchRecord) []TableRow {
	rows := make(map[tableKey]*TableRow)

	credit := func(m *storage.MatchRecord, sheet *storage.TeamSheet, scored, conceded int) {
		key := tableKey{m.Competition, m.Season, sheet.TeamID}
		row, ok := rows[key]
		if !ok {
			row = &TableRow{Competition: m.Competition, Season: m.Season, TeamID: sheet.TeamID}
			rows[key] = row
		}
		row.Played++
		row.GoalsFor += scored
		row.GoalsAgainst += conceded
		switch {
		case scored > conceded:
			row.Wins++
			row.Points += 3
		case scored == conceded:
			row.Draws++
			row.Points++
		default:
			row.Losses++
		}
	}

	for i := range matches {
		m := &matches[i]
		credit(m, &m.Home, m.Home.Score, m.Away.Score)
		credit(m, &m.Away, m.Away.Score, m.Home.Score)
	}

	// Group by competition+season, rank within each group.
	type groupKey struct{ competition, season string }
	groups := make(map[groupKey][]*TableRow)
	for _, row := range rows {
		row.GoalDiff = row.GoalsFor - row.GoalsAgainst
		gk := groupKey{row.Competition, row.Season}
		groups[gk] = append(groups[gk], row)
	}

	groupKeys := make([]groupKey, 0, len(groups))
	for gk := range groups {
		groupKeys = append(groupKeys, gk)
	}
	sort.Slice(groupKeys, func(i, j int) bool {
		if groupKeys[i].competition != groupKeys[j].competition {
			return groupKeys[i].competition < groupKeys[j].competition
		}
		return groupKeys[i].season < groupKeys[j].season
	})

	var table []TableRow
	for _, gk := range groupKeys {
		group := groups[gk]
		sort.Slice(group, func(i, j int) bool {
			a, b := group[i], group[j]
			if a.Points != b.Points {
				return a.Points > b.Points
			}
			if a.GoalDiff != b.GoalDiff {
				return a.GoalDiff > b.GoalDiff
			}
			if a.GoalsFor != b.GoalsFor {
				return a.GoalsFor > b.GoalsFor
			}
			return a.TeamID < b.TeamID
		})
		for pos, row := range group {
			row.Position = pos + 1
			table = append(table, *row)
		}
	}
	return table
}
