package tables

import (
	"sort"

	"match-analyzer/internal/minutes"
	"match-analyzer/internal/storage"
)

// RoleLeader is a player holding the career-minutes maximum for a role.
type RoleLeader struct {
	Role     string `json:"role"`
	PlayerID int    `json:"playerId"`
	Name     string `json:"name"`
	Minutes  int    `json:"minutes"`
}

// TopByRole joins career minutes with the player reference rows and keeps,
// per role, every player whose minutes equal the role maximum. Ties are all
// retained rather than picking an arbitrary winner.
func TopByRole(career []minutes.CareerMinutes, players []storage.PlayerRecord) []RoleLeader {
	byID := make(map[int]storage.PlayerRecord, len(players))
	for _, p := range players {
		byID[p.PlayerID] = p
	}

	maxByRole := make(map[string]int)
	for _, c := range career {
		p, ok := byID[c.PlayerID]
		if !ok {
			continue // no reference row, nothing to group by
		}
		if c.Minutes > maxByRole[p.Role] {
			maxByRole[p.Role] = c.Minutes
		}
	}

	var leaders []RoleLeader
	for _, c := range career {
		p, ok := byID[c.PlayerID]
		if !ok {
			continue
		}
		if c.Minutes == maxByRole[p.Role] {
			leaders = append(leaders, RoleLeader{
				Role:     p.Role,
				PlayerID: p.PlayerID,
				Name:     p.Name,
				Minutes:  c.Minutes,
			})
		}
	}

	sort.Slice(leaders, func(i, j int) bool {
		if leaders[i].Role != leaders[j].Role {
			return leaders[i].Role < leaders[j].Role
		}
		return leaders[i].PlayerID < leaders[j].PlayerID
	})
	return leaders
}
