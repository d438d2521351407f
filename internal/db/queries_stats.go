package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"match-analyzer/internal/minutes"
	"match-analyzer/internal/tables"
)

// Derived tables are replaced wholesale on every reduce: the batch is
// recomputed from scratch, so delete-and-insert inside one transaction
// keeps readers consistent.

// ReplacePlayingIntervals swaps in the reconstructed interval set
func (db *DB) ReplacePlayingIntervals(ctx context.Context, intervals []minutes.PlayingInterval) error {
	return db.replace(ctx, "playing_intervals", func(tx pgx.Tx) error {
		for _, iv := range intervals {
			_, err := tx.Exec(ctx, `
				INSERT INTO playing_intervals (match_id, team_id, player_id, start_minute, end_minute, minutes)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, iv.MatchID, iv.TeamID, iv.PlayerID, iv.Start, iv.End, iv.Minutes)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceCareerMinutes swaps in the per-player career totals
func (db *DB) ReplaceCareerMinutes(ctx context.Context, career []minutes.CareerMinutes) error {
	return db.replace(ctx, "career_minutes", func(tx pgx.Tx) error {
		for _, c := range career {
			if _, err := tx.Exec(ctx, `
				INSERT INTO career_minutes (player_id, minutes) VALUES ($1, $2)
			`, c.PlayerID, c.Minutes); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceLeagueTable swaps in the standings rows
func (db *DB) ReplaceLeagueTable(ctx context.Context, rows []tables.TableRow) error {
	return db.replace(ctx, "league_table", func(tx pgx.Tx) error {
		for _, r := range rows {
			if _, err := tx.Exec(ctx, `
				INSERT INTO league_table (competition, season, team_id, position, played, wins, draws, losses, goals_for, goals_against, goal_diff, points)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			`, r.Competition, r.Season, r.TeamID, r.Position, r.Played, r.Wins, r.Draws, r.Losses, r.GoalsFor, r.GoalsAgainst, r.GoalDiff, r.Points); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceRoleLeaders swaps in the top-player-by-role rows
func (db *DB) ReplaceRoleLeaders(ctx context.Context, leaders []tables.RoleLeader) error {
	return db.replace(ctx, "role_leaders", func(tx pgx.Tx) error {
		for _, l := range leaders {
			if _, err := tx.Exec(ctx, `
				INSERT INTO role_leaders (role, player_id, name, minutes) VALUES ($1, $2, $3, $4)
			`, l.Role, l.PlayerID, l.Name, l.Minutes); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplacePlusMinus swaps in the plus-minus rows
func (db *DB) ReplacePlusMinus(ctx context.Context, rows []tables.PlayerPlusMinus) error {
	return db.replace(ctx, "plus_minus", func(tx pgx.Tx) error {
		for _, r := range rows {
			if _, err := tx.Exec(ctx, `
				INSERT INTO plus_minus (player_id, plus_minus) VALUES ($1, $2)
			`, r.PlayerID, r.PlusMinus); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceTeamPassing swaps in the pass-ratio rows
func (db *DB) ReplaceTeamPassing(ctx context.Context, rows []tables.TeamPassing) error {
	return db.replace(ctx, "team_passing", func(tx pgx.Tx) error {
		for _, r := range rows {
			if _, err := tx.Exec(ctx, `
				INSERT INTO team_passing (competition, season, team_id, matches, ratio) VALUES ($1, $2, $3, $4, $5)
			`, r.Competition, r.Season, r.TeamID, r.Matches, r.Ratio); err != nil {
				return err
			}
		}
		return nil
	})
}

func (db *DB) replace(ctx context.Context, table string, insert func(tx pgx.Tx) error) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
		return err
	}
	if err := insert(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetPlayingIntervals returns the reconstructed intervals of one match
func (db *DB) GetPlayingIntervals(ctx context.Context, matchID int) ([]minutes.PlayingInterval, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT match_id, team_id, player_id, start_minute, end_minute, minutes
		FROM playing_intervals
		WHERE match_id = $1
		ORDER BY team_id, player_id
	`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intervals []minutes.PlayingInterval
	for rows.Next() {
		var iv minutes.PlayingInterval
		if err := rows.Scan(&iv.MatchID, &iv.TeamID, &iv.PlayerID, &iv.Start, &iv.End, &iv.Minutes); err != nil {
			return nil, err
		}
		intervals = append(intervals, iv)
	}
	return intervals, rows.Err()
}

// PlayerMinutes is a career total joined with the player reference row
type PlayerMinutes struct {
	PlayerID  int    `json:"playerId"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	BirthArea string `json:"birthArea"`
	Minutes   int    `json:"minutes"`
}

// GetPlayerMinutes returns one player's career minutes with reference data
func (db *DB) GetPlayerMinutes(ctx context.Context, playerID int) (*PlayerMinutes, error) {
	var pm PlayerMinutes
	err := db.pool.QueryRow(ctx, `
		SELECT c.player_id, COALESCE(p.name, ''), COALESCE(p.role, ''), COALESCE(p.birth_area, ''), c.minutes
		FROM career_minutes c
		LEFT JOIN players p ON p.player_id = c.player_id
		WHERE c.player_id = $1
	`, playerID).Scan(&pm.PlayerID, &pm.Name, &pm.Role, &pm.BirthArea, &pm.Minutes)
	if err != nil {
		return nil, err
	}
	return &pm, nil
}

// GetLeagueTable returns standings, optionally filtered by competition and season
func (db *DB) GetLeagueTable(ctx context.Context, competition, season string) ([]tables.TableRow, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT competition, season, team_id, position, played, wins, draws, losses, goals_for, goals_against, goal_diff, points
		FROM league_table
		WHERE ($1 = '' OR competition = $1) AND ($2 = '' OR season = $2)
		ORDER BY competition, season, position
	`, competition, season)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var table []tables.TableRow
	for rows.Next() {
		var r tables.TableRow
		if err := rows.Scan(&r.Competition, &r.Season, &r.TeamID, &r.Position, &r.Played, &r.Wins, &r.Draws, &r.Losses, &r.GoalsFor, &r.GoalsAgainst, &r.GoalDiff, &r.Points); err != nil {
			return nil, err
		}
		table = append(table, r)
	}
	return table, rows.Err()
}

// GetRoleLeaders returns the top players per role
func (db *DB) GetRoleLeaders(ctx context.Context) ([]tables.RoleLeader, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT role, player_id, name, minutes FROM role_leaders ORDER BY role, player_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leaders []tables.RoleLeader
	for rows.Next() {
		var l tables.RoleLeader
		if err := rows.Scan(&l.Role, &l.PlayerID, &l.Name, &l.Minutes); err != nil {
			return nil, err
		}
		leaders = append(leaders, l)
	}
	return leaders, rows.Err()
}

// GetPlusMinus returns plus-minus rows ordered best-first
func (db *DB) GetPlusMinus(ctx context.Context, limit int) ([]tables.PlayerPlusMinus, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT player_id, plus_minus FROM plus_minus ORDER BY plus_minus DESC, player_id LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []tables.PlayerPlusMinus
	for rows.Next() {
		var r tables.PlayerPlusMinus
		if err := rows.Scan(&r.PlayerID, &r.PlusMinus); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// GetTeamPassing returns season pass ratios, optionally per competition
func (db *DB) GetTeamPassing(ctx context.Context, competition string) ([]tables.TeamPassing, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT competition, season, team_id, matches, ratio
		FROM team_passing
		WHERE ($1 = '' OR competition = $1)
		ORDER BY competition, season, ratio
	`, competition)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []tables.TeamPassing
	for rows.Next() {
		var r tables.TeamPassing
		if err := rows.Scan(&r.Competition, &r.Season, &r.TeamID, &r.Matches, &r.Ratio); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
