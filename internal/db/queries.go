package db

import (
	"context"
	"encoding/json"

	"match-analyzer/internal/storage"
)

// InsertPlayer inserts a player reference row if it doesn't exist
func (db *DB) InsertPlayer(ctx context.Context, p *storage.PlayerRecord) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO players (player_id, name, birth_area, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (player_id) DO NOTHING
	`, p.PlayerID, p.Name, p.BirthArea, p.Role)
	return err
}

// InsertMatch inserts a match roster row if it doesn't exist. The full
// roster (lineups, benches, substitution slots) is kept as JSONB.
func (db *DB) InsertMatch(ctx context.Context, m *storage.MatchRecord) error {
	roster, err := json.Marshal(m)
	if err != nil {
		return err
	}

	_, err = db.pool.Exec(ctx, `
		INSERT INTO matches (match_id, competition, season, home_team, away_team, home_score, away_score, roster)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (match_id) DO NOTHING
	`, m.MatchID, m.Competition, m.Season, m.Home.TeamID, m.Away.TeamID, m.Home.Score, m.Away.Score, roster)
	return err
}

// InsertEvent inserts an event row if it doesn't exist
func (db *DB) InsertEvent(ctx context.Context, e *storage.EventRecord) error {
	tags, err := json.Marshal(e.Tags)
	if err != nil {
		return err
	}

	_, err = db.pool.Exec(ctx, `
		INSERT INTO events (event_id, match_id, team_id, player_id, event_name, match_period, event_sec, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (event_id) DO NOTHING
	`, e.EventID, e.MatchID, e.TeamID, e.PlayerID, e.EventName, e.MatchPeriod, e.EventSec, tags)
	return err
}

// MatchExists checks if a match already exists in the database
func (db *DB) MatchExists(ctx context.Context, matchID int) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM matches WHERE match_id = $1)
	`, matchID).Scan(&exists)
	return exists, err
}

// GetMatchCount returns the total number of matches
func (db *DB) GetMatchCount(ctx context.Context) (int, error) {
	var count int
	err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM matches`).Scan(&count)
	return count, err
}

// GetEventCount returns the total number of events
func (db *DB) GetEventCount(ctx context.Context) (int, error) {
	var count int
	err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM events`).Scan(&count)
	return count, err
}

// GetPlayerCount returns the total number of player reference rows
func (db *DB) GetPlayerCount(ctx context.Context) (int, error) {
	var count int
	err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM players`).Scan(&count)
	return count, err
}
