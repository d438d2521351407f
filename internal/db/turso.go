package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql"

	"match-analyzer/internal/minutes"
	"match-analyzer/internal/tables"
)

// TursoClient wraps a connection to Turso, where the derived tables are
// published for downstream app consumption.
type TursoClient struct {
	db *sql.DB
}

// NewTursoClient creates a new Turso client
func NewTursoClient(url, authToken string) (*TursoClient, error) {
	connStr := url
	if authToken != "" {
		connStr = fmt.Sprintf("%s?authToken=%s", url, authToken)
	}

	db, err := sql.Open("libsql", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Turso: %w", err)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping Turso: %w", err)
	}

	return &TursoClient{db: db}, nil
}

// Close closes the Turso connection
func (c *TursoClient) Close() error {
	return c.db.Close()
}

// CreateTables creates the required tables if they don't exist
func (c *TursoClient) CreateTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS data_version (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			batch TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS career_minutes (
			player_id INTEGER PRIMARY KEY,
			minutes INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS league_table (
			competition TEXT NOT NULL,
			season TEXT NOT NULL,
			team_id INTEGER NOT NULL,
			position INTEGER NOT NULL,
			played INTEGER NOT NULL,
			wins INTEGER NOT NULL,
			draws INTEGER NOT NULL,
			losses INTEGER NOT NULL,
			goals_for INTEGER NOT NULL,
			goals_against INTEGER NOT NULL,
			goal_diff INTEGER NOT NULL,
			points INTEGER NOT NULL,
			PRIMARY KEY (competition, season, team_id)
		)`,
		`CREATE TABLE IF NOT EXISTS role_leaders (
			role TEXT NOT NULL,
			player_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			minutes INTEGER NOT NULL,
			PRIMARY KEY (role, player_id)
		)`,
		`CREATE TABLE IF NOT EXISTS plus_minus (
			player_id INTEGER PRIMARY KEY,
			plus_minus INTEGER NOT NULL
		)`,
		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_league_table_group ON league_table(competition, season)`,
		`CREATE INDEX IF NOT EXISTS idx_role_leaders_role ON role_leaders(role)`,
	}

	for _, query := range queries {
		if _, err := c.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}

	return nil
}

// ClearData deletes all existing data
func (c *TursoClient) ClearData(ctx context.Context) error {
	tablesToClear := []string{"data_version", "career_minutes", "league_table", "role_leaders", "plus_minus"}
	for _, table := range tablesToClear {
		if _, err := c.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

// SetDataVersion records the batch identifier of the current push
func (c *TursoClient) SetDataVersion(ctx context.Context, batch string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO data_version (id, batch, updated_at) VALUES (1, ?, ?)`,
		batch, time.Now().UTC().Format(time.RFC3339))
	return err
}

const batchSize = 100

// InsertCareerMinutes inserts career totals in batches
func (c *TursoClient) InsertCareerMinutes(ctx context.Context, career []minutes.CareerMinutes) error {
	for i := 0; i < len(career); i += batchSize {
		end := i + batchSize
		if end > len(career) {
			end = len(career)
		}
		batch := career[i:end]

		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO career_minutes (player_id, minutes) VALUES (?, ?)`)
		if err != nil {
			tx.Rollback()
			return err
		}

		for _, row := range batch {
			if _, err := stmt.ExecContext(ctx, row.PlayerID, row.Minutes); err != nil {
				stmt.Close()
				tx.Rollback()
				return err
			}
		}

		stmt.Close()
		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}

// InsertLeagueTable inserts standings rows in batches
func (c *TursoClient) InsertLeagueTable(ctx context.Context, rows []tables.TableRow) error {
	for i := 0; i < len(rows); i += batchSize {
		end := i + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[i:end]

		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO league_table (competition, season, team_id, position, played, wins, draws, losses, goals_for, goals_against, goal_diff, points) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			tx.Rollback()
			return err
		}

		for _, row := range batch {
			if _, err := stmt.ExecContext(ctx, row.Competition, row.Season, row.TeamID, row.Position, row.Played, row.Wins, row.Draws, row.Losses, row.GoalsFor, row.GoalsAgainst, row.GoalDiff, row.Points); err != nil {
				stmt.Close()
				tx.Rollback()
				return err
			}
		}

		stmt.Close()
		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}

// InsertRoleLeaders inserts top-player-by-role rows in batches
func (c *TursoClient) InsertRoleLeaders(ctx context.Context, leaders []tables.RoleLeader) error {
	for i := 0; i < len(leaders); i += batchSize {
		end := i + batchSize
		if end > len(leaders) {
			end = len(leaders)
		}
		batch := leaders[i:end]

		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO role_leaders (role, player_id, name, minutes) VALUES (?, ?, ?, ?)`)
		if err != nil {
			tx.Rollback()
			return err
		}

		for _, row := range batch {
			if _, err := stmt.ExecContext(ctx, row.Role, row.PlayerID, row.Name, row.Minutes); err != nil {
				stmt.Close()
				tx.Rollback()
				return err
			}
		}

		stmt.Close()
		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}

// InsertPlusMinus inserts plus-minus rows in batches
func (c *TursoClient) InsertPlusMinus(ctx context.Context, rows []tables.PlayerPlusMinus) error {
	for i := 0; i < len(rows); i += batchSize {
		end := i + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[i:end]

		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO plus_minus (player_id, plus_minus) VALUES (?, ?)`)
		if err != nil {
			tx.Rollback()
			return err
		}

		for _, row := range batch {
			if _, err := stmt.ExecContext(ctx, row.PlayerID, row.PlusMinus); err != nil {
				stmt.Close()
				tx.Rollback()
				return err
			}
		}

		stmt.Close()
		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}
