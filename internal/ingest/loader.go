package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"match-analyzer/internal/storage"
)

// Source shapes mirror the upstream export format. Players and rosters
// arrive as JSON arrays, the (much larger) event log as JSONL.

type sourcePlayer struct {
	PlayerID  int    `json:"playerId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	BirthArea struct {
		Name string `json:"name"`
	} `json:"birthArea"`
	Role struct {
		Name string `json:"name"`
	} `json:"role"`
}

type sourceSub struct {
	PlayerIn  *int `json:"playerIn"`
	PlayerOut *int `json:"playerOut"`
	Minute    int  `json:"minute"`
}

type sourceTeamSheet struct {
	Team          int        `json:"team"`
	Score         int        `json:"score"`
	Lineup        []int      `json:"lineup"`
	Bench         []int      `json:"bench"`
	Substitution1 *sourceSub `json:"substitution1"`
	Substitution2 *sourceSub `json:"substitution2"`
	Substitution3 *sourceSub `json:"substitution3"`
}

type sourceMatch struct {
	MatchID     int             `json:"matchId"`
	Competition string          `json:"competition"`
	Season      string          `json:"season"`
	Home        sourceTeamSheet `json:"homeTeamData"`
	Away        sourceTeamSheet `json:"awayTeamData"`
}

type sourceEvent struct {
	EventID     int     `json:"eventId"`
	MatchID     int     `json:"matchId"`
	TeamID      int     `json:"teamId"`
	PlayerID    int     `json:"playerId"`
	EventName   string  `json:"eventName"`
	MatchPeriod string  `json:"matchPeriod"`
	EventSec    float64 `json:"eventSec"`
	Tags        []struct {
		ID int `json:"id"`
	} `json:"tags"`
}

// LoadPlayers reads a player reference export and flattens it: the display
// name is the space-joined first and last name.
func LoadPlayers(path string) ([]storage.PlayerRecord, error) {
	var raw []sourcePlayer
	if err := decodeArray(path, &raw); err != nil {
		return nil, err
	}

	players := make([]storage.PlayerRecord, 0, len(raw))
	for _, p := range raw {
		players = append(players, storage.PlayerRecord{
			PlayerID:  p.PlayerID,
			Name:      strings.TrimSpace(p.FirstName + " " + p.LastName),
			BirthArea: p.BirthArea.Name,
			Role:      p.Role.Name,
		})
	}
	return players, nil
}

// LoadMatches reads a match roster export into normalized records.
func LoadMatches(path string) ([]storage.MatchRecord, error) {
	var raw []sourceMatch
	if err := decodeArray(path, &raw); err != nil {
		return nil, err
	}

	matches := make([]storage.MatchRecord, 0, len(raw))
	for _, m := range raw {
		matches = append(matches, storage.MatchRecord{
			MatchID:     m.MatchID,
			Competition: m.Competition,
			Season:      m.Season,
			Home:        normalizeSheet(m.Home),
			Away:        normalizeSheet(m.Away),
		})
	}
	return matches, nil
}

// LoadEvents streams a JSONL event export. Rows with an unknown match
// period are a data-validation error, not something to guess at.
func LoadEvents(path string) ([]storage.EventRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var events []storage.EventRecord

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var ev sourceEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", filepath.Base(path), lineNum, err)
		}
		if ev.MatchPeriod != "1H" && ev.MatchPeriod != "2H" {
			return nil, fmt.Errorf("%s line %d: invalid match period %q", filepath.Base(path), lineNum, ev.MatchPeriod)
		}

		record := storage.EventRecord{
			EventID:     ev.EventID,
			MatchID:     ev.MatchID,
			TeamID:      ev.TeamID,
			PlayerID:    ev.PlayerID,
			EventName:   ev.EventName,
			MatchPeriod: ev.MatchPeriod,
			EventSec:    ev.EventSec,
		}
		for _, tag := range ev.Tags {
			record.Tags = append(record.Tags, tag.ID)
		}
		events = append(events, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}

	return events, nil
}

func normalizeSheet(s sourceTeamSheet) storage.TeamSheet {
	return storage.TeamSheet{
		TeamID: s.Team,
		Score:  s.Score,
		Lineup: s.Lineup,
		Bench:  s.Bench,
		Sub1:   normalizeSub(s.Substitution1),
		Sub2:   normalizeSub(s.Substitution2),
		Sub3:   normalizeSub(s.Substitution3),
	}
}

func normalizeSub(s *sourceSub) *storage.SubSlot {
	if s == nil {
		return nil
	}
	return &storage.SubSlot{PlayerIn: s.PlayerIn, PlayerOut: s.PlayerOut, Minute: s.Minute}
}

func decodeArray(path string, out interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
