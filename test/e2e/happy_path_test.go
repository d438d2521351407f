//go:build e2e
// +build e2e

package e2e

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"match-analyzer/internal/ingest"
	"match-analyzer/internal/minutes"
	"match-analyzer/internal/storage"
	"match-analyzer/internal/tables"
)

const playersJSON = `[
	{"playerId": 1, "firstName": "Marco", "lastName": "Rossi", "birthArea": {"name": "Italy"}, "role": {"name": "Goalkeeper"}},
	{"playerId": 2, "firstName": "Luka", "lastName": "Novak", "birthArea": {"name": "Croatia"}, "role": {"name": "Defender"}},
	{"playerId": 3, "firstName": "Jan", "lastName": "Kovacs", "birthArea": {"name": "Hungary"}, "role": {"name": "Midfielder"}},
	{"playerId": 4, "firstName": "Pavel", "lastName": "Horak", "birthArea": {"name": "Czech Republic"}, "role": {"name": "Forward"}},
	{"playerId": 5, "firstName": "Timo", "lastName": "Berg", "birthArea": {"name": "Germany"}, "role": {"name": "Midfielder"}},
	{"playerId": 6, "firstName": "Sven", "lastName": "Dahl", "birthArea": {"name": "Sweden"}, "role": {"name": "Defender"}},
	{"playerId": 7, "firstName": "Andre", "lastName": "Costa", "birthArea": {"name": "Portugal"}, "role": {"name": "Forward"}},
	{"playerId": 8, "firstName": "Piotr", "lastName": "Mazur", "birthArea": {"name": "Poland"}, "role": {"name": "Midfielder"}},
	{"playerId": 9, "firstName": "Emre", "lastName": "Aydin", "birthArea": {"name": "Turkey"}, "role": {"name": "Forward"}},
	{"playerId": 10, "firstName": "Niko", "lastName": "Laine", "birthArea": {"name": "Finland"}, "role": {"name": "Defender"}},
	{"playerId": 11, "firstName": "Oleg", "lastName": "Bondar", "birthArea": {"name": "Ukraine"}, "role": {"name": "Defender"}},
	{"playerId": 12, "firstName": "Karl", "lastName": "Voss", "birthArea": {"name": "Austria"}, "role": {"name": "Midfielder"}},
	{"playerId": 21, "firstName": "Diego", "lastName": "Mora", "birthArea": {"name": "Spain"}, "role": {"name": "Goalkeeper"}},
	{"playerId": 22, "firstName": "Hugo", "lastName": "Blanc", "birthArea": {"name": "France"}, "role": {"name": "Defender"}},
	{"playerId": 23, "firstName": "Ivan", "lastName": "Petrov", "birthArea": {"name": "Bulgaria"}, "role": {"name": "Midfielder"}},
	{"playerId": 24, "firstName": "Ben", "lastName": "Clarke", "birthArea": {"name": "England"}, "role": {"name": "Forward"}},
	{"playerId": 25, "firstName": "Rui", "lastName": "Gomes", "birthArea": {"name": "Portugal"}, "role": {"name": "Midfielder"}},
	{"playerId": 26, "firstName": "Tom", "lastName": "Weber", "birthArea": {"name": "Germany"}, "role": {"name": "Defender"}},
	{"playerId": 27, "firstName": "Ales", "lastName": "Kral", "birthArea": {"name": "Czech Republic"}, "role": {"name": "Forward"}},
	{"playerId": 28, "firstName": "Igor", "lastName": "Sokol", "birthArea": {"name": "Slovakia"}, "role": {"name": "Midfielder"}},
	{"playerId": 29, "firstName": "Luis", "lastName": "Vega", "birthArea": {"name": "Spain"}, "role": {"name": "Forward"}},
	{"playerId": 30, "firstName": "Finn", "lastName": "Olsen", "birthArea": {"name": "Denmark"}, "role": {"name": "Defender"}},
	{"playerId": 31, "firstName": "Adam", "lastName": "Nagy", "birthArea": {"name": "Hungary"}, "role": {"name": "Defender"}},
	{"playerId": 32, "firstName": "Jens", "lastName": "Holm", "birthArea": {"name": "Norway"}, "role": {"name": "Midfielder"}}
]`

const matchesJSON = `[
	{
		"matchId": 5001,
		"competition": "England",
		"season": "2017/2018",
		"homeTeamData": {
			"team": 10,
			"score": 2,
			"lineup": [1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11],
			"bench": [12],
			"substitution1": {"playerIn": 12, "playerOut": 1, "minute": 60}
		},
		"awayTeamData": {
			"team": 20,
			"score": 0,
			"lineup": [21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31],
			"bench": [32]
		}
	}
]`

// One second-half event at 2880s makes the duration ceil(2880/60)+45 = 93.
const eventsJSONL = `{"eventId": 1, "matchId": 5001, "teamId": 10, "playerId": 2, "eventName": "Shot", "matchPeriod": "1H", "eventSec": 600, "tags": [{"id": 101}]}
{"eventId": 2, "matchId": 5001, "teamId": 10, "playerId": 3, "eventName": "Pass", "matchPeriod": "1H", "eventSec": 700, "tags": [{"id": 1801}]}
{"eventId": 3, "matchId": 5001, "teamId": 10, "playerId": 4, "eventName": "Pass", "matchPeriod": "1H", "eventSec": 800, "tags": [{"id": 1802}]}
{"eventId": 4, "matchId": 5001, "teamId": 20, "playerId": 23, "eventName": "Pass", "matchPeriod": "1H", "eventSec": 900, "tags": [{"id": 1801}]}
{"eventId": 5, "matchId": 5001, "teamId": 10, "playerId": 12, "eventName": "Shot", "matchPeriod": "2H", "eventSec": 1500, "tags": [{"id": 101}]}
{"eventId": 6, "matchId": 5001, "teamId": 10, "playerId": 5, "eventName": "Pass", "matchPeriod": "2H", "eventSec": 2880, "tags": [{"id": 1801}]}
`

type batchOutput struct {
	Intervals   []minutes.PlayingInterval
	Career      []minutes.CareerMinutes
	LeagueTable []tables.TableRow
	RoleLeaders []tables.RoleLeader
	PlusMinus   []tables.PlayerPlusMinus
	Passing     []tables.TeamPassing
}

// runBatch pushes the fixture files through ingest into rotating storage,
// reads them back the way the reducer does, and computes every derived table.
func runBatch(t *testing.T, srcDir, storageDir string) batchOutput {
	t.Helper()

	ctx := context.Background()

	players, err := ingest.LoadPlayers(filepath.Join(srcDir, "players.json"))
	if err != nil {
		t.Fatalf("Failed to load players: %v", err)
	}
	matches, err := ingest.LoadMatches(filepath.Join(srcDir, "matches.json"))
	if err != nil {
		t.Fatalf("Failed to load matches: %v", err)
	}
	events, err := ingest.LoadEvents(filepath.Join(srcDir, "events.jsonl"))
	if err != nil {
		t.Fatalf("Failed to load events: %v", err)
	}

	normalizer, err := ingest.NewNormalizer(storageDir, nil)
	if err != nil {
		t.Fatalf("Failed to create normalizer: %v", err)
	}
	if err := normalizer.AddPlayers(ctx, players); err != nil {
		t.Fatalf("Failed to ingest players: %v", err)
	}
	if err := normalizer.AddMatches(ctx, matches); err != nil {
		t.Fatalf("Failed to ingest matches: %v", err)
	}
	if err := normalizer.AddEvents(ctx, events); err != nil {
		t.Fatalf("Failed to ingest events: %v", err)
	}
	if err := normalizer.Close(); err != nil {
		t.Fatalf("Failed to close normalizer: %v", err)
	}

	warmDir := filepath.Join(storageDir, "warm")
	warmPlayers, err := storage.ReadPlayers(warmDir)
	if err != nil {
		t.Fatalf("Failed to read warm players: %v", err)
	}
	warmMatches, err := storage.ReadMatches(warmDir)
	if err != nil {
		t.Fatalf("Failed to read warm matches: %v", err)
	}
	warmEvents, err := storage.ReadEvents(warmDir)
	if err != nil {
		t.Fatalf("Failed to read warm events: %v", err)
	}

	durations := minutes.Durations(warmEvents)
	subs := minutes.ExtractSubstitutions(warmMatches)
	result, err := minutes.Reconstruct(warmMatches, subs, durations)
	if err != nil {
		t.Fatalf("Reconstruction failed: %v", err)
	}

	goals := tables.GoalEvents(warmEvents, warmMatches)
	return batchOutput{
		Intervals:   result.Intervals,
		Career:      result.Career,
		LeagueTable: tables.LeagueTables(warmMatches),
		RoleLeaders: tables.TopByRole(result.Career, warmPlayers),
		PlusMinus:   tables.PlusMinus(result.Intervals, goals),
		Passing:     tables.PassRatios(warmEvents, warmMatches),
	}
}

func writeFixtures(t *testing.T) string {
	t.Helper()
	srcDir := t.TempDir()
	fixtures := map[string]string{
		"players.json": playersJSON,
		"matches.json": matchesJSON,
		"events.jsonl": eventsJSONL,
	}
	for name, content := range fixtures {
		if err := os.WriteFile(filepath.Join(srcDir, name), []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	return srcDir
}

func TestHappyPath_FullBatch(t *testing.T) {
	srcDir := writeFixtures(t)
	out := runBatch(t, srcDir, t.TempDir())

	// 11 starters + 1 substitute per team, plus 1 unused bench player
	if len(out.Intervals) != 24 {
		t.Fatalf("Expected 24 intervals, got %d", len(out.Intervals))
	}

	byPlayer := make(map[int]minutes.PlayingInterval)
	for _, iv := range out.Intervals {
		byPlayer[iv.PlayerID] = iv
	}

	// Substituted starter plays 0-60
	if got := byPlayer[1].Minutes; got != 60 {
		t.Errorf("Player 1 minutes = %d, want 60", got)
	}
	// The substitute finishes the 93-minute match
	sub := byPlayer[12]
	if sub.Start == nil || *sub.Start != 60 || sub.End == nil || *sub.End != 93 || sub.Minutes != 33 {
		t.Errorf("Player 12 interval = %+v, want 60-93 (33 min)", sub)
	}
	// Unsubstituted starter plays the whole match
	if got := byPlayer[21].Minutes; got != 93 {
		t.Errorf("Player 21 minutes = %d, want 93", got)
	}
	// Unused bench player gets an explicit zero row
	bench := byPlayer[32]
	if bench.Start != nil || bench.End != nil || bench.Minutes != 0 {
		t.Errorf("Player 32 interval = %+v, want nil bounds and 0 minutes", bench)
	}

	// League table: a single 2-0 match
	if len(out.LeagueTable) != 2 {
		t.Fatalf("Expected 2 table rows, got %d", len(out.LeagueTable))
	}
	winner := out.LeagueTable[0]
	if winner.TeamID != 10 || winner.Position != 1 || winner.Points != 3 || winner.GoalsFor != 2 {
		t.Errorf("Winner row = %+v, want team 10 in position 1 with 3 points", winner)
	}

	// Goals fall at minute 10 (1H 600s) and minute 70 (2H 1500s)
	pm := make(map[int]int)
	seen := make(map[int]bool)
	for _, row := range out.PlusMinus {
		pm[row.PlayerID] = row.PlusMinus
		seen[row.PlayerID] = true
	}
	// Conceding full-match players see both goals
	if pm[21] != -2 {
		t.Errorf("Player 21 plus-minus = %d, want -2", pm[21])
	}
	// The substituted starter left at 60, before the second goal
	if pm[1] != 1 {
		t.Errorf("Player 1 plus-minus = %d, want 1", pm[1])
	}
	// The substitute entered at 60 and was on for the second goal only
	if pm[12] != 1 {
		t.Errorf("Player 12 plus-minus = %d, want 1", pm[12])
	}
	// Bench rows never reach the plus-minus table
	if seen[32] {
		t.Error("Unused bench player 32 should not appear in plus-minus")
	}

	// Passing: team 10 has 2/3 accurate, team 20 has 1/1
	passing := make(map[int]tables.TeamPassing)
	for _, row := range out.Passing {
		passing[row.TeamID] = row
	}
	if got := passing[20].Ratio; got != 1.0 {
		t.Errorf("Team 20 pass ratio = %v, want 1.0", got)
	}

	// Role leaders include every role from the fixture registry
	roles := make(map[string]bool)
	for _, leader := range out.RoleLeaders {
		roles[leader.Role] = true
	}
	for _, role := range []string{"Goalkeeper", "Defender", "Midfielder", "Forward"} {
		if !roles[role] {
			t.Errorf("No leader for role %s", role)
		}
	}
}

func TestHappyPath_Deterministic(t *testing.T) {
	srcDir := writeFixtures(t)

	first := runBatch(t, srcDir, t.TempDir())
	second := runBatch(t, srcDir, t.TempDir())

	a, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("Failed to marshal first run: %v", err)
	}
	b, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("Failed to marshal second run: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("Two runs over the same input produced different output")
	}
}

func TestHappyPath_RerunSkipsDuplicates(t *testing.T) {
	srcDir := writeFixtures(t)
	storageDir := t.TempDir()

	ctx := context.Background()

	matches, err := ingest.LoadMatches(filepath.Join(srcDir, "matches.json"))
	if err != nil {
		t.Fatalf("Failed to load matches: %v", err)
	}

	normalizer, err := ingest.NewNormalizer(storageDir, nil)
	if err != nil {
		t.Fatalf("Failed to create normalizer: %v", err)
	}
	defer normalizer.Close()

	// Same export ingested twice, as happens with overlapping competition files
	if err := normalizer.AddMatches(ctx, matches); err != nil {
		t.Fatalf("First ingest failed: %v", err)
	}
	if err := normalizer.AddMatches(ctx, matches); err != nil {
		t.Fatalf("Second ingest failed: %v", err)
	}

	_, written, _, skipped := normalizer.Stats()
	if written != 1 {
		t.Errorf("Matches written = %d, want 1", written)
	}
	if skipped != 1 {
		t.Errorf("Duplicates skipped = %d, want 1", skipped)
	}
}
