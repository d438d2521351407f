package minutes

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"match-analyzer/internal/storage"
)

func intPtr(v int) *int { return &v }

// rosterFixture builds a single match: players 1-11 start for team 10,
// players 21-31 for team 20, bench players 12-14 and 32-34.
func rosterFixture(matchID int) storage.MatchRecord {
	home := storage.TeamSheet{TeamID: 10}
	away := storage.TeamSheet{TeamID: 20}
	for i := 1; i <= 11; i++ {
		home.Lineup = append(home.Lineup, i)
		away.Lineup = append(away.Lineup, 20+i)
	}
	for i := 12; i <= 14; i++ {
		home.Bench = append(home.Bench, i)
		away.Bench = append(away.Bench, 20+i)
	}
	return storage.MatchRecord{
		MatchID:     matchID,
		Competition: "England",
		Season:      "2017/2018",
		Home:        home,
		Away:        away,
	}
}

func findInterval(t *testing.T, intervals []PlayingInterval, matchID, playerID int) PlayingInterval {
	t.Helper()
	for _, iv := range intervals {
		if iv.MatchID == matchID && iv.PlayerID == playerID {
			return iv
		}
	}
	t.Fatalf("no interval for match %d player %d", matchID, playerID)
	return PlayingInterval{}
}

// Match length 93, player 1 starts and is replaced by bench player 12 at
// minute 60, bench player 13 never enters.
func TestReconstruct_SubstitutionSplitsMatch(t *testing.T) {
	match := rosterFixture(100)
	match.Home.Sub1 = &storage.SubSlot{PlayerIn: intPtr(12), PlayerOut: intPtr(1), Minute: 60}

	matches := []storage.MatchRecord{match}
	subs := ExtractSubstitutions(matches)
	durations := Durations([]storage.EventRecord{
		{EventID: 1, MatchID: 100, MatchPeriod: "1H", EventSec: 2700},
		{EventID: 2, MatchID: 100, MatchPeriod: "2H", EventSec: 2880},
	})

	if got := durations[100]; got != 93 {
		t.Fatalf("expected match length 93 (45 + ceil(2880/60)), got %d", got)
	}

	result, err := Reconstruct(matches, subs, durations)
	if err != nil {
		t.Fatalf("Reconstruct failed: %v", err)
	}

	// Starter substituted out at 60: interval {0, 60, 60}
	out := findInterval(t, result.Intervals, 100, 1)
	if *out.Start != 0 || *out.End != 60 || out.Minutes != 60 {
		t.Errorf("substituted starter: got {%d,%d,%d}, want {0,60,60}", *out.Start, *out.End, out.Minutes)
	}

	// Substitute finishing the match: interval {60, 93, 33}
	in := findInterval(t, result.Intervals, 100, 12)
	if *in.Start != 60 || *in.End != 93 || in.Minutes != 33 {
		t.Errorf("incoming substitute: got {%d,%d,%d}, want {60,93,33}", *in.Start, *in.End, in.Minutes)
	}

	// Unused bench player: interval {null, null, 0}
	bench := findInterval(t, result.Intervals, 100, 13)
	if bench.Start != nil || bench.End != nil || bench.Minutes != 0 {
		t.Errorf("unused bench player: got {%v,%v,%d}, want {nil,nil,0}", bench.Start, bench.End, bench.Minutes)
	}

	// Untouched starter plays the whole match
	full := findInterval(t, result.Intervals, 100, 2)
	if *full.Start != 0 || *full.End != 93 || full.Minutes != 93 {
		t.Errorf("untouched starter: got {%d,%d,%d}, want {0,93,93}", *full.Start, *full.End, full.Minutes)
	}
}

// Every match participant gets exactly one interval, and the arithmetic
// invariants hold for all of them.
func TestReconstruct_Invariants(t *testing.T) {
	match := rosterFixture(200)
	match.Home.Sub1 = &storage.SubSlot{PlayerIn: intPtr(12), PlayerOut: intPtr(3), Minute: 55}
	match.Home.Sub2 = &storage.SubSlot{PlayerIn: intPtr(13), PlayerOut: intPtr(4), Minute: 71}
	match.Away.Sub1 = &storage.SubSlot{PlayerIn: intPtr(32), PlayerOut: intPtr(23), Minute: 80}

	matches := []storage.MatchRecord{match}
	subs := ExtractSubstitutions(matches)
	durations := map[int]int{200: 94}

	result, err := Reconstruct(matches, subs, durations)
	if err != nil {
		t.Fatalf("Reconstruct failed: %v", err)
	}

	// 22 starters + 3 substitutes + 3 unused bench players
	if len(result.Intervals) != 28 {
		t.Fatalf("expected 28 intervals, got %d", len(result.Intervals))
	}

	seen := make(map[PlayerRef]bool)
	for _, iv := range result.Intervals {
		ref := PlayerRef{iv.MatchID, iv.PlayerID}
		if seen[ref] {
			t.Errorf("duplicate interval for %s", ref)
		}
		seen[ref] = true

		if iv.Start == nil {
			if iv.End != nil || iv.Minutes != 0 {
				t.Errorf("bench row %s: End=%v Minutes=%d, want nil/0", ref, iv.End, iv.Minutes)
			}
			continue
		}
		if iv.Minutes != *iv.End-*iv.Start {
			t.Errorf("%s: Minutes=%d but End-Start=%d", ref, iv.Minutes, *iv.End-*iv.Start)
		}
		if iv.Minutes < 0 {
			t.Errorf("%s: negative minutes %d", ref, iv.Minutes)
		}
	}
}

// A substitute never replaced again keeps the full match length as exit.
func TestReconstruct_SubstituteFinishesMatch(t *testing.T) {
	match := rosterFixture(300)
	match.Away.Sub1 = &storage.SubSlot{PlayerIn: intPtr(33), PlayerOut: intPtr(25), Minute: 46}

	result, err := Reconstruct([]storage.MatchRecord{match}, ExtractSubstitutions([]storage.MatchRecord{match}), map[int]int{300: 90})
	if err != nil {
		t.Fatalf("Reconstruct failed: %v", err)
	}

	in := findInterval(t, result.Intervals, 300, 33)
	if *in.End != 90 || in.Minutes != 44 {
		t.Errorf("substitute never replaced: got end=%d minutes=%d, want 90/44", *in.End, in.Minutes)
	}
}

// Bench exclusion is scoped per match: benched in match A, substituted in
// during match B must still yield a zero-minute bench row for match A.
func TestReconstruct_BenchScopedPerMatch(t *testing.T) {
	matchA := rosterFixture(400)
	matchB := rosterFixture(401)
	// Player 12 stays on the bench in match A but comes on in match B.
	matchB.Home.Sub1 = &storage.SubSlot{PlayerIn: intPtr(12), PlayerOut: intPtr(7), Minute: 63}

	matches := []storage.MatchRecord{matchA, matchB}
	result, err := Reconstruct(matches, ExtractSubstitutions(matches), map[int]int{400: 90, 401: 95})
	if err != nil {
		t.Fatalf("Reconstruct failed: %v", err)
	}

	benchRow := findInterval(t, result.Intervals, 400, 12)
	if benchRow.Start != nil || benchRow.Minutes != 0 {
		t.Errorf("match A bench row lost: got %+v", benchRow)
	}

	playedRow := findInterval(t, result.Intervals, 401, 12)
	if playedRow.Start == nil || *playedRow.Start != 63 || playedRow.Minutes != 32 {
		t.Errorf("match B substitute row wrong: got %+v", playedRow)
	}
}

// Career minutes equal the re-aggregated interval minutes per player.
func TestAggregateCareer_MatchesIntervalSums(t *testing.T) {
	matchA := rosterFixture(500)
	matchB := rosterFixture(501)
	matchA.Home.Sub1 = &storage.SubSlot{PlayerIn: intPtr(12), PlayerOut: intPtr(1), Minute: 58}
	matchB.Home.Sub1 = &storage.SubSlot{PlayerIn: intPtr(13), PlayerOut: intPtr(1), Minute: 70}

	matches := []storage.MatchRecord{matchA, matchB}
	result, err := Reconstruct(matches, ExtractSubstitutions(matches), map[int]int{500: 92, 501: 96})
	if err != nil {
		t.Fatalf("Reconstruct failed: %v", err)
	}

	sums := make(map[int]int)
	for _, iv := range result.Intervals {
		sums[iv.PlayerID] += iv.Minutes
	}
	for _, c := range result.Career {
		if sums[c.PlayerID] != c.Minutes {
			t.Errorf("player %d: career %d != interval sum %d", c.PlayerID, c.Minutes, sums[c.PlayerID])
		}
		delete(sums, c.PlayerID)
	}
	if len(sums) != 0 {
		t.Errorf("players missing from career totals: %v", sums)
	}

	// Player 1 was substituted out at 58 and 70
	for _, c := range result.Career {
		if c.PlayerID == 1 && c.Minutes != 128 {
			t.Errorf("player 1 career minutes: got %d, want 128", c.Minutes)
		}
	}
}

// A match without second-half events has no duration; its on-pitch entries
// are excluded and reported, never counted as zero minutes.
func TestReconstruct_MissingDurationReported(t *testing.T) {
	match := rosterFixture(600)
	durations := Durations([]storage.EventRecord{
		{EventID: 1, MatchID: 600, MatchPeriod: "1H", EventSec: 2700},
	})
	if _, ok := durations[600]; ok {
		t.Fatal("match with only first-half events must have no duration")
	}

	result, err := Reconstruct([]storage.MatchRecord{match}, nil, durations)
	if err != nil {
		t.Fatalf("Reconstruct failed: %v", err)
	}

	if len(result.Report.MissingDuration) != 22 {
		t.Errorf("expected 22 excluded on-pitch entries, got %d", len(result.Report.MissingDuration))
	}

	// Bench rows do not depend on the duration and survive.
	for _, iv := range result.Intervals {
		if iv.Start != nil {
			t.Errorf("on-pitch interval %d survived a missing duration", iv.PlayerID)
		}
	}
	if len(result.Intervals) != 6 {
		t.Errorf("expected 6 bench rows, got %d", len(result.Intervals))
	}
}

// A player listed both in the lineup and on the bench is a data-integrity
// violation that fails the batch with the violating records attached.
func TestReconstruct_DuplicateListingFails(t *testing.T) {
	match := rosterFixture(700)
	match.Home.Bench = append(match.Home.Bench, 5) // also starts

	_, err := Reconstruct([]storage.MatchRecord{match}, nil, map[int]int{700: 90})
	if err == nil {
		t.Fatal("expected integrity error for duplicate listing")
	}

	var integrity *IntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("expected *IntegrityError, got %T", err)
	}
	want := PlayerRef{MatchID: 700, PlayerID: 5}
	if len(integrity.DuplicateListings) != 1 || integrity.DuplicateListings[0] != want {
		t.Errorf("violations: got %v, want [%v]", integrity.DuplicateListings, want)
	}
}

// A substitution exiting a player before they entered is reported rather
// than producing a negative interval.
func TestReconstruct_NegativeIntervalFails(t *testing.T) {
	match := rosterFixture(800)
	match.Home.Sub1 = &storage.SubSlot{PlayerIn: intPtr(12), PlayerOut: intPtr(1), Minute: 75}
	match.Home.Sub2 = &storage.SubSlot{PlayerIn: intPtr(13), PlayerOut: intPtr(12), Minute: 60}

	_, err := Reconstruct([]storage.MatchRecord{match}, ExtractSubstitutions([]storage.MatchRecord{match}), map[int]int{800: 90})
	var integrity *IntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("expected *IntegrityError, got %v", err)
	}
	if len(integrity.NegativeIntervals) != 1 {
		t.Errorf("expected 1 negative interval, got %v", integrity.NegativeIntervals)
	}
}

// A slot with structure but no incoming player is "slot unused", not an error.
func TestExtractSubstitutions_NullPlayerInDropped(t *testing.T) {
	match := rosterFixture(900)
	match.Home.Sub1 = &storage.SubSlot{PlayerIn: nil, PlayerOut: intPtr(4), Minute: 81}
	match.Home.Sub2 = &storage.SubSlot{PlayerIn: intPtr(14), PlayerOut: intPtr(9), Minute: 84}

	subs := ExtractSubstitutions([]storage.MatchRecord{match})
	if len(subs) != 1 {
		t.Fatalf("expected 1 substitution, got %d", len(subs))
	}
	if subs[0].PlayerInID != 14 || subs[0].Minute != 84 {
		t.Errorf("unexpected substitution %+v", subs[0])
	}
}

// Re-running the reconstruction over identical inputs yields byte-identical
// output.
func TestReconstruct_Deterministic(t *testing.T) {
	matchA := rosterFixture(1000)
	matchB := rosterFixture(1001)
	matchA.Home.Sub1 = &storage.SubSlot{PlayerIn: intPtr(12), PlayerOut: intPtr(6), Minute: 64}
	matchB.Away.Sub1 = &storage.SubSlot{PlayerIn: intPtr(34), PlayerOut: intPtr(28), Minute: 77}
	matches := []storage.MatchRecord{matchA, matchB}
	durations := map[int]int{1000: 91, 1001: 97}

	first, err := Reconstruct(matches, ExtractSubstitutions(matches), durations)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := Reconstruct(matches, ExtractSubstitutions(matches), durations)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Error("reruns over identical inputs differ")
	}
	if !reflect.DeepEqual(first.Career, second.Career) {
		t.Error("career totals differ between reruns")
	}
}
