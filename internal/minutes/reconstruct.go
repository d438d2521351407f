package minutes

import (
	"fmt"
	"sort"
	"strings"

	"match-analyzer/internal/storage"
)

// IntegrityError reports roster rows that violate batch invariants. The
// batch either produces a fully valid result set or fails with the
// violating records listed; there is no partial output.
type IntegrityError struct {
	// DuplicateListings are (match, player) pairs named more than once
	// across a match's lineup and bench lists, or named in a lineup and
	// again as an incoming substitute.
	DuplicateListings []PlayerRef

	// NegativeIntervals are entries whose resolved exit minute precedes
	// their entry minute (a substitution slot pointing backwards in time).
	NegativeIntervals []PlayerRef
}

func (e *IntegrityError) Error() string {
	var parts []string
	if len(e.DuplicateListings) > 0 {
		parts = append(parts, fmt.Sprintf("%d duplicate roster listings", len(e.DuplicateListings)))
	}
	if len(e.NegativeIntervals) > 0 {
		parts = append(parts, fmt.Sprintf("%d negative intervals", len(e.NegativeIntervals)))
	}
	return "roster integrity violations: " + strings.Join(parts, ", ")
}

// Records returns every violating record reference for reporting.
func (e *IntegrityError) Records() []PlayerRef {
	refs := make([]PlayerRef, 0, len(e.DuplicateListings)+len(e.NegativeIntervals))
	refs = append(refs, e.DuplicateListings...)
	refs = append(refs, e.NegativeIntervals...)
	return refs
}

// Report describes records the reconstruction excluded from the output.
// These are data-quality gaps, not fatal violations.
type Report struct {
	// MissingDuration lists on-pitch entries in matches whose length is
	// undefined (no second-half events). They are excluded explicitly
	// rather than treated as zero minutes.
	MissingDuration []PlayerRef
}

// Result is the complete output of one reconstruction run.
type Result struct {
	Intervals []PlayingInterval
	Career    []CareerMinutes
	Report    Report
}

// entry is one (match, player) appearance with a known entry minute,
// before its exit minute is resolved.
type entry struct {
	matchID  int
	teamID   int
	playerID int
	source   EntrySource
	start    int
}

// Reconstruct combines lineups, substitutions and match durations into one
// PlayingInterval per (match, player) pair that appeared as a starter,
// incoming substitute, or bench player:
//
//  1. starters seed intervals at minute 0, incoming substitutes at their
//     substitution minute (an explicit merge keyed on the compound pair,
//     so duplicate rows cannot slip through a union)
//  2. every on-pitch entry defaults its exit to the full match length
//  3. a later substitution naming the player as outgoing overrides the exit
//  4. bench players never substituted in get a zero-minute interval
//
// Rosters that list the same player twice fail the whole batch with an
// *IntegrityError rather than silently picking one listing.
func Reconstruct(matches []storage.MatchRecord, subs []SubstitutionEvent, durations map[int]int) (*Result, error) {
	integrity := &IntegrityError{}

	// Pass 1: validate roster listings per match. The scope of the seen
	// set is a single match: a player benched in one match and starting
	// in another is legitimate.
	for i := range matches {
		m := &matches[i]
		listed := make(map[int]bool)
		for _, sheet := range []*storage.TeamSheet{&m.Home, &m.Away} {
			for _, id := range sheet.Lineup {
				if listed[id] {
					integrity.DuplicateListings = append(integrity.DuplicateListings, PlayerRef{m.MatchID, id})
					continue
				}
				listed[id] = true
			}
			for _, id := range sheet.Bench {
				if listed[id] {
					integrity.DuplicateListings = append(integrity.DuplicateListings, PlayerRef{m.MatchID, id})
					continue
				}
				listed[id] = true
			}
		}
	}

	// Pass 2: merge starters and incoming substitutes into on-pitch
	// entries keyed on (match, player).
	entries := make(map[PlayerRef]entry)
	order := make([]PlayerRef, 0)

	for i := range matches {
		m := &matches[i]
		for _, sheet := range []*storage.TeamSheet{&m.Home, &m.Away} {
			for _, id := range sheet.Lineup {
				ref := PlayerRef{m.MatchID, id}
				if _, ok := entries[ref]; ok {
					continue // already reported as a duplicate listing
				}
				entries[ref] = entry{m.MatchID, sheet.TeamID, id, EntryStarter, 0}
				order = append(order, ref)
			}
		}
	}

	subbedIn := make(map[PlayerRef]bool, len(subs))
	for _, sub := range subs {
		ref := PlayerRef{sub.MatchID, sub.PlayerInID}
		subbedIn[ref] = true
		if _, ok := entries[ref]; ok {
			// A starter cannot come on again, and a player cannot be
			// substituted in twice.
			integrity.DuplicateListings = append(integrity.DuplicateListings, ref)
			continue
		}
		entries[ref] = entry{sub.MatchID, sub.TeamID, sub.PlayerInID, EntrySubstitute, sub.Minute}
		order = append(order, ref)
	}

	// Pass 3: resolve exit minutes. The default is the full match length;
	// a substitution naming the player as outgoing overrides it.
	outAt := make(map[PlayerRef]int, len(subs))
	for _, sub := range subs {
		if sub.PlayerOutID != 0 {
			outAt[PlayerRef{sub.MatchID, sub.PlayerOutID}] = sub.Minute
		}
	}

	result := &Result{}
	for _, ref := range order {
		en := entries[ref]

		length, ok := durations[en.matchID]
		if !ok {
			// Undefined match length. Treating it as zero minutes would
			// corrupt career totals, so the entry is excluded and reported.
			result.Report.MissingDuration = append(result.Report.MissingDuration, ref)
			continue
		}

		end := length
		if m, ok := outAt[ref]; ok {
			end = m
		}

		if end < en.start {
			integrity.NegativeIntervals = append(integrity.NegativeIntervals, ref)
			continue
		}

		start := en.start
		endCopy := end
		result.Intervals = append(result.Intervals, PlayingInterval{
			MatchID:  en.matchID,
			TeamID:   en.teamID,
			PlayerID: en.playerID,
			Start:    &start,
			End:      &endCopy,
			Minutes:  end - en.start,
		})
	}

	// Pass 4: zero-minute intervals for bench players never used. The
	// anti-join is keyed on the compound (match, player) pair; a global
	// player-only key would wrongly drop a bench appearance because the
	// player came on in some other match.
	for i := range matches {
		m := &matches[i]
		for _, sheet := range []*storage.TeamSheet{&m.Home, &m.Away} {
			for _, id := range sheet.Bench {
				if subbedIn[PlayerRef{m.MatchID, id}] {
					continue
				}
				result.Intervals = append(result.Intervals, PlayingInterval{
					MatchID:  m.MatchID,
					TeamID:   sheet.TeamID,
					PlayerID: id,
					Minutes:  0,
				})
			}
		}
	}

	if len(integrity.DuplicateListings) > 0 || len(integrity.NegativeIntervals) > 0 {
		return nil, integrity
	}

	sort.Slice(result.Intervals, func(i, j int) bool {
		a, b := result.Intervals[i], result.Intervals[j]
		if a.MatchID != b.MatchID {
			return a.MatchID < b.MatchID
		}
		if a.TeamID != b.TeamID {
			return a.TeamID < b.TeamID
		}
		return a.PlayerID < b.PlayerID
	})

	result.Career = AggregateCareer(result.Intervals)
	return result, nil
}

// AggregateCareer sums minutes per player across all intervals in the batch.
// The output is sorted by player ID so reruns are byte-identical.
func AggregateCareer(intervals []PlayingInterval) []CareerMinutes {
	totals := make(map[int]int)
	for _, iv := range intervals {
		totals[iv.PlayerID] += iv.Minutes
	}

	career := make([]CareerMinutes, 0, len(totals))
	for playerID, mins := range totals {
		career = append(career, CareerMinutes{PlayerID: playerID, Minutes: mins})
	}
	sort.Slice(career, func(i, j int) bool { return career[i].PlayerID < career[j].PlayerID })
	return career
}
