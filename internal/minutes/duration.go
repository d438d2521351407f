package minutes

import (
	"math"

	"match-analyzer/internal/storage"
)

const firstHalfMinutes = 45

// Durations computes total minutes played per match from event rows:
// the last second-half event time rounded up to a full minute, plus the
// nominal 45-minute first half. Matches without second-half events get
// no entry; their length is undefined.
func Durations(events []storage.EventRecord) map[int]int {
	last := make(map[int]float64)
	for _, ev := range events {
		if ev.MatchPeriod != "2H" {
			continue
		}
		if ev.EventSec > last[ev.MatchID] {
			last[ev.MatchID] = ev.EventSec
		}
	}

	durations := make(map[int]int, len(last))
	for matchID, sec := range last {
		durations[matchID] = int(math.Ceil(sec/60)) + firstHalfMinutes
	}
	return durations
}

// EventMinute converts an event's period and second offset into a match
// minute. Second-half events are offset by the nominal first half.
func EventMinute(ev *storage.EventRecord) int {
	minute := int(math.Ceil(ev.EventSec / 60))
	if ev.MatchPeriod == "2H" {
		minute += firstHalfMinutes
	}
	return minute
}
