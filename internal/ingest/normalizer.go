package ingest

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"match-analyzer/internal/storage"

	"github.com/bits-and-blooms/bloom/v3"
)

// RawStore mirrors normalized records into a database. A nil store
// disables mirroring; JSONL output always happens.
type RawStore interface {
	InsertPlayer(ctx context.Context, p *storage.PlayerRecord) error
	InsertMatch(ctx context.Context, m *storage.MatchRecord) error
	InsertEvent(ctx context.Context, e *storage.EventRecord) error
}

// Normalizer streams source exports into rotating JSONL files and
// deduplicates across input files. Exports frequently overlap (one file
// per competition, shared international matches), so match and event
// keys are tracked in bloom filters rather than exact sets.
type Normalizer struct {
	players *storage.FileRotator
	matches *storage.FileRotator
	events  *storage.FileRotator

	seenPlayers *bloom.BloomFilter
	seenMatches *bloom.BloomFilter
	seenEvents  *bloom.BloomFilter

	store RawStore

	// Stats (atomic, read by progress loggers)
	playersWritten int64
	matchesWritten int64
	eventsWritten  int64
	skipped        int64
}

// NewNormalizer creates rotators for all three record kinds under baseDir.
func NewNormalizer(baseDir string, store RawStore) (*Normalizer, error) {
	players, err := storage.NewFileRotator(baseDir, storage.PrefixPlayers)
	if err != nil {
		return nil, err
	}
	matches, err := storage.NewFileRotator(baseDir, storage.PrefixMatches)
	if err != nil {
		players.Close()
		return nil, err
	}
	events, err := storage.NewFileRotator(baseDir, storage.PrefixEvents)
	if err != nil {
		players.Close()
		matches.Close()
		return nil, err
	}

	return &Normalizer{
		players:     players,
		matches:     matches,
		events:      events,
		seenPlayers: bloom.NewWithEstimates(100000, 0.001),
		seenMatches: bloom.NewWithEstimates(100000, 0.001),
		seenEvents:  bloom.NewWithEstimates(10000000, 0.001),
		store:       store,
	}, nil
}

// AddPlayers writes player records not seen before in this run.
func (n *Normalizer) AddPlayers(ctx context.Context, players []storage.PlayerRecord) error {
	for i := range players {
		p := &players[i]
		if n.seenPlayers.TestAndAddString(strconv.Itoa(p.PlayerID)) {
			atomic.AddInt64(&n.skipped, 1)
			continue
		}
		if err := n.players.WriteRecord(p); err != nil {
			return fmt.Errorf("failed to write player %d: %w", p.PlayerID, err)
		}
		if n.store != nil {
			if err := n.store.InsertPlayer(ctx, p); err != nil {
				return fmt.Errorf("failed to store player %d: %w", p.PlayerID, err)
			}
		}
		atomic.AddInt64(&n.playersWritten, 1)
	}
	return nil
}

// AddMatches writes match roster records not seen before in this run.
func (n *Normalizer) AddMatches(ctx context.Context, matches []storage.MatchRecord) error {
	for i := range matches {
		m := &matches[i]
		if n.seenMatches.TestAndAddString(strconv.Itoa(m.MatchID)) {
			atomic.AddInt64(&n.skipped, 1)
			continue
		}
		if err := n.matches.WriteRecord(m); err != nil {
			return fmt.Errorf("failed to write match %d: %w", m.MatchID, err)
		}
		if n.store != nil {
			if err := n.store.InsertMatch(ctx, m); err != nil {
				return fmt.Errorf("failed to store match %d: %w", m.MatchID, err)
			}
		}
		atomic.AddInt64(&n.matchesWritten, 1)
	}
	return nil
}

// AddEvents writes event records not seen before in this run.
func (n *Normalizer) AddEvents(ctx context.Context, events []storage.EventRecord) error {
	for i := range events {
		e := &events[i]
		if n.seenEvents.TestAndAddString(strconv.Itoa(e.EventID)) {
			atomic.AddInt64(&n.skipped, 1)
			continue
		}
		if err := n.events.WriteRecord(e); err != nil {
			return fmt.Errorf("failed to write event %d: %w", e.EventID, err)
		}
		if n.store != nil {
			if err := n.store.InsertEvent(ctx, e); err != nil {
				return fmt.Errorf("failed to store event %d: %w", e.EventID, err)
			}
		}
		atomic.AddInt64(&n.eventsWritten, 1)
	}
	return nil
}

// Stats returns written/skipped counters for progress logging.
func (n *Normalizer) Stats() (players, matches, events, skipped int64) {
	return atomic.LoadInt64(&n.playersWritten),
		atomic.LoadInt64(&n.matchesWritten),
		atomic.LoadInt64(&n.eventsWritten),
		atomic.LoadInt64(&n.skipped)
}

// Close flushes and closes all rotators, moving partial files to warm.
func (n *Normalizer) Close() error {
	var firstErr error
	for _, r := range []*storage.FileRotator{n.players, n.matches, n.events} {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
