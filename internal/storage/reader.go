package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Prefixes used by the ingest rotators and expected by the readers.
const (
	PrefixPlayers = "players"
	PrefixMatches = "matches"
	PrefixEvents  = "events"
)

// WarmFiles lists the warm JSONL files for a prefix in name order.
func WarmFiles(warmDir, prefix string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(warmDir, prefix+"_*.jsonl"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ReadPlayers loads all player records from the warm directory.
func ReadPlayers(warmDir string) ([]PlayerRecord, error) {
	var players []PlayerRecord
	err := readLines(warmDir, PrefixPlayers, func(line []byte) error {
		var p PlayerRecord
		if err := json.Unmarshal(line, &p); err != nil {
			return err
		}
		players = append(players, p)
		return nil
	})
	return players, err
}

// ReadMatches loads all match roster records from the warm directory.
func ReadMatches(warmDir string) ([]MatchRecord, error) {
	var matches []MatchRecord
	err := readLines(warmDir, PrefixMatches, func(line []byte) error {
		var m MatchRecord
		if err := json.Unmarshal(line, &m); err != nil {
			return err
		}
		matches = append(matches, m)
		return nil
	})
	return matches, err
}

// ReadEvents loads all event records from the warm directory.
func ReadEvents(warmDir string) ([]EventRecord, error) {
	var events []EventRecord
	err := readLines(warmDir, PrefixEvents, func(line []byte) error {
		var e EventRecord
		if err := json.Unmarshal(line, &e); err != nil {
			return err
		}
		events = append(events, e)
		return nil
	})
	return events, err
}

// readLines streams every line of every warm file for a prefix through fn.
func readLines(warmDir, prefix string, fn func(line []byte) error) error {
	files, err := WarmFiles(warmDir, prefix)
	if err != nil {
		return err
	}

	for _, path := range files {
		file, err := os.Open(path)
		if err != nil {
			return err
		}

		scanner := bufio.NewScanner(file)
		scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

		lineNum := 0
		for scanner.Scan() {
			lineNum++
			if len(scanner.Bytes()) == 0 {
				continue
			}
			if err := fn(scanner.Bytes()); err != nil {
				file.Close()
				return fmt.Errorf("%s line %d: %w", filepath.Base(path), lineNum, err)
			}
		}
		if err := scanner.Err(); err != nil {
			file.Close()
			return fmt.Errorf("reading %s: %w", filepath.Base(path), err)
		}
		file.Close()
	}

	return nil
}
