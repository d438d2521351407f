package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"match-analyzer/internal/minutes"
	"match-analyzer/internal/storage"

	"github.com/joho/godotenv"
)

// validate is a dry run of the reducer's integrity checks. It reads warm
// storage, reports every violation it finds, and exits non-zero if the
// reducer would refuse the batch. Nothing is written or archived.
func main() {
	godotenv.Load()

	storagePath := os.Getenv("BLOB_STORAGE_PATH")
	if storagePath == "" {
		fmt.Println("Usage: BLOB_STORAGE_PATH=/path/to/storage go run cmd/validate/main.go")
		os.Exit(1)
	}
	storagePath = strings.Trim(storagePath, "\"")
	warmDir := filepath.Join(storagePath, "warm")

	// Step 1: Load warm storage
	fmt.Printf("\n1. Reading warm storage: %s\n", warmDir)
	players, err := storage.ReadPlayers(warmDir)
	if err != nil {
		log.Fatalf("Failed to read players: %v", err)
	}
	matches, err := storage.ReadMatches(warmDir)
	if err != nil {
		log.Fatalf("Failed to read matches: %v", err)
	}
	events, err := storage.ReadEvents(warmDir)
	if err != nil {
		log.Fatalf("Failed to read events: %v", err)
	}
	fmt.Printf("   %d players, %d matches, %d events\n", len(players), len(matches), len(events))

	if len(matches) == 0 {
		fmt.Println("   No matches in warm storage, nothing to validate")
		return
	}

	// Step 2: Check match durations
	fmt.Printf("\n2. Checking match durations...\n")
	durations := minutes.Durations(events)
	missing := 0
	for _, m := range matches {
		if _, ok := durations[m.MatchID]; !ok {
			missing++
			if missing <= 10 {
				fmt.Printf("   Match %d has no second-half events (duration undefined)\n", m.MatchID)
			}
		}
	}
	if missing > 10 {
		fmt.Printf("   ... and %d more\n", missing-10)
	}
	if missing == 0 {
		fmt.Printf("   All %d matches have a resolvable duration\n", len(matches))
	}

	// Step 3: Dry-run the reconstruction
	fmt.Printf("\n3. Reconstructing playing time...\n")
	subs := minutes.ExtractSubstitutions(matches)
	fmt.Printf("   %d substitution events\n", len(subs))

	result, err := minutes.Reconstruct(matches, subs, durations)
	if err != nil {
		var ierr *minutes.IntegrityError
		if errors.As(err, &ierr) {
			fmt.Printf("   INTEGRITY VIOLATIONS: %v\n", ierr)
			for i, ref := range ierr.Records() {
				if i >= 20 {
					fmt.Printf("   ... and %d more\n", len(ierr.Records())-20)
					break
				}
				fmt.Printf("   - %s\n", ref)
			}
			fmt.Println("\nResult: FAIL (the reducer would refuse this batch)")
			os.Exit(1)
		}
		log.Fatalf("Reconstruction failed: %v", err)
	}

	fmt.Printf("   %d intervals, %d career totals\n", len(result.Intervals), len(result.Career))
	if n := len(result.Report.MissingDuration); n > 0 {
		fmt.Printf("   %d lineup entries excluded for undefined duration (reported, not fatal)\n", n)
	}

	// Step 4: Cross-check player references
	fmt.Printf("\n4. Checking player references...\n")
	known := make(map[int]bool, len(players))
	for _, p := range players {
		known[p.PlayerID] = true
	}
	unknown := 0
	for _, iv := range result.Intervals {
		if !known[iv.PlayerID] {
			unknown++
		}
	}
	if unknown > 0 {
		fmt.Printf("   %d intervals reference players missing from the registry\n", unknown)
		fmt.Println("   (role leaders will skip these players)")
	} else {
		fmt.Println("   All interval players are present in the registry")
	}

	fmt.Println("\nResult: PASS (the reducer would accept this batch)")
}
