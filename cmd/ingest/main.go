package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"match-analyzer/internal/db"
	"match-analyzer/internal/feed"
	"match-analyzer/internal/ingest"
	"match-analyzer/internal/storage"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file - try multiple locations
	envPaths := []string{".env", "../.env", "../../.env", "match-analyzer/.env"}
	envLoaded := false
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			fmt.Printf("Loaded .env from: %s\n", path)
			envLoaded = true
			break
		}
	}
	if !envLoaded {
		log.Println("No .env file found, using environment variables")
	}

	// Parse flags
	playersPath := flag.String("players", "", "Path to players JSON file")
	matchesPath := flag.String("matches", "", "Path to matches JSON file")
	eventsPath := flag.String("events", "", "Path to events JSONL file")
	fromAPI := flag.Bool("from-api", false, "Pull records from the feed API instead of local files")
	competition := flag.String("competition", "", "Competition slug to pull when using --from-api")
	usePostgres := flag.Bool("postgres", false, "Also insert raw records into Postgres")
	flag.Parse()

	// Get blob storage path from env (required)
	dataDir := os.Getenv("BLOB_STORAGE_PATH")
	if dataDir == "" {
		log.Fatal("BLOB_STORAGE_PATH environment variable not set")
	}
	// Remove quotes if present (from .env parsing)
	dataDir = strings.Trim(dataDir, "\"")
	fmt.Printf("Using storage path: %s\n", dataDir)

	fileMode := *playersPath != "" || *matchesPath != "" || *eventsPath != ""
	if !fileMode && !*fromAPI {
		fmt.Println("Usage:")
		fmt.Println("  ingest --players=players.json --matches=matches.json --events=events.jsonl")
		fmt.Println("  ingest --from-api --competition=england [--postgres]")
		fmt.Println()
		fmt.Println("Storage path is set via BLOB_STORAGE_PATH in .env")
		fmt.Println()
		fmt.Println("Records are validated, deduplicated, and written to rotating JSONL files in:")
		fmt.Println("  hot/   - Active writes")
		fmt.Println("  warm/  - Closed files awaiting the reducer")
		fmt.Println("  cold/  - Compressed archives")
		os.Exit(1)
	}
	if *fromAPI && *competition == "" {
		log.Fatal("--from-api requires --competition")
	}

	// Optional raw store for Postgres mirroring
	var store ingest.RawStore
	if *usePostgres {
		database, err := db.New(context.Background())
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer database.Close()
		if err := database.CreateTables(context.Background()); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		store = database
	}

	normalizer, err := ingest.NewNormalizer(dataDir, store)
	if err != nil {
		log.Fatalf("Failed to create normalizer: %v", err)
	}

	ctx := ingest.SetupSignalHandler(func(context.Context) {
		if err := normalizer.Close(); err != nil {
			log.Printf("Error closing normalizer: %v", err)
		}
	})

	startTime := time.Now()

	if fileMode {
		runFileIngest(ctx, normalizer, *playersPath, *matchesPath, *eventsPath)
	} else {
		runAPIIngest(ctx, normalizer, *competition)
	}

	if err := normalizer.Close(); err != nil {
		log.Printf("Error closing normalizer: %v", err)
	}

	players, matches, events, skipped := normalizer.Stats()
	fmt.Printf("\n=== Ingest Complete ===\n")
	fmt.Printf("Total time: %s\n", time.Since(startTime).Round(time.Second))
	fmt.Printf("Players written: %d\n", players)
	fmt.Printf("Matches written: %d\n", matches)
	fmt.Printf("Events written: %d\n", events)
	fmt.Printf("Duplicates skipped: %d\n", skipped)
}

func runFileIngest(ctx context.Context, normalizer *ingest.Normalizer, playersPath, matchesPath, eventsPath string) {
	if playersPath != "" {
		fmt.Printf("\nLoading players from %s...\n", playersPath)
		players, err := ingest.LoadPlayers(playersPath)
		if err != nil {
			log.Fatalf("Failed to load players: %v", err)
		}
		if err := normalizer.AddPlayers(ctx, players); err != nil {
			log.Fatalf("Failed to ingest players: %v", err)
		}
		fmt.Printf("  Loaded %d players\n", len(players))
	}

	if matchesPath != "" {
		fmt.Printf("\nLoading matches from %s...\n", matchesPath)
		matches, err := ingest.LoadMatches(matchesPath)
		if err != nil {
			log.Fatalf("Failed to load matches: %v", err)
		}
		if err := normalizer.AddMatches(ctx, matches); err != nil {
			log.Fatalf("Failed to ingest matches: %v", err)
		}
		fmt.Printf("  Loaded %d matches\n", len(matches))
	}

	if eventsPath != "" {
		fmt.Printf("\nLoading events from %s...\n", eventsPath)
		events, err := ingest.LoadEvents(eventsPath)
		if err != nil {
			log.Fatalf("Failed to load events: %v", err)
		}
		if err := normalizer.AddEvents(ctx, events); err != nil {
			log.Fatalf("Failed to ingest events: %v", err)
		}
		fmt.Printf("  Loaded %d events\n", len(events))
	}
}

func runAPIIngest(ctx context.Context, normalizer *ingest.Normalizer, competition string) {
	client, err := feed.NewClient()
	if err != nil {
		log.Fatalf("Failed to create feed client: %v", err)
	}

	// Pull the player registry first so every later lookup resolves
	fmt.Println("\nFetching players...")
	for page := 1; ; page++ {
		select {
		case <-ctx.Done():
			fmt.Println("[Shutdown] Stopping ingest...")
			return
		default:
		}

		players, hasMore, err := client.GetPlayers(ctx, page)
		if err != nil {
			log.Fatalf("Failed to fetch players page %d: %v", page, err)
		}
		if err := normalizer.AddPlayers(ctx, players); err != nil {
			log.Fatalf("Failed to ingest players: %v", err)
		}
		fmt.Printf("  [page %d] %d players\n", page, len(players))
		if !hasMore {
			break
		}
	}

	fmt.Printf("\nFetching matches for %s...\n", competition)
	var allMatches []storage.MatchRecord
	for page := 1; ; page++ {
		select {
		case <-ctx.Done():
			fmt.Println("[Shutdown] Stopping ingest...")
			return
		default:
		}

		matches, hasMore, err := client.GetMatches(ctx, competition, page)
		if err != nil {
			log.Fatalf("Failed to fetch matches page %d: %v", page, err)
		}
		if err := normalizer.AddMatches(ctx, matches); err != nil {
			log.Fatalf("Failed to ingest matches: %v", err)
		}
		allMatches = append(allMatches, matches...)
		fmt.Printf("  [page %d] %d matches\n", page, len(matches))
		if !hasMore {
			break
		}
	}

	fmt.Printf("\nFetching events for %d matches...\n", len(allMatches))
	for i, match := range allMatches {
		select {
		case <-ctx.Done():
			fmt.Println("[Shutdown] Stopping ingest...")
			return
		default:
		}

		events, err := client.GetEvents(ctx, match.MatchID)
		if err != nil {
			log.Printf("  [%d/%d] Failed to fetch events for match %d: %v",
				i+1, len(allMatches), match.MatchID, err)
			continue
		}
		if err := normalizer.AddEvents(ctx, events); err != nil {
			log.Fatalf("Failed to ingest events: %v", err)
		}
		fmt.Printf("  [%d/%d] Match %d: %d events\n", i+1, len(allMatches), match.MatchID, len(events))
	}
}
