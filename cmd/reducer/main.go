package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"match-analyzer/internal/db"
	"match-analyzer/internal/minutes"
	"match-analyzer/internal/notify"
	"match-analyzer/internal/storage"
	"match-analyzer/internal/tables"

	"github.com/joho/godotenv"
)

// CLI flags
var (
	outputDir    = flag.String("output-dir", "./export", "Directory to output minutes.json")
	skipJSON     = flag.Bool("skip-json", false, "Skip JSON export")
	skipPostgres = flag.Bool("skip-postgres", false, "Skip writing derived tables to Postgres")
	skipTurso    = flag.Bool("skip-turso", false, "Skip pushing to Turso")
)

// DataExport is the shape of minutes.json
type DataExport struct {
	Batch       string                    `json:"batch"`
	GeneratedAt string                    `json:"generatedAt"`
	Intervals   []minutes.PlayingInterval `json:"playingIntervals"`
	Career      []minutes.CareerMinutes   `json:"careerMinutes"`
	LeagueTable []tables.TableRow         `json:"leagueTable"`
	RoleLeaders []tables.RoleLeader       `json:"roleLeaders"`
	PlusMinus   []tables.PlayerPlusMinus  `json:"plusMinus"`
	Passing     []tables.TeamPassing      `json:"teamPassing"`
	Weakest     []tables.TeamPassing      `json:"weakestPassers"`
}

// ManifestJSON represents the manifest.json structure
type ManifestJSON struct {
	Batch     string `json:"batch"`
	DataURL   string `json:"data_url"`
	SHA256    string `json:"sha256"`
	UpdatedAt string `json:"updated_at"`
}

func main() {
	flag.Parse()
	start := time.Now()

	// Load .env
	envPaths := []string{".env", "../.env", "../../.env", "match-analyzer/.env"}
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			fmt.Printf("Loaded .env from: %s\n", path)
			break
		}
	}

	// Get storage path
	storagePath := os.Getenv("BLOB_STORAGE_PATH")
	if storagePath == "" {
		log.Fatal("BLOB_STORAGE_PATH environment variable not set")
	}
	storagePath = strings.Trim(storagePath, "\"")

	warmDir := filepath.Join(storagePath, "warm")
	coldDir := filepath.Join(storagePath, "cold")

	if err := os.MkdirAll(coldDir, 0755); err != nil {
		log.Fatalf("Failed to create cold directory: %v", err)
	}

	// Load the three record streams from warm storage
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

	if len(matches) == 0 {
		fmt.Println("No matches to process in warm directory")
		return
	}

	fmt.Printf("Loaded %d players, %d matches, %d events\n", len(players), len(matches), len(events))

	webhook := newWebhookClient()

	// Reconstruct playing intervals
	fmt.Printf("\n=== Reconstructing Playing Time ===\n")
	durations := minutes.Durations(events)
	subs := minutes.ExtractSubstitutions(matches)
	fmt.Printf("Resolved durations for %d matches, %d substitution events\n", len(durations), len(subs))

	result, err := minutes.Reconstruct(matches, subs, durations)
	if err != nil {
		reportIntegrityFailure(webhook, err)
	}

	fmt.Printf("Reconstructed %d playing intervals (%d career totals)\n",
		len(result.Intervals), len(result.Career))
	if n := len(result.Report.MissingDuration); n > 0 {
		fmt.Printf("Excluded %d entries with undefined match duration:\n", n)
		for _, ref := range sampleRefs(result.Report.MissingDuration, 10) {
			fmt.Printf("  %s\n", ref)
		}
	}

	// Downstream aggregations
	fmt.Printf("\n=== Aggregating Tables ===\n")
	leagueTable := tables.LeagueTables(matches)
	roleLeaders := tables.TopByRole(result.Career, players)
	goals := tables.GoalEvents(events, matches)
	plusMinus := tables.PlusMinus(result.Intervals, goals)
	passing := tables.PassRatios(events, matches)
	weakest := tables.WeakestPassers(passing)

	fmt.Printf("League table: %d rows\n", len(leagueTable))
	fmt.Printf("Role leaders: %d rows\n", len(roleLeaders))
	fmt.Printf("Plus-minus: %d players (%d goals)\n", len(plusMinus), len(goals))
	fmt.Printf("Team passing: %d rows (%d weakest)\n", len(passing), len(weakest))

	batch := time.Now().UTC().Format("20060102-150405")

	// Export to JSON (default: enabled)
	if !*skipJSON {
		fmt.Printf("\n=== Exporting JSON ===\n")
		export := DataExport{
			Batch:       batch,
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
			Intervals:   result.Intervals,
			Career:      result.Career,
			LeagueTable: leagueTable,
			RoleLeaders: roleLeaders,
			PlusMinus:   plusMinus,
			Passing:     passing,
			Weakest:     weakest,
		}
		if err := exportToJSON(*outputDir, export); err != nil {
			log.Fatalf("Failed to export JSON: %v", err)
		}
		fmt.Printf("Exported to: %s\n", *outputDir)
	}

	ctx := context.Background()

	// Write derived tables to Postgres (default: enabled)
	if !*skipPostgres {
		fmt.Printf("\n=== Writing to Postgres ===\n")
		if err := writeToPostgres(ctx, result, leagueTable, roleLeaders, plusMinus, passing); err != nil {
			log.Fatalf("Failed to write to Postgres: %v", err)
		}
		fmt.Println("Derived tables written")
	}

	// Push to Turso (default: enabled if TURSO_DATABASE_URL is set)
	if !*skipTurso && os.Getenv("TURSO_DATABASE_URL") != "" {
		fmt.Printf("\n=== Pushing to Turso ===\n")
		if err := pushToTurso(ctx, batch, result.Career, leagueTable, roleLeaders, plusMinus); err != nil {
			log.Fatalf("Failed to push to Turso: %v", err)
		}
		fmt.Println("Successfully pushed to Turso")
	} else if !*skipTurso && os.Getenv("TURSO_DATABASE_URL") == "" {
		fmt.Println("\n[Skipping Turso push - TURSO_DATABASE_URL not set]")
	}

	// Archive files after successful processing
	archiveWarmFiles(warmDir, coldDir)

	if webhook != nil {
		if err := webhook.SendBatchComplete(ctx, len(matches), len(result.Intervals),
			len(result.Report.MissingDuration), time.Since(start)); err != nil {
			log.Printf("Warning: failed to send completion webhook: %v", err)
		}
	}

	fmt.Println("\n=== Reducer Complete ===")
}

func newWebhookClient() *notify.WebhookClient {
	url := os.Getenv("DISCORD_WEBHOOK_URL")
	if url == "" {
		return nil
	}
	return notify.NewWebhookClient(url)
}

// reportIntegrityFailure prints the violations, alerts the webhook, and exits.
// A batch with inconsistent source data never produces partial output.
func reportIntegrityFailure(webhook *notify.WebhookClient, err error) {
	fmt.Fprintf(os.Stderr, "Integrity check failed: %v\n", err)

	var sample []string
	if ierr, ok := err.(*minutes.IntegrityError); ok {
		refs := ierr.Records()
		for _, ref := range sampleRefs(refs, 10) {
			fmt.Fprintf(os.Stderr, "  %s\n", ref)
			sample = append(sample, ref)
		}
		if webhook != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if werr := webhook.SendIntegrityAlert(ctx, len(refs), sample); werr != nil {
				log.Printf("Warning: failed to send integrity alert: %v", werr)
			}
		}
	}

	os.Exit(1)
}

func sampleRefs(refs []minutes.PlayerRef, max int) []string {
	out := make([]string, 0, max)
	for i, ref := range refs {
		if i >= max {
			break
		}
		out = append(out, ref.String())
	}
	return out
}

// exportToJSON writes minutes.json and manifest.json to the output directory
func exportToJSON(outputDir string, export DataExport) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	dataPath := filepath.Join(outputDir, "minutes.json")
	dataFile, err := os.Create(dataPath)
	if err != nil {
		return fmt.Errorf("failed to create minutes.json: %w", err)
	}
	defer dataFile.Close()

	// Write to file and compute SHA256 simultaneously
	hasher := sha256.New()
	multiWriter := io.MultiWriter(dataFile, hasher)

	encoder := json.NewEncoder(multiWriter)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(export); err != nil {
		return fmt.Errorf("failed to write minutes.json: %w", err)
	}

	dataSha256 := hex.EncodeToString(hasher.Sum(nil))

	fmt.Printf("  Wrote minutes.json: %d intervals, %d career totals, %d table rows\n",
		len(export.Intervals), len(export.Career), len(export.LeagueTable))
	fmt.Printf("  SHA256: %s\n", dataSha256)

	manifest := ManifestJSON{
		Batch:     export.Batch,
		DataURL:   "", // To be filled in by user when uploading
		SHA256:    dataSha256,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}

	manifestPath := filepath.Join(outputDir, "manifest.json")
	manifestFile, err := os.Create(manifestPath)
	if err != nil {
		return fmt.Errorf("failed to create manifest.json: %w", err)
	}
	defer manifestFile.Close()

	manifestEncoder := json.NewEncoder(manifestFile)
	manifestEncoder.SetIndent("", "  ")
	if err := manifestEncoder.Encode(manifest); err != nil {
		return fmt.Errorf("failed to write manifest.json: %w", err)
	}

	fmt.Printf("  Wrote manifest.json: batch=%s\n", export.Batch)
	return nil
}

// writeToPostgres replaces the derived tables in a single pass
func writeToPostgres(ctx context.Context, result *minutes.Result,
	leagueTable []tables.TableRow, roleLeaders []tables.RoleLeader,
	plusMinus []tables.PlayerPlusMinus, passing []tables.TeamPassing) error {

	database, err := db.New(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	if err := database.CreateTables(ctx); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"playing intervals", func() error { return database.ReplacePlayingIntervals(ctx, result.Intervals) }},
		{"career minutes", func() error { return database.ReplaceCareerMinutes(ctx, result.Career) }},
		{"league table", func() error { return database.ReplaceLeagueTable(ctx, leagueTable) }},
		{"role leaders", func() error { return database.ReplaceRoleLeaders(ctx, roleLeaders) }},
		{"plus minus", func() error { return database.ReplacePlusMinus(ctx, plusMinus) }},
		{"team passing", func() error { return database.ReplaceTeamPassing(ctx, passing) }},
	}

	for _, step := range steps {
		fmt.Printf("  Replacing %s...\n", step.name)
		if err := step.fn(); err != nil {
			return fmt.Errorf("failed to replace %s: %w", step.name, err)
		}
	}

	return nil
}

// pushToTurso publishes the derived tables to Turso for app consumption
func pushToTurso(ctx context.Context, batch string, career []minutes.CareerMinutes,
	leagueTable []tables.TableRow, roleLeaders []tables.RoleLeader,
	plusMinus []tables.PlayerPlusMinus) error {

	tursoURL := os.Getenv("TURSO_DATABASE_URL")
	tursoToken := os.Getenv("TURSO_AUTH_TOKEN")

	if tursoURL == "" {
		return fmt.Errorf("TURSO_DATABASE_URL environment variable not set")
	}

	fmt.Printf("Connecting to Turso: %s\n", tursoURL)

	client, err := db.NewTursoClient(tursoURL, tursoToken)
	if err != nil {
		return fmt.Errorf("failed to connect to Turso: %w", err)
	}
	defer client.Close()

	fmt.Println("Creating tables...")
	if err := client.CreateTables(ctx); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	fmt.Println("Clearing existing data...")
	if err := client.ClearData(ctx); err != nil {
		return fmt.Errorf("failed to clear data: %w", err)
	}

	fmt.Println("Setting data version...")
	if err := client.SetDataVersion(ctx, batch); err != nil {
		return fmt.Errorf("failed to set data version: %w", err)
	}

	fmt.Printf("Inserting %d career totals...\n", len(career))
	if err := client.InsertCareerMinutes(ctx, career); err != nil {
		return fmt.Errorf("failed to insert career minutes: %w", err)
	}

	fmt.Printf("Inserting %d league table rows...\n", len(leagueTable))
	if err := client.InsertLeagueTable(ctx, leagueTable); err != nil {
		return fmt.Errorf("failed to insert league table: %w", err)
	}

	fmt.Printf("Inserting %d role leaders...\n", len(roleLeaders))
	if err := client.InsertRoleLeaders(ctx, roleLeaders); err != nil {
		return fmt.Errorf("failed to insert role leaders: %w", err)
	}

	fmt.Printf("Inserting %d plus-minus rows...\n", len(plusMinus))
	if err := client.InsertPlusMinus(ctx, plusMinus); err != nil {
		return fmt.Errorf("failed to insert plus minus: %w", err)
	}

	fmt.Println("Turso push complete!")
	return nil
}

// archiveWarmFiles gzips every processed warm file into cold storage
func archiveWarmFiles(warmDir, coldDir string) {
	for _, prefix := range []string{storage.PrefixPlayers, storage.PrefixMatches, storage.PrefixEvents} {
		files, err := storage.WarmFiles(warmDir, prefix)
		if err != nil {
			log.Printf("Warning: failed to scan warm %s files: %v", prefix, err)
			continue
		}
		for _, path := range files {
			if err := storage.CompressToCold(path, coldDir); err != nil {
				log.Printf("Warning: failed to archive %s: %v", filepath.Base(path), err)
			}
		}
	}
}
