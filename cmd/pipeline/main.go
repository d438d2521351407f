package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	// Flags
	playersPath := flag.String("players", "", "Path to players JSON file")
	matchesPath := flag.String("matches", "", "Path to matches JSON file")
	eventsPath := flag.String("events", "", "Path to events JSONL file")
	outputDir := flag.String("output-dir", "./export", "Directory for reducer output")
	skipIngest := flag.Bool("reduce-only", false, "Skip ingest, only run reducer")
	flag.Parse()

	// Load .env
	envPaths := []string{".env", "../.env", "../../.env", "match-analyzer/.env"}
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			fmt.Printf("Loaded .env from: %s\n", path)
			break
		}
	}

	// Find the module directory
	moduleDir := findModuleDir()
	if moduleDir == "" {
		log.Fatal("Could not find match-analyzer directory")
	}
	fmt.Printf("Working directory: %s\n", moduleDir)

	startTime := time.Now()

	// Step 1: Run ingest (unless skip flag set)
	if !*skipIngest {
		if *playersPath == "" && *matchesPath == "" && *eventsPath == "" {
			log.Fatal("at least one of --players/--matches/--events is required (or use --reduce-only)")
		}

		fmt.Println("\n========================================")
		fmt.Println("STEP 1: INGESTING MATCH LOGS")
		fmt.Print("========================================\n\n")

		ingestArgs := []string{"run", "./cmd/ingest"}
		if *playersPath != "" {
			ingestArgs = append(ingestArgs, "--players="+*playersPath)
		}
		if *matchesPath != "" {
			ingestArgs = append(ingestArgs, "--matches="+*matchesPath)
		}
		if *eventsPath != "" {
			ingestArgs = append(ingestArgs, "--events="+*eventsPath)
		}

		if err := runCommand(moduleDir, "go", ingestArgs...); err != nil {
			log.Fatalf("Ingest failed: %v", err)
		}

		fmt.Printf("\nIngest completed in %s\n", time.Since(startTime).Round(time.Second))
	}

	// Step 2: Run reducer
	fmt.Println("\n========================================")
	fmt.Println("STEP 2: REDUCING & EXPORTING DATA")
	fmt.Print("========================================\n\n")

	reducerArgs := []string{
		"run", "./cmd/reducer",
		"--output-dir=" + *outputDir,
	}

	if err := runCommand(moduleDir, "go", reducerArgs...); err != nil {
		log.Fatalf("Reducer failed: %v", err)
	}

	totalTime := time.Since(startTime).Round(time.Second)

	fmt.Println("\n========================================")
	fmt.Println("PIPELINE COMPLETE")
	fmt.Println("========================================")
	fmt.Printf("Total time: %s\n", totalTime)
	fmt.Printf("Output: %s/minutes.json\n", *outputDir)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Upload minutes.json to your CDN")
	fmt.Println("  2. Update manifest.json with the new data URL")
	fmt.Println("  3. Restart the stats server to pick up the new tables")
}

func runCommand(dir, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	fmt.Printf("Running: %s %s\n\n", name, strings.Join(args, " "))
	return cmd.Run()
}

func findModuleDir() string {
	// Try common locations
	candidates := []string{
		".",
		"match-analyzer",
		"../match-analyzer",
		"../../match-analyzer",
	}

	for _, candidate := range candidates {
		path := filepath.Join(candidate, "cmd", "ingest", "main.go")
		if _, err := os.Stat(path); err == nil {
			abs, _ := filepath.Abs(candidate)
			return abs
		}
	}

	return ""
}
