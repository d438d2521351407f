package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	"match-analyzer/internal/db"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

var database *db.DB

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

	ctx := context.Background()

	// Connect to database
	var err error
	database, err = db.New(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/stats", handleStats).Methods(http.MethodGet)
	api.HandleFunc("/intervals/{matchId}", handleIntervals).Methods(http.MethodGet)
	api.HandleFunc("/players/{playerId}/minutes", handlePlayerMinutes).Methods(http.MethodGet)
	api.HandleFunc("/league-table", handleLeagueTable).Methods(http.MethodGet)
	api.HandleFunc("/role-leaders", handleRoleLeaders).Methods(http.MethodGet)
	api.HandleFunc("/plus-minus", handlePlusMinus).Methods(http.MethodGet)
	api.HandleFunc("/passing", handlePassing).Methods(http.MethodGet)

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	fmt.Printf("Server starting on http://localhost:%s\n", port)
	log.Fatal(http.ListenAndServe(":"+port, handler))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playerCount, err := database.GetPlayerCount(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	matchCount, err := database.GetMatchCount(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	eventCount, err := database.GetEventCount(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"players": playerCount,
		"matches": matchCount,
		"events":  eventCount,
	})
}

func handleIntervals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	matchID, err := strconv.Atoi(mux.Vars(r)["matchId"])
	if err != nil {
		http.Error(w, "invalid match ID", http.StatusBadRequest)
		return
	}

	intervals, err := database.GetPlayingIntervals(ctx, matchID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, intervals)
}

func handlePlayerMinutes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playerID, err := strconv.Atoi(mux.Vars(r)["playerId"])
	if err != nil {
		http.Error(w, "invalid player ID", http.StatusBadRequest)
		return
	}

	pm, err := database.GetPlayerMinutes(ctx, playerID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	writeJSON(w, pm)
}

func handleLeagueTable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	competition := r.URL.Query().Get("competition")
	season := r.URL.Query().Get("season")

	rows, err := database.GetLeagueTable(ctx, competition, season)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, rows)
}

func handleRoleLeaders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	leaders, err := database.GetRoleLeaders(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, leaders)
}

func handlePlusMinus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	rows, err := database.GetPlusMinus(ctx, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, rows)
}

func handlePassing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	competition := r.URL.Query().Get("competition")

	rows, err := database.GetTeamPassing(ctx, competition)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, rows)
}
