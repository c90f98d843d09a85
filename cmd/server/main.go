// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/Bhuwan-Shahi/TypingHub/internal/auth"
	"github.com/Bhuwan-Shahi/TypingHub/internal/cache"
	"github.com/Bhuwan-Shahi/TypingHub/internal/database"
	"github.com/Bhuwan-Shahi/TypingHub/internal/handlers"
	"github.com/Bhuwan-Shahi/TypingHub/internal/middleware"
	"github.com/Bhuwan-Shahi/TypingHub/internal/race"
)

func main() {
	auth.Init()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	// Postgres and Redis are optional: without them the server runs races
	// from the built-in text pool and skips result persistence.
	if database.Configured() {
		if err := database.ConnectDB(); err != nil {
			logger.Warnf("postgres unavailable, running without persistence: %v", err)
		}
	} else {
		logger.Info("PG_HOST not set, running without persistence")
	}
	if cache.Configured() {
		if err := cache.ConnectRedis(); err != nil {
			logger.Warnf("redis unavailable, result queue disabled: %v", err)
		}
	}

	srv := handlers.NewRaceServer(race.DefaultConfig(), logger)
	defer srv.Registry.Close()

	mux := http.NewServeMux()

	// room endpoints
	mux.Handle("/room/create", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.CreateRoomHandler(srv),
	)))
	mux.Handle("/room/quick", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.QuickRaceHandler(srv),
	)))
	mux.Handle("/room/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.GetRoomHandler(srv),
	)))

	// race websocket
	mux.Handle("/race/ws/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.RaceWSHandler(logger, srv),
	)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
