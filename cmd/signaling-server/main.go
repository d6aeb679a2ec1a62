package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/dodger215/e-learnig-app/internal/logging"
	"github.com/dodger215/e-learnig-app/internal/relay"
)

func main() {
	logging.Init()

	var presence *relay.Presence
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		presence = relay.NewPresence(addr)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := presence.Ping(ctx); err != nil {
			log.Fatalf("redis unreachable at %s: %v", addr, err)
		}
		cancel()
	}

	hub := relay.NewHub(presence)
	go hub.Run()

	router := relay.NewRouter(hub, relay.Options{
		JWTSecret: os.Getenv("JWT_SECRET"),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}

	log.Printf("Starting signaling server on http://localhost:%s", port)
	log.Fatal(router.Run(":" + port))
}
