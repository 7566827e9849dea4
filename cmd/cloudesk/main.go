package main

import (
	"log"

	"github.com/MrSnakeDoc/cloudesk/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		log.Fatalf("❌ cloudesk failed to start: %v", err)
	}
	if err := a.Run(); err != nil {
		log.Fatalf("❌ cloudesk failed: %v", err)
	}
}
