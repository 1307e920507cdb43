package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/wardenbot/warden/internal/bot"
	"github.com/wardenbot/warden/internal/report"
	"github.com/wardenbot/warden/internal/setup"
)

func main() {
	// Initialize application with required dependencies
	app, err := setup.Initialize()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.Cleanup()

	// The questionnaire tree is loaded and validated once; a malformed
	// tree is fatal at startup rather than mid-report.
	tree, err := report.LoadTree(app.Config.Bot.Report.TreePath)
	if err != nil {
		log.Fatalf("Failed to load report tree: %v", err)
	}

	// Create bot instance
	discordBot, err := bot.New(&app.Config.Bot, tree, app.Classifier, app.Logger)
	if err != nil {
		log.Printf("Failed to create bot: %v", err)
		return
	}

	ctx := context.Background()

	// Start the bot and connect to Discord
	if err := discordBot.Start(ctx); err != nil {
		log.Printf("Failed to start bot: %v", err)
		return
	}

	log.Println("Bot has been started. Waiting for interrupt signal to gracefully shutdown...")

	// Wait for interrupt signal to gracefully shutdown the bot
	// This ensures all pending events are processed before closing
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	// Cleanly close down the Discord session
	discordBot.Close(ctx)
}
