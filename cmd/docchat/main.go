package main

import (
	"context"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"docchat/internal/backend"
	"docchat/internal/config"
	"docchat/internal/input"
	"docchat/internal/models"
	"docchat/internal/query"
	"docchat/internal/transcript"
	"docchat/internal/tui"
	"docchat/internal/uploads"
)

func main() {
	cfg, err := config.Load(os.Getenv("DOCCHAT_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// The terminal belongs to the UI; logs go to a file.
	if cfg.Client.LogFile != "" {
		f, err := tea.LogToFile(cfg.Client.LogFile, "docchat")
		if err != nil {
			log.Fatalf("open log file: %v", err)
		}
		defer f.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := backend.NewClient(cfg.Client.QueryURL, cfg.Client.UploadURL)
	store := transcript.NewStore()
	session := query.NewSession()
	coordinator := query.NewCoordinator(store, session, client, cfg.Client.QueryTimeout.Std())
	tracker := uploads.NewTracker(client, cfg.Client.UploadTimeout.Std())
	tracker.OnTransition(func(id string, status models.UploadStatus) {
		log.Printf("upload %s -> %s", id, status)
	})
	controller := input.NewController(ctx, session, coordinator)

	log.Printf("query backend %s, ingestion backend %s", cfg.Client.QueryURL, cfg.Client.UploadURL)
	model := tui.New(ctx, tui.Deps{
		Transcript: store,
		Tracker:    tracker,
		Controller: controller,
		Accept:     cfg.Client.Accept,
	})
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		log.Fatalf("run ui: %v", err)
	}

	// Abandon outstanding requests; their goroutines settle on cancellation.
	cancel()
	coordinator.Wait()
	tracker.Wait()
}
