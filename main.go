package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/margin-sh/margin/internal/api"
	"github.com/margin-sh/margin/internal/cache"
	"github.com/margin-sh/margin/internal/config"
	"github.com/margin-sh/margin/internal/logging"
	"github.com/margin-sh/margin/internal/ui"
)

func main() {
	configPath := flag.String("config", "", "path to margin.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		log.Fatalf("creating cache dir: %v", err)
	}

	logger, err := logging.New(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		log.Fatalf("opening log: %v", err)
	}
	defer logger.Sync()

	db, err := cache.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("opening cache: %v", err)
	}
	defer db.Close()

	client := api.NewClient(cfg.APIBaseURL, logger)

	// Warm the trending feed while the UI starts.
	go prefetch(client, db, cfg)

	app := ui.NewApp(cfg, client, db, logger)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	app.SetProgram(p)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func prefetch(client *api.Client, db *cache.DB, cfg config.Config) {
	docs, err := client.FetchFeed(context.Background(), api.FeedTrending, 1, cfg.FeedPageSize)
	if err != nil {
		return
	}
	refs := make([]api.DocRef, 0, len(docs))
	for i := range docs {
		doc := &docs[i]
		refs = append(refs, api.DocRef{ContentType: doc.ContentType, ID: doc.ID})
		db.PutDocument(doc)
	}
	db.PutFeedList(string(api.FeedTrending), refs)
}
