package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"signserver/internal/config"
	"signserver/internal/logger"
	"signserver/internal/services/weights"
)

func main() {
	cfg := config.Load()

	modelURL := flag.String("model-url", cfg.ModelURL, "Model download URL")
	classesURL := flag.String("classes-url", cfg.ClassNamesURL, "Class names download URL")
	modelPath := flag.String("model", cfg.ModelPath, "Model destination path")
	classesPath := flag.String("classes", cfg.ClassNamesPath, "Class names destination path")
	force := flag.Bool("force", false, "Redownload even when the files already exist")
	flag.Parse()

	cfg.ModelURL = *modelURL
	cfg.ClassNamesURL = *classesURL
	cfg.ModelPath = *modelPath
	cfg.ClassNamesPath = *classesPath

	if cfg.ModelURL == "" {
		log.Fatal("No model URL configured, set -model-url or MODEL_URL")
	}

	lg, err := logger.NewLogger(cfg.LogDirectory)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer lg.Close()

	fetcher := weights.NewFetcher(lg)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	start := time.Now()
	if *force {
		if err := fetcher.Download(ctx, cfg.ModelURL, cfg.ModelPath); err != nil {
			log.Fatalf("Model download failed: %v", err)
		}
		if cfg.ClassNamesURL != "" {
			if err := fetcher.Download(ctx, cfg.ClassNamesURL, cfg.ClassNamesPath); err != nil {
				log.Fatalf("Class names download failed: %v", err)
			}
		}
	} else if err := fetcher.EnsureModel(ctx, cfg); err != nil {
		log.Fatalf("Download failed: %v", err)
	}

	fmt.Printf("✅ Model files ready in %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("   Model: %s\n", cfg.ModelPath)
	fmt.Printf("   Classes: %s\n", cfg.ClassNamesPath)
}
