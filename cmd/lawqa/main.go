package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"lawqa/internal/answer"
	"lawqa/internal/config"
	"lawqa/internal/embedding"
	"lawqa/internal/index"
	"lawqa/internal/session"
	"lawqa/internal/speech"
	"lawqa/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/lawqa/config.yaml if not provided)")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Assemble components
	emb, err := embedding.NewClient(embedding.Config{
		BaseURL: cfg.Embedder.BaseURL,
		Model:   cfg.Embedder.Model,
		Timeout: time.Duration(cfg.Embedder.TimeoutSecs) * time.Second,
	})
	if err != nil {
		log.Fatalf("embedder init failed: %v", err)
	}

	model, err := answer.NewOllamaModel(answer.ModelConfig{
		BaseURL: cfg.Generator.BaseURL,
		Model:   cfg.Generator.Model,
		Timeout: time.Duration(cfg.Generator.TimeoutSecs) * time.Second,
	})
	if err != nil {
		log.Fatalf("generator init failed: %v", err)
	}
	gen := answer.NewGenerator(model, cfg.Generator.ReasoningMarker)

	syn := speech.NewRenderer(speech.Config{
		BaseURL:  cfg.Speech.BaseURL,
		Language: cfg.Speech.Language,
		Timeout:  time.Duration(cfg.Speech.TimeoutSecs) * time.Second,
	})

	store := index.Store{IndexPath: cfg.Index.Path, MatrixPath: cfg.Index.MatrixPath}
	ctrl := session.NewController(cfg.Corpus.Path, store, emb, gen, syn, session.Config{
		TopK:     cfg.Retrieval.TopK,
		AudioDir: cfg.Speech.OutputDir,
	})

	if !store.Exists() {
		fmt.Println("No persisted index found; embedding the corpus (one-time cold start)...")
		ctrl.OnProgress = func(done, total int) {
			fmt.Printf("\r  embedded %d/%d sections", done, total)
			if done == total {
				fmt.Println()
			}
		}
	}
	if err := ctrl.Initialize(context.Background()); err != nil {
		log.Fatalf("initialization failed: %v", err)
	}

	m := tui.New(ctrl)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal(err)
	}
}
