package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"

	"lawqa/internal/config"
	"lawqa/internal/domain"
	"lawqa/internal/embedding"
	"lawqa/internal/extractor"
	"lawqa/internal/index"
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

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func run(cfg *config.AppConfig) error {
	sections, err := extractor.ExtractFile(cfg.Corpus.Path)
	if err != nil {
		return err
	}
	corpus := domain.Corpus(sections)
	if len(corpus) == 0 {
		return fmt.Errorf("no numbered sections found in %s", cfg.Corpus.Path)
	}
	color.Blue("Extracted %d sections from %s (front matter discarded)", len(corpus), cfg.Corpus.Path)

	emb, err := embedding.NewClient(embedding.Config{
		BaseURL: cfg.Embedder.BaseURL,
		Model:   cfg.Embedder.Model,
		Timeout: time.Duration(cfg.Embedder.TimeoutSecs) * time.Second,
	})
	if err != nil {
		return err
	}

	store := index.Store{IndexPath: cfg.Index.Path, MatrixPath: cfg.Index.MatrixPath}
	// Always rebuild: stale artifacts would silently misalign with an
	// updated source text.
	for _, path := range []string{cfg.Index.Path, cfg.Index.MatrixPath} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	texts := make([]string, len(corpus))
	for i, s := range corpus {
		texts[i] = s.Text
	}

	bar := getProgressBar(len(texts), " Embedding sections...")
	flat, err := store.LoadOrBuild(context.Background(), texts, emb, func(done, total int) {
		bar.Set(done)
	})
	if err != nil {
		return err
	}
	bar.Finish()
	fmt.Println()

	color.Green("✓ Indexed %d sections (dimension %d, model %s)", flat.Len(), flat.Dimension(), cfg.Embedder.Model)
	for _, path := range []string{cfg.Index.Path, cfg.Index.MatrixPath} {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		color.Green("✓ Wrote %s (%.2f KB)", path, float64(info.Size())/1024)
	}
	return nil
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("sections"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}
