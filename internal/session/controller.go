package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"lawqa/internal/domain"
	"lawqa/internal/extractor"
	"lawqa/internal/index"
)

// ErrNoQuery is returned by Regenerate before any successful Submit.
var ErrNoQuery = errors.New("no query has been submitted yet")

// Config holds session tunables.
type Config struct {
	TopK     int
	AudioDir string
}

// Result is what a submit or regenerate action exposes to the surface. A
// speech failure is independent of the answer: Answer is always set when
// the action succeeded, and SpeechErr carries the non-fatal rendering
// failure if any.
type Result struct {
	Answer    string
	Sections  []domain.Section
	AudioPath string
	SpeechErr error
}

// Controller sequences the retrieval pipeline and owns all per-session
// state: the loaded index, the retained section sequence, the last query
// and its retrieved sections, and the append-only history log. It is not
// safe for concurrent use; each session gets its own Controller.
type Controller struct {
	corpusPath  string
	store       index.Store
	embedder    domain.Embedder
	generator   domain.Generator
	synthesizer domain.Synthesizer
	cfg         Config

	// OnProgress, when set before the first action, observes cold-start
	// embedding progress.
	OnProgress func(done, total int)

	ready        bool
	idx          *index.Flat
	sections     []domain.Section
	lastQuery    string
	lastSections []domain.Section
	history      []domain.HistoryEntry
}

// NewController wires a session over the given corpus, artifact store and
// service ports.
func NewController(corpusPath string, store index.Store, emb domain.Embedder, gen domain.Generator, syn domain.Synthesizer, cfg Config) *Controller {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	return &Controller{
		corpusPath:  corpusPath,
		store:       store,
		embedder:    emb,
		generator:   gen,
		synthesizer: syn,
		cfg:         cfg,
	}
}

// Initialize performs the one-time transition to the ready state: extract
// the numbered sections, drop the front matter, then load the persisted
// index or build it by embedding every retained section in order. It is
// idempotent and is invoked lazily by Submit.
func (c *Controller) Initialize(ctx context.Context) error {
	if c.ready {
		return nil
	}

	extracted, err := extractor.ExtractFile(c.corpusPath)
	if err != nil {
		return err
	}
	corpus := domain.Corpus(extracted)
	texts := make([]string, len(corpus))
	for i, s := range corpus {
		texts[i] = s.Text
	}

	idx, err := c.store.LoadOrBuild(ctx, texts, c.embedder, c.OnProgress)
	if err != nil {
		return err
	}

	// The i-th indexed vector corresponds to the i-th retained section.
	// Extra trailing sections (source text grew since indexing) are
	// dropped; a shrunken source cannot be realigned positionally.
	if idx.Len() > len(corpus) {
		return fmt.Errorf("index holds %d vectors but the source text yields %d sections: %w",
			idx.Len(), len(corpus), index.ErrArtifactMismatch)
	}
	c.sections = corpus[:idx.Len()]
	c.idx = idx
	c.ready = true
	return nil
}

// Submit runs the full pipeline for a query: embed, search, generate,
// record history, render speech. The returned error covers the question
// answering itself; a speech rendering failure is reported in the Result
// and leaves the answer intact.
func (c *Controller) Submit(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query is empty")
	}
	if err := c.Initialize(ctx); err != nil {
		return nil, err
	}

	vec, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := c.idx.Search(vec, c.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	retrieved := make([]domain.Section, 0, len(hits))
	for _, h := range hits {
		if h.Position < 0 {
			continue
		}
		retrieved = append(retrieved, c.sections[h.Position])
	}

	res, err := c.generate(ctx, query, retrieved, "")
	if err != nil {
		return nil, err
	}
	c.lastQuery = query
	c.lastSections = retrieved
	return res, nil
}

// Regenerate re-runs generation over the stored last query and its
// retrieved sections, without re-embedding or re-searching.
func (c *Controller) Regenerate(ctx context.Context) (*Result, error) {
	if c.lastQuery == "" {
		return nil, ErrNoQuery
	}
	return c.generate(ctx, c.lastQuery, c.lastSections, "_regen")
}

func (c *Controller) generate(ctx context.Context, query string, retrieved []domain.Section, suffix string) (*Result, error) {
	texts := make([]string, len(retrieved))
	for i, s := range retrieved {
		texts[i] = s.Text
	}
	answerText, err := c.generator.Generate(ctx, query, texts)
	if err != nil {
		return nil, err
	}

	c.history = append(c.history, domain.HistoryEntry{Question: query, Answer: answerText})
	res := &Result{Answer: answerText, Sections: retrieved}

	dest := filepath.Join(c.cfg.AudioDir, fmt.Sprintf("answer_%d%s.mp3", len(c.history), suffix))
	path, synErr := c.synthesizer.Synthesize(ctx, answerText, dest)
	if synErr != nil {
		res.SpeechErr = synErr
	} else {
		res.AudioPath = path
	}
	return res, nil
}

// History returns a copy of the session log, oldest first. Surfaces render
// it most-recent-first.
func (c *Controller) History() []domain.HistoryEntry {
	out := make([]domain.HistoryEntry, len(c.history))
	copy(out, c.history)
	return out
}

// LastQuery returns the most recently submitted query, empty before the
// first Submit.
func (c *Controller) LastQuery() string { return c.lastQuery }

// Sections returns the retained section count, zero before initialization.
func (c *Controller) Sections() int { return len(c.sections) }
