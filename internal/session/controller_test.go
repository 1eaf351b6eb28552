package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lawqa/internal/index"
)

const statuteText = "The Code\n1. Short title and commencement.\n2. Theft is punishable.\n3. Assault is punishable.\n4. Mischief is punishable.\n"

type stubEmbedder struct {
	dim   int
	calls int
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	s.calls++
	vec := make([]float32, s.dim)
	for i, r := range text {
		vec[i%s.dim] += float32(r)
	}
	return vec, nil
}

func (s *stubEmbedder) Dimension() int { return s.dim }

type stubGenerator struct {
	calls     int
	lastQuery string
	lastTexts []string
	err       error
}

func (s *stubGenerator) Generate(_ context.Context, question string, sections []string) (string, error) {
	s.calls++
	s.lastQuery = question
	s.lastTexts = sections
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("answer %d to %q", s.calls, question), nil
}

type stubSynth struct {
	err   error
	calls int
}

func (s *stubSynth) Synthesize(_ context.Context, text, dest string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if err := os.WriteFile(dest, []byte(text), 0o644); err != nil {
		return "", err
	}
	return dest, nil
}

type fixture struct {
	ctrl *Controller
	emb  *stubEmbedder
	gen  *stubGenerator
	syn  *stubSynth
}

func newFixture(t *testing.T, statute string) *fixture {
	t.Helper()
	dir := t.TempDir()
	corpus := filepath.Join(dir, "statute.txt")
	require.NoError(t, os.WriteFile(corpus, []byte(statute), 0o644))

	emb := &stubEmbedder{dim: 8}
	gen := &stubGenerator{}
	syn := &stubSynth{}
	store := index.Store{
		IndexPath:  filepath.Join(dir, "index.gob"),
		MatrixPath: filepath.Join(dir, "embeddings.f32"),
	}
	ctrl := NewController(corpus, store, emb, gen, syn, Config{TopK: 3, AudioDir: dir})
	return &fixture{ctrl: ctrl, emb: emb, gen: gen, syn: syn}
}

func TestInitializeColdStart(t *testing.T) {
	f := newFixture(t, statuteText)
	require.NoError(t, f.ctrl.Initialize(context.Background()))

	// Four markers, front matter dropped: three retained sections, one
	// embedding call each.
	assert.Equal(t, 3, f.ctrl.Sections())
	assert.Equal(t, 3, f.emb.calls)
}

func TestInitializeIdempotent(t *testing.T) {
	f := newFixture(t, statuteText)
	require.NoError(t, f.ctrl.Initialize(context.Background()))
	calls := f.emb.calls
	require.NoError(t, f.ctrl.Initialize(context.Background()))
	assert.Equal(t, calls, f.emb.calls)
}

func TestSubmitAppendsHistory(t *testing.T) {
	f := newFixture(t, statuteText)

	res, err := f.ctrl.Submit(context.Background(), "is theft a crime?")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Answer)
	assert.NotEmpty(t, res.AudioPath)
	assert.NoError(t, res.SpeechErr)
	assert.FileExists(t, res.AudioPath)
	assert.Len(t, res.Sections, 3)

	history := f.ctrl.History()
	require.Len(t, history, 1)
	assert.Equal(t, "is theft a crime?", history[0].Question)
	assert.Equal(t, res.Answer, history[0].Answer)
}

func TestThreeSubmitsThreeEntries(t *testing.T) {
	f := newFixture(t, statuteText)
	for _, q := range []string{"theft?", "assault?", "mischief?"} {
		_, err := f.ctrl.Submit(context.Background(), q)
		require.NoError(t, err)
	}
	history := f.ctrl.History()
	require.Len(t, history, 3)
	assert.Equal(t, "theft?", history[0].Question)
	assert.Equal(t, "mischief?", history[2].Question)
}

func TestSubmitEmptyQuery(t *testing.T) {
	f := newFixture(t, statuteText)
	_, err := f.ctrl.Submit(context.Background(), "   ")
	assert.Error(t, err)
	assert.Empty(t, f.ctrl.History())
}

func TestRegenerateWithoutPriorQuery(t *testing.T) {
	f := newFixture(t, statuteText)
	_, err := f.ctrl.Regenerate(context.Background())
	assert.ErrorIs(t, err, ErrNoQuery)
	assert.Empty(t, f.ctrl.History())
}

func TestRegenerateReusesRetrievedSections(t *testing.T) {
	f := newFixture(t, statuteText)
	_, err := f.ctrl.Submit(context.Background(), "is theft a crime?")
	require.NoError(t, err)

	embedCalls := f.emb.calls
	firstTexts := append([]string(nil), f.gen.lastTexts...)

	res, err := f.ctrl.Regenerate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, embedCalls, f.emb.calls, "regenerate must not re-embed")
	assert.Equal(t, firstTexts, f.gen.lastTexts, "regenerate must reuse the stored sections")
	assert.Equal(t, "is theft a crime?", f.gen.lastQuery)
	assert.Contains(t, res.AudioPath, "_regen.mp3")
	assert.Len(t, f.ctrl.History(), 2)
}

func TestSpeechFailureIsNonFatal(t *testing.T) {
	f := newFixture(t, statuteText)
	f.syn.err = errors.New("tts unreachable")

	res, err := f.ctrl.Submit(context.Background(), "is theft a crime?")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Answer)
	assert.Empty(t, res.AudioPath)
	assert.ErrorContains(t, res.SpeechErr, "tts unreachable")
	assert.Len(t, f.ctrl.History(), 1)
}

func TestGenerationFailureLeavesStateUntouched(t *testing.T) {
	f := newFixture(t, statuteText)
	f.gen.err = errors.New("model unavailable")

	_, err := f.ctrl.Submit(context.Background(), "is theft a crime?")
	assert.Error(t, err)
	assert.Empty(t, f.ctrl.History())
	assert.Empty(t, f.ctrl.LastQuery())
	assert.Equal(t, 0, f.syn.calls)
}

func TestWarmStartTruncatesGrownSource(t *testing.T) {
	dir := t.TempDir()
	corpus := filepath.Join(dir, "statute.txt")
	require.NoError(t, os.WriteFile(corpus, []byte(statuteText), 0o644))

	store := index.Store{
		IndexPath:  filepath.Join(dir, "index.gob"),
		MatrixPath: filepath.Join(dir, "embeddings.f32"),
	}
	emb := &stubEmbedder{dim: 8}
	first := NewController(corpus, store, emb, &stubGenerator{}, &stubSynth{}, Config{AudioDir: dir})
	require.NoError(t, first.Initialize(context.Background()))
	require.Equal(t, 3, first.Sections())

	// The source grows by one section after the artifacts were written.
	grown := statuteText + "5. Robbery is punishable.\n"
	require.NoError(t, os.WriteFile(corpus, []byte(grown), 0o644))

	second := NewController(corpus, store, emb, &stubGenerator{}, &stubSynth{}, Config{AudioDir: dir})
	require.NoError(t, second.Initialize(context.Background()))
	assert.Equal(t, 3, second.Sections(), "extra trailing sections are dropped to match the stored count")
}

func TestWarmStartShrunkenSourceFails(t *testing.T) {
	dir := t.TempDir()
	corpus := filepath.Join(dir, "statute.txt")
	require.NoError(t, os.WriteFile(corpus, []byte(statuteText), 0o644))

	store := index.Store{
		IndexPath:  filepath.Join(dir, "index.gob"),
		MatrixPath: filepath.Join(dir, "embeddings.f32"),
	}
	emb := &stubEmbedder{dim: 8}
	first := NewController(corpus, store, emb, &stubGenerator{}, &stubSynth{}, Config{AudioDir: dir})
	require.NoError(t, first.Initialize(context.Background()))

	// Fewer sections than stored vectors: positional alignment is broken.
	shrunk := "The Code\n1. Short title.\n2. Theft is punishable.\n"
	require.NoError(t, os.WriteFile(corpus, []byte(shrunk), 0o644))

	second := NewController(corpus, store, emb, &stubGenerator{}, &stubSynth{}, Config{AudioDir: dir})
	err := second.Initialize(context.Background())
	assert.ErrorIs(t, err, index.ErrArtifactMismatch)
}

func TestSubmitRetrievalOrderIsClosestFirst(t *testing.T) {
	f := newFixture(t, statuteText)
	// Querying with the exact text of a retained section makes it the
	// closest neighbor (distance zero under the deterministic stub).
	_, err := f.ctrl.Submit(context.Background(), "3. Assault is punishable.")
	require.NoError(t, err)
	require.NotEmpty(t, f.gen.lastTexts)
	assert.Equal(t, "3. Assault is punishable.", f.gen.lastTexts[0])
}
