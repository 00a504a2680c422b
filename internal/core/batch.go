package core

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"hearsay/internal/articulation"
	"hearsay/internal/logging"
	"hearsay/internal/tokenizer"
)

// ReadSentences splits a text file into sentences.
func ReadSentences(path string) ([]string, error) {
	t, err := tokenizer.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer t.Close()

	var out []string
	for _, s := range tokenizer.Split(t) {
		if text := s.Text(); text != "" {
			out = append(out, text)
		}
	}
	return out, nil
}

// ProcessBatch parses sentences in parallel with at most workers goroutines.
// The grammar is not taught during a batch. Results keep input order; the
// first error cancels the rest.
func (f *Frontend) ProcessBatch(ctx context.Context, sentences []string, workers int) ([]*articulation.Envelope, error) {
	if workers <= 0 {
		workers = 1
	}
	timer := logging.StartTimer(logging.CategoryPerception, "batch")
	defer timer.Stop()

	out := make([]*articulation.Envelope, len(sentences))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, s := range sentences {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			env, err := f.Process(gctx, Request{Text: s, ReadOnly: true})
			if err != nil {
				return fmt.Errorf("sentence %d: %w", i+1, err)
			}
			out[i] = env
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logging.Perception("batch of %d sentences on %d workers", len(sentences), workers)
	return out, nil
}
