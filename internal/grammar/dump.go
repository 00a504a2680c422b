package grammar

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Dump writes the grammar in loadable form: the morphology exceptions first,
// then every head with its concrete productions. Each head line carries its
// status as "@status" so a reload restores it.
func (g *Grammar) Dump(w io.Writer) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	bw := bufio.NewWriter(w)
	live := 0
	for _, p := range g.prods {
		if p != nil {
			live++
		}
	}
	fmt.Fprintf(bw, "; %d productions, %d heads\n", live, len(g.heads))

	if exc := g.morph.Exceptions(); len(exc) > 0 {
		fmt.Fprintf(bw, "\n=[%s-morph]\n", morphPrefix)
		for _, x := range exc {
			fmt.Fprintf(bw, "  %s\n", x)
		}
	}

	for _, head := range g.heads {
		ids := g.byHead[head]
		if len(ids) == 0 {
			continue
		}
		fmt.Fprintf(bw, "\n=[%s] %s%s\n", head, statusMark, g.prods[ids[0]].Status)
		for _, id := range ids {
			exp := g.prods[id].Expansion()
			if exp == "" {
				exp = "()"
			}
			fmt.Fprintf(bw, "  %s\n", exp)
		}
	}
	return bw.Flush()
}

// Save writes Dump output to path, replacing it atomically.
func (g *Grammar) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create grammar directory: %w", err)
		}
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}
	if err := g.Dump(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write grammar: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
