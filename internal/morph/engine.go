// Package morph maps open-class words between base and surface forms. An exception
// table supplied by the grammar file takes precedence over deterministic suffix rules.
package morph

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"hearsay/internal/logging"
)

// ErrOutOfSpace is returned when the exception table is at capacity. The rule is lost;
// loading continues.
var ErrOutOfSpace = errors.New("morphology table full")

// DefaultMaxExceptions bounds the exception table when no limit is configured.
const DefaultMaxExceptions = 20000

type key struct {
	word string
	tag  Tag
}

// Engine holds the exception table and the base lexicon used to disambiguate
// base recovery. It is safe for concurrent use.
type Engine struct {
	mu      sync.RWMutex
	forward map[key]string
	reverse map[key]string
	bases   map[string]Tag
	max     int

	// Known, when set, is consulted in addition to the base lexicon.
	Known func(word string) bool
}

// New returns an empty engine. max <= 0 selects DefaultMaxExceptions.
func New(max int) *Engine {
	if max <= 0 {
		max = DefaultMaxExceptions
	}
	return &Engine{
		forward: make(map[key]string),
		reverse: make(map[key]string),
		bases:   make(map[string]Tag),
		max:     max,
	}
}

// Len returns the number of exceptions.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.forward)
}

// AddException records base*tag = surface. An existing (base, tag) is overwritten.
func (e *Engine) AddException(base string, tag Tag, surface string) error {
	base = strings.ToLower(strings.TrimSpace(base))
	surface = strings.TrimSpace(surface)
	if base == "" || surface == "" {
		return fmt.Errorf("empty word in exception %q * %s = %q", base, tag, surface)
	}
	tag = tag.primary()
	e.mu.Lock()
	defer e.mu.Unlock()
	k := key{base, tag}
	if old, ok := e.forward[k]; ok {
		delete(e.reverse, key{strings.ToLower(old), tag})
	} else if len(e.forward) >= e.max {
		logging.MorphWarn("exception table full at %d entries; dropped %s * %s = %s", e.max, base, tag, surface)
		return fmt.Errorf("%s * %s: %w", base, tag, ErrOutOfSpace)
	}
	e.forward[k] = surface
	e.reverse[key{strings.ToLower(surface), tag}] = base
	return nil
}

// Exception is one entry of the exception table.
type Exception struct {
	Base    string
	Tag     Tag
	Surface string
}

func (x Exception) String() string {
	return fmt.Sprintf("%s * %s = %s", x.Base, x.Tag, x.Surface)
}

// Exceptions returns the table sorted by base, then tag.
func (e *Engine) Exceptions() []Exception {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Exception, 0, len(e.forward))
	for k, s := range e.forward {
		out = append(out, Exception{Base: k.word, Tag: k.tag, Surface: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Base != out[j].Base {
			return out[i].Base < out[j].Base
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

// ParseLine reads one exception line of the form "base * tag = surface".
func (e *Engine) ParseLine(line string) error {
	star := strings.Index(line, "*")
	eq := strings.LastIndex(line, "=")
	if star < 0 || eq < star {
		logging.MorphWarn("malformed exception line %q", strings.TrimSpace(line))
		return fmt.Errorf("malformed exception line %q (want: base * tag = surface)", strings.TrimSpace(line))
	}
	tag, err := ParseTag(line[star+1 : eq])
	if err != nil {
		return err
	}
	return e.AddException(line[:star], tag, line[eq+1:])
}

// AddBase registers a base-lexicon word of the given class.
func (e *Engine) AddBase(word string, class Tag) {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bases[word] |= class
	// components of multi-word bases take part in recovery of their inflected word
	if strings.Contains(word, " ") {
		for _, part := range strings.Fields(word) {
			e.bases[part] |= class
		}
	}
}

// IsBase reports whether word is a registered base of any class in mask.
func (e *Engine) IsBase(word string, mask Tag) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.bases[strings.ToLower(word)]&mask != 0
}

func (e *Engine) known(word string) bool {
	if _, ok := e.bases[strings.ToLower(word)]; ok {
		return true
	}
	return e.Known != nil && e.Known(word)
}

// SurfaceOf returns the surface form of base for the requested tag.
func (e *Engine) SurfaceOf(base string, tag Tag) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.surfaceOfLocked(base, tag)
}

func (e *Engine) surfaceOfLocked(base string, tag Tag) string {
	tag = tag.primary()
	if s, ok := e.forward[key{strings.ToLower(base), tag}]; ok {
		return s
	}
	if tag.IsBase() || tag == 0 {
		return base
	}
	if i := strings.IndexByte(base, ' '); i >= 0 {
		if tag.Class() == TagACT {
			return e.surfaceOfLocked(base[:i], tag) + base[i:]
		}
		j := strings.LastIndexByte(base, ' ')
		return base[:j+1] + e.surfaceOfLocked(base[j+1:], tag)
	}
	return inflect(base, tag)
}

// BaseOf recovers the base form of surface for the given tag. Exceptions are
// consulted first, then inverse suffix rules. Inverse candidates are checked by
// regenerating the surface; a known base wins over an unknown one.
func (e *Engine) BaseOf(surface string, tag Tag) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.baseOfLocked(surface, tag)
}

func (e *Engine) baseOfLocked(surface string, tag Tag) string {
	tag = tag.primary()
	if b, ok := e.reverse[key{strings.ToLower(surface), tag}]; ok {
		return b
	}
	if tag.IsBase() || tag == 0 {
		return surface
	}
	if i := strings.IndexByte(surface, ' '); i >= 0 {
		if tag.Class() == TagACT {
			return e.baseOfLocked(surface[:i], tag) + surface[i:]
		}
		j := strings.LastIndexByte(surface, ' ')
		return surface[:j+1] + e.baseOfLocked(surface[j+1:], tag)
	}

	cands := candidates(surface, tag)
	var firstMatch string
	for _, c := range cands {
		if inflect(c, tag) != surface {
			continue
		}
		if e.known(c) {
			return c
		}
		if firstMatch == "" {
			firstMatch = c
		}
	}
	if firstMatch != "" {
		return firstMatch
	}
	if len(cands) > 0 {
		return cands[0]
	}
	return surface
}
