// Package assoc walks a selected derivation and emits the association list: the
// tab-separated SLOT=value entries and phrase markers a reasoner consumes.
package assoc

import (
	"strings"

	"hearsay/internal/grammar"
)

// Kind tells the three entry forms apart.
type Kind uint8

const (
	Slot Kind = iota
	Marker
	Closer
)

// Entry is one element of an association list.
type Entry struct {
	Kind  Kind
	Name  string // slot name without ^, marker label, or the bare closer
	Value string
}

func (e Entry) String() string {
	if e.Kind == Slot {
		return e.Name + "=" + e.Value
	}
	return e.Name
}

// List is an ordered association list.
type List struct {
	Entries []Entry
}

// String renders the list in wire form: each entry preceded by a tab.
func (l List) String() string {
	var sb strings.Builder
	for _, e := range l.Entries {
		sb.WriteByte('\t')
		sb.WriteString(e.String())
	}
	return sb.String()
}

// Empty reports whether the list has no entries.
func (l List) Empty() bool { return len(l.Entries) == 0 }

// Slot returns the value of the first slot called name.
func (l List) Slot(name string) (string, bool) {
	for _, e := range l.Entries {
		if e.Kind == Slot && e.Name == name {
			return e.Value, true
		}
	}
	return "", false
}

// Slots returns the slot names in order of appearance, repeats included.
func (l List) Slots() []string {
	var out []string
	for _, e := range l.Entries {
		if e.Kind == Slot {
			out = append(out, e.Name)
		}
	}
	return out
}

// Fragments returns the phrase marker labels in order.
func (l List) Fragments() []string {
	var out []string
	for _, e := range l.Entries {
		if e.Kind == Marker {
			out = append(out, e.Name)
		}
	}
	return out
}

// Parse reads the wire form back. Text that is not an entry is skipped.
func Parse(s string) List {
	var l List
	for _, field := range strings.Split(s, "\t") {
		field = strings.TrimSpace(field)
		switch {
		case field == "":
		case len(field) == 1 && grammar.IsMarker(field):
			l.Entries = append(l.Entries, Entry{Kind: Closer, Name: field})
		case grammar.IsMarker(field):
			l.Entries = append(l.Entries, Entry{Kind: Marker, Name: field})
		default:
			if name, value, ok := strings.Cut(field, "="); ok {
				l.Entries = append(l.Entries, Entry{Kind: Slot, Name: name, Value: value})
			}
		}
	}
	return l
}

// Navigator is the cursor protocol the builder walks.
type Navigator interface {
	Label() string
	Text() string
	Descend() bool
	Next() bool
	Ascend() bool
}

// Options controls list construction.
type Options struct {
	// Closing emits a bare !, $ or % after each phrase marker's contents.
	Closing bool
}

// Build walks the derivation under nav depth first, left to right, starting at
// the current focus and continuing with its following siblings.
func Build(nav Navigator, opts Options) List {
	b := builder{nav: nav, opts: opts}
	b.walk()
	return List{Entries: b.out}
}

type builder struct {
	nav  Navigator
	opts Options
	out  []Entry
}

func (b *builder) walk() {
	for {
		label := b.nav.Label()
		switch {
		case grammar.IsMarker(label):
			b.out = append(b.out, Entry{Kind: Marker, Name: label})
			b.children()
			if b.opts.Closing {
				b.out = append(b.out, Entry{Kind: Closer, Name: label[:1]})
			}
		case grammar.IsSlot(label):
			b.out = append(b.out, Entry{Kind: Slot, Name: grammar.SlotName(label), Value: b.slotValue(label)})
		default:
			b.children()
		}
		if !b.nav.Next() {
			return
		}
	}
}

func (b *builder) children() {
	if b.nav.Descend() {
		b.walk()
		b.nav.Ascend()
	}
}

func (b *builder) slotValue(label string) string {
	if strings.HasPrefix(label, "^") {
		return b.nav.Text()
	}
	if b.nav.Descend() {
		v := b.nav.Label()
		b.nav.Ascend()
		return v
	}
	return b.nav.Text()
}
