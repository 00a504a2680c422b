// Package articulation packages a classified utterance for the reasoner: the
// speech act, the association list, the raw input and a ready-to-speak reply.
package articulation

import (
	"time"

	"github.com/google/uuid"

	"hearsay/internal/assoc"
	"hearsay/internal/perception"
)

// Guess is a category inferred for an unknown word.
type Guess struct {
	Word    string `json:"word"`
	Tag     string `json:"tag"`
	Base    string `json:"base"`
	Pattern string `json:"pattern"`
	Taught  bool   `json:"taught"` // added to the grammar as a provisional production
}

// Envelope is the output record for one utterance.
type Envelope struct {
	ID         string               `json:"id"`
	Time       time.Time            `json:"time"`
	Act        perception.SpeechAct `json:"act"`
	Tag        int                  `json:"tag"`
	Assoc      string               `json:"assoc"`
	Slots      map[string]string    `json:"slots,omitempty"`
	Raw        string               `json:"raw"`
	Normalized string               `json:"normalized,omitempty"`
	Marked     string               `json:"marked,omitempty"`
	Surface    string               `json:"surface"`
	Unknown    []string             `json:"unknown,omitempty"`
	Fixes      []string             `json:"fixes,omitempty"`
	Guesses    []Guess              `json:"guesses,omitempty"`
	Rank       string               `json:"rank,omitempty"`
	Ambiguous  bool                 `json:"ambiguous,omitempty"`
	Attention  bool                 `json:"attention"`

	List assoc.List `json:"-"`
}

// NewEnvelope starts an envelope for raw with a fresh utterance id.
func NewEnvelope(raw string) *Envelope {
	return &Envelope{
		ID:   uuid.NewString(),
		Time: time.Now().UTC(),
		Raw:  raw,
	}
}

// SetList records the association list in both its wire and map forms. For
// repeated slots the first value wins.
func (e *Envelope) SetList(l assoc.List) {
	e.List = l
	e.Assoc = l.String()
	e.Slots = nil
	for _, entry := range l.Entries {
		if entry.Kind != assoc.Slot {
			continue
		}
		if e.Slots == nil {
			e.Slots = make(map[string]string)
		}
		if _, ok := e.Slots[entry.Name]; !ok {
			e.Slots[entry.Name] = entry.Value
		}
	}
}

// SetAct records the speech act and its integer tag.
func (e *Envelope) SetAct(a perception.SpeechAct) {
	e.Act = a
	e.Tag = int(a)
}
