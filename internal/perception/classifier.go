package perception

import (
	_ "embed"
	"fmt"
	"strings"

	"hearsay/internal/assoc"
	"hearsay/internal/config"
	"hearsay/internal/logging"
	"hearsay/internal/mangle"
)

//go:embed policy.mg
var policySource string

// Kinds of root category, as Mangle names.
const (
	KindQuestion = "/question"
	KindCommand  = "/command"
	KindFact     = "/fact"
	KindNewRule  = "/new_rule"
	KindNewOp    = "/new_op"
	KindReviseOp = "/revise_op"
)

// Input is what the classifier knows about one utterance.
type Input struct {
	ID            string
	List          assoc.List
	Labels        []string // labels of the selected derivation, root first
	Unknown       []string // words still unknown after typo correction
	AttentionOnly bool
	Terminator    string // ".", "!", "?" or ""
}

// Classifier evaluates the speech-act policy. It is safe for concurrent use.
type Classifier struct {
	policy *mangle.Program
	heads  []mangle.Fact
}

// NewClassifier builds a classifier from the speech configuration. A non-empty
// PolicyFile is loaded after the built-in policy and may add rules.
func NewClassifier(sc config.SpeechConfig) (*Classifier, error) {
	policy := mangle.NewProgram(0)
	if err := policy.Load("policy.mg", strings.NewReader(policySource)); err != nil {
		return nil, fmt.Errorf("failed to load speech-act policy: %w", err)
	}
	if sc.PolicyFile != "" {
		if err := policy.LoadFile(sc.PolicyFile); err != nil {
			return nil, err
		}
	}

	c := &Classifier{policy: policy}
	add := func(kind string, heads []string) {
		for _, h := range heads {
			c.heads = append(c.heads, mangle.NewFact("category_head", kind, h))
		}
	}
	add(KindQuestion, sc.QuestionHeads)
	add(KindCommand, sc.CommandHeads)
	add(KindFact, sc.FactHeads)
	add(KindNewRule, sc.RuleHeads)
	add(KindNewOp, sc.OpHeads)
	add(KindReviseOp, sc.ReviseHeads)
	return c, nil
}

// Facts renders in as policy facts.
func (c *Classifier) Facts(in Input) []mangle.Fact {
	u := in.ID
	if u == "" {
		u = "utterance"
	}
	fact := func(pred string, args ...any) mangle.Fact {
		return mangle.NewFact(pred, append([]any{u}, args...)...)
	}

	var facts []mangle.Fact
	if in.List.Empty() {
		facts = append(facts, fact("list_empty"))
	}
	if in.AttentionOnly {
		facts = append(facts, fact("attention_only"))
	}
	for _, w := range in.Unknown {
		facts = append(facts, fact("unknown_word", w))
	}
	for _, name := range in.List.Slots() {
		facts = append(facts, fact("assoc_slot", name))
	}
	frags := in.List.Fragments()
	for _, label := range frags {
		facts = append(facts, fact("fragment", label))
	}
	if len(frags) > 0 {
		facts = append(facts, fact("first_marker", frags[0][:1]))
	}
	for _, label := range in.Labels {
		facts = append(facts, fact("derivation_label", label))
	}
	if in.Terminator != "" {
		facts = append(facts, fact("terminator", in.Terminator))
	}
	return facts
}

// Classify returns the speech act for in.
func (c *Classifier) Classify(in Input) (SpeechAct, error) {
	facts := append(append([]mangle.Fact(nil), c.heads...), c.Facts(in)...)
	res, err := c.policy.Run(facts)
	if err != nil {
		return Huh, fmt.Errorf("failed to classify utterance: %w", err)
	}
	cands, err := res.Query("speech_act_candidate")
	if err != nil {
		return Huh, err
	}

	act, best := Huh, int64(-1)
	for _, f := range cands {
		rank, ok := f.Args[2].(int64)
		if !ok {
			continue
		}
		a, err := ParseSpeechAct(fmt.Sprint(f.Args[1]))
		if err != nil {
			logging.PerceptionError("policy derived %v: %v", f.Args[1], err)
			continue
		}
		if best < 0 || rank < best {
			act, best = a, rank
		}
	}
	logging.PerceptionDebug("utterance %s: %d candidates, act %s [%s]", in.ID, len(cands), act, strings.TrimSpace(in.List.String()))
	return act, nil
}
