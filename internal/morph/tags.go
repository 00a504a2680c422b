package morph

import (
	"fmt"
	"strings"
)

// Tag is a packed set of morphology classes. Requests normally carry one bit.
type Tag uint16

const (
	TagName Tag = 1 << iota
	TagNameP
	TagAKO
	TagAKOS
	TagAKOP
	TagHQ
	TagHQEr
	TagHQEst
	TagACT
	TagACTS
	TagACTD
	TagACTG
	TagMOD
)

// Short aliases used in exception tables.
const (
	NPL   = TagAKOS  // noun plural
	NPOS  = TagAKOP  // noun possessive
	ACOMP = TagHQEr  // comparative
	ASUP  = TagHQEst // superlative
	ADV   = TagMOD   // adverb from adjective
	VPRES = TagACTS  // third singular
	VPAST = TagACTD
	VPROG = TagACTG
)

var tagNames = []struct {
	tag  Tag
	name string
}{
	{TagName, "NAME"},
	{TagNameP, "NAME-P"},
	{TagAKO, "AKO"},
	{TagAKOS, "AKO-S"},
	{TagAKOP, "AKO-P"},
	{TagHQ, "HQ"},
	{TagHQEr, "HQ-ER"},
	{TagHQEst, "HQ-EST"},
	{TagACT, "ACT"},
	{TagACTS, "ACT-S"},
	{TagACTD, "ACT-D"},
	{TagACTG, "ACT-G"},
	{TagMOD, "MOD"},
}

var tagAliases = map[string]Tag{
	"npl": NPL, "plural": NPL,
	"npos": NPOS, "nposs": NPOS,
	"pposs": TagNameP,
	"acomp": ACOMP, "comp": ACOMP,
	"asup": ASUP, "sup": ASUP,
	"adv": ADV,
	"vs":  VPRES, "v3s": VPRES, "vpres": VPRES,
	"ved": VPAST, "vpast": VPAST,
	"ving": VPROG, "vprog": VPROG,
}

// String returns the section name of the lowest set bit.
func (t Tag) String() string {
	p := t.primary()
	for _, tn := range tagNames {
		if tn.tag == p {
			return tn.name
		}
	}
	return fmt.Sprintf("Tag(%#x)", uint16(t))
}

// ParseTag accepts section names (AKO-S) and table aliases (npl), case-insensitively.
func ParseTag(s string) (Tag, error) {
	s = strings.TrimSpace(s)
	for _, tn := range tagNames {
		if strings.EqualFold(tn.name, s) {
			return tn.tag, nil
		}
	}
	if t, ok := tagAliases[strings.ToLower(s)]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("unknown morphology tag %q", s)
}

func (t Tag) primary() Tag {
	return t & -t
}

// Class returns the base class of the tag (AKO for AKO-S, HQ for HQ-ER, ...).
// MOD counts as an adjective derivation.
func (t Tag) Class() Tag {
	switch t.primary() {
	case TagName, TagNameP:
		return TagName
	case TagAKO, TagAKOS, TagAKOP:
		return TagAKO
	case TagHQ, TagHQEr, TagHQEst, TagMOD:
		return TagHQ
	case TagACT, TagACTS, TagACTD, TagACTG:
		return TagACT
	}
	return 0
}

// IsBase reports whether the tag names an uninflected class.
func (t Tag) IsBase() bool {
	switch t.primary() {
	case TagName, TagAKO, TagHQ, TagACT:
		return true
	}
	return false
}

// Derived lists the inflected sections emitted for a base class section.
func Derived(class Tag) []Tag {
	switch class {
	case TagAKO:
		return []Tag{TagAKOS, TagAKOP}
	case TagHQ:
		return []Tag{TagHQEr, TagHQEst}
	case TagACT:
		return []Tag{TagACTS, TagACTG, TagACTD}
	case TagName:
		return []Tag{TagNameP}
	}
	return nil
}
