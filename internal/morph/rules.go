package morph

import "strings"

// inflect applies the regular suffix rule for tag to a single word.
func inflect(w string, tag Tag) string {
	if w == "" {
		return w
	}
	switch tag {
	case TagAKOS, TagACTS:
		return plural(w)
	case TagAKOP, TagNameP:
		return possessive(w)
	case TagHQEr:
		return suffix(w, "er")
	case TagHQEst:
		return suffix(w, "est")
	case TagACTD:
		return suffix(w, "ed")
	case TagACTG:
		return suffix(w, "ing")
	case TagMOD:
		return adverb(w)
	}
	return w
}

func plural(w string) string {
	lw := strings.ToLower(w)
	n := len(lw)
	switch {
	case n >= 2 && lw[n-1] == 'y' && !isVowel(lw[n-2]):
		return w[:n-1] + "ies"
	case strings.HasSuffix(lw, "ch"), strings.HasSuffix(lw, "sh"),
		strings.HasSuffix(lw, "s"), strings.HasSuffix(lw, "x"), strings.HasSuffix(lw, "z"):
		return w + "es"
	}
	return w + "s"
}

func possessive(w string) string {
	if strings.HasSuffix(strings.ToLower(w), "s") {
		return w + "'"
	}
	return w + "'s"
}

// noDouble lists final consonants that never double before sfx.
func noDouble(sfx string) string {
	if sfx == "er" || sfx == "est" {
		return "wxylszr"
	}
	return "wxylsz"
}

func suffix(w, sfx string) string {
	if strings.Contains(w, "-") {
		return w + "-" + sfx
	}
	lw := strings.ToLower(w)
	n := len(lw)
	last := lw[n-1]

	switch {
	case last == 'e':
		if sfx == "ing" {
			if strings.HasSuffix(lw, "ie") && n > 2 {
				return w[:n-2] + "ying"
			}
			if n >= 2 && (lw[n-2] == 'e' || lw[n-2] == 'o' || lw[n-2] == 'y') {
				return w + sfx
			}
		}
		if n == 1 {
			return w + sfx
		}
		return w[:n-1] + sfx
	case last == 'y' && n >= 2 && !isVowel(lw[n-2]):
		if sfx[0] == 'i' {
			return w + sfx
		}
		return w[:n-1] + "i" + sfx
	case doubles(lw, sfx):
		return w + string(w[n-1]) + sfx
	}
	return w + sfx
}

func adverb(w string) string {
	lw := strings.ToLower(w)
	n := len(lw)
	switch {
	case strings.HasSuffix(lw, "ll"):
		return w + "y"
	case n >= 2 && lw[n-1] == 'e' && isVowel(lw[n-2]):
		return w[:n-1] + "ly"
	case n >= 2 && lw[n-1] == 'y' && !isVowel(lw[n-2]):
		return w[:n-1] + "ily"
	}
	return w + "ly"
}

// doubles reports whether the final consonant of w doubles before sfx.
func doubles(lw, sfx string) bool {
	if !endsCVC(lw) || vowelGroups(lw) != 1 {
		return false
	}
	return !strings.ContainsRune(noDouble(sfx), rune(lw[len(lw)-1]))
}

func isVowel(c byte) bool {
	switch c {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

func isLetter(c byte) bool { return c >= 'a' && c <= 'z' }

func endsCVC(lw string) bool {
	n := len(lw)
	if n < 3 {
		return false
	}
	c1, v, c2 := lw[n-3], lw[n-2], lw[n-1]
	return isLetter(c1) && !isVowel(c1) && isVowel(v) && isLetter(c2) && !isVowel(c2)
}

func vowelGroups(lw string) int {
	groups := 0
	in := false
	for i := 0; i < len(lw); i++ {
		v := isVowel(lw[i])
		if v && !in {
			groups++
		}
		in = v
	}
	return groups
}

// =============================================================================
// INVERSE RULES
// =============================================================================

// candidates lists possible bases of surface for tag, most specific rule first.
func candidates(surface string, tag Tag) []string {
	var out []string
	add := func(s string) {
		if s == "" {
			return
		}
		for _, o := range out {
			if o == s {
				return
			}
		}
		out = append(out, s)
	}
	ls := strings.ToLower(surface)
	n := len(ls)

	switch tag {
	case TagAKOS, TagACTS:
		if strings.HasSuffix(ls, "ies") && n > 3 {
			add(surface[:n-3] + "y")
		}
		if strings.HasSuffix(ls, "es") && n > 3 {
			c := ls[n-3]
			if (c == 'z' || c == 's' || c == 'c') && (isVowel(ls[n-4]) || ls[n-4] == 'n') {
				add(surface[:n-1])
			}
			add(surface[:n-2])
		}
		if strings.HasSuffix(ls, "s") && !strings.HasSuffix(ls, "ss") {
			add(surface[:n-1])
		}
	case TagAKOP, TagNameP:
		if strings.HasSuffix(ls, "'s") {
			add(surface[:n-2])
		} else if strings.HasSuffix(ls, "'") {
			add(surface[:n-1])
		}
	case TagHQEr:
		return unsuffix(surface, "er")
	case TagHQEst:
		return unsuffix(surface, "est")
	case TagACTD:
		return unsuffix(surface, "ed")
	case TagACTG:
		return unsuffix(surface, "ing")
	case TagMOD:
		if !strings.HasSuffix(ls, "ly") || n < 3 {
			break
		}
		stem := surface[:n-2]
		lstem := ls[:n-2]
		if strings.HasSuffix(lstem, "i") {
			add(stem[:len(stem)-1] + "y")
		}
		// full -> fully, but formal -> formally
		if strings.HasSuffix(lstem, "l") && endsCVC(lstem) && vowelGroups(lstem) == 1 {
			add(stem + "l")
		}
		if isVowel(lstem[len(lstem)-1]) {
			add(stem + "e")
		}
		add(stem)
	}
	if len(out) == 0 {
		out = append(out, surface)
	}
	return out
}

func unsuffix(surface, sfx string) []string {
	ls := strings.ToLower(surface)
	if strings.HasSuffix(ls, "-"+sfx) {
		return []string{surface[:len(surface)-len(sfx)-1]}
	}
	if !strings.HasSuffix(ls, sfx) || len(ls) <= len(sfx) {
		return []string{surface}
	}
	stem := surface[:len(surface)-len(sfx)]
	lstem := ls[:len(ls)-len(sfx)]
	n := len(lstem)

	var out []string
	if sfx[0] != 'i' && lstem[n-1] == 'i' && n > 1 {
		out = append(out, stem[:n-1]+"y")
	}
	if sfx == "ing" && lstem[n-1] == 'y' && n > 1 {
		out = append(out, stem[:n-1]+"ie")
	}
	if n >= 2 && lstem[n-1] == lstem[n-2] && !isVowel(lstem[n-1]) && endsCVC(lstem[:n-1]) {
		out = append(out, stem[:n-1])
	}
	out = append(out, stem, stem+"e")
	return out
}
